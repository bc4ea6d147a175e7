package store

import (
	"context"
	"io"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/asl/types"
	"github.com/warriorguo/asl/utils"
)

const (
	TokenPrefix = "/token/"
)

var (
	_ types.TokenSink = &TokenSink{}
)

type tokenRecord struct {
	Status    types.TokenStatus `json:"status"`
	UpdatedAt time.Time         `json:"updated_at"`
}

/**
 * TokenSink keeps task token statuses in a Store.
 * External workers complete a token through SetStatus, the engine polls
 * GetStatus until the token is done.
 */
type TokenSink struct {
	store Store
}

func NewTokenSink(s Store) *TokenSink {
	return &TokenSink{store: s}
}

func (t *TokenSink) GetStatus(ctx context.Context, token string, defaultStatus types.TokenStatus) (types.TokenStatus, error) {
	b, err := t.store.Get(ctx, TokenPrefix, token)
	if err != nil {
		return defaultStatus, errors.Annotatef(err, "get token %s", token)
	}
	if b == nil {
		return defaultStatus, nil
	}

	record := &tokenRecord{}
	if err := utils.Unserialize(b, record); err != nil {
		return defaultStatus, errors.Annotatef(err, "decode token %s", token)
	}
	return record.Status, nil
}

func (t *TokenSink) SetStatus(ctx context.Context, token string, status types.TokenStatus) error {
	switch status {
	case types.TokenWaiting, types.TokenSucceeded, types.TokenFailed:
	default:
		return errors.NotValidf("token status %q", status)
	}

	b, err := utils.Serialize(&tokenRecord{Status: status, UpdatedAt: time.Now()})
	if err != nil {
		return errors.Trace(err)
	}
	if err := t.store.Set(ctx, TokenPrefix, token, b); err != nil {
		return errors.Annotatef(err, "set token %s to %s", token, status)
	}
	log.Debugf("token %s set to %s", token, status)
	return nil
}

// Succeed marks token as succeeded.
func (t *TokenSink) Succeed(ctx context.Context, token string) error {
	return t.SetStatus(ctx, token, types.TokenSucceeded)
}

// Fail marks token as failed.
func (t *TokenSink) Fail(ctx context.Context, token string) error {
	return t.SetStatus(ctx, token, types.TokenFailed)
}

// Forget drops a token, a later GetStatus returns the default status.
func (t *TokenSink) Forget(ctx context.Context, token string) error {
	return errors.Trace(t.store.Remove(ctx, TokenPrefix, token))
}

// Waiting lists the tokens still waiting for a worker.
func (t *TokenSink) Waiting(ctx context.Context) ([]string, error) {
	keys := make([]string, 0)
	if err := t.store.List(ctx, TokenPrefix, func(key string) bool {
		keys = append(keys, key)
		return true
	}); err != nil {
		return nil, errors.Annotatef(err, "list tokens")
	}

	waiting := make([]string, 0, len(keys))
	for _, token := range keys {
		status, err := t.GetStatus(ctx, token, types.TokenSucceeded)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if status == types.TokenWaiting {
			waiting = append(waiting, token)
		}
	}
	return waiting, nil
}

// Close releases the underlying store when it holds resources.
func (t *TokenSink) Close() error {
	if closer, ok := t.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
