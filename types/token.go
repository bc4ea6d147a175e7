package types

import "context"

type TokenStatus string

const (
	TokenWaiting   TokenStatus = "WAITING"
	TokenSucceeded TokenStatus = "SUCCEEDED"
	TokenFailed    TokenStatus = "FAILED"
)

func (s TokenStatus) IsDone() bool {
	return s == TokenSucceeded || s == TokenFailed
}

/**
 * TokenSink holds the completion status of task tokens. It may be shared
 * by several executions and processes, so implementations must be safe
 * for concurrent use and must not cache values between calls.
 * The engine only ever overwrites statuses, it never deletes them.
 */
type TokenSink interface {
	// GetStatus returns defaultStatus when the token is unknown.
	GetStatus(ctx context.Context, token string, defaultStatus TokenStatus) (TokenStatus, error)
	SetStatus(ctx context.Context, token string, status TokenStatus) error
}
