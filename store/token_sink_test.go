package store_test

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"

	"github.com/warriorguo/asl/store"
	"github.com/warriorguo/asl/store/mem"
	"github.com/warriorguo/asl/types"
)

func TestTokenSink_Status(t *testing.T) {
	ctx := context.Background()
	sink := store.NewTokenSink(mem.NewMemStore())

	status, err := sink.GetStatus(ctx, "unknown", types.TokenWaiting)
	assert.Nil(t, err)
	assert.Equal(t, types.TokenWaiting, status)

	assert.Nil(t, sink.SetStatus(ctx, "t1", types.TokenWaiting))
	assert.Nil(t, sink.SetStatus(ctx, "t2", types.TokenWaiting))
	assert.Nil(t, sink.SetStatus(ctx, "t3", types.TokenWaiting))

	assert.Nil(t, sink.Succeed(ctx, "t1"))
	assert.Nil(t, sink.Fail(ctx, "t2"))

	status, err = sink.GetStatus(ctx, "t1", types.TokenWaiting)
	assert.Nil(t, err)
	assert.Equal(t, types.TokenSucceeded, status)

	status, err = sink.GetStatus(ctx, "t2", types.TokenWaiting)
	assert.Nil(t, err)
	assert.Equal(t, types.TokenFailed, status)

	waiting, err := sink.Waiting(ctx)
	assert.Nil(t, err)
	assert.Equal(t, []string{"t3"}, waiting)

	assert.Nil(t, sink.Forget(ctx, "t3"))
	status, err = sink.GetStatus(ctx, "t3", types.TokenFailed)
	assert.Nil(t, err)
	assert.Equal(t, types.TokenFailed, status)
}

func TestTokenSink_InvalidStatus(t *testing.T) {
	sink := store.NewTokenSink(mem.NewMemStore())
	err := sink.SetStatus(context.Background(), "t1", types.TokenStatus("DONE"))
	assert.True(t, errors.IsNotValid(err))
}

func TestTokenSink_StoreError(t *testing.T) {
	sink := store.NewTokenSink(mem.NewMemStoreWithErrHandler(func() error {
		return errors.New("store down")
	}))

	status, err := sink.GetStatus(context.Background(), "t1", types.TokenSucceeded)
	assert.NotNil(t, err)
	assert.Equal(t, types.TokenSucceeded, status)
}
