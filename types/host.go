package types

import (
	"context"
	"time"
)

type Host interface {
	Definition() *StateMachine
	TokenSink() TokenSink
	/**
	 * Execute runs the state machine to completion with input.
	 * A failed execution is reported through ExecutionResult.IsSuccess,
	 * the error is only set when the execution could not be started.
	 */
	Execute(ctx context.Context, input Data) (*ExecutionResult, error)
	/**
	 * close the host, pending lifecycle notifications are delivered first.
	 */
	Close(ctx context.Context) error
}

type ExecutionEvent struct {
	ExecutionID  string
	StateMachine string
	Time         time.Time
	Input        Data
	// Result is only set on ExecutionStopped
	Result *ExecutionResult
}

/**
 * ExecutionObserver is notified asynchronously, a slow observer
 * delays later notifications but never the execution itself.
 */
type ExecutionObserver interface {
	ExecutionStarted(evt *ExecutionEvent)
	ExecutionStopped(evt *ExecutionEvent)
}
