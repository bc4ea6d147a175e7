package types

import (
	"context"
	"time"
)

type ExecutionStatus int32

const (
	Executing ExecutionStatus = 1
	Succeeded ExecutionStatus = 2
	Failed    ExecutionStatus = 3
)

func (s ExecutionStatus) String() string {
	switch s {
	case Executing:
		return "EXECUTING"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Context is handed to every task handler.
type Context interface {
	context.Context

	GetExecutionID() string
	GetStateName() string
	// GetTaskToken is empty unless the task resource ends in .waitForTaskToken
	GetTaskToken() string
}

type TaskHandler func(ctx Context, input Data) (Data, error)

// HandlerResolver binds a Task state to the handler serving its Resource.
type HandlerResolver func(task *TaskState) (TaskHandler, error)

// HistoryEntry records one state attempt. Path is the chain of
// Parallel/Map states and branch indexes leading to the state.
type HistoryEntry struct {
	Path      []string `json:",omitempty"`
	StepName  string
	Data      Data
	Success   bool
	Error     string `json:",omitempty"`
	Cause     string `json:",omitempty"`
	Timestamp time.Time
}

type ExecutionResult struct {
	ExecutionID string
	IsSuccess   bool
	Output      Data
	Error       error  `json:"-"`
	ErrorName   string `json:",omitempty"`
	Cause       string `json:",omitempty"`
	StartTime   time.Time
	StopTime    time.Time
	History     []HistoryEntry
}
