package runtime

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/asl/types"
	"github.com/warriorguo/asl/utils"
)

const (
	maxDepth = 32
)

var (
	_ types.Context = &taskContext{}
)

/**
 * execContext is shared by one execution tree. Parallel branches and Map
 * iterations get a child carrying their own context and path, everything
 * else (impositions, sink, history) is shared with the parent.
 */
type execContext struct {
	context.Context

	executionID string
	machineName string
	startTime   time.Time
	input       types.Data

	depth int
	path  utils.Path

	imp          *types.Impositions
	sink         types.TokenSink
	taskTimeout  time.Duration
	pollInterval time.Duration

	history *historyRecorder
}

func newExecContext(ctx context.Context, h *host, executionID string, input types.Data) *execContext {
	return &execContext{
		Context:      ctx,
		executionID:  executionID,
		machineName:  h.def.Name,
		startTime:    time.Now(),
		input:        input,
		path:         utils.NewPath(),
		imp:          h.opts.Impositions,
		sink:         h.opts.TokenSink,
		taskTimeout:  h.opts.DefaultTaskTimeout,
		pollInterval: h.opts.TokenPollInterval,
		history:      newHistoryRecorder(),
	}
}

// child returns a context for a branch or iteration, named by segments.
func (ec *execContext) child(ctx context.Context, segments ...string) (*execContext, error) {
	if ec.depth+1 > maxDepth {
		return nil, types.NewConfigErrorf("nesting deeper than %d at %s", maxDepth, ec.currentPath())
	}
	c := *ec
	c.Context = ctx
	c.depth = ec.depth + 1
	c.path = ec.path.Child(segments...)
	return &c, nil
}

func (ec *execContext) currentPath() string {
	return ec.path.String()
}

func (ec *execContext) record(stepName string, data types.Data, err error) {
	if err != nil {
		log.Debugf("%s %s.%s failed: %v", ec.executionID, ec.currentPath(), stepName, err)
	} else {
		log.Debugf("%s %s.%s done", ec.executionID, ec.currentPath(), stepName)
	}
	ec.history.add(ec.path, stepName, data, err)
}

/**
 * contextObject builds the `$$` document visible to Parameters templates.
 * extra is merged on top level, Map iterations use it for `$$.Map`.
 */
func (ec *execContext) contextObject(stateName, token string, extra map[string]any) types.Data {
	obj := map[string]any{
		"Execution": map[string]any{
			"Id":        ec.executionID,
			"Input":     ec.input,
			"StartTime": ec.startTime.UTC().Format(time.RFC3339Nano),
		},
		"State": map[string]any{
			"Name":        stateName,
			"EnteredTime": time.Now().UTC().Format(time.RFC3339Nano),
		},
		"StateMachine": map[string]any{
			"Name": ec.machineName,
		},
	}
	if token != "" {
		obj["Task"] = map[string]any{"Token": token}
	}
	for key, value := range extra {
		obj[key] = value
	}
	return types.NewData(obj)
}

// taskContext is what a task handler sees.
type taskContext struct {
	context.Context

	executionID string
	stateName   string
	token       string
}

func (t *taskContext) GetExecutionID() string {
	return t.executionID
}

func (t *taskContext) GetStateName() string {
	return t.stateName
}

func (t *taskContext) GetTaskToken() string {
	return t.token
}

type historyRecorder struct {
	mu      sync.Mutex
	entries []types.HistoryEntry
}

func newHistoryRecorder() *historyRecorder {
	return &historyRecorder{entries: make([]types.HistoryEntry, 0)}
}

func (h *historyRecorder) add(path utils.Path, stepName string, data types.Data, err error) {
	entry := types.HistoryEntry{
		Path:      path.Child(),
		StepName:  stepName,
		Data:      data,
		Success:   err == nil,
		Timestamp: time.Now(),
	}
	if err != nil {
		entry.Error = types.ErrorName(err)
		entry.Cause = types.ErrorCause(err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
}

func (h *historyRecorder) export() []types.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]types.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
