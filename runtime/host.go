package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/asl/store"
	"github.com/warriorguo/asl/store/mem"
	"github.com/warriorguo/asl/types"
)

var (
	_ types.Host = &host{}
)

const (
	minPollInterval = time.Millisecond
)

/**
 * NewHost validates and compiles def. Task handlers are resolved through
 * resolver the first time their state runs. Without a token sink in opts
 * the host keeps task tokens in memory.
 */
func NewHost(def *types.StateMachine, resolver types.HandlerResolver, opts *types.HostOptions) (types.Host, error) {
	if opts == nil {
		opts = types.NewHostOptions()
	}
	if err := def.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	m, err := compileMachine(def, resolver)
	if err != nil {
		return nil, errors.Trace(err)
	}

	if opts.Impositions == nil {
		opts.Impositions = types.NewImpositions()
	}
	if opts.TokenSink == nil {
		opts.TokenSink = store.NewTokenSink(mem.NewMemStore())
		opts.OwnTokenSink = true
	}
	if opts.TokenPollInterval < minPollInterval {
		opts.TokenPollInterval = minPollInterval
	}

	return &host{
		def:      def,
		machine:  m,
		opts:     opts,
		notifier: newNotifier(opts.Observers),
		running:  true,
	}, nil
}

type host struct {
	def     *types.StateMachine
	machine *machine
	opts    *types.HostOptions

	notifier *notifier

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
}

func (h *host) Definition() *types.StateMachine {
	return h.def
}

func (h *host) TokenSink() types.TokenSink {
	return h.opts.TokenSink
}

func (h *host) Execute(ctx context.Context, input types.Data) (*types.ExecutionResult, error) {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return nil, errors.MethodNotAllowedf("host closed")
	}
	h.wg.Add(1)
	h.mu.RUnlock()
	defer h.wg.Done()

	if h.machine.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.machine.timeout)
		defer cancel()
	}

	executionID := uuid.New().String()
	ec := newExecContext(ctx, h, executionID, input)

	log.Debugf("%s start %s", executionID, h.def.Name)
	h.notifier.started(&types.ExecutionEvent{
		ExecutionID:  executionID,
		StateMachine: h.def.Name,
		Time:         ec.startTime,
		Input:        input,
	})

	exec := h.machine.run(ec, input)

	result := &types.ExecutionResult{
		ExecutionID: executionID,
		IsSuccess:   exec.status == types.Succeeded,
		StartTime:   ec.startTime,
		StopTime:    time.Now(),
		History:     ec.history.export(),
	}
	if result.IsSuccess {
		result.Output = exec.data
	} else {
		result.Error = exec.err
		result.ErrorName = types.ErrorName(exec.err)
		result.Cause = types.ErrorCause(exec.err)
		log.WithFields(log.Fields{
			"execution": executionID,
			"error":     result.ErrorName,
		}).Errorf("execution failed: %s", result.Cause)
	}

	h.notifier.stopped(&types.ExecutionEvent{
		ExecutionID:  executionID,
		StateMachine: h.def.Name,
		Time:         result.StopTime,
		Input:        input,
		Result:       result,
	})
	return result, nil
}

// Close waits for running executions and queued notifications, then releases an owned sink.
func (h *host) Close(ctx context.Context) error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		h.notifier.stop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return errors.Annotatef(ctx.Err(), "close host")
	}

	if !h.opts.OwnTokenSink {
		return nil
	}
	if closer, ok := h.opts.TokenSink.(interface{ Close() error }); ok {
		return errors.Trace(closer.Close())
	}
	return nil
}
