package types

import (
	"sync"

	"github.com/juju/errors"
)

// HandlerRegistry resolves task handlers by resource name.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]TaskHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]TaskHandler)}
}

func (r *HandlerRegistry) Register(resource string, handler TaskHandler) error {
	if handler == nil {
		return errors.BadRequestf("resource:%s handler is nil", resource)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[resource]; exists {
		return errors.AlreadyExistsf("resource: %s", resource)
	}
	r.handlers[resource] = handler
	return nil
}

// Resolve looks the handler up by resource, then by resource without the .waitForTaskToken suffix.
func (r *HandlerRegistry) Resolve(task *TaskState) (TaskHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if handler, exists := r.handlers[task.Resource]; exists {
		return handler, nil
	}
	if handler, exists := r.handlers[task.BaseResource()]; exists {
		return handler, nil
	}
	return nil, errors.NotFoundf("handler for resource %s", task.Resource)
}
