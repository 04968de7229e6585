package go_priority_pool

import (
	"reflect"
	"strings"
	"sync"

	"go-priority-pool/core"
)

// TaskRegistry maps payload type names back to concrete Task types, so a
// job round-tripped through a persistent source can be rebuilt.
type TaskRegistry struct {
	types sync.Map
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{}
}

func (r *TaskRegistry) ExistType(typ string) bool {
	_, ok := r.types.Load(typ)
	return ok
}

func (r *TaskRegistry) RegisterType(typ core.Task) {
	dataType := reflect.TypeOf(typ)
	r.types.LoadOrStore(dataType.String(), dataType)
}

func (r *TaskRegistry) ExtractType(typ string) (core.Task, error) {
	stored, ok := r.types.Load(typ)
	if !ok {
		return failingTask(), core.ErrTypeExtract
	}

	dataType := stored.(reflect.Type)
	if strings.HasPrefix(typ, "*") {
		dataType = dataType.Elem()
	}

	if task, ok := reflect.New(dataType).Interface().(core.Task); ok {
		return task, nil
	}

	return failingTask(), core.ErrTypeExtract
}

func failingTask() core.Task {
	return core.TaskHandlerFunc(func() error {
		return core.ErrTypeExtract
	})
}
