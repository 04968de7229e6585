package go_priority_pool

import (
	"errors"
	"testing"

	"go-priority-pool/core"
)

type registeredTask struct {
	Value int
}

func (t *registeredTask) Handle() error { return nil }

func TestRegistryRoundTrip(t *testing.T) {
	registry := NewTaskRegistry()
	registry.RegisterType(&registeredTask{})

	if !registry.ExistType("*go_priority_pool.registeredTask") {
		t.Fatal("registered type not found")
	}

	task, err := registry.ExtractType("*go_priority_pool.registeredTask")
	if err != nil {
		t.Fatalf("ExtractType: %v", err)
	}
	if _, ok := task.(*registeredTask); !ok {
		t.Errorf("extracted %T, want *registeredTask", task)
	}
}

func TestRegistryUnknownType(t *testing.T) {
	registry := NewTaskRegistry()

	task, err := registry.ExtractType("*go_priority_pool.unknown")
	if !errors.Is(err, core.ErrTypeExtract) {
		t.Fatalf("got %v, want ErrTypeExtract", err)
	}

	// the fallback task reports the extraction failure when executed
	if err := task.Handle(); !errors.Is(err, core.ErrTypeExtract) {
		t.Errorf("fallback task returned %v", err)
	}
}
