package state

import (
	"sync"
	"testing"

	"github.com/yndnr/respkv-go/internal/core/domain"
	"github.com/yndnr/respkv-go/internal/storage/memory"
)

func TestNew_Defaults(t *testing.T) {
	store := memory.New()
	s := New(store)

	if s.Role().IsReplica() {
		t.Error("default role should be primary")
	}
	if len(s.RunID()) != 36 {
		t.Errorf("RunID() = %q, want 36 characters", s.RunID())
	}
	if s.Offset() != 0 {
		t.Errorf("Offset() = %d, want 0", s.Offset())
	}
	if s.Store() != Store(store) {
		t.Error("Store() should return the owned store")
	}
}

func TestNew_Options(t *testing.T) {
	s := New(memory.New(),
		WithRole(domain.ReplicaRole("127.0.0.1:6379")),
		WithRunID("8371b4fb-1155-b71f-4a04-d3e1bc3e18c4"),
	)

	if s.Role().Name() != "slave" {
		t.Errorf("Role().Name() = %q, want slave", s.Role().Name())
	}
	if s.RunID() != "8371b4fb-1155-b71f-4a04-d3e1bc3e18c4" {
		t.Errorf("RunID() = %q", s.RunID())
	}
}

func TestListenPort(t *testing.T) {
	s := New(memory.New())
	if s.ListenPort() != 0 {
		t.Errorf("ListenPort() before SetListenPort = %d, want 0", s.ListenPort())
	}

	s.SetListenPort(6380)
	if s.ListenPort() != 6380 {
		t.Errorf("ListenPort() = %d, want 6380", s.ListenPort())
	}
}

func TestRunID_StableAndUnique(t *testing.T) {
	s := New(memory.New())
	first := s.RunID()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.RunID() != first {
				t.Error("RunID() changed")
			}
		}()
	}
	wg.Wait()

	if New(memory.New()).RunID() == first {
		t.Error("two states should get different run ids")
	}
}
