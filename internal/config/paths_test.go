package config

import (
	"path/filepath"
	"testing"
)

func TestStateDBPathUnderStoragePath(t *testing.T) {
	p := GetPaths()

	want := filepath.Join(p.StoragePath(), "state.db")
	if got := p.StateDBPath(); got != want {
		t.Errorf("StateDBPath() = %q, want %q", got, want)
	}
}

func TestCountersDBPathUnderStoragePath(t *testing.T) {
	p := GetPaths()

	want := filepath.Join(p.StoragePath(), "counters.db")
	if got := p.CountersDBPath(); got != want {
		t.Errorf("CountersDBPath() = %q, want %q", got, want)
	}
}

func TestStateDBAndCountersDBPathsDiffer(t *testing.T) {
	p := GetPaths()

	if p.StateDBPath() == p.CountersDBPath() {
		t.Error("StateDBPath and CountersDBPath must not collide")
	}
}
