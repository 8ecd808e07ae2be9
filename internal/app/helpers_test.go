package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/Circles/internal/core"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// fakeConn records every frame queued to it.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	full   bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return core.ErrConnClosed
	}
	if f.full {
		return core.ErrBackpressure
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) types(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.frames))
	for _, fr := range f.frames {
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(fr, &env))
		out = append(out, env.Type)
	}
	return out
}

// last decodes the most recent frame of the given type into T.
func last[T any](t *testing.T, f *fakeConn, eventType string) T {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.frames) - 1; i >= 0; i-- {
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(f.frames[i], &env))
		if env.Type != eventType {
			continue
		}
		var out T
		require.NoError(t, json.Unmarshal(f.frames[i], &out))
		return out
	}
	require.Failf(t, "event not found", "no %s frame", eventType)
	var zero T
	return zero
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *Metrics) {
	t.Helper()
	return newTestOrchestratorWith(t, NewCodeGenerator(DefaultCodeAttempts), DropPolicy{})
}

func newTestOrchestratorWith(t *testing.T, codes *CodeGenerator, policy Policy) (*Orchestrator, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	reg := NewRegistry()
	return NewOrchestrator(reg, NewCircleStore(codes), NewRouter(reg, policy, metrics), metrics), metrics
}

func connect(o *Orchestrator) (core.SessionID, *fakeConn) {
	sid := core.SessionID(uuid.NewString())
	conn := &fakeConn{}
	o.Connect(sid, conn)
	return sid, conn
}

func coreSID(s string) core.SessionID { return core.SessionID(s) }

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
