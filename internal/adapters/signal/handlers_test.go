package signal

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Circles/internal/app"
	"github.com/dkeye/Circles/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	mu     sync.Mutex
	frames []map[string]any
}

func (r *recordingConn) TrySend(f core.Frame) error {
	var m map[string]any
	if err := json.Unmarshal(f, &m); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, m)
	return nil
}

func (r *recordingConn) Close() {}

func (r *recordingConn) last(t *testing.T) map[string]any {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.frames)
	return r.frames[len(r.frames)-1]
}

func newTestController(t *testing.T) *SignalWSController {
	t.Helper()
	metrics := app.NewMetrics(prometheus.NewRegistry())
	reg := app.NewRegistry()
	orch := app.NewOrchestrator(reg, app.NewCircleStore(app.NewCodeGenerator(0)),
		app.NewRouter(reg, app.DropPolicy{}, metrics), metrics)
	return NewSignalWSController(orch, Options{JoinRateLimit: 3, JoinRateInterval: time.Minute})
}

func dial(ctl *SignalWSController, sid core.SessionID) *recordingConn {
	conn := &recordingConn{}
	ctl.Orch.Connect(sid, conn)
	return conn
}

func TestHandleSignal_CreateJoinWhoAmI(t *testing.T) {
	req := require.New(t)
	ctl := newTestController(t)
	alice := dial(ctl, "alice")
	bob := dial(ctl, "bob")

	// When Alice creates a circle
	ctl.handleSignal("alice", alice, []byte(`{"type":"createCircle","name":"Alice","location":{"lat":1,"lng":2}}`))
	created := alice.last(t)
	req.Equal(core.TypeCircleCreated, created["type"])
	code := created["circleCode"].(string)

	// And Bob joins with a lowercase, padded code
	ctl.handleSignal("bob", bob, []byte(`{"type":"joinCircle","circleCode":" `+strings.ToLower(code)+` ","userData":{"name":"Bob"}}`))

	// Then Bob is in the circle and Alice heard about it
	req.Equal(core.TypeJoinedCircle, bob.last(t)["type"])
	req.Equal(core.TypeMemberJoined, alice.last(t)["type"])

	// And whoami reports Bob's binding
	ctl.handleSignal("bob", bob, []byte(`{"type":"whoami"}`))
	who := bob.last(t)
	req.Equal(core.TypeWhoAmI, who["type"])
	req.Equal(code, who["circleCode"])
	req.NotEmpty(who["userId"])
}

func TestHandleSignal_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "garbage", data: `not json`, want: "Invalid request"},
		{name: "unknown type", data: `{"type":"teleport"}`, want: "Invalid request"},
		{name: "missing circle", data: `{"type":"joinCircle","circleCode":"ZZZZZZ","userData":{"name":"Bob"}}`, want: "Circle not found"},
		{name: "empty name", data: `{"type":"createCircle","name":""}`, want: "Please enter your name"},
		{name: "bad code", data: `{"type":"joinCircle","circleCode":"12","userData":{"name":"Bob"}}`, want: "Please enter a valid 6-character code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := newTestController(t)
			conn := dial(ctl, "s1")

			ctl.handleSignal("s1", conn, []byte(tt.data))

			got := conn.last(t)
			require.Equal(t, core.TypeError, got["type"])
			require.Equal(t, tt.want, got["message"])
		})
	}
}

func TestHandleSignal_StaleUpdateIsSilent(t *testing.T) {
	ctl := newTestController(t)
	conn := dial(ctl, "s1")

	ctl.handleSignal("s1", conn, []byte(`{"type":"updateLocation","lat":1,"lng":2}`))
	ctl.handleSignal("s1", conn, []byte(`{"type":"leaveCircle"}`))

	require.Empty(t, conn.frames)
}

func TestHandleSignal_Ping(t *testing.T) {
	ctl := newTestController(t)
	conn := dial(ctl, "s1")

	ctl.handleSignal("s1", conn, []byte(`{"type":"ping"}`))

	require.Equal(t, core.TypePong, conn.last(t)["type"])
}

func TestHandleSignal_JoinRateLimited(t *testing.T) {
	req := require.New(t)
	ctl := newTestController(t)
	conn := dial(ctl, "s1")
	join := []byte(`{"type":"joinCircle","circleCode":"ZZZZZZ","userData":{"name":"Bob"}}`)

	for range 3 {
		ctl.handleSignal("s1", conn, join)
		req.Equal("Circle not found", conn.last(t)["message"])
	}
	ctl.handleSignal("s1", conn, join)
	req.Equal("Too many requests, please wait a moment", conn.last(t)["message"])
}
