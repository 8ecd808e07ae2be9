package app

import (
	"encoding/json"
	"testing"

	"github.com/dkeye/Circles/internal/core"
	"github.com/dkeye/Circles/internal/domain"
	"github.com/dkeye/Circles/internal/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestRouter(t *testing.T, policy Policy) (*Router, *Metrics) {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	return NewRouter(NewRegistry(), policy, metrics), metrics
}

func emptySnapshot() domain.Snapshot {
	return domain.Snapshot{Owner: "m1", Members: map[domain.MemberID]domain.Member{}}
}

func TestRouter_BroadcastToCircle_FailedSendDoesNotStopOthers(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	rt, metrics := newTestRouter(t, DropPolicy{})

	closed := mocks.NewMockSignalConnection(ctrl)
	healthy := mocks.NewMockSignalConnection(ctrl)
	rt.Registry.Attach("s1", closed)
	rt.Registry.Attach("s2", healthy)
	rt.Registry.Bind("s1", "ABC123", "m1")
	rt.Registry.Bind("s2", "ABC123", "m2")

	closed.EXPECT().TrySend(gomock.Any()).Return(core.ErrConnClosed)
	healthy.EXPECT().TrySend(gomock.Any()).DoAndReturn(func(f core.Frame) error {
		var env map[string]any
		req.NoError(json.Unmarshal(f, &env))
		req.Equal(core.TypeCircleEnded, env["type"])
		return nil
	})

	sent := rt.BroadcastToCircle("ABC123", core.NewCircleEnded(), "")

	req.Equal(1, sent)
	req.Equal(1.0, testutil.ToFloat64(metrics.eventsDropped.WithLabelValues(core.TypeCircleEnded, "closed")))
	req.Equal(1.0, testutil.ToFloat64(metrics.eventsDelivered.WithLabelValues(core.TypeCircleEnded)))
}

func TestRouter_BroadcastToCircle_Exclude(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	rt, _ := newTestRouter(t, DropPolicy{})

	sender := mocks.NewMockSignalConnection(ctrl)
	other := mocks.NewMockSignalConnection(ctrl)
	outsider := mocks.NewMockSignalConnection(ctrl)
	rt.Registry.Attach("s1", sender)
	rt.Registry.Attach("s2", other)
	rt.Registry.Attach("s3", outsider)
	rt.Registry.Bind("s1", "ABC123", "m1")
	rt.Registry.Bind("s2", "ABC123", "m2")
	rt.Registry.Bind("s3", "ZZZ999", "m3")

	// sender and outsider have no expectations; any call fails the test
	other.EXPECT().TrySend(gomock.Any()).Return(nil)

	req.Equal(1, rt.BroadcastToCircle("ABC123", core.NewMemberLeft("m1", emptySnapshot()), "s1"))
}

func TestRouter_PreservesOrderPerConnection(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	rt, _ := newTestRouter(t, DropPolicy{})

	conn := mocks.NewMockSignalConnection(ctrl)
	rt.Registry.Attach("s1", conn)
	rt.Registry.Bind("s1", "ABC123", "m1")

	gomock.InOrder(
		conn.EXPECT().TrySend(frameOfType(core.TypeJoinedCircle)).Return(nil),
		conn.EXPECT().TrySend(frameOfType(core.TypeMemberJoined)).Return(nil),
		conn.EXPECT().TrySend(frameOfType(core.TypeMemberLeft)).Return(nil),
	)

	req.True(rt.SendTo("s1", core.NewJoinedCircle("ABC123", "m1", emptySnapshot())))
	rt.BroadcastToCircle("ABC123", core.NewMemberJoined(domain.Member{ID: "m2", Name: "Bob"}, emptySnapshot()), "")
	rt.BroadcastToCircle("ABC123", core.NewMemberLeft("m2", emptySnapshot()), "")
}

func TestRouter_Backpressure_AppliesPolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		wantClose bool
	}{
		{name: "drop keeps connection", policy: DropPolicy{}},
		{name: "close disconnects", policy: ClosePolicy{}, wantClose: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			rt, metrics := newTestRouter(t, tt.policy)

			slow := mocks.NewMockSignalConnection(ctrl)
			rt.Registry.Attach("s1", slow)
			rt.Registry.Bind("s1", "ABC123", "m1")

			slow.EXPECT().TrySend(gomock.Any()).Return(core.ErrBackpressure)
			if tt.wantClose {
				slow.EXPECT().Close()
			}

			req.Zero(rt.BroadcastToCircle("ABC123", core.NewCircleEnded(), ""))
			req.Equal(1.0, testutil.ToFloat64(metrics.eventsDropped.WithLabelValues(core.TypeCircleEnded, "backpressure")))
		})
	}
}

func TestRouter_SendTo_UnknownConnection(t *testing.T) {
	rt, _ := newTestRouter(t, nil)
	require.False(t, rt.SendTo("missing", core.NewCircleEnded()))
	require.IsType(t, DropPolicy{}, rt.Policy)
}

func TestPolicyByName(t *testing.T) {
	req := require.New(t)
	req.IsType(ClosePolicy{}, PolicyByName("close"))
	req.IsType(DropPolicy{}, PolicyByName("drop"))
	req.IsType(DropPolicy{}, PolicyByName("bogus"))
}

// frameOfType matches a core.Frame whose "type" field equals the wrapped string.
type frameOfType string

func (m frameOfType) Matches(x any) bool {
	f, ok := x.(core.Frame)
	if !ok {
		return false
	}
	var env struct {
		Type string `json:"type"`
	}
	return json.Unmarshal(f, &env) == nil && env.Type == string(m)
}

func (m frameOfType) String() string { return "frame of type " + string(m) }
