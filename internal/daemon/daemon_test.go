package daemon

import (
	"testing"
	"time"

	"github.com/tekflox/inbox/internal/bus"
	"github.com/tekflox/inbox/internal/config"
	"github.com/tekflox/inbox/internal/status"
	intsync "github.com/tekflox/inbox/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func TestModuleGraph(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p := Params{
		Profile: "test",
		Config:  config.Default(),
		Listen:  "127.0.0.1:0",
	}
	if err := fx.ValidateApp(Module(p)); err != nil {
		t.Fatalf("ValidateApp() error = %v", err)
	}
}

func TestProvideClientFreshProfile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p := Params{
		Profile: "test",
		Config:  config.Default(),
		Listen:  "127.0.0.1:0",
	}
	client := provideClient(p, zap.NewNop())
	if client.Token() != "" {
		t.Fatalf("token = %q, want empty on a profile that never logged in", client.Token())
	}
}

func waitForState(t *testing.T, m *status.Machine, want status.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Current() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", m.Current(), want)
}

func TestHealthSupervisorReachesReady(t *testing.T) {
	b := bus.New()
	m := status.NewMachine(b)
	if err := m.Transition(status.Connecting); err != nil {
		t.Fatal(err)
	}

	h := newHealthSupervisor(m, b, nil)
	h.Start()
	defer h.Stop()

	b.Emit(bus.KindPollCompleted, intsync.PollSummary{Conversations: 1, Messages: 2, Cursor: 10})
	waitForState(t, m, status.Ready)
}

func TestHealthSupervisorDegradesAndRecovers(t *testing.T) {
	b := bus.New()
	m := status.NewMachine(b)
	for _, s := range []status.State{status.Connecting, status.Syncing, status.Ready} {
		if err := m.Transition(s); err != nil {
			t.Fatal(err)
		}
	}

	h := newHealthSupervisor(m, b, nil)
	h.Start()
	defer h.Stop()

	b.Emit(bus.KindPollCompleted, intsync.PollSummary{Err: "connection refused"})
	waitForState(t, m, status.Degraded)

	b.Emit(bus.KindPollCompleted, intsync.PollSummary{Cursor: 11})
	waitForState(t, m, status.Ready)
}

func TestHealthSupervisorIgnoresErrorsWhileExpired(t *testing.T) {
	b := bus.New()
	m := status.NewMachine(b)
	for _, s := range []status.State{status.Connecting, status.Syncing, status.Ready, status.SessionExpired} {
		if err := m.Transition(s); err != nil {
			t.Fatal(err)
		}
	}

	h := newHealthSupervisor(m, b, nil)
	h.Start()
	defer h.Stop()

	b.Emit(bus.KindPollCompleted, intsync.PollSummary{Err: "unauthorized"})
	time.Sleep(100 * time.Millisecond)
	if got := m.Current(); got != status.SessionExpired {
		t.Fatalf("state = %v, want %v", got, status.SessionExpired)
	}
}
