package systemd

import (
	"errors"
	"log/slog"
	"testing"
)

func TestNotifierStates(t *testing.T) {
	var got []string
	n := NewNotifier(slog.New(slog.DiscardHandler))
	n.send = func(state string) (bool, error) {
		got = append(got, state)
		return true, nil
	}

	n.Ready("streaming cam")
	n.Reloading("")
	n.Stopping()

	want := []string{"READY=1\nSTATUS=streaming cam", "RELOADING=1", "STOPPING=1"}
	if len(got) != len(want) {
		t.Fatalf("got %d notifications, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNotifierOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	n := NewNotifier(slog.New(slog.DiscardHandler))
	n.Ready("x")

	n.send = func(string) (bool, error) { return false, errors.New("boom") }
	n.Stopping()
}
