// Package systemd reports service state to the service manager. Every call is
// a no-op when the process is not started by systemd.
package systemd

import (
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages.
type Notifier struct {
	logger *slog.Logger
	send   func(state string) (bool, error)
}

func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		logger: logger,
		send: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
	}
}

// Ready tells systemd the stream is up.
func (n *Notifier) Ready(status string) {
	n.notify(daemon.SdNotifyReady, status)
}

// Reloading marks a restart after the stream file changed.
func (n *Notifier) Reloading(status string) {
	n.notify(daemon.SdNotifyReloading, status)
}

func (n *Notifier) Stopping() {
	n.notify(daemon.SdNotifyStopping, "")
}

func (n *Notifier) notify(state, status string) {
	if status != "" {
		state += "\nSTATUS=" + status
	}
	sent, err := n.send(state)
	if err != nil {
		n.logger.Debug("sd_notify failed", "error", err)
		return
	}
	if sent {
		n.logger.Debug("sd_notify sent", "state", state)
	}
}
