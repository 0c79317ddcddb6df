// Package notify signals readiness and liveness to a systemd supervisor.
// Without a supervisor (no NOTIFY_SOCKET) every call is a no-op.
package notify

import (
	"github.com/coreos/go-systemd/v22/daemon"

	"codeberg.org/mutker/nvidiamon/internal/logger"
)

// Notifier emits supervisor liveness signals.
type Notifier interface {
	// Ready signals startup completion, once.
	Ready()
	// Heartbeat signals liveness, once per tick after a successful
	// frame render.
	Heartbeat()
}

type sdNotifier struct {
	log logger.Logger
}

// New returns a systemd-backed notifier. sd_notify itself degrades to a
// no-op when no NOTIFY_SOCKET is present, so there is nothing to probe.
func New(log logger.Logger) Notifier {
	return &sdNotifier{log: log}
}

func (n *sdNotifier) Ready() {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		n.log.Warn().Err(err).Msg("Failed to notify supervisor of readiness")
		return
	}
	if sent {
		n.log.Debug().Msg("Supervisor notified: ready")
	}
}

func (n *sdNotifier) Heartbeat() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
		n.log.Warn().Err(err).Msg("Failed to send supervisor heartbeat")
	}
}
