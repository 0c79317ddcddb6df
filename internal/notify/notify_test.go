package notify_test

import (
	"os"
	"testing"

	"codeberg.org/mutker/nvidiamon/internal/logger"
	"codeberg.org/mutker/nvidiamon/internal/notify"
)

func TestNoSupervisorIsNoop(t *testing.T) {
	logger.Init(false, false, true)
	t.Setenv("NOTIFY_SOCKET", "")
	os.Unsetenv("NOTIFY_SOCKET")

	n := notify.New(logger.Default())

	// Must not panic or block without a supervisor socket.
	n.Ready()
	n.Heartbeat()
}
