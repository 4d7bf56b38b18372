package observability

import (
	"fmt"
	"os"
	"runtime"

	"github.com/go-toast/toast"
	"github.com/mattn/go-isatty"
)

// DesktopNotifier fans a notification out to a Windows toast (when running
// on Windows) and a terminal bell/flash (when stdout is a real TTY),
// generalizing internal/notifications/manager.go's multi-channel Manager
// and internal/notifications/toast.go's runtime.GOOS guard.
type DesktopNotifier struct {
	AppID string
}

// Notify best-effort delivers title/message to every supported channel on
// this platform. It never returns an error for an unsupported channel; it
// only fails if every supported channel failed.
func (d DesktopNotifier) Notify(title, message string) error {
	appID := d.AppID
	if appID == "" {
		appID = "agentaskit"
	}

	var delivered bool
	var lastErr error

	if runtime.GOOS == "windows" {
		n := toast.Notification{
			AppID:   appID,
			Title:   title,
			Message: message,
			Audio:   toast.Default,
		}
		if err := n.Push(); err != nil {
			lastErr = fmt.Errorf("toast: %w", err)
		} else {
			delivered = true
		}
	}

	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprintf(os.Stdout, "\a[%s] %s: %s\n", appID, title, message)
		delivered = true
	}

	if !delivered {
		if lastErr != nil {
			return lastErr
		}
		return fmt.Errorf("no notification channel available on %s", runtime.GOOS)
	}
	return nil
}
