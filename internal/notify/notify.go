// Package notify shows desktop notifications for watch snapshots.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

const maxLen = 256

// Command returns the native notification command for goos, or nil when
// the platform has none.
func Command(ctx context.Context, goos, title, body string) *exec.Cmd {
	title = sanitize(title)
	body = sanitize(body)

	switch goos {
	case "darwin":
		script := fmt.Sprintf(`display notification %q with title %q`, body, title)
		return exec.CommandContext(ctx, "osascript", "-e", script)
	case "linux":
		return exec.CommandContext(ctx, "notify-send", "--app-name=cocosbot", title, body)
	case "windows":
		ps := fmt.Sprintf(`
[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] > $null
$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
$textNodes = $template.GetElementsByTagName('text')
$textNodes.Item(0).AppendChild($template.CreateTextNode('%s')) > $null
$textNodes.Item(1).AppendChild($template.CreateTextNode('%s')) > $null
$toast = [Windows.UI.Notifications.ToastNotification]::new($template)
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('cocosbot').Show($toast)
`, title, body)
		return exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", ps)
	}
	return nil
}

// Send displays a notification on the current platform.
func Send(ctx context.Context, title, body string) error {
	cmd := Command(ctx, runtime.GOOS, title, body)
	if cmd == nil {
		return fmt.Errorf("notifications unsupported on %s", runtime.GOOS)
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// sanitize drops quote and escape characters and truncates long text.
func sanitize(s string) string {
	s = strings.NewReplacer("'", "", `\`, "", "\n", " ").Replace(s)
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
