package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// GatewayState tracks gateway liveness from /health polling. The mirror
// database stays readable even when the gateway itself is down.
type GatewayState struct {
	Status    string
	Connected bool
	LastCheck time.Time
}

func renderHeader(gateway GatewayState, contacts, communications int64, ticker Ticker, spinner Spinner, theme Theme, width int) string {
	innerWidth := width - 4

	// Status: show the gateway's own health report when we have one.
	status := "SERVING"
	if gateway.Status != "" {
		status = strings.ToUpper(gateway.Status)
	}
	statusText := theme.StatusOK.Render(status)
	statusIcon := "✅"
	if !gateway.Connected {
		statusText = theme.StatusFailed.Render("UNREACHABLE")
		statusIcon = "🔌"
		if !gateway.LastCheck.IsZero() {
			statusText += theme.Dim.Render(fmt.Sprintf(" (last ok %s)", gateway.LastCheck.Format("15:04:05")))
		}
	}

	// Last delivery
	lastDeliveryStr := "none this session"
	if !spinner.LastDelivery().IsZero() {
		ago := time.Since(spinner.LastDelivery()).Round(time.Second)
		lastDeliveryStr = fmt.Sprintf("%s ago", ago)
	}

	// Title line with ticker and clock
	tickerStr := theme.Highlight.Render(ticker.Current())
	clock := theme.Dim.Render(time.Now().Format("15:04:05"))
	titleText := fmt.Sprintf(" OPENPHONE WATCH %s", tickerStr)

	// Calculate padding between title and clock
	titleWidth := lipgloss.Width(titleText)
	clockWidth := lipgloss.Width(clock)
	pad := innerWidth - titleWidth - clockWidth - 4
	if pad < 1 {
		pad = 1
	}
	titleLine := titleText + strings.Repeat(" ", pad) + clock + " "

	// Stats line
	statsLine := fmt.Sprintf(" %s %s  Contacts: %d  Communications: %d",
		statusIcon, statusText,
		contacts,
		communications,
	)

	// Activity line
	activityLine := fmt.Sprintf(" Last delivery: %s %s",
		lastDeliveryStr,
		spinner.Render(theme),
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleLine,
		statsLine,
		activityLine,
	)

	return theme.Border.Width(innerWidth).Render(content)
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
