package watch

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattjoyce/openphone-gw/internal/storage"
)

// --- Message types ---

// snapshotMsg carries one read of the mirror database.
type snapshotMsg struct {
	contacts       int64
	communications int64
	recent         []storage.CommunicationSummary
}

// healthMsg is the gateway's /health response body.
type healthMsg struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type tickMsg time.Time

type errMsg error

type gatewayDownMsg struct{}

// --- Commands ---

// fetchSnapshot reads counts and the newest communications from the mirror.
func fetchSnapshot(store *storage.Store) tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	contacts, communications, err := store.Counts(ctx)
	if err != nil {
		return errMsg(err)
	}
	recent, err := store.RecentCommunications(ctx, 50)
	if err != nil {
		return errMsg(err)
	}
	return snapshotMsg{
		contacts:       contacts,
		communications: communications,
		recent:         recent,
	}
}

// fetchHealth queries the gateway's /health endpoint. Any failure collapses
// into gatewayDownMsg: the gateway being down is a state to display, not an
// error to surface.
func fetchHealth(healthURL string) tea.Msg {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(healthURL)
	if err != nil {
		return gatewayDownMsg{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return gatewayDownMsg{}
	}

	var h healthMsg
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return gatewayDownMsg{}
	}
	return h
}
