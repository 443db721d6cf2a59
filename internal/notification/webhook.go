package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"vulx/internal/models"
	vxerrors "vulx/pkg/errors"
)

// Sender delivers a scan summary to one webhook.
type Sender interface {
	Send(ctx context.Context, webhookURL string, summary *ScanSummary) error
}

func postJSON(ctx context.Context, client *http.Client, provider, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return vxerrors.NewUpstreamError(provider, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return vxerrors.NewUpstreamError(provider, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return vxerrors.NewUpstreamError(provider, resp.StatusCode, fmt.Errorf("%s", bytes.TrimSpace(msg)))
	}
	return nil
}

// DefaultSenders returns the formatter for every integration type that can
// receive notifications. Ticket-only types are absent.
func DefaultSenders(client *http.Client) map[models.IntegrationType]Sender {
	return map[models.IntegrationType]Sender{
		models.IntegrationSlack:   NewSlackSender(client),
		models.IntegrationDiscord: NewDiscordSender(client),
		models.IntegrationTeams:   NewTeamsSender(client),
	}
}
