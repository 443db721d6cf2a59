package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	vxerrors "vulx/pkg/errors"

	"github.com/slack-go/slack"
)

type SlackSender struct {
	client *http.Client
}

func NewSlackSender(client *http.Client) *SlackSender {
	return &SlackSender{client: client}
}

// SlackMessage renders the summary as Block Kit.
func SlackMessage(s *ScanSummary) *slack.WebhookMessage {
	header := slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, s.Title(), true, false))

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Risk score*\n%d/100", s.RiskScore), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Environment*\n%s", s.Environment), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Findings*\n%d", s.Total), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Breakdown*\n%s", s.CountsLine()), false, false),
	}
	overview := slack.NewSectionBlock(nil, fields, nil)

	blocks := []slack.Block{header, overview}

	if len(s.TopFindings) > 0 {
		lines := make([]string, 0, len(s.TopFindings))
		for _, f := range s.TopFindings {
			lines = append(lines, "• "+s.FindingLine(f))
		}
		blocks = append(blocks,
			slack.NewDividerBlock(),
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, strings.Join(lines, "\n"), false, false), nil, nil),
		)
	}

	if url := s.ScanURL(); url != "" {
		btn := slack.NewButtonBlockElement("open_scan", s.ScanID, slack.NewTextBlockObject(slack.PlainTextType, "View scan", false, false))
		btn.URL = url
		blocks = append(blocks, slack.NewActionBlock("scan_actions", btn))
	}

	if s.OrganizationName != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, "VULX · "+s.OrganizationName, false, false)))
	}

	return &slack.WebhookMessage{
		Text:   fmt.Sprintf("%s (%s)", s.Title(), s.CountsLine()),
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}

func (s *SlackSender) Send(ctx context.Context, webhookURL string, summary *ScanSummary) error {
	err := slack.PostWebhookCustomHTTPContext(ctx, webhookURL, s.client, SlackMessage(summary))
	if err == nil {
		return nil
	}
	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) {
		return vxerrors.NewUpstreamError("slack", statusErr.Code, err)
	}
	return vxerrors.NewUpstreamError("slack", 0, err)
}
