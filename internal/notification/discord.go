package notification

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

type DiscordSender struct {
	client *http.Client
}

func NewDiscordSender(client *http.Client) *DiscordSender {
	return &DiscordSender{client: client}
}

// DiscordPayload renders the summary as a webhook execution with one embed.
func DiscordPayload(s *ScanSummary) *discordgo.WebhookParams {
	embed := &discordgo.MessageEmbed{
		Title:       s.Title(),
		URL:         s.ScanURL(),
		Description: s.CountsLine(),
		Color:       severityColor(s.HighestSeverity()),
		Timestamp:   s.CompletedAt.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Risk score", Value: fmt.Sprintf("%d/100", s.RiskScore), Inline: true},
			{Name: "Environment", Value: string(s.Environment), Inline: true},
			{Name: "Findings", Value: fmt.Sprintf("%d", s.Total), Inline: true},
		},
	}

	if len(s.TopFindings) > 0 {
		lines := make([]string, 0, len(s.TopFindings))
		for _, f := range s.TopFindings {
			lines = append(lines, s.FindingLine(f))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Top findings",
			Value: strings.Join(lines, "\n"),
		})
	}
	if s.OrganizationName != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "VULX · " + s.OrganizationName}
	}

	return &discordgo.WebhookParams{
		Username: "VULX",
		Embeds:   []*discordgo.MessageEmbed{embed},
	}
}

func (d *DiscordSender) Send(ctx context.Context, webhookURL string, summary *ScanSummary) error {
	return postJSON(ctx, d.client, "discord", webhookURL, DiscordPayload(summary))
}
