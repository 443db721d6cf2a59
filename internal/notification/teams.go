package notification

import (
	"context"
	"fmt"
	"net/http"
)

// MessageCard is the legacy Office 365 connector card accepted by Teams
// incoming webhooks.
type MessageCard struct {
	Type            string        `json:"@type"`
	Context         string        `json:"@context"`
	ThemeColor      string        `json:"themeColor"`
	Summary         string        `json:"summary"`
	Title           string        `json:"title"`
	Text            string        `json:"text,omitempty"`
	Sections        []CardSection `json:"sections,omitempty"`
	PotentialAction []CardOpenURI `json:"potentialAction,omitempty"`
}

type CardSection struct {
	ActivityTitle string     `json:"activityTitle,omitempty"`
	Facts         []CardFact `json:"facts,omitempty"`
	Text          string     `json:"text,omitempty"`
	Markdown      bool       `json:"markdown"`
}

type CardFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type CardOpenURI struct {
	Type    string          `json:"@type"`
	Name    string          `json:"name"`
	Targets []CardURITarget `json:"targets"`
}

type CardURITarget struct {
	OS  string `json:"os"`
	URI string `json:"uri"`
}

type TeamsSender struct {
	client *http.Client
}

func NewTeamsSender(client *http.Client) *TeamsSender {
	return &TeamsSender{client: client}
}

func TeamsCard(s *ScanSummary) *MessageCard {
	card := &MessageCard{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: fmt.Sprintf("%06X", severityColor(s.HighestSeverity())),
		Summary:    s.Title(),
		Title:      s.Title(),
		Text:       s.CountsLine(),
		Sections: []CardSection{{
			ActivityTitle: s.OrganizationName,
			Markdown:      true,
			Facts: []CardFact{
				{Name: "Risk score", Value: fmt.Sprintf("%d/100", s.RiskScore)},
				{Name: "Environment", Value: string(s.Environment)},
				{Name: "Findings", Value: fmt.Sprintf("%d", s.Total)},
			},
		}},
	}

	for _, f := range s.TopFindings {
		card.Sections[0].Facts = append(card.Sections[0].Facts, CardFact{
			Name:  string(f.Severity),
			Value: fmt.Sprintf("%s (%s %s)", f.Title, f.Method, f.Endpoint),
		})
	}

	if url := s.ScanURL(); url != "" {
		card.PotentialAction = []CardOpenURI{{
			Type:    "OpenUri",
			Name:    "View scan",
			Targets: []CardURITarget{{OS: "default", URI: url}},
		}}
	}
	return card
}

func (t *TeamsSender) Send(ctx context.Context, webhookURL string, summary *ScanSummary) error {
	return postJSON(ctx, t.client, "teams", webhookURL, TeamsCard(summary))
}
