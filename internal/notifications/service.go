package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/brandbeacon/visibility-bot/internal/config"
	"github.com/brandbeacon/visibility-bot/internal/models"
)

// Service handles sending notifications via various channels
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendRunSummary delivers a reaggregation run summary via the configured
// channels. Channel failures are collected and joined, not fatal per
// channel.
func (s *Service) SendRunSummary(summary *models.RunSummary) error {
	title := "Brand Visibility Reaggregation"
	facts := []TeamsFact{
		{Name: "Run", Value: summary.RunID},
		{Name: "Records", Value: fmt.Sprintf("%d", summary.TotalRecords)},
		{Name: "Distinct Prompts", Value: fmt.Sprintf("%d", summary.TotalPrompts)},
		{Name: "Metrics Written", Value: fmt.Sprintf("%d", summary.MetricsWritten)},
		{Name: "Scopes", Value: strings.Join(summary.Scopes, ", ")},
		{Name: "Invariant Violations", Value: fmt.Sprintf("%d", summary.Violations)},
		{Name: "Errors", Value: fmt.Sprintf("%d", summary.Errors)},
		{Name: "Duration", Value: summary.Duration},
	}
	text := fmt.Sprintf("Recomputed %d metrics from %d test records", summary.MetricsWritten, summary.TotalRecords)
	return s.send(title, text, facts)
}

// SendRepairSummary delivers a citation repair pass summary.
func (s *Service) SendRepairSummary(summary *models.RepairSummary) error {
	title := "Citation Classification Repair"
	facts := []TeamsFact{
		{Name: "Run", Value: summary.RunID},
		{Name: "Processed", Value: fmt.Sprintf("%d", summary.Processed)},
		{Name: "Updated", Value: fmt.Sprintf("%d", summary.Updated)},
		{Name: "Citations Changed", Value: fmt.Sprintf("%d", summary.CitationsChanged)},
		{Name: "Metrics Patched", Value: fmt.Sprintf("%d", summary.MetricsPatched)},
		{Name: "Errors", Value: fmt.Sprintf("%d", summary.Errors)},
		{Name: "Before (brand/earned/social)", Value: formatBreakdown(summary.Before)},
		{Name: "After (brand/earned/social)", Value: formatBreakdown(summary.After)},
		{Name: "Duration", Value: summary.Duration},
	}
	text := fmt.Sprintf("Reclassified citations across %d test records, %d changed", summary.Processed, summary.CitationsChanged)
	return s.send(title, text, facts)
}

func formatBreakdown(b models.TypeBreakdown) string {
	return fmt.Sprintf("%.1f%% / %.1f%% / %.1f%%",
		b.Percent(b.Brand), b.Percent(b.Earned), b.Percent(b.Social))
}

func (s *Service) send(title, text string, facts []TeamsFact) error {
	var errs []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(title, text, facts); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errs = append(errs, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent summary to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(title, text, facts); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errs = append(errs, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent summary via email")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *Service) sendToTeams(title, text string, facts []TeamsFact) error {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   title,
		Text:    text,
		Sections: []TeamsSection{{
			ActivityTitle: fmt.Sprintf("Generated %s", time.Now().UTC().Format("2006-01-02 15:04:05 UTC")),
			Facts:         facts,
			Markdown:      true,
		}},
	}

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func (s *Service) sendEmail(title, text string, facts []TeamsFact) error {
	var body strings.Builder
	body.WriteString(fmt.Sprintf("<h2>%s</h2><p>%s</p><table>", title, text))
	for _, fact := range facts {
		body.WriteString(fmt.Sprintf("<tr><td><b>%s</b></td><td>%s</td></tr>", fact.Name, fact.Value))
	}
	body.WriteString("</table>")

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", title)
	m.SetBody("text/html", body.String())

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
