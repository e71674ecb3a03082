// Package alert dispatches validation failures to external channels —
// email and incident-ticket endpoints. This package does the sending;
// internal/httpapi and internal/rpcapi only trigger it.
package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"os"
	"strconv"
	"sync"

	"github.com/anthropics/tinyvalid/internal/config"
)

// Failure is one failed-rule record for one row.
type Failure struct {
	Row       int    `json:"row"`
	RuleIndex int    `json:"rule_index"`
	Message   string `json:"message"`
}

// Report bundles every failure found while validating one file against
// one ruleset, ready to hand to alert channels.
type Report struct {
	File     string            `json:"file"`
	Ruleset  string            `json:"ruleset"`
	Failures []Failure         `json:"failures"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Channel is one alert destination.
type Channel interface {
	SendAlert(subject, message string, report Report) error
}

// Manager fans a Report out to every configured Channel, mirroring
// AlertManager.trigger_alert's subject/message composition and its
// first-10/remaining-count summarization.
type Manager struct {
	mu       sync.RWMutex
	channels []Channel
}

// NewManager creates an empty Manager; call Configure to populate it.
func NewManager() *Manager { return &Manager{} }

// Register appends a channel.
func (m *Manager) Register(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// Configure rebuilds the channel list from system configuration,
// matching AlertManager.configure's reset-then-rebuild behavior.
func (m *Manager) Configure(cfg config.SystemConfig) {
	var channels []Channel

	if cfg.SMTP.Server != "" || len(cfg.EmailRecipients) > 0 {
		channels = append(channels, NewEmailChannel(cfg.SMTP, cfg.EmailRecipients))
	}
	if cfg.Ticketing.InstanceURL != "" {
		channels = append(channels, NewTicketChannel(cfg.Ticketing))
	}

	m.mu.Lock()
	m.channels = channels
	m.mu.Unlock()
}

// TriggerAlert composes a summary message and sends it to every
// registered channel. A report with no failures is a no-op.
func (m *Manager) TriggerAlert(report Report) {
	if len(report.Failures) == 0 {
		return
	}
	subject := fmt.Sprintf("File Validation Alert: %s", report.File)
	message := composeMessage(report)

	m.mu.RLock()
	channels := m.channels
	m.mu.RUnlock()

	for _, ch := range channels {
		if err := ch.SendAlert(subject, message, report); err != nil {
			fmt.Fprintf(os.Stderr, "alert: channel failed: %v\n", err)
		}
	}
}

func composeMessage(report Report) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "The file %q has failed validation.\n", report.File)
	fmt.Fprintf(&buf, "Total errors found: %d\n\n", len(report.Failures))
	buf.WriteString("Sample errors:\n")

	limit := len(report.Failures)
	if limit > 10 {
		limit = 10
	}
	for _, f := range report.Failures[:limit] {
		fmt.Fprintf(&buf, "- Row %d: %s\n", f.Row, f.Message)
	}
	if len(report.Failures) > 10 {
		fmt.Fprintf(&buf, "\n...and %d more errors.\n", len(report.Failures)-10)
	}
	buf.WriteString("\nPlease review and correct the file.\n")
	return buf.String()
}

// EmailChannel sends alerts over SMTP, falling back to
// SMTP_SERVER/SMTP_USER/etc. environment variables for any field the
// YAML config leaves blank.
type EmailChannel struct {
	server     string
	port       int
	user       string
	password   string
	recipients []string
}

// NewEmailChannel builds an EmailChannel from config, falling back to
// environment variables for any field config leaves empty.
func NewEmailChannel(cfg config.SMTPConfig, recipients []string) *EmailChannel {
	server := firstNonEmpty(cfg.Server, os.Getenv("SMTP_SERVER"), "smtp.gmail.com")
	port := cfg.Port
	if port == 0 {
		if p, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil {
			port = p
		} else {
			port = 587
		}
	}
	user := firstNonEmpty(cfg.SenderEmail, os.Getenv("SMTP_USER"))
	password := firstNonEmpty(cfg.SenderPassword, os.Getenv("SMTP_PASSWORD"))
	if len(recipients) == 0 {
		recipients = []string{firstNonEmpty(os.Getenv("ALERT_EMAIL_RECIPIENT"), "admin@example.com")}
	}
	return &EmailChannel{server: server, port: port, user: user, password: password, recipients: recipients}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// SendAlert sends subject/message to every configured recipient. Missing
// credentials log-and-skip rather than error.
func (e *EmailChannel) SendAlert(subject, message string, _ Report) error {
	if e.user == "" || e.password == "" {
		fmt.Fprintf(os.Stderr, "[email] credentials not configured, skipping send to %v: %s\n", e.recipients, subject)
		return nil
	}
	auth := smtp.PlainAuth("", e.user, e.password, e.server)
	addr := fmt.Sprintf("%s:%d", e.server, e.port)
	body := fmt.Sprintf("From: %s\r\nSubject: %s\r\n\r\n%s", e.user, subject, message)

	var firstErr error
	for _, rcpt := range e.recipients {
		if err := smtp.SendMail(addr, auth, e.user, []string{rcpt}, []byte(body)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("send to %s: %w", rcpt, err)
		}
	}
	return firstErr
}

// TicketChannel opens an incident via HTTP POST with basic auth against
// a ServiceNow-style Table API.
type TicketChannel struct {
	instanceURL string
	username    string
	password    string
	client      *http.Client
}

// NewTicketChannel builds a TicketChannel from config.
func NewTicketChannel(cfg config.TicketingConfig) *TicketChannel {
	return &TicketChannel{
		instanceURL: cfg.InstanceURL,
		username:    cfg.Username,
		password:    cfg.Password,
		client:      &http.Client{},
	}
}

type ticketPayload struct {
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	Priority         string `json:"priority"`
}

// SendAlert POSTs an incident payload to instanceURL + "/api/now/table/incident".
func (t *TicketChannel) SendAlert(subject, message string, _ Report) error {
	if t.instanceURL == "" {
		return nil
	}
	payload, err := json.Marshal(ticketPayload{
		ShortDescription: subject,
		Description:      message,
		Category:         "Software",
		Priority:         "2",
	})
	if err != nil {
		return fmt.Errorf("ticket: encode payload: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, t.instanceURL+"/api/now/table/incident", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("ticket: build request: %w", err)
	}
	req.SetBasicAuth(t.username, t.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("ticket: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("ticket: unexpected status %d", resp.StatusCode)
	}
	return nil
}
