package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gsoultan/gsmail"
	"github.com/gsoultan/gsmail/smtp"
	"github.com/user/mayday"
	"github.com/user/mayday/internal/config"
	"github.com/user/mayday/internal/storage"
	"github.com/user/mayday/pkg/submitter"
)

// Service fans crash arrivals out to the configured channels. Arrivals are
// debounced per category so a crash loop does not flood the inbox.
type Service struct {
	cfg      config.NotificationConfig
	logger   mayday.Logger
	client   *http.Client
	debounce time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

func NewService(cfg config.NotificationConfig, logger mayday.Logger) *Service {
	if logger == nil {
		logger = submitter.NewDefaultLogger()
	}
	return &Service{
		cfg:      cfg,
		logger:   logger,
		client:   &http.Client{Timeout: 10 * time.Second},
		debounce: 5 * time.Minute,
		lastSent: make(map[string]time.Time),
	}
}

// Enabled reports whether any channel is configured.
func (s *Service) Enabled() bool {
	return (s.cfg.SMTPHost != "" && s.cfg.Email != "") || s.cfg.WebhookURL != ""
}

func (s *Service) CrashReceived(ctx context.Context, rep storage.CrashReport) {
	if !s.Enabled() {
		return
	}

	key := rep.Category
	if key == "" {
		key = "uncategorized"
	}
	s.mu.Lock()
	if last, ok := s.lastSent[key]; ok && time.Since(last) < s.debounce {
		s.mu.Unlock()
		return
	}
	s.lastSent[key] = time.Now()
	s.mu.Unlock()

	summary := rep.ExcValue
	if rep.ExcType != "" {
		summary = rep.ExcType + ": " + rep.ExcValue
	}
	if summary == "" {
		summary = "no exception details"
	}

	title := fmt.Sprintf("Crash report received: %s", key)
	message := fmt.Sprintf("Report %s (%s)", rep.ID, summary)

	if err := s.SendEmail(ctx, title, message, rep); err != nil {
		s.logger.Warn("failed to send email notification", "error", err)
	}
	if err := s.SendWebhook(ctx, title, message, rep); err != nil {
		s.logger.Warn("failed to send webhook notification", "error", err)
	}
}

func (s *Service) SendEmail(ctx context.Context, title, message string, rep storage.CrashReport) error {
	if s.cfg.SMTPHost == "" || s.cfg.Email == "" {
		return nil
	}

	sender := smtp.NewSender(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPSSL)

	body := fmt.Sprintf("%s\n\nCategory: %s\nVersion: %s\nFingerprint: %s\nReceived: %s",
		message, rep.Category, rep.Version, rep.Fingerprint, rep.ReceivedAt.Format(time.RFC3339))
	if s.cfg.BaseURL != "" {
		body += fmt.Sprintf("\nDetails: %s/api/reports/%s", s.cfg.BaseURL, rep.ID)
	}

	email := gsmail.Email{
		From:    s.cfg.SMTPFrom,
		To:      []string{s.cfg.Email},
		Subject: title,
		Body:    []byte(body),
	}

	return sender.Send(ctx, email)
}

func (s *Service) SendWebhook(ctx context.Context, title, message string, rep storage.CrashReport) error {
	if s.cfg.WebhookURL == "" {
		return nil
	}

	data := map[string]interface{}{
		"title":       title,
		"message":     message,
		"report_id":   rep.ID,
		"category":    rep.Category,
		"fingerprint": rep.Fingerprint,
		"timestamp":   time.Now().Format(time.RFC3339),
	}
	if s.cfg.BaseURL != "" {
		data["details_url"] = fmt.Sprintf("%s/api/reports/%s", s.cfg.BaseURL, rep.ID)
	}

	body, _ := json.Marshal(data)

	req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status: %d", resp.StatusCode)
	}

	return nil
}
