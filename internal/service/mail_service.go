package service

import (
	"bytes"
	"context"
	"course_hub_backend/internal/config"
	"course_hub_backend/internal/util"
	"course_hub_backend/pkg/logger"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

//go:embed mails/*.html
var mailTemplates embed.FS

const (
	TemplateQuestionReply = "question-reply.html"
	TemplateReviewReply   = "review-reply.html"
)

// MailMessage is a rendered email ready for delivery.
type MailMessage struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// MailRequest describes an email before its template is rendered.
type MailRequest struct {
	Subject  string
	Template string
	Data     map[string]string
}

var parsedMailTemplates = template.Must(template.ParseFS(mailTemplates, "mails/*.html"))

func RenderMail(name string, data map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := parsedMailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func NewMailer(cfg *config.MailConfig) Mailer {
	if cfg.Provider == util.MailProviderSendGrid {
		return NewSendGridMailer(cfg)
	}
	return &LogMailer{}
}

// LogMailer writes emails to the log instead of delivering them.
type LogMailer struct{}

func (m *LogMailer) Send(ctx context.Context, msg MailMessage) error {
	logger.Log.Info("email suppressed",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// SendGridMailer delivers through the SendGrid v3 mail send API. A failed
// delivery is reported once and never retried.
type SendGridMailer struct {
	apiKey     string
	baseURL    string
	fromEmail  string
	fromName   string
	httpClient *http.Client
}

func NewSendGridMailer(cfg *config.MailConfig) *SendGridMailer {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SendGridMailer{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMailSend struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

type sgErrorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (m *SendGridMailer) Send(ctx context.Context, msg MailMessage) error {
	if m.apiKey == "" {
		return fmt.Errorf("sendgrid: api key not configured")
	}
	if m.fromEmail == "" {
		return fmt.Errorf("sendgrid: from email not configured")
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("sendgrid: recipient required")
	}

	body, err := json.Marshal(sgMailSend{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To, Name: msg.ToName}}}},
		From:             sgAddress{Email: m.fromEmail, Name: m.fromName},
		Subject:          msg.Subject,
		Content:          []sgContent{{Type: "text/html", Value: msg.HTML}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er sgErrorResponse
		if json.Unmarshal(raw, &er) == nil && len(er.Errors) > 0 {
			return fmt.Errorf("sendgrid http %d: %s", resp.StatusCode, er.Errors[0].Message)
		}
		return fmt.Errorf("sendgrid http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
