package sender

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"shop-service/config"
	"shop-service/internal/producer"

	gopkgmail "gopkg.in/gomail.v2"
)

type dialer interface {
	DialAndSend(m ...*gopkgmail.Message) error
}

type EmailSender struct {
	cfg    *config.NotifierConfig
	dialer dialer
}

func NewEmailSender(cfg *config.NotifierConfig) *EmailSender {
	d := gopkgmail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	d.SSL = cfg.SMTPPort == 465
	return &EmailSender{cfg: cfg, dialer: d}
}

func (s *EmailSender) SendEmail(msg producer.EmailMessage) error {
	m, err := s.Build(msg)
	if err != nil {
		return err
	}
	return s.dialer.DialAndSend(m)
}

// Build собирает письмо: text/plain из <template>.txt и text/html из <template>.html
func (s *EmailSender) Build(msg producer.EmailMessage) (*gopkgmail.Message, error) {
	htmlBody, err := s.renderHTML(msg.Template, msg.Data)
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	plainBody, err := s.renderPlain(msg.Template, msg.Data)
	if err != nil {
		return nil, fmt.Errorf("render plain: %w", err)
	}

	m := gopkgmail.NewMessage()
	m.SetHeader("From", s.cfg.SMTPFrom)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if strings.Contains(htmlBody, "cid:logo") {
		iconPath := filepath.Join(s.cfg.TMPLDir, "icon.png")
		if _, errStat := os.Stat(iconPath); errStat == nil {
			m.Embed(iconPath, gopkgmail.SetHeader(map[string][]string{"Content-ID": {"<logo>"}}))
		}
	}
	return m, nil
}

func (s *EmailSender) read(name, ext string) (string, error) {
	// имя шаблона приходит из сообщения kafka
	if name == "" || strings.ContainsAny(name, `/\.`) {
		return "", fmt.Errorf("invalid template name %q", name)
	}
	content, err := os.ReadFile(filepath.Join(s.cfg.TMPLDir, name+ext))
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (s *EmailSender) renderHTML(name string, data map[string]any) (string, error) {
	content, err := s.read(name, ".html")
	if err != nil {
		return "", err
	}
	tmpl, err := htmltemplate.New(name).Parse(content)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *EmailSender) renderPlain(name string, data map[string]any) (string, error) {
	content, err := s.read(name, ".txt")
	if err != nil {
		return "", err
	}
	tmpl, err := texttemplate.New(name).Parse(content)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
