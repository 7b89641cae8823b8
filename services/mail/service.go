package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmlTemplate "html/template"
	"path/filepath"
	textTemplate "text/template"
	"time"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

//go:embed templates/*.html templates/*.txt
var builtinTemplates embed.FS

var ErrTemplateNotFound = errors.New("mail template not found")

// MailClient delivers composed messages. *mail.Client satisfies it.
type MailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Service struct {
	config        *config.MailConfig
	client        MailClient
	htmlTemplates *htmlTemplate.Template
	textTemplates *textTemplate.Template
	logger        *logging.Service
}

type TemplateData = map[string]any

func NewService(cfg *config.MailConfig, logger *logging.Service) (*Service, error) {
	if !cfg.Enabled {
		if logger != nil {
			logger.Warn("mail delivery disabled, messages will only be logged")
		}
		return NewServiceWithClient(cfg, logger, nil)
	}

	client, err := newGoMailClient(cfg)
	if err != nil {
		if logger != nil {
			logger.Error("failed to create mail client",
				zap.Error(err),
				zap.String("host", cfg.Host),
				zap.Int("port", cfg.Port))
		}
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return NewServiceWithClient(cfg, logger, client)
}

func NewServiceWithClient(cfg *config.MailConfig, logger *logging.Service, client MailClient) (*Service, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	service := &Service{
		config: cfg,
		client: client,
		logger: logger,
	}

	if err := service.loadTemplates(); err != nil {
		if logger != nil {
			logger.Error("failed to load mail templates", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	if logger != nil {
		logger.Info("mail service initialized",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("encryption", cfg.Encryption),
			zap.Bool("delivery_enabled", client != nil))
	}
	return service, nil
}

func newGoMailClient(cfg *config.MailConfig) (*mail.Client, error) {
	clientOpts := []mail.Option{
		mail.WithPort(cfg.Port),
	}

	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, mail.WithTimeout(cfg.Timeout))
	}

	switch cfg.Encryption {
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if cfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}

	return mail.NewClient(cfg.Host, clientOpts...)
}

// loadTemplates parses the built-in templates, then lets files in TemplatesDir
// replace any template of the same name.
func (s *Service) loadTemplates() error {
	var err error
	s.htmlTemplates, err = htmlTemplate.ParseFS(builtinTemplates, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse built-in HTML templates: %w", err)
	}
	s.textTemplates, err = textTemplate.ParseFS(builtinTemplates, "templates/*.txt")
	if err != nil {
		return fmt.Errorf("failed to parse built-in text templates: %w", err)
	}

	if s.config.TemplatesDir == "" {
		return nil
	}

	htmlPattern := filepath.Join(s.config.TemplatesDir, "*.html")
	if matches, _ := filepath.Glob(htmlPattern); len(matches) > 0 {
		if s.htmlTemplates, err = s.htmlTemplates.ParseFiles(matches...); err != nil {
			return fmt.Errorf("failed to parse HTML templates: %w", err)
		}
	}

	textPattern := filepath.Join(s.config.TemplatesDir, "*.txt")
	if matches, _ := filepath.Glob(textPattern); len(matches) > 0 {
		if s.textTemplates, err = s.textTemplates.ParseFiles(matches...); err != nil {
			return fmt.Errorf("failed to parse text templates: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("mail templates loaded",
			zap.String("templates_dir", s.config.TemplatesDir),
			zap.Int("html_templates", len(s.htmlTemplates.Templates())),
			zap.Int("text_templates", len(s.textTemplates.Templates())))
	}
	return nil
}

func (s *Service) NewMessage(to []string, subject string) (*mail.Msg, error) {
	message := mail.NewMsg()

	if err := message.FromFormat(s.config.FromName, s.config.FromAddress); err != nil {
		return nil, fmt.Errorf("failed to set FROM address: %w", err)
	}
	if err := message.To(to...); err != nil {
		return nil, fmt.Errorf("failed to set TO addresses: %w", err)
	}
	message.Subject(subject)

	return message, nil
}

func (s *Service) Send(ctx context.Context, message *mail.Msg) error {
	if s.client == nil {
		if s.logger != nil {
			s.logger.Info("mail delivery disabled, message dropped",
				zap.Strings("recipients", message.GetToString()))
		}
		return nil
	}

	startTime := time.Now()
	err := s.client.DialAndSendWithContext(ctx, message)
	duration := time.Since(startTime)

	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to send email",
				zap.Error(err),
				zap.Duration("attempt_duration", duration))
		}
		return fmt.Errorf("failed to send email: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("email sent",
			zap.Strings("recipients", message.GetToString()),
			zap.Duration("send_duration", duration))
	}
	return nil
}

func (s *Service) SendTemplate(ctx context.Context, templateName string, to []string, subject string, data TemplateData) error {
	message, err := s.NewMessage(to, subject)
	if err != nil {
		return err
	}

	if err := s.renderTemplate(templateName, data, message); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to render template",
				zap.Error(err),
				zap.String("template", templateName))
		}
		return err
	}

	return s.Send(ctx, message)
}

func (s *Service) SendHTML(ctx context.Context, to []string, subject, htmlBody string) error {
	message, err := s.NewMessage(to, subject)
	if err != nil {
		return err
	}
	message.SetBodyString(mail.TypeTextHTML, htmlBody)

	return s.Send(ctx, message)
}

func (s *Service) SendPlain(ctx context.Context, to []string, subject, body string) error {
	message, err := s.NewMessage(to, subject)
	if err != nil {
		return err
	}
	message.SetBodyString(mail.TypeTextPlain, body)

	return s.Send(ctx, message)
}

func (s *Service) renderTemplate(templateName string, data TemplateData, message *mail.Msg) error {
	if data == nil {
		data = TemplateData{}
	}
	if _, ok := data["AppName"]; !ok {
		data["AppName"] = s.config.FromName
	}

	var hasHTML bool

	if tmpl := s.htmlTemplates.Lookup(templateName + ".html"); tmpl != nil {
		var htmlBuf bytes.Buffer
		if err := tmpl.Execute(&htmlBuf, data); err != nil {
			return fmt.Errorf("failed to execute HTML template: %w", err)
		}
		message.SetBodyString(mail.TypeTextHTML, htmlBuf.String())
		hasHTML = true
	}

	tmpl := s.textTemplates.Lookup(templateName + ".txt")
	if tmpl == nil {
		if !hasHTML {
			return fmt.Errorf("%w: %s", ErrTemplateNotFound, templateName)
		}
		return nil
	}

	var textBuf bytes.Buffer
	if err := tmpl.Execute(&textBuf, data); err != nil {
		return fmt.Errorf("failed to execute text template: %w", err)
	}
	if hasHTML {
		message.AddAlternativeString(mail.TypeTextPlain, textBuf.String())
	} else {
		message.SetBodyString(mail.TypeTextPlain, textBuf.String())
	}

	return nil
}
