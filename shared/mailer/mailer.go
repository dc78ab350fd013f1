package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"gopkg.in/gomail.v2"
)

// ErrNoRecipients is returned when an email has no To addresses.
var ErrNoRecipients = errors.New("no recipients specified")

// Config holds SMTP configuration for sending emails.
type Config struct {
	Host       string        `env:"SMTP_HOST"`
	Port       int           `env:"SMTP_PORT"        envDefault:"587"`
	Username   string        `env:"SMTP_USERNAME"`
	Password   string        `env:"SMTP_PASSWORD"`
	From       string        `env:"SMTP_FROM"`
	Timeout    time.Duration `env:"SMTP_TIMEOUT"     envDefault:"10s"`
	MaxRetries uint64        `env:"SMTP_MAX_RETRIES" envDefault:"2"`
}

// Validate checks if the Mailer configuration is valid.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.Username == "" {
		return fmt.Errorf("missing SMTP_USERNAME environment variable")
	}
	if c.Password == "" {
		return fmt.Errorf("missing SMTP_PASSWORD environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}

	return nil
}

// Dialer is the part of gomail.Dialer used by the Mailer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer represents an email sender.
type Mailer struct {
	config  Config
	dialer  Dialer
	logger  *zerolog.Logger
	backoff time.Duration
}

// Email represents an email message.
type Email struct {
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	Body     string
	HTMLBody string
}

// NewMailer creates a new Mailer instance with the given configuration.
func NewMailer(cfg Config, logger *zerolog.Logger) *Mailer {
	return NewMailerWithDialer(cfg, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), logger)
}

// NewMailerWithDialer creates a Mailer that delivers through the given dialer.
func NewMailerWithDialer(cfg Config, dialer Dialer, logger *zerolog.Logger) *Mailer {
	return &Mailer{
		config:  cfg,
		dialer:  dialer,
		logger:  logger,
		backoff: 200 * time.Millisecond,
	}
}

// SendEmail sends an HTML email to a single recipient.
func (m *Mailer) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	return m.Send(ctx, Email{
		To:       []string{to},
		Subject:  subject,
		HTMLBody: htmlBody,
	})
}

// Send sends a single email, retrying transient SMTP failures.
// The whole exchange, retries included, is bounded by the configured timeout.
func (m *Mailer) Send(ctx context.Context, email Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipients
	}

	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}

	msg := gomail.NewMessage()
	m.setEmailMessage(msg, email)

	backoff := retry.WithMaxRetries(m.config.MaxRetries, retry.NewExponential(m.backoff))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		err := m.dialAndSend(ctx, msg)
		if err == nil {
			return nil
		}

		if isTransient(err) {
			m.logger.Warn().Err(err).Int("attempt", attempt).Msg("transient failure sending email")
			return retry.RetryableError(err)
		}

		return err
	})
}

// dialAndSend runs the blocking SMTP exchange and gives up when ctx is done.
func (m *Mailer) dialAndSend(ctx context.Context, msg *gomail.Message) error {
	done := make(chan error, 1)

	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mailer) setEmailMessage(msg *gomail.Message, email Email) {
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", email.To...)

	if len(email.Cc) > 0 {
		msg.SetHeader("Cc", email.Cc...)
	}

	if len(email.Bcc) > 0 {
		msg.SetHeader("Bcc", email.Bcc...)
	}

	msg.SetHeader("Subject", email.Subject)

	if email.HTMLBody != "" {
		msg.SetBody("text/html", email.HTMLBody)
		if email.Body != "" {
			msg.AddAlternative("text/plain", email.Body)
		}
	} else {
		msg.SetBody("text/plain", email.Body)
	}
}

// isTransient reports whether an SMTP failure is worth retrying:
// network errors and 4xx replies are, 5xx replies are not.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 400 && protoErr.Code < 500
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
