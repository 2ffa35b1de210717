package notify

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"

	"github.com/wneessen/go-mail"

	"taxbuddy/config"
)

var (
	// ErrConfigMissing means the transport credentials are absent. Checked at
	// the point of use so the chat and record features stay usable without an
	// SMTP setup.
	ErrConfigMissing = errors.New("notification transport not configured")
	// ErrAuth means the transport rejected the credentials.
	ErrAuth = errors.New("notification transport auth rejected")
	// ErrTransport covers transient delivery failures other than auth.
	ErrTransport = errors.New("notification transport failure")
)

// Transport submits one finished notice.
type Transport interface {
	Send(ctx context.Context, n Notice) error
}

// SMTPSender delivers notices over authenticated, STARTTLS-secured SMTP.
type SMTPSender struct {
	cfg config.Config
}

func NewSMTPSender(cfg config.Config) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, n Notice) error {
	if s.cfg.SenderEmail == "" || s.cfg.SenderPassword == "" {
		return ErrConfigMissing
	}

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.SenderEmail); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := msg.To(n.To); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextPlain, n.Body)

	client, err := mail.NewClient(s.cfg.SMTPHost,
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.SenderEmail),
		mail.WithPassword(s.cfg.SenderPassword),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return classify(err)
	}
	return nil
}

// classify splits delivery failures into credential rejections and everything
// else. Auth failures surface during the dial as SMTP reply-code errors
// (530/534/535), not as send-phase errors.
func classify(err error) error {
	var proto *textproto.Error
	if errors.As(err, &proto) {
		switch proto.Code {
		case 530, 534, 535:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
