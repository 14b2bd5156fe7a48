package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/rs/zerolog"
)

// Mailer delivers a single email.
type Mailer interface {
	Send(ctx context.Context, to string, msg Message) error
}

// ShoutrrrMailer sends through a shoutrrr smtp:// URL. The recipient is
// supplied per message through the toaddresses parameter.
type ShoutrrrMailer struct {
	sender *router.ServiceRouter
}

func NewShoutrrrMailer(url string, timeout time.Duration) (*ShoutrrrMailer, error) {
	sender, err := shoutrrr.CreateSender(url)
	if err != nil {
		return nil, fmt.Errorf("create smtp sender: %w", err)
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &ShoutrrrMailer{sender: sender}, nil
}

func (m *ShoutrrrMailer) Send(ctx context.Context, to string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{"toaddresses": to}
	params.SetTitle(msg.Subject)
	for _, err := range m.sender.Send(msg.Body, &params) {
		if err != nil {
			return err
		}
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP URL is configured.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, to string, msg Message) error {
	m.log.Info().
		Str("to", to).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("email not sent: no smtp url configured")
	return nil
}
