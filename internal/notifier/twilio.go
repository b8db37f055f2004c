package notifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// WhatsAppPrefix marks Twilio addresses on the WhatsApp channel.
const WhatsAppPrefix = "whatsapp:"

// TwilioConfig holds the Twilio credentials and sender address.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

// Configured reports whether every credential is present.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

// messageCreator is the part of the Twilio REST API the notifier uses.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// Twilio sends WhatsApp messages through the Twilio REST API.
type Twilio struct {
	cfg    TwilioConfig
	api    messageCreator
	logger *zap.Logger
}

// NewTwilio creates a Twilio notifier. An incomplete configuration is
// accepted; Send then fails with ErrNotConfigured.
func NewTwilio(cfg TwilioConfig, logger *zap.Logger) *Twilio {
	t := &Twilio{cfg: cfg, logger: logger}
	if cfg.Configured() {
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		t.api = client.Api
	}
	return t
}

// Send delivers body to destination over WhatsApp.
func (t *Twilio) Send(ctx context.Context, body, destination string) (string, error) {
	if t.api == nil || strings.TrimSpace(destination) == "" {
		return "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(whatsAppAddress(destination))
	params.SetFrom(whatsAppAddress(t.cfg.From))
	params.SetBody(body)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		t.logger.Error("twilio delivery failed", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	t.logger.Info("message sent", zap.String("sid", sid))
	return sid, nil
}

func whatsAppAddress(address string) string {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(address, WhatsAppPrefix) {
		return address
	}
	return WhatsAppPrefix + address
}
