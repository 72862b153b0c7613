package notify

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/infieldfly/infieldfly/internal/config"
)

// Notifier sends a short notification about a completed download
type Notifier interface {
	NotifyDownload(fileName string) error
}

// noopNotifier drops notifications when SMS is not configured
type noopNotifier struct{}

func (noopNotifier) NotifyDownload(string) error { return nil }

// smsNotifier sends notifications as SMS messages through Twilio
type smsNotifier struct {
	client    *twilio.RestClient
	sender    string
	recipient string
	logger    *logrus.Logger
}

// NewNotifier creates an SMS notifier from the configured Twilio account.
// When any required setting is missing, notifications are disabled and a
// warning names the missing setting.
func NewNotifier(cfg *config.Config, logger *logrus.Logger) Notifier {
	missing := ""
	switch {
	case cfg.TwilioSID == "":
		missing = "account SID"
	case cfg.TwilioAuthToken == "":
		missing = "auth token"
	case cfg.SendingNumber == "":
		missing = "sending number"
	case cfg.ReceivingNumber == "":
		missing = "receiving number"
	}
	if missing != "" {
		logger.WithField("missing", missing).Warn("SMS notifications disabled; Twilio setting not configured")
		return noopNotifier{}
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioSID,
		Password: cfg.TwilioAuthToken,
	})

	return &smsNotifier{
		client:    client,
		sender:    cfg.SendingNumber,
		recipient: cfg.ReceivingNumber,
		logger:    logger,
	}
}

func (n *smsNotifier) NotifyDownload(fileName string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.recipient)
	params.SetFrom(n.sender)
	params.SetBody(fmt.Sprintf("Downloaded and converted %s", fileName))

	if _, err := n.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS notification: %w", err)
	}

	n.logger.WithField("file", fileName).Info("Sent download notification")
	return nil
}
