package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioSender sends WhatsApp messages through Twilio's Messages API.
type TwilioSender struct {
	api  messageCreator
	from string
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{api: client.Api, from: from}
}

func (s *TwilioSender) Name() string { return "twilio" }

func (s *TwilioSender) Send(_ context.Context, recipient, body string) (Receipt, error) {
	params := &openapi.CreateMessageParams{}
	params.SetFrom("whatsapp:" + s.from)
	params.SetTo("whatsapp:" + recipient)
	params.SetBody(body)

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: twilio: %v", ErrSend, err)
	}
	var rcpt Receipt
	if msg.Sid != nil {
		rcpt.ProviderMessageID = *msg.Sid
	}
	if msg.Status != nil {
		rcpt.Status = providerStatus(*msg.Status)
	}
	return rcpt, nil
}
