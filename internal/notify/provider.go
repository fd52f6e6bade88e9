package notify

import (
	"strings"

	"go.uber.org/zap"
)

// ProviderOptions selects and configures the sender at startup.
type ProviderOptions struct {
	Provider string // auto, meta, twilio or null

	TwilioSID       string
	TwilioAuthToken string
	TwilioFrom      string

	MetaToken         string
	MetaPhoneNumberID string
	MetaAPIVersion    string
}

func (o ProviderOptions) metaReady() bool {
	return o.MetaToken != "" && o.MetaPhoneNumberID != ""
}

func (o ProviderOptions) twilioReady() bool {
	return o.TwilioSID != "" && o.TwilioAuthToken != "" && o.TwilioFrom != ""
}

// NewSender picks the provider once. "auto" prefers Meta, then Twilio, and
// falls back to NullSender when neither has credentials; an explicitly named
// provider without credentials also falls back to NullSender.
func NewSender(o ProviderOptions, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := strings.ToLower(strings.TrimSpace(o.Provider))
	switch {
	case (provider == "" || provider == "auto" || provider == "meta") && o.metaReady():
		return NewMetaCloudSender(o.MetaToken, o.MetaPhoneNumberID, o.MetaAPIVersion)
	case (provider == "" || provider == "auto" || provider == "twilio") && o.twilioReady():
		return NewTwilioSender(o.TwilioSID, o.TwilioAuthToken, o.TwilioFrom)
	}
	if provider != "null" {
		logger.Warn("notification provider not configured, messages will not leave the process",
			zap.String("provider", provider))
	}
	return NullSender{Logger: logger}
}
