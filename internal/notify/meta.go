package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultMetaBaseURL    = "https://graph.facebook.com"
	defaultMetaAPIVersion = "v20.0"
)

// MetaCloudSender sends text messages through the WhatsApp Cloud API.
type MetaCloudSender struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	Token         string
	Client        *http.Client
}

func NewMetaCloudSender(token, phoneNumberID, apiVersion string) *MetaCloudSender {
	if apiVersion == "" {
		apiVersion = defaultMetaAPIVersion
	}
	return &MetaCloudSender{
		BaseURL:       defaultMetaBaseURL,
		APIVersion:    apiVersion,
		PhoneNumberID: phoneNumberID,
		Token:         token,
		Client:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *MetaCloudSender) Name() string { return "meta" }

type metaTextRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type metaResponse struct {
	Messages []struct {
		ID            string `json:"id"`
		MessageStatus string `json:"message_status"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (s *MetaCloudSender) Send(ctx context.Context, recipient, body string) (Receipt, error) {
	reqBody := metaTextRequest{MessagingProduct: "whatsapp", To: recipient, Type: "text"}
	reqBody.Text.Body = body
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: encode: %v", ErrSend, err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/messages", s.BaseURL, s.APIVersion, s.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrSend, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: meta: %v", ErrSend, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: meta: read response: %v", ErrSend, err)
	}
	var out metaResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode >= 300 {
		if out.Error != nil && out.Error.Message != "" {
			return Receipt{}, fmt.Errorf("%w: meta: %d %s", ErrSend, out.Error.Code, out.Error.Message)
		}
		return Receipt{}, fmt.Errorf("%w: meta: unexpected status %d", ErrSend, resp.StatusCode)
	}
	if len(out.Messages) == 0 {
		return Receipt{}, fmt.Errorf("%w: meta: response carried no message id", ErrSend)
	}
	return Receipt{
		ProviderMessageID: out.Messages[0].ID,
		Status:            providerStatus(out.Messages[0].MessageStatus),
	}, nil
}
