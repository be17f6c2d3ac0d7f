package whatsapp

import (
	"context"
	"fmt"
	"time"

	"concierge/pkg/client"

	"golang.org/x/time/rate"
)

const (
	// maxTextLength is the Cloud API limit for a text message body.
	maxTextLength = 4096

	// sendRate caps outbound calls per second below the Cloud API throughput limit.
	sendRate = 50
)

// Sender is the outbound half of the Cloud API.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
	MarkRead(ctx context.Context, messageID string) error
}

type cloudSender struct {
	http          *client.HttpClient
	phoneNumberID string
	limiter       *rate.Limiter
}

func NewSender(baseURL, accessToken, phoneNumberID string, timeout time.Duration) Sender {
	return &cloudSender{
		http:          client.NewHttpClient(baseURL, timeout).WithBearer(accessToken),
		phoneNumberID: phoneNumberID,
		limiter:       rate.NewLimiter(rate.Limit(sendRate), sendRate),
	}
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

type readReceipt struct {
	MessagingProduct string `json:"messaging_product"`
	Status           string `json:"status"`
	MessageID        string `json:"message_id"`
}

func (s *cloudSender) SendText(ctx context.Context, to, body string) error {
	msg := textMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             TypeText,
	}
	msg.Text.Body = truncateRunes(body, maxTextLength)
	return s.post(ctx, msg)
}

func (s *cloudSender) MarkRead(ctx context.Context, messageID string) error {
	return s.post(ctx, readReceipt{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	})
}

func (s *cloudSender) post(ctx context.Context, body any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for send slot: %w", err)
	}

	resp, err := s.http.POST(ctx, "/"+s.phoneNumberID+"/messages", body)
	if err != nil {
		return fmt.Errorf("failed to call whatsapp api: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("whatsapp api rejected request: %s", client.GetErrorMessage(resp))
	}
	return nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
