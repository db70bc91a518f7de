// Package notify delivers workflow responses back to the customer channel
// through an outbound webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/olga-ai/atendimento/internal/workflow"
)

const maxReceiptBody = 4 << 10

// Webhook posts workflow outcomes to the channel endpoint. The endpoint
// acknowledges a queued delivery with 202 and a messageId receipt.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// outboundMessage is the delivery wire shape: the reply text plus the
// routing outcome it came from, so the channel can thread follow-ups.
type outboundMessage struct {
	Phone      string `json:"phone"`
	Message    string `json:"message"`
	Flow       string `json:"flow"`
	Protocol   string `json:"protocol,omitempty"`
	NextAction string `json:"next_action,omitempty"`
}

type deliveryReceipt struct {
	MessageID string `json:"messageId"`
}

// Send posts the response and returns the remote delivery id.
func (w *Webhook) Send(ctx context.Context, r workflow.Response) (string, error) {
	body, err := json.Marshal(outboundMessage{
		Phone:      r.Phone,
		Message:    r.Message,
		Flow:       r.Flow,
		Protocol:   r.Protocol,
		NextAction: r.NextAction,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	receiptBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxReceiptBody))

	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("webhook rejected delivery: status=%d body=%q", resp.StatusCode, receiptBody)
	}

	var receipt deliveryReceipt
	if err := json.Unmarshal(receiptBody, &receipt); err != nil {
		return "", fmt.Errorf("decode delivery receipt: %w body=%q", err, receiptBody)
	}
	if receipt.MessageID == "" {
		return "", fmt.Errorf("delivery receipt carries no messageId body=%q", receiptBody)
	}

	return receipt.MessageID, nil
}
