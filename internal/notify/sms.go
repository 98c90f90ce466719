package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPSmsSender posts messages to an SMS gateway's JSON API with a bounded
// timeout so a slow gateway cannot stall a dispatch worker.
type HTTPSmsSender struct {
	gatewayURL string
	token      string
	senderID   string
	hc         *http.Client
}

func NewHTTPSmsSender(gatewayURL, token, senderID string) *HTTPSmsSender {
	return &HTTPSmsSender{
		gatewayURL: gatewayURL,
		token:      token,
		senderID:   senderID,
		hc:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSmsSender) Send(ctx context.Context, to, message string) error {
	payload := map[string]string{
		"to":        to,
		"message":   message,
		"sender_id": s.senderID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sms marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sms http.NewReq: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.hc.Do(req)
	if err != nil {
		return fmt.Errorf("sms http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sms gateway status %d", resp.StatusCode)
	}
	return nil
}
