// internal/events/webhook.go
// Fire-and-forget HTTP delivery for debate events, for wiring a run into
// an external collector without coupling the orchestrator to it.
package events

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// WebhookSink POSTs events to an HTTP endpoint. Delivery is asynchronous
// and best-effort; a dead endpoint never stalls a debate.
type WebhookSink struct {
	endpoint   string
	httpClient *http.Client
	enabled    bool
}

// NewWebhookSink creates a webhook sink for the given endpoint.
func NewWebhookSink(endpoint string) *WebhookSink {
	return &WebhookSink{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 2 * time.Second, // short timeout for fire-and-forget
		},
		enabled: endpoint != "",
	}
}

// SetEnabled enables or disables event emission.
func (s *WebhookSink) SetEnabled(enabled bool) {
	s.enabled = enabled
}

// Emit sends an event asynchronously.
func (s *WebhookSink) Emit(event Event) {
	if !s.enabled {
		return
	}
	go s.send(event)
}

func (s *WebhookSink) send(event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("[events] failed to marshal event: %v", err)
		return
	}

	resp, err := s.httpClient.Post(s.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		// Collector may not be running; fire-and-forget means we move on.
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("[events] event rejected with status %d", resp.StatusCode)
	}
}
