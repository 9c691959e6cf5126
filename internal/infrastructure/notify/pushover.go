package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"InventoryTracker/internal/ports"
)

const pushoverEndpoint = "https://api.pushover.net/1/messages.json"

// Notifier delivers run summaries through the Pushover message API.
type Notifier struct {
	apiToken string
	userKey  string
	client   *http.Client
	endpoint string
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers application token and recipient key.
func NewNotifier(apiToken, userKey string) *Notifier {
	return &Notifier{
		apiToken: apiToken,
		userKey:  userKey,
		client:   &http.Client{Timeout: 5 * time.Second},
		endpoint: pushoverEndpoint,
	}
}

// Publish posts one message with a title to Pushover.
func (n *Notifier) Publish(ctx context.Context, title, message string) error {
	if n.apiToken == "" || n.userKey == "" || n.client == nil {
		return fmt.Errorf("pushover notifier misconfigured")
	}

	form := url.Values{}
	form.Set("token", n.apiToken)
	form.Set("user", n.userKey)
	form.Set("title", title)
	form.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushover error: %s", resp.Status)
	}

	return nil
}
