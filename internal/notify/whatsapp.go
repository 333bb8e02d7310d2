// Package notify delivers out-of-band messages (one-time codes, chat agent
// replies) to employees over WhatsApp via the Twilio REST API.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bankportal/backend/internal/config"
	"github.com/bankportal/backend/pkg/logger"
)

// Notifier sends a message to an external address (a whatsapp:+... number).
type Notifier interface {
	Send(ctx context.Context, to, body string) error
}

// WhatsAppClient posts messages through Twilio. When no credentials are
// configured it degrades to logging the message, which keeps the demo flow
// usable without an account.
type WhatsAppClient struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

func NewWhatsAppClient(cfg config.TwilioConfig) *WhatsAppClient {
	return &WhatsAppClient{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.From,
		baseURL:    "https://api.twilio.com",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (w *WhatsAppClient) configured() bool {
	return w.accountSID != "" && w.authToken != "" && w.from != ""
}

func (w *WhatsAppClient) Send(ctx context.Context, to, body string) error {
	if !w.configured() {
		logger.Info("whatsapp_send_skipped", map[string]interface{}{
			"to":     to,
			"reason": "twilio not configured",
		})
		return nil
	}

	form := url.Values{}
	form.Set("From", w.from)
	form.Set("To", to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", w.baseURL, w.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(w.accountSID, w.authToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twilio returned HTTP %d: %s", resp.StatusCode, string(raw))
	}

	logger.Info("whatsapp_send_success", map[string]interface{}{"to": to})
	return nil
}
