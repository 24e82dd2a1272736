package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Webhook request headers.
const (
	HeaderSignature = "X-Finledger-Signature"
	HeaderTimestamp = "X-Finledger-Timestamp"
	HeaderEventID   = "X-Finledger-Event-Id"
	HeaderEventKind = "X-Finledger-Event"
)

// DefaultReplayWindow bounds the timestamp skew VerifySignature accepts.
const DefaultReplayWindow = 5 * time.Minute

var (
	// ErrReplayWindowExceeded is returned when the timestamp is too old or too far ahead.
	ErrReplayWindowExceeded = errors.New("timestamp outside replay window")
	// ErrInvalidSignature is returned when the signature does not match.
	ErrInvalidSignature = errors.New("invalid signature")
)

// retryDelays are the pauses between delivery attempts. Publish stops
// early when its context expires.
var retryDelays = []time.Duration{
	100 * time.Millisecond,
	400 * time.Millisecond,
	time.Second,
}

// WebhookPublisher POSTs each event as signed JSON to a fixed endpoint.
type WebhookPublisher struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookPublisher creates a publisher for endpoint. Requests are signed
// with secret when it is non-empty.
func NewWebhookPublisher(endpoint, secret string) *WebhookPublisher {
	return &WebhookPublisher{
		url:    endpoint,
		secret: secret,
		client: newWebhookClient(),
	}
}

func newWebhookClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 5 * time.Second,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Publish delivers event, retrying server errors and transport failures.
// 4xx responses other than 429 are not retried.
func (p *WebhookPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		retry, err := p.deliver(ctx, event, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt >= len(retryDelays) {
			return lastErr
		}

		timer := time.NewTimer(jitter(retryDelays[attempt]))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
}

func (p *WebhookPublisher) deliver(ctx context.Context, event Event, body []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}

	timestamp := time.Now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "finledger-webhook/1.0")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(HeaderEventID, event.ID)
	req.Header.Set(HeaderEventKind, string(event.Kind))
	if p.secret != "" {
		req.Header.Set(HeaderSignature, Sign(p.secret, timestamp, body))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("webhook returned %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
}

// Close releases idle connections.
func (p *WebhookPublisher) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// Sign returns the hex HMAC-SHA256 of "{timestamp}.{body}".
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received webhook against secret.
func VerifySignature(secret, signature string, timestamp int64, body []byte, window time.Duration) error {
	skew := time.Since(time.Unix(timestamp, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > window {
		return ErrReplayWindowExceeded
	}

	expected := Sign(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// jitter spreads d by up to 20% either way.
func jitter(d time.Duration) time.Duration {
	spread := float64(d) * 0.2
	return time.Duration(float64(d) + (rand.Float64()*2-1)*spread)
}
