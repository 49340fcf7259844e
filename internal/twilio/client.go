package twilio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Client defines the Twilio SMS client interface
type Client interface {
	SendSMS(ctx context.Context, toPhoneNumber, message string) error
}

type Options struct {
	BaseURL         string
	MaxRetries      int
	InitialInterval time.Duration
	HTTPClient      *http.Client
}

type twilioClient struct {
	accountSID string
	authToken  string
	fromNumber string
	opts       Options
	breaker    *gobreaker.CircuitBreaker
}

var ErrCircuitOpen = errors.New("sms provider unavailable")

// NewClient creates a Twilio client. 5xx and transport errors are retried
// with exponential backoff; repeated failures open a circuit breaker.
func NewClient(accountSID, authToken, fromNumber string, opts Options) Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.twilio.com"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	return &twilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		opts:       opts,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "twilio",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (tc *twilioClient) SendSMS(ctx context.Context, toPhoneNumber, message string) error {
	_, err := tc.breaker.Execute(func() (interface{}, error) {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = tc.opts.InitialInterval
		policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(tc.opts.MaxRetries)), ctx)
		return nil, backoff.Retry(func() error { return tc.send(ctx, toPhoneNumber, message) }, policy)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

func (tc *twilioClient) send(ctx context.Context, toPhoneNumber, message string) error {
	twilioURL := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", tc.opts.BaseURL, tc.accountSID)

	data := url.Values{}
	data.Set("To", toPhoneNumber)
	data.Set("From", tc.fromNumber)
	data.Set("Body", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twilioURL, strings.NewReader(data.Encode()))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create Twilio SMS request: %w", err))
	}
	req.SetBasicAuth(tc.accountSID, tc.authToken)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Twilio SMS request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err = fmt.Errorf("twilio API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return err
	}
	return backoff.Permanent(err)
}

// LogClient writes codes to the log instead of sending them. Used when no
// Twilio account is configured.
type LogClient struct {
	Logger *zap.SugaredLogger
}

func (l LogClient) SendSMS(ctx context.Context, toPhoneNumber, message string) error {
	l.Logger.Infow("sms (not sent, twilio disabled)", "to", toPhoneNumber, "body", message)
	return nil
}
