package report

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/alexisbeaulieu97/lorikeet/internal/model"
)

// TestRecord is one step's entry in the webhook payload. Field order and
// nullability are part of the wire contract.
type TestRecord struct {
	Name     string  `json:"name"`
	Pass     bool    `json:"pass"`
	Output   *string `json:"output"`
	Error    *string `json:"error"`
	Duration float64 `json:"duration"`
}

// Payload is the JSON document POSTed to each webhook URL.
type Payload struct {
	Hostname  string       `json:"hostname"`
	HasErrors bool         `json:"has_errors"`
	Tests     []TestRecord `json:"tests"`
}

// BuildPayload assembles the webhook payload from a result set.
func BuildPayload(hostname string, results []model.StepResult) Payload {
	payload := Payload{
		Hostname:  hostname,
		HasErrors: model.HasErrors(results),
		Tests:     make([]TestRecord, 0, len(results)),
	}

	for _, res := range results {
		payload.Tests = append(payload.Tests, TestRecord{
			Name:     res.Name,
			Pass:     res.Pass(),
			Output:   res.Output,
			Error:    res.Error,
			Duration: res.Duration.Seconds(),
		})
	}

	return payload
}

// WebhookClient delivers result payloads. Delivery failures are logged and
// never affect the run's exit code.
type WebhookClient struct {
	client *resty.Client
	logger zerolog.Logger
}

// NewWebhookClient creates a client with a sane delivery timeout.
func NewWebhookClient(logger zerolog.Logger) *WebhookClient {
	return &WebhookClient{
		client: resty.New().SetTimeout(30 * time.Second).SetCookieJar(nil),
		logger: logger.With().Str("component", "webhook").Logger(),
	}
}

// Deliver POSTs the payload to every URL in turn.
func (c *WebhookClient) Deliver(ctx context.Context, urls []string, payload Payload) {
	for _, url := range urls {
		resp, err := c.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(payload).
			Post(url)
		if err != nil {
			c.logger.Error().Err(err).Str("url", url).Msg("webhook delivery failed")
			continue
		}
		if resp.IsError() {
			c.logger.Error().Int("status", resp.StatusCode()).Str("url", url).Msg("webhook delivery rejected")
			continue
		}
		c.logger.Debug().Str("url", url).Msg("webhook delivered")
	}
}
