// Package notifier pushes operational alerts to a Discord webhook.
package notifier

import (
	"context"
	"encoding/json"

	"github.com/diegowsan/saltyboyC/internal/config"
	"github.com/diegowsan/saltyboyC/internal/constants"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

type Notifier struct {
	webhookURL string
	client     *fasthttp.Client
	logger     zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) *Notifier {
	return &Notifier{
		webhookURL: cfg.WebhookURL,
		client: &fasthttp.Client{
			ReadTimeout:  constants.WebhookTimeout,
			WriteTimeout: constants.WebhookTimeout,
		},
		logger: logger,
	}
}

// Send posts an alert. A missing webhook URL disables alerting silently, and
// delivery failures are logged but never propagated: alerting must not take
// the bot down.
func (n *Notifier) Send(ctx context.Context, message string) {
	if n.webhookURL == "" {
		return
	}

	body, err := json.Marshal(map[string]string{
		"content":  message,
		"username": "saltboy",
	})
	if err != nil {
		n.logger.Warn().Err(err).Msg("failed to encode alert")
		return
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(n.webhookURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := n.client.DoTimeout(req, resp, constants.WebhookTimeout); err != nil {
		n.logger.Warn().Err(err).Msg("failed to deliver alert")
		return
	}
	if resp.StatusCode() >= 300 {
		n.logger.Warn().Int("status", resp.StatusCode()).Msg("webhook rejected alert")
	}
}
