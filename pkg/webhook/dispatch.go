package webhook

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/logdoctor/pkg/config"
	"github.com/ccollicutt/logdoctor/pkg/output"
)

// Delivery is the outcome of one configured webhook.
type Delivery struct {
	Webhook  config.WebhookConfig
	Skipped  bool
	Response *Response
}

// Name identifies the webhook in logs and CLI output.
func (d Delivery) Name() string {
	if d.Webhook.Name != "" {
		return d.Webhook.Name
	}
	return d.Webhook.URL
}

// Dispatch sends the report to every webhook whose trigger matches
// hasIssues. Webhooks are contacted concurrently; the result order
// matches hooks.
func (c *Client) Dispatch(ctx context.Context, hooks []config.WebhookConfig, report *output.Report, hasIssues bool, logger *zap.Logger) []Delivery {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make([]Delivery, len(hooks))

	var g errgroup.Group
	for i, wh := range hooks {
		out[i].Webhook = wh
		if !wh.ShouldFire(hasIssues) {
			out[i].Skipped = true
			logger.Debug("webhook skipped", zap.String("webhook", out[i].Name()), zap.String("trigger", string(wh.Trigger)))
			continue
		}
		g.Go(func() error {
			resp := c.Send(ctx, report, SendOptions{URL: wh.URL, Token: wh.Token, Timeout: wh.Timeout, Gzip: wh.Gzip})
			out[i].Response = resp
			fields := []zap.Field{
				zap.String("webhook", out[i].Name()),
				zap.Int("status", resp.StatusCode),
				zap.Duration("duration", resp.Duration),
			}
			if resp.Success() {
				logger.Info("webhook delivered", fields...)
			} else {
				logger.Warn("webhook failed", append(fields, zap.Error(resp.Error))...)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
