// Package notify carries the engine's outbound side effects: webhooks, SMS
// and email sends, call tags, CRM writes, callback requests, and survey
// responses. Everything here is fire-and-forget from the flow's point of
// view; callers log failures and keep the call moving.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/xordon/callflow/engine"
)

// Config holds the outbound HTTP configuration with declarative tags.
type Config struct {
	BaseURL     string        `yaml:"base_url" validate:"omitempty,url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout" default:"10s" validate:"gte=1s"`
	MaxRetries  int           `yaml:"max_retries" default:"2" validate:"gte=0,lte=10"`
	RetryWaitMS int           `yaml:"retry_wait_ms" default:"100" validate:"gte=0,lte=10000"`
	Debug       bool          `yaml:"debug" default:"false"`
}

var (
	_ engine.WebhookSender = &Webhooks{}
	_ engine.Messenger     = &API{}
	_ engine.CallTagger    = &API{}
	_ engine.CRM           = &API{}
	_ engine.CallbackLog   = &API{}
	_ engine.SurveyStore   = &API{}
)

// Webhooks posts author-configured webhooks with the call metadata payload.
type Webhooks struct {
	client *resty.Client
}

func NewWebhooks(cfg Config) *Webhooks {
	return &Webhooks{client: newRestyClient(cfg)}
}

func (w *Webhooks) Send(ctx context.Context, url, method string, headers map[string]string, payload map[string]any) error {
	req := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeaders(headers).
		SetBody(payload)

	resp, err := req.Execute(method, url)
	if err != nil {
		return fmt.Errorf("webhook %s %s: %w", method, url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook %s %s: status %d", method, url, resp.StatusCode())
	}
	return nil
}

// API is the CRM backend's internal API client. It covers every engine write
// interface that lands in the CRM: messaging, tags, tickets, pipeline
// stages, callback requests, and survey responses.
type API struct {
	client *resty.Client
}

func NewAPI(cfg Config) *API {
	client := newRestyClient(cfg).SetBaseURL(cfg.BaseURL)
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &API{client: client}
}

func newRestyClient(cfg Config) *resty.Client {
	return resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(time.Duration(cfg.RetryWaitMS) * time.Millisecond).
		SetDebug(cfg.Debug)
}

func (a *API) post(ctx context.Context, path string, body map[string]any) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("POST %s: status %d", path, resp.StatusCode())
	}
	return nil
}

func (a *API) SendSMS(ctx context.Context, tenant, from, to, body string) error {
	return a.post(ctx, "/internal/sms", map[string]any{
		"tenant": tenant,
		"from":   from,
		"to":     to,
		"body":   body,
	})
}

func (a *API) SendEmail(ctx context.Context, tenant, to, subject, body string) error {
	return a.post(ctx, "/internal/email", map[string]any{
		"tenant":  tenant,
		"to":      to,
		"subject": subject,
		"body":    body,
	})
}

func (a *API) TagCall(ctx context.Context, tenant, callSID, tag string) error {
	return a.post(ctx, "/internal/calls/"+callSID+"/tags", map[string]any{
		"tenant": tenant,
		"tag":    tag,
	})
}

func (a *API) CreateTicket(ctx context.Context, tenant string, t engine.Ticket) error {
	return a.post(ctx, "/internal/tickets", map[string]any{
		"tenant":      tenant,
		"subject":     t.Subject,
		"description": t.Description,
		"priority":    t.Priority,
		"source":      t.Source,
	})
}

func (a *API) UpdateContactStage(ctx context.Context, tenant, callerNumber, stage string) error {
	return a.post(ctx, "/internal/contacts/stage", map[string]any{
		"tenant": tenant,
		"phone":  callerNumber,
		"stage":  stage,
	})
}

func (a *API) RequestCallback(ctx context.Context, tenant, callSID, number string) error {
	return a.post(ctx, "/internal/callbacks", map[string]any{
		"tenant":   tenant,
		"call_sid": callSID,
		"number":   number,
	})
}

func (a *API) RecordResponse(ctx context.Context, tenant, callSID, nodeID, digits string) error {
	return a.post(ctx, "/internal/surveys", map[string]any{
		"tenant":   tenant,
		"call_sid": callSID,
		"node_id":  nodeID,
		"digits":   digits,
	})
}
