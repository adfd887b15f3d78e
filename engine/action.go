package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xordon/callflow/flow"
	"github.com/xordon/callflow/markup"
)

const (
	msgCallbackLogged = "Thank you. We will call you back as soon as possible. Goodbye."
	msgSurveyThanks   = "Thank you for your feedback. Goodbye."
	defaultSurveyQ    = "On a scale of 1 to 5, how satisfied are you with our service?"
)

// substituteVars expands the author-facing template variables in SMS and
// email bodies.
func substituteVars(text string, call *Call) string {
	now := call.Clock.Now()
	return strings.NewReplacer(
		"{caller_number}", call.Params.From(),
		"{called_number}", call.Params.To(),
		"{date}", now.Format("2006-01-02"),
		"{time}", now.Format("15:04"),
	).Replace(text)
}

// handleSendSMS fires a templated text message at the caller and moves on.
func handleSendSMS(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	caller := call.Params.From()
	message := substituteVars(cfgString(node.Config, "message", ""), call)
	fromNumber := cfgString(node.Config, "fromNumber", "")

	if message != "" && caller != "" {
		var fn func() error
		if call.Deps.Messenger != nil {
			fn = func() error {
				return call.Deps.Messenger.SendSMS(ctx, call.Tenant, fromNumber, caller, message)
			}
		}
		call.effect("send_sms", fn)
	}

	return call.advanceNext(node.ID), nil
}

// handleSendEmail resolves the caller to a contact email and sends. An
// unknown caller is a silent skip, not a failure.
func handleSendEmail(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	caller := call.Params.From()
	email, err := call.Deps.Contacts.EmailFor(ctx, call.Tenant, caller)
	if err != nil {
		call.Logger.Error("contact email lookup failed", "node", node.ID, "error", err)
	}

	if email != "" {
		subject := substituteVars(cfgString(node.Config, "subject", "Follow-up on your call"), call)
		body := substituteVars(cfgString(node.Config, "body", ""), call)
		var fn func() error
		if call.Deps.Messenger != nil {
			fn = func() error {
				return call.Deps.Messenger.SendEmail(ctx, call.Tenant, email, subject, body)
			}
		}
		call.effect("send_email", fn)
	} else {
		call.Logger.Info("no contact email for caller, skipping send", "node", node.ID)
	}

	return call.advanceNext(node.ID), nil
}

// handleWebhook posts call metadata, merged with author-supplied fields, to
// the configured URL.
func handleWebhook(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	url := cfgString(node.Config, "url", "")
	if url == "" {
		call.Logger.Warn("webhook node without url, skipping", "node", node.ID)
		return call.advanceNext(node.ID), nil
	}
	method := cfgString(node.Config, "method", "POST")
	headers := cfgStringMap(node.Config, "headers")

	payload := map[string]any{
		"call_sid":  call.Params.CallSID(),
		"caller":    call.Params.From(),
		"called":    call.Params.To(),
		"direction": call.Params.Direction(),
		"timestamp": call.Clock.Now().Format(time.RFC3339),
		"flow_id":   call.Flow.ID,
		"node_id":   node.ID,
	}
	for k, v := range cfgObject(node.Config, "payload") {
		payload[k] = v
	}

	var fn func() error
	if call.Deps.Webhooks != nil {
		fn = func() error {
			return call.Deps.Webhooks.Send(ctx, url, method, headers, payload)
		}
	}
	call.effect("webhook", fn)

	return call.advanceNext(node.ID), nil
}

// handleTagCall attaches the configured tag to the current call log entry.
func handleTagCall(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	tag := cfgString(node.Config, "tagName", "")
	callSID := call.Params.CallSID()

	if tag != "" && callSID != "" {
		var fn func() error
		if call.Deps.Tagger != nil {
			fn = func() error {
				return call.Deps.Tagger.TagCall(ctx, call.Tenant, callSID, tag)
			}
		}
		call.effect("tag_call", fn)
	}

	return call.advanceNext(node.ID), nil
}

// handleCRMAction covers the two CRM node types: create_ticket opens a
// helpdesk ticket, update_crm moves the caller's contact to a pipeline stage.
func handleCRMAction(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	caller := call.Params.From()

	switch node.Type {
	case flow.TypeCreateTicket:
		ticket := Ticket{
			Subject:     cfgString(node.Config, "ticketSubject", fmt.Sprintf("Call from %s", caller)),
			Description: cfgString(node.Config, "ticketDescription", fmt.Sprintf("Inbound call received from %s", caller)),
			Priority:    cfgString(node.Config, "ticketPriority", "medium"),
			Source:      "phone",
		}
		var fn func() error
		if call.Deps.CRM != nil {
			fn = func() error {
				return call.Deps.CRM.CreateTicket(ctx, call.Tenant, ticket)
			}
		}
		call.effect("create_ticket", fn)

	case flow.TypeUpdateCRM:
		stage := cfgString(node.Config, "pipelineStage", "")
		if stage != "" {
			var fn func() error
			if call.Deps.CRM != nil {
				fn = func() error {
					return call.Deps.CRM.UpdateContactStage(ctx, call.Tenant, caller, stage)
				}
			}
			call.effect("update_crm", fn)
		}
	}

	return call.advanceNext(node.ID), nil
}

// handleCallbackRequest records the caller's number for the callback dialer
// and confirms before hanging up.
func handleCallbackRequest(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	caller := call.Params.From()

	var fn func() error
	if call.Deps.Callbacks != nil {
		fn = func() error {
			return call.Deps.Callbacks.RequestCallback(ctx, call.Tenant, call.Params.CallSID(), caller)
		}
	}
	call.effect("callback_request", fn)

	return Respond{Body: markup.SpeakAndHangup(msgCallbackLogged)}, nil
}

// handleSurvey asks a single digit-scale question. The answer webhook records
// the response, thanks the caller, and continues the flow if an edge follows.
func handleSurvey(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	if call.Params.Digits() != "" {
		digits := consumeDigits(call)

		var fn func() error
		if call.Deps.Surveys != nil {
			fn = func() error {
				return call.Deps.Surveys.RecordResponse(ctx, call.Tenant, call.Params.CallSID(), node.ID, digits)
			}
		}
		call.effect("survey_response", fn)

		resp := markup.New(markup.Say{Text: msgSurveyThanks})
		if nextID, ok := call.nextID(node.ID, ""); ok {
			resp.Add(markup.Redirect{URL: call.Cont.Node(call.Flow.ID, nextID)})
		} else {
			resp.Add(markup.Hangup{})
		}
		return Respond{Body: resp}, nil
	}

	g := markup.Gather{
		NumDigits: 1,
		Timeout:   cfgInt(node.Config, "timeout", 10),
		Action:    call.Cont.Action(call.Flow.ID, node.ID, ActionSurvey),
		Verbs:     []markup.Verb{markup.Say{Text: cfgString(node.Config, "question", defaultSurveyQ)}},
	}
	return Respond{Body: markup.New(g, markup.Say{Text: msgSurveyThanks}, markup.Hangup{})}, nil
}
