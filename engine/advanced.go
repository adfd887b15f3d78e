package engine

import (
	"context"
	"net/url"

	"github.com/xordon/callflow/flow"
	"github.com/xordon/callflow/markup"
)

const (
	msgVoicemailGreeting = "Please leave a message after the beep."
	msgAIConfigError     = "AI agent configuration error."
	defaultAIGreeting    = "Hello, how can I help you today?"
)

// handleVoicemail records the caller. The recording-complete webhook comes
// back with the recording action qualifier and resumes the flow.
func handleVoicemail(_ context.Context, call *Call, node flow.Node) (Result, error) {
	if call.Action == ActionRecording {
		call.Action = ""
		call.Logger.Info("voicemail recorded",
			"node", node.ID,
			"recording_url", call.Params.RecordingURL())
		return call.advanceNext(node.ID), nil
	}

	action := call.Cont.Action(call.Flow.ID, node.ID, ActionRecording)
	rec := markup.Record{
		MaxLength: cfgInt(node.Config, "maxDuration", 60),
		Action:    action,
	}
	if cfgBool(node.Config, "transcribe", false) {
		rec.Transcribe = true
		rec.TranscribeCallback = action
	}
	if !cfgBool(node.Config, "beep", true) {
		rec.PlayBeep = markup.Bool(false)
	}

	greeting := cfgString(node.Config, "greeting", msgVoicemailGreeting)
	return Respond{Body: markup.New(markup.Say{Text: greeting}, rec)}, nil
}

// handleAIAgent hands the call to an external conversational agent over a
// speech gather. The conversation loop lives outside the engine; this node
// only opens the channel and resumes the flow if the agent hands control
// back.
func handleAIAgent(_ context.Context, call *Call, node flow.Node) (Result, error) {
	if call.Action == ActionAI || call.Action == ActionNoInput {
		call.Logger.Info("ai agent returned control",
			"node", node.ID,
			"action", call.Action,
			"speech", call.Params.SpeechResult())
		call.Action = ""
		return call.advanceNext(node.ID), nil
	}

	agentID := cfgString(node.Config, "agentId", "")
	if agentID == "" {
		return Respond{Body: markup.SpeakAndHangup(msgAIConfigError)}, nil
	}

	aiURL := call.Cont.Action(call.Flow.ID, node.ID, ActionAI) + "&agentId=" + url.QueryEscape(agentID)
	g := markup.Gather{
		Input:   "speech",
		Timeout: cfgInt(node.Config, "timeout", 3),
		Action:  aiURL,
		Verbs:   []markup.Verb{markup.Say{Text: cfgString(node.Config, "greeting", defaultAIGreeting)}},
	}
	noInput := call.Cont.Action(call.Flow.ID, node.ID, ActionNoInput) + "&agentId=" + url.QueryEscape(agentID)

	return Respond{Body: markup.New(g, markup.Redirect{URL: noInput})}, nil
}
