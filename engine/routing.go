package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/xordon/callflow/flow"
	"github.com/xordon/callflow/markup"
)

const (
	msgNoAgent       = "No agent available."
	msgNoDeptAgents  = "No agents available in this department."
	msgNoDestination = "No transfer destination configured."
	msgQueueFull     = "All of our agents are currently busy. Please try again later."
	msgScreenPrompt  = "Please enter your account number followed by the pound sign."
	msgScreenNoInput = "We did not receive your account number. Goodbye."
)

// handleForwardCall bridges the caller to a number, an available agent, a
// department ring group, or a named queue. Directory failures degrade to the
// spoken fallbacks; a broken lookup must not kill the call.
func handleForwardCall(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	forwardType := cfgString(node.Config, "forwardType", "number")
	destination := cfgString(node.Config, "destination", "")

	dial := markup.Dial{Timeout: cfgInt(node.Config, "timeout", 30)}
	if cfgBool(node.Config, "record", false) {
		dial.Record = "record-from-answer"
	}
	if cfgBool(node.Config, "whisper", false) {
		if text := cfgString(node.Config, "whisperText", ""); text != "" {
			dial.URL = call.Cont.Whisper(text)
		}
	}

	switch forwardType {
	case "agent":
		agent, err := call.Deps.Agents.AvailableAgent(ctx, call.Tenant, destination)
		if err != nil {
			call.Logger.Error("agent lookup failed", "agent", destination, "error", err)
		}
		if agent == nil || agent.Phone == "" {
			return Respond{Body: markup.SpeakText(msgNoAgent)}, nil
		}
		dial.Verbs = []markup.Verb{markup.Number{Value: agent.Phone}}

	case "department":
		numbers, err := call.Deps.Agents.DepartmentNumbers(ctx, call.Tenant, destination)
		if err != nil {
			call.Logger.Error("department lookup failed", "department", destination, "error", err)
		}
		if len(numbers) == 0 {
			return Respond{Body: markup.SpeakText(msgNoDeptAgents)}, nil
		}
		for _, n := range numbers {
			dial.Verbs = append(dial.Verbs, markup.Number{Value: n})
		}

	case "queue":
		return enqueue(ctx, call, node, destination)

	default:
		if destination == "" {
			return Respond{Body: markup.SpeakText(msgNoDestination)}, nil
		}
		dial.Verbs = []markup.Verb{markup.Number{Value: destination}}
	}

	return Respond{Body: markup.New(dial)}, nil
}

// handleQueueCall parks the caller in a named queue with a hold experience.
func handleQueueCall(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	return enqueue(ctx, call, node, cfgString(node.Config, "queueName", "default"))
}

// enqueue emits the hold/enqueue instruction, enforcing the authored queue
// size limit first. A zero or unset limit means unlimited; a full queue
// diverts down the "full" edge, then the unkeyed edge, then a spoken busy
// message.
func enqueue(ctx context.Context, call *Call, node flow.Node, queueName string) (Result, error) {
	if queueName == "" {
		queueName = "default"
	}

	if maxSize := cfgInt(node.Config, "maxSize", 0); maxSize > 0 {
		occupancy, err := call.Deps.Queues.Occupancy(ctx, call.Tenant, queueName)
		if err != nil {
			call.Logger.Error("queue occupancy read failed", "queue", queueName, "error", err)
		} else if occupancy >= maxSize {
			call.Logger.Info("queue full, diverting", "queue", queueName, "occupancy", occupancy, "max", maxSize)
			if id, ok := call.nextID(node.ID, "full"); ok {
				return Advance{NodeID: id}, nil
			}
			if id, ok := call.nextID(node.ID, ""); ok {
				return Advance{NodeID: id}, nil
			}
			return Respond{Body: markup.SpeakAndHangup(msgQueueFull)}, nil
		}
	}

	waitURL := cfgString(node.Config, "holdMusic", "")
	if waitURL == "" {
		waitURL = call.Cont.QueueWait(call.Flow.ID, queueName, cfgString(node.Config, "waitMusic", ""))
	}

	return Respond{Body: markup.New(markup.Enqueue{
		Queue:         queueName,
		WaitURL:       waitURL,
		WaitURLMethod: "POST",
		Action:        call.Cont.QueueLeave(call.Flow.ID, queueName),
	})}, nil
}

// handleConference drops the caller into a named room.
func handleConference(_ context.Context, call *Call, node flow.Node) (Result, error) {
	roomName := cfgString(node.Config, "roomName", "")
	if roomName == "" {
		roomName = "conference-" + uuid.New().String()
	}

	conf := markup.Conference{
		Name:  roomName,
		Muted: cfgBool(node.Config, "muteOnEntry", false),
	}
	if cfgBool(node.Config, "record", false) {
		conf.Record = "record-from-start"
	}
	if !cfgBool(node.Config, "beep", true) {
		conf.Beep = "false"
	}

	return Respond{Body: markup.New(markup.Dial{Verbs: []markup.Verb{conf}})}, nil
}

// handleScreenCall collects a free-form id string terminated by the pound
// key. There is no branching beyond collected or timed out.
func handleScreenCall(_ context.Context, call *Call, node flow.Node) (Result, error) {
	if call.Params.Digits() != "" {
		collected := consumeDigits(call)
		call.Logger.Info("screen input collected", "node", node.ID, "value", collected)
		if id, ok := call.nextID(node.ID, "collected"); ok {
			return Advance{NodeID: id}, nil
		}
		return call.advanceNext(node.ID), nil
	}

	g := markup.Gather{
		NumDigits:   cfgInt(node.Config, "numDigits", 20),
		Timeout:     cfgInt(node.Config, "timeout", 10),
		FinishOnKey: "#",
		Action:      call.Cont.Action(call.Flow.ID, node.ID, ActionScreen),
		Verbs:       []markup.Verb{markup.Say{Text: cfgString(node.Config, "prompt", msgScreenPrompt)}},
	}

	return Respond{Body: markup.New(g, markup.Say{Text: msgScreenNoInput}, markup.Hangup{})}, nil
}
