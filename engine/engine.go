// Package engine walks an authored call-flow graph one webhook at a time.
//
// The interpreter has no call stack and no session storage: every request
// carries the flow id, the node to resume at, and the provider's parameters,
// and every response embeds the continuation address for the next step. Any
// instance can resume any call, which is what makes the engine idempotent
// under provider retries and horizontally scalable.
package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/xordon/callflow/flow"
	"github.com/xordon/callflow/markup"
)

// maxChainedSteps caps in-request Advance chains. Authored loops of
// non-interactive nodes would otherwise spin forever inside one webhook.
const maxChainedSteps = 100

// Spoken fallbacks for the engine's own failure paths.
const (
	msgFlowNotFound = "Call flow not found."
	msgNoStartNode  = "No start node found in call flow."
	msgFlowError    = "Contact flow error."
	msgAppError     = "Application error. Goodbye."
)

// Handler executes one node and decides the next motion.
type Handler interface {
	Handle(ctx context.Context, call *Call, node flow.Node) (Result, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, call *Call, node flow.Node) (Result, error)

func (f HandlerFunc) Handle(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	return f(ctx, call, node)
}

// Reply is a finished dispatch: the markup body plus the owning tenant, which
// the transport layer needs to pick the provider dialect.
type Reply struct {
	Body   *markup.Response
	Tenant string
}

// Engine dispatches webhook requests against flow definitions.
type Engine struct {
	repo     flow.Repository
	deps     *Deps
	cont     Continuations
	clock    Clock
	logger   *slog.Logger
	handlers map[flow.NodeType]Handler
}

// New builds an engine with the default handler set registered.
func New(repo flow.Repository, deps Deps, cont Continuations, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	deps.withDefaults()
	e := &Engine{
		repo:     repo,
		deps:     &deps,
		cont:     cont,
		clock:    SystemClock(),
		logger:   logger,
		handlers: make(map[flow.NodeType]Handler),
	}
	e.registerDefaults()
	return e
}

// SetClock swaps the wall clock; tests pin the time and holiday gates.
func (e *Engine) SetClock(c Clock) {
	if c != nil {
		e.clock = c
	}
}

// Register installs or replaces the handler for a node type. The dispatcher
// is closed; new node behavior plugs in here.
func (e *Engine) Register(t flow.NodeType, h Handler) {
	e.handlers[t] = h
}

func (e *Engine) registerDefaults() {
	passthrough := HandlerFunc(handleTrigger)
	for _, t := range []flow.NodeType{flow.TypeIncomingCall, flow.TypeMissedCall, flow.TypeScheduledCallback} {
		e.Register(t, passthrough)
	}

	e.Register(flow.TypePlayAudio, HandlerFunc(handlePlayAudio))
	e.Register(flow.TypePlayMusic, HandlerFunc(handlePlayMusic))

	e.Register(flow.TypeGatherInput, HandlerFunc(handleGatherInput))
	e.Register(flow.TypeMenuOption, HandlerFunc(handleMenuOption))

	e.Register(flow.TypeForwardCall, HandlerFunc(handleForwardCall))
	e.Register(flow.TypeTransferCall, HandlerFunc(handleForwardCall))
	e.Register(flow.TypeQueueCall, HandlerFunc(handleQueueCall))
	e.Register(flow.TypeConferenceCall, HandlerFunc(handleConference))
	e.Register(flow.TypeScreenCall, HandlerFunc(handleScreenCall))

	e.Register(flow.TypeTimeCheck, HandlerFunc(handleTimeCheck))
	e.Register(flow.TypeHolidayCheck, HandlerFunc(handleHolidayCheck))
	e.Register(flow.TypeCallerIDCheck, HandlerFunc(handleCallerIDCheck))
	e.Register(flow.TypeVIPCheck, HandlerFunc(handleVIPCheck))
	e.Register(flow.TypeLanguageCheck, HandlerFunc(handleLanguageCheck))
	e.Register(flow.TypeGeoCheck, HandlerFunc(handleGeoCheck))
	e.Register(flow.TypeAgentAvailability, HandlerFunc(handleAgentAvailability))
	e.Register(flow.TypeQueueStatus, HandlerFunc(handleQueueStatus))
	e.Register(flow.TypeExpressionCheck, HandlerFunc(handleExpressionCheck))

	e.Register(flow.TypeSendSMS, HandlerFunc(handleSendSMS))
	e.Register(flow.TypeSendEmail, HandlerFunc(handleSendEmail))
	e.Register(flow.TypeWebhook, HandlerFunc(handleWebhook))
	e.Register(flow.TypeTagCall, HandlerFunc(handleTagCall))
	e.Register(flow.TypeUpdateCRM, HandlerFunc(handleCRMAction))
	e.Register(flow.TypeCreateTicket, HandlerFunc(handleCRMAction))
	e.Register(flow.TypeCallbackRequest, HandlerFunc(handleCallbackRequest))
	e.Register(flow.TypeSurvey, HandlerFunc(handleSurvey))

	e.Register(flow.TypeRecordVoicemail, HandlerFunc(handleVoicemail))
	e.Register(flow.TypeAIAgent, HandlerFunc(handleAIAgent))

	e.Register(flow.TypeHangup, HandlerFunc(func(context.Context, *Call, flow.Node) (Result, error) {
		return Terminate{}, nil
	}))
}

// Execute runs one webhook request to completion and always produces markup;
// no failure path may leave the provider without a parseable response.
func (e *Engine) Execute(ctx context.Context, flowID, nodeID, action string, params Params) Reply {
	requestID := uuid.New().String()
	log := e.logger.With("flow", flowID, "request", requestID)

	f, err := e.repo.GetFlow(ctx, flowID)
	if err != nil {
		if errors.Is(err, flow.ErrNotFound) {
			log.Error("flow not found")
		} else {
			log.Error("flow load failed", "error", err)
		}
		return Reply{Body: markup.SpeakText(msgFlowNotFound)}
	}

	var node *flow.Node
	if nodeID == "" {
		node = f.StartNode()
		if node == nil {
			log.Warn("no start node in flow")
			return Reply{Body: markup.SpeakText(msgNoStartNode), Tenant: f.OwnerID}
		}
	} else {
		node = f.FindNode(nodeID)
		if node == nil {
			log.Error("node not found", "node", nodeID)
			return Reply{Body: markup.SpeakText(msgFlowError), Tenant: f.OwnerID}
		}
	}

	if params == nil {
		params = Params{}
	}
	call := &Call{
		RequestID: requestID,
		Flow:      f,
		Tenant:    f.OwnerID,
		Params:    params,
		Action:    action,
		Deps:      e.deps,
		Cont:      e.cont,
		Clock:     e.clock,
		Logger:    log,
	}

	for steps := 0; steps < maxChainedSteps; steps++ {
		log.Info("processing node", "node", node.ID, "type", node.Type)

		var res Result
		if h, ok := e.handlers[node.Type]; ok {
			res, err = h.Handle(ctx, call, *node)
			if err != nil {
				log.Error("node handler failed", "node", node.ID, "type", node.Type, "error", err)
				return Reply{Body: markup.SpeakText(msgFlowError), Tenant: f.OwnerID}
			}
		} else {
			// Unknown node type: a defined pass-through default, not an error.
			log.Warn("unknown node type, passing through", "node", node.ID, "type", node.Type)
			res = call.advanceNext(node.ID)
		}

		switch r := res.(type) {
		case Respond:
			return Reply{Body: r.Body, Tenant: f.OwnerID}
		case Terminate:
			return Reply{Body: markup.New(markup.Hangup{}), Tenant: f.OwnerID}
		case Advance:
			next := f.FindNode(r.NodeID)
			if next == nil {
				ferr := &FlowError{Kind: ErrorKindDefinition, FlowID: f.ID, NodeID: r.NodeID, Message: "advance target missing"}
				log.Error("dangling edge target", "error", ferr)
				return Reply{Body: markup.SpeakText(msgFlowError), Tenant: f.OwnerID}
			}
			node = next
		}
	}

	ferr := &FlowError{Kind: ErrorKindExhaustion, FlowID: f.ID, NodeID: node.ID, Message: "chained advance limit reached"}
	log.Error("advance chain exhausted, failing safe", "error", ferr)
	return Reply{Body: markup.SpeakAndHangup(msgAppError), Tenant: f.OwnerID}
}

// handleTrigger is the entry family: no externally visible effect, chain on.
func handleTrigger(_ context.Context, call *Call, node flow.Node) (Result, error) {
	return call.advanceNext(node.ID), nil
}
