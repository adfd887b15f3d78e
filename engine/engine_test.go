package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xordon/callflow/flow"
	"github.com/xordon/callflow/markup"
)

type fakeAgents struct {
	agent   *Agent
	numbers []string
	count   int
}

func (f *fakeAgents) AvailableAgent(context.Context, string, string) (*Agent, error) {
	return f.agent, nil
}
func (f *fakeAgents) DepartmentNumbers(context.Context, string, string) ([]string, error) {
	return f.numbers, nil
}
func (f *fakeAgents) AvailableCount(context.Context, string) (int, error) { return f.count, nil }

type fakeHolidays struct{ holiday bool }

func (f *fakeHolidays) IsHoliday(context.Context, string, time.Time) (bool, error) {
	return f.holiday, nil
}

type fakeQueues struct {
	occupancy int
	avgWait   time.Duration
}

func (f *fakeQueues) Occupancy(context.Context, string, string) (int, error) {
	return f.occupancy, nil
}
func (f *fakeQueues) AverageWait(context.Context, string, string) (time.Duration, error) {
	return f.avgWait, nil
}

type fakeWebhooks struct {
	calls int
	err   error
}

func (f *fakeWebhooks) Send(_ context.Context, _, _ string, _ map[string]string, _ map[string]any) error {
	f.calls++
	return f.err
}

type fakeSurveys struct {
	nodeID string
	digits string
}

func (f *fakeSurveys) RecordResponse(_ context.Context, _, _, nodeID, digits string) error {
	f.nodeID = nodeID
	f.digits = digits
	return nil
}

type fakeCallbacks struct{ number string }

func (f *fakeCallbacks) RequestCallback(_ context.Context, _, _, number string) error {
	f.number = number
	return nil
}

func testEngine(t *testing.T, f *flow.Flow, deps Deps) *Engine {
	t.Helper()
	repo := flow.NewMemoryRepository()
	repo.Register(f)
	e := New(repo, deps, Continuations{Base: "https://crm.test/api/phone"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.SetClock(FixedClock{T: time.Date(2025, time.March, 5, 14, 30, 0, 0, time.UTC)})
	return e
}

func node(id string, t flow.NodeType, cfg map[string]any) flow.Node {
	return flow.Node{ID: id, Type: t, Config: cfg}
}

func edge(source, target, handle string) flow.Edge {
	return flow.Edge{Source: source, Target: target, Handle: handle}
}

// ivrFlow is the reference scenario: greeting, a one-digit menu, and two
// destinations.
func ivrFlow() *flow.Flow {
	return &flow.Flow{
		ID:      "f1",
		OwnerID: "tenant-1",
		Nodes: []flow.Node{
			node("start", flow.TypeIncomingCall, nil),
			node("greet", flow.TypePlayAudio, map[string]any{"audioSource": "tts", "message": "Hello"}),
			node("menu", flow.TypeGatherInput, map[string]any{"prompt": "Press 1 for sales, 2 to end."}),
			node("dial-agent", flow.TypeForwardCall, map[string]any{"forwardType": "agent", "destination": "agent-a"}),
			node("bye", flow.TypeHangup, nil),
		},
		Edges: []flow.Edge{
			edge("start", "greet", ""),
			edge("greet", "menu", ""),
			edge("menu", "dial-agent", "1"),
			edge("menu", "bye", "2"),
		},
	}
}

func verbAt[T markup.Verb](t *testing.T, body *markup.Response, i int) T {
	t.Helper()
	if body == nil {
		t.Fatal("nil response body")
	}
	if i >= len(body.Verbs) {
		t.Fatalf("want verb at %d, body has %d verbs: %#v", i, len(body.Verbs), body.Verbs)
	}
	v, ok := body.Verbs[i].(T)
	if !ok {
		var zero T
		t.Fatalf("verb %d is %T, want %T", i, body.Verbs[i], zero)
	}
	return v
}

func TestExecuteFlowNotFound(t *testing.T) {
	e := testEngine(t, ivrFlow(), Deps{})
	reply := e.Execute(context.Background(), "missing", "", "", nil)
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "Call flow not found." {
		t.Errorf("got %q", say.Text)
	}
}

func TestExecuteNoStartNode(t *testing.T) {
	f := &flow.Flow{ID: "f2", OwnerID: "t", Nodes: []flow.Node{
		node("only", flow.TypePlayAudio, nil),
	}}
	e := testEngine(t, f, Deps{})
	reply := e.Execute(context.Background(), "f2", "", "", nil)
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "No start node found in call flow." {
		t.Errorf("got %q", say.Text)
	}
}

func TestStartChainsToGreeting(t *testing.T) {
	e := testEngine(t, ivrFlow(), Deps{})
	reply := e.Execute(context.Background(), "f1", "", "", nil)

	if reply.Tenant != "tenant-1" {
		t.Errorf("tenant = %q", reply.Tenant)
	}
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "Hello" {
		t.Errorf("greeting = %q", say.Text)
	}
	redirect := verbAt[markup.Redirect](t, reply.Body, 1)
	if !strings.Contains(redirect.URL, "nodeId=menu") {
		t.Errorf("redirect = %q, want menu continuation", redirect.URL)
	}
}

func TestDigitRoutesToAgentDial(t *testing.T) {
	agents := &fakeAgents{agent: &Agent{ID: "agent-a", Phone: "+15550001111"}}
	e := testEngine(t, ivrFlow(), Deps{Agents: agents})

	reply := e.Execute(context.Background(), "f1", "menu", ActionGather, Params{"Digits": "1"})

	dial := verbAt[markup.Dial](t, reply.Body, 0)
	if len(dial.Verbs) != 1 {
		t.Fatalf("dial has %d children", len(dial.Verbs))
	}
	num, ok := dial.Verbs[0].(markup.Number)
	if !ok || num.Value != "+15550001111" {
		t.Errorf("dial target = %#v", dial.Verbs[0])
	}
}

func TestDigitRoutesToHangup(t *testing.T) {
	e := testEngine(t, ivrFlow(), Deps{})
	reply := e.Execute(context.Background(), "f1", "menu", ActionGather, Params{"Digits": "2"})
	verbAt[markup.Hangup](t, reply.Body, 0)
}

func TestUnmappedDigitReprompts(t *testing.T) {
	e := testEngine(t, ivrFlow(), Deps{})

	prompt := e.Execute(context.Background(), "f1", "menu", "", nil)
	retry := e.Execute(context.Background(), "f1", "menu", ActionGather, Params{"Digits": "9"})

	say := verbAt[markup.Say](t, retry.Body, 0)
	if say.Text != "I'm sorry, that is not a valid option." {
		t.Errorf("prefix = %q", say.Text)
	}
	// The retry re-emits the identical gather block after the prefix.
	first := verbAt[markup.Gather](t, prompt.Body, 0)
	again := verbAt[markup.Gather](t, retry.Body, 1)
	if first.Action != again.Action || first.NumDigits != again.NumDigits {
		t.Errorf("retry gather differs: %#v vs %#v", first, again)
	}
	if !strings.Contains(first.Action, "nodeId=menu") || !strings.Contains(first.Action, "action=gather") {
		t.Errorf("gather action = %q", first.Action)
	}
}

func TestWebhookFailureStillAdvances(t *testing.T) {
	hooks := &fakeWebhooks{err: errors.New("connection refused")}
	f := &flow.Flow{
		ID: "fw", OwnerID: "t",
		Nodes: []flow.Node{
			node("start", flow.TypeIncomingCall, nil),
			node("hook", flow.TypeWebhook, map[string]any{"url": "https://unreachable.test/hook"}),
			node("after", flow.TypePlayAudio, map[string]any{"message": "Still here"}),
		},
		Edges: []flow.Edge{
			edge("start", "hook", ""),
			edge("hook", "after", ""),
		},
	}
	e := testEngine(t, f, Deps{Webhooks: hooks})

	reply := e.Execute(context.Background(), "fw", "", "", Params{"CallSid": "CA1", "From": "+15551234567"})

	if hooks.calls != 1 {
		t.Errorf("webhook fired %d times", hooks.calls)
	}
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "Still here" {
		t.Errorf("flow did not advance past failing webhook: %q", say.Text)
	}
}

func TestRecurringHolidayTakesYesEdge(t *testing.T) {
	f := &flow.Flow{
		ID: "fh", OwnerID: "t",
		Nodes: []flow.Node{
			node("start", flow.TypeIncomingCall, nil),
			node("gate", flow.TypeHolidayCheck, nil),
			node("closed", flow.TypePlayAudio, map[string]any{"message": "Closed today"}),
			node("open", flow.TypePlayAudio, map[string]any{"message": "Open"}),
		},
		Edges: []flow.Edge{
			edge("start", "gate", ""),
			edge("gate", "closed", "yes"),
			edge("gate", "open", "no"),
		},
	}
	e := testEngine(t, f, Deps{Holidays: &fakeHolidays{holiday: true}})

	reply := e.Execute(context.Background(), "fh", "", "", nil)
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "Closed today" {
		t.Errorf("holiday branch = %q", say.Text)
	}
}

func TestHolidayWithoutBranchSpeaksClosedMessage(t *testing.T) {
	f := &flow.Flow{
		ID: "fh2", OwnerID: "t",
		Nodes: []flow.Node{node("gate", flow.TypeHolidayCheck, nil)},
	}
	e := testEngine(t, f, Deps{Holidays: &fakeHolidays{holiday: true}})

	reply := e.Execute(context.Background(), "fh2", "gate", "", nil)
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "We are closed for a holiday. Please call back on the next business day." {
		t.Errorf("got %q", say.Text)
	}
	verbAt[markup.Hangup](t, reply.Body, 1)
}

func TestTimeCheckClosedWithoutNoEdge(t *testing.T) {
	f := &flow.Flow{
		ID: "ft", OwnerID: "t",
		Nodes: []flow.Node{
			node("gate", flow.TypeTimeCheck, map[string]any{
				"timezone":  "UTC",
				"startTime": "09:00",
				"endTime":   "17:00",
			}),
			node("open", flow.TypePlayAudio, map[string]any{"message": "Open"}),
		},
		Edges: []flow.Edge{edge("gate", "open", "yes")},
	}
	e := testEngine(t, f, Deps{})
	// Sunday, outside active days.
	e.SetClock(FixedClock{T: time.Date(2025, time.March, 9, 12, 0, 0, 0, time.UTC)})

	reply := e.Execute(context.Background(), "ft", "gate", "", nil)
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "We are currently closed. Please call back during business hours." {
		t.Errorf("got %q", say.Text)
	}
	verbAt[markup.Hangup](t, reply.Body, 1)
}

func TestTimeCheckOpenTakesYesEdge(t *testing.T) {
	f := &flow.Flow{
		ID: "ft2", OwnerID: "t",
		Nodes: []flow.Node{
			node("gate", flow.TypeTimeCheck, map[string]any{"timezone": "UTC"}),
			node("open", flow.TypePlayAudio, map[string]any{"message": "Open"}),
		},
		Edges: []flow.Edge{edge("gate", "open", "yes")},
	}
	e := testEngine(t, f, Deps{})
	// Wednesday 14:30 UTC, inside the default window.
	e.SetClock(FixedClock{T: time.Date(2025, time.March, 5, 14, 30, 0, 0, time.UTC)})

	reply := e.Execute(context.Background(), "ft2", "gate", "", nil)
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "Open" {
		t.Errorf("got %q", say.Text)
	}
}

func TestUnknownNodeTypePassesThrough(t *testing.T) {
	f := &flow.Flow{
		ID: "fu", OwnerID: "t",
		Nodes: []flow.Node{
			node("mystery", flow.NodeType("hologram"), nil),
			node("after", flow.TypePlayAudio, map[string]any{"message": "Made it"}),
		},
		Edges: []flow.Edge{edge("mystery", "after", "")},
	}
	e := testEngine(t, f, Deps{})

	reply := e.Execute(context.Background(), "fu", "mystery", "", nil)
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "Made it" {
		t.Errorf("got %q", say.Text)
	}
}

func TestAdvanceChainCapFailsSafe(t *testing.T) {
	f := &flow.Flow{
		ID: "floop", OwnerID: "t",
		Nodes: []flow.Node{
			node("a", flow.TypeTagCall, map[string]any{"tagName": "spin"}),
			node("b", flow.TypeTagCall, map[string]any{"tagName": "spin"}),
		},
		Edges: []flow.Edge{
			edge("a", "b", ""),
			edge("b", "a", ""),
		},
	}
	e := testEngine(t, f, Deps{})

	reply := e.Execute(context.Background(), "floop", "a", "", nil)
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "Application error. Goodbye." {
		t.Errorf("got %q", say.Text)
	}
	verbAt[markup.Hangup](t, reply.Body, 1)
}

func TestDanglingEdgeTarget(t *testing.T) {
	f := &flow.Flow{
		ID: "fd", OwnerID: "t",
		Nodes: []flow.Node{node("start", flow.TypeIncomingCall, nil)},
		Edges: []flow.Edge{edge("start", "ghost", "")},
	}
	e := testEngine(t, f, Deps{})

	reply := e.Execute(context.Background(), "fd", "", "", nil)
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "Contact flow error." {
		t.Errorf("got %q", say.Text)
	}
}

func TestQueueFullDivertsToFullEdge(t *testing.T) {
	f := &flow.Flow{
		ID: "fq", OwnerID: "t",
		Nodes: []flow.Node{
			node("park", flow.TypeQueueCall, map[string]any{"queueName": "support", "maxSize": 3}),
			node("overflow", flow.TypePlayAudio, map[string]any{"message": "Overflow"}),
		},
		Edges: []flow.Edge{edge("park", "overflow", "full")},
	}
	e := testEngine(t, f, Deps{Queues: &fakeQueues{occupancy: 3}})

	reply := e.Execute(context.Background(), "fq", "park", "", nil)
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "Overflow" {
		t.Errorf("got %q", say.Text)
	}
}

func TestQueueWithRoomEnqueues(t *testing.T) {
	f := &flow.Flow{
		ID: "fq2", OwnerID: "t",
		Nodes: []flow.Node{
			node("park", flow.TypeQueueCall, map[string]any{"queueName": "support", "maxSize": 3}),
		},
	}
	e := testEngine(t, f, Deps{Queues: &fakeQueues{occupancy: 1}})

	reply := e.Execute(context.Background(), "fq2", "park", "", nil)
	enq := verbAt[markup.Enqueue](t, reply.Body, 0)
	if enq.Queue != "support" {
		t.Errorf("queue = %q", enq.Queue)
	}
	if !strings.Contains(enq.WaitURL, "/flow/fq2/queue-wait") {
		t.Errorf("wait url = %q", enq.WaitURL)
	}
}

func TestForwardCallNoAgentAvailable(t *testing.T) {
	f := &flow.Flow{
		ID: "ff", OwnerID: "t",
		Nodes: []flow.Node{
			node("fwd", flow.TypeForwardCall, map[string]any{"forwardType": "agent", "destination": "agent-x"}),
		},
	}
	e := testEngine(t, f, Deps{})

	reply := e.Execute(context.Background(), "ff", "fwd", "", nil)
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "No agent available." {
		t.Errorf("got %q", say.Text)
	}
}

func TestForwardCallDepartmentRingsAll(t *testing.T) {
	agents := &fakeAgents{numbers: []string{"+15550001", "+15550002"}}
	f := &flow.Flow{
		ID: "ff2", OwnerID: "t",
		Nodes: []flow.Node{
			node("fwd", flow.TypeForwardCall, map[string]any{"forwardType": "department", "destination": "sales"}),
		},
	}
	e := testEngine(t, f, Deps{Agents: agents})

	reply := e.Execute(context.Background(), "ff2", "fwd", "", nil)
	dial := verbAt[markup.Dial](t, reply.Body, 0)
	if len(dial.Verbs) != 2 {
		t.Fatalf("simultaneous ring has %d legs", len(dial.Verbs))
	}
}

func TestSurveyRecordsResponseAndThanks(t *testing.T) {
	surveys := &fakeSurveys{}
	f := &flow.Flow{
		ID: "fs", OwnerID: "t",
		Nodes: []flow.Node{node("q", flow.TypeSurvey, nil)},
	}
	e := testEngine(t, f, Deps{Surveys: surveys})

	reply := e.Execute(context.Background(), "fs", "q", ActionSurvey, Params{"Digits": "4", "CallSid": "CA9"})

	if surveys.nodeID != "q" || surveys.digits != "4" {
		t.Errorf("recorded %q/%q", surveys.nodeID, surveys.digits)
	}
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "Thank you for your feedback. Goodbye." {
		t.Errorf("got %q", say.Text)
	}
	verbAt[markup.Hangup](t, reply.Body, 1)
}

func TestCallbackRequestConfirms(t *testing.T) {
	callbacks := &fakeCallbacks{}
	f := &flow.Flow{
		ID: "fc", OwnerID: "t",
		Nodes: []flow.Node{node("cb", flow.TypeCallbackRequest, nil)},
	}
	e := testEngine(t, f, Deps{Callbacks: callbacks})

	reply := e.Execute(context.Background(), "fc", "cb", "", Params{"From": "+15559998888"})

	if callbacks.number != "+15559998888" {
		t.Errorf("callback number = %q", callbacks.number)
	}
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "Thank you. We will call you back as soon as possible. Goodbye." {
		t.Errorf("got %q", say.Text)
	}
}

func TestExpressionCheck(t *testing.T) {
	tests := []struct {
		name string
		expr string
		from string
		want string
	}{
		{"matches caller", `from == "+15551234567"`, "+15551234567", "yes-branch"},
		{"no match", `from == "+15550000000"`, "+15551234567", "no-branch"},
		{"hour window", `hour >= 9 && hour < 17`, "+15551234567", "yes-branch"},
		{"invalid expression takes no", `this is not an expression`, "+15551234567", "no-branch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &flow.Flow{
				ID: "fe", OwnerID: "t",
				Nodes: []flow.Node{
					node("check", flow.TypeExpressionCheck, map[string]any{"expression": tt.expr}),
					node("y", flow.TypePlayAudio, map[string]any{"message": "yes-branch"}),
					node("n", flow.TypePlayAudio, map[string]any{"message": "no-branch"}),
				},
				Edges: []flow.Edge{
					edge("check", "y", "yes"),
					edge("check", "n", "no"),
				},
			}
			e := testEngine(t, f, Deps{})

			reply := e.Execute(context.Background(), "fe", "check", "", Params{"From": tt.from})
			say := verbAt[markup.Say](t, reply.Body, 0)
			if say.Text != tt.want {
				t.Errorf("branch = %q, want %q", say.Text, tt.want)
			}
		})
	}
}

func TestVoicemailRecordThenResume(t *testing.T) {
	f := &flow.Flow{
		ID: "fv", OwnerID: "t",
		Nodes: []flow.Node{
			node("vm", flow.TypeRecordVoicemail, map[string]any{"transcribe": true}),
			node("after", flow.TypePlayAudio, map[string]any{"message": "Recorded"}),
		},
		Edges: []flow.Edge{edge("vm", "after", "")},
	}
	e := testEngine(t, f, Deps{})

	prompt := e.Execute(context.Background(), "fv", "vm", "", nil)
	say := verbAt[markup.Say](t, prompt.Body, 0)
	if say.Text != "Please leave a message after the beep." {
		t.Errorf("greeting = %q", say.Text)
	}
	rec := verbAt[markup.Record](t, prompt.Body, 1)
	if rec.MaxLength != 60 || !rec.Transcribe {
		t.Errorf("record attrs: %#v", rec)
	}
	if !strings.Contains(rec.Action, "action=recording") {
		t.Errorf("record action = %q", rec.Action)
	}

	resumed := e.Execute(context.Background(), "fv", "vm", ActionRecording,
		Params{"RecordingUrl": "https://api.test/rec/RE1"})
	after := verbAt[markup.Say](t, resumed.Body, 0)
	if after.Text != "Recorded" {
		t.Errorf("resume = %q", after.Text)
	}
}

func TestVoicemailBeepDisabled(t *testing.T) {
	f := &flow.Flow{
		ID: "fv2", OwnerID: "t",
		Nodes: []flow.Node{
			node("vm", flow.TypeRecordVoicemail, map[string]any{"beep": false}),
		},
	}
	e := testEngine(t, f, Deps{})

	prompt := e.Execute(context.Background(), "fv2", "vm", "", nil)
	rec := verbAt[markup.Record](t, prompt.Body, 1)
	if rec.PlayBeep == nil || *rec.PlayBeep {
		t.Errorf("expected playBeep=false, got %#v", rec.PlayBeep)
	}

	// Unset leaves the provider default beep.
	f2 := &flow.Flow{
		ID: "fv3", OwnerID: "t",
		Nodes: []flow.Node{node("vm", flow.TypeRecordVoicemail, nil)},
	}
	e2 := testEngine(t, f2, Deps{})
	prompt = e2.Execute(context.Background(), "fv3", "vm", "", nil)
	rec = verbAt[markup.Record](t, prompt.Body, 1)
	if rec.PlayBeep != nil {
		t.Errorf("expected omitted playBeep, got %v", *rec.PlayBeep)
	}
}

func TestAIAgentHandoff(t *testing.T) {
	f := &flow.Flow{
		ID: "fa", OwnerID: "t",
		Nodes: []flow.Node{
			node("ai", flow.TypeAIAgent, map[string]any{"agentId": "bot-7"}),
			node("after", flow.TypePlayAudio, map[string]any{"message": "Back"}),
		},
		Edges: []flow.Edge{edge("ai", "after", "")},
	}
	e := testEngine(t, f, Deps{})

	handoff := e.Execute(context.Background(), "fa", "ai", "", nil)
	g := verbAt[markup.Gather](t, handoff.Body, 0)
	if g.Input != "speech" || !strings.Contains(g.Action, "agentId=bot-7") {
		t.Errorf("gather = %#v", g)
	}
	redirect := verbAt[markup.Redirect](t, handoff.Body, 1)
	if !strings.Contains(redirect.URL, "action=no-input") {
		t.Errorf("no-input redirect = %q", redirect.URL)
	}

	resumed := e.Execute(context.Background(), "fa", "ai", ActionNoInput, nil)
	say := verbAt[markup.Say](t, resumed.Body, 0)
	if say.Text != "Back" {
		t.Errorf("resume = %q", say.Text)
	}
}

func TestAIAgentResumeLogsTranscript(t *testing.T) {
	f := &flow.Flow{
		ID: "fa3", OwnerID: "t",
		Nodes: []flow.Node{
			node("ai", flow.TypeAIAgent, map[string]any{"agentId": "bot-7"}),
			node("after", flow.TypePlayAudio, map[string]any{"message": "Back"}),
		},
		Edges: []flow.Edge{edge("ai", "after", "")},
	}
	repo := flow.NewMemoryRepository()
	repo.Register(f)
	var buf bytes.Buffer
	e := New(repo, Deps{}, Continuations{}, slog.New(slog.NewTextHandler(&buf, nil)))

	e.Execute(context.Background(), "fa3", "ai", ActionAI,
		Params{"SpeechResult": "talk to billing"})

	if !strings.Contains(buf.String(), "talk to billing") {
		t.Errorf("resume log missing transcript:\n%s", buf.String())
	}
}

func TestAIAgentMissingConfig(t *testing.T) {
	f := &flow.Flow{
		ID: "fa2", OwnerID: "t",
		Nodes: []flow.Node{node("ai", flow.TypeAIAgent, nil)},
	}
	e := testEngine(t, f, Deps{})

	reply := e.Execute(context.Background(), "fa2", "ai", "", nil)
	say := verbAt[markup.Say](t, reply.Body, 0)
	if say.Text != "AI agent configuration error." {
		t.Errorf("got %q", say.Text)
	}
}

func TestScreenCallTwoPhase(t *testing.T) {
	f := &flow.Flow{
		ID: "fsc", OwnerID: "t",
		Nodes: []flow.Node{
			node("screen", flow.TypeScreenCall, nil),
			node("after", flow.TypePlayAudio, map[string]any{"message": "Verified"}),
		},
		Edges: []flow.Edge{edge("screen", "after", "collected")},
	}
	e := testEngine(t, f, Deps{})

	prompt := e.Execute(context.Background(), "fsc", "screen", "", nil)
	g := verbAt[markup.Gather](t, prompt.Body, 0)
	if g.NumDigits != 20 || g.FinishOnKey != "#" {
		t.Errorf("gather attrs: %#v", g)
	}

	resumed := e.Execute(context.Background(), "fsc", "screen", ActionScreen, Params{"Digits": "123456"})
	say := verbAt[markup.Say](t, resumed.Body, 0)
	if say.Text != "Verified" {
		t.Errorf("resume = %q", say.Text)
	}
}
