package engine

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/expr-lang/expr"

	"github.com/xordon/callflow/flow"
	"github.com/xordon/callflow/markup"
)

const (
	msgClosed  = "We are currently closed. Please call back during business hours."
	msgHoliday = "We are closed for a holiday. Please call back on the next business day."
)

// handleTimeCheck gates the flow on a business-hours window in the tenant's
// timezone. It is a safety gate: when closed, or when open with nowhere to
// go, the caller hears the closed message instead of silently passing
// through.
func handleTimeCheck(_ context.Context, call *Call, node flow.Node) (Result, error) {
	timezone := cfgString(node.Config, "timezone", "America/New_York")
	startTime := cfgString(node.Config, "startTime", "09:00")
	endTime := cfgString(node.Config, "endTime", "17:00")
	activeDays := cfgInts(node.Config, "activeDays", []int{1, 2, 3, 4, 5})

	open := false
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		call.Logger.Error("invalid timezone in time check", "node", node.ID, "timezone", timezone, "error", err)
	} else {
		now := call.Clock.Now().In(loc)
		hhmm := now.Format("15:04")
		withinHours := hhmm >= startTime && hhmm <= endTime
		activeDay := false
		for _, d := range activeDays {
			if d == int(now.Weekday()) {
				activeDay = true
				break
			}
		}
		open = withinHours && activeDay
		call.Logger.Info("time check", "node", node.ID, "time", hhmm, "weekday", int(now.Weekday()), "open", open)
	}

	handle := "no"
	if open {
		handle = "yes"
	}
	if id, ok := call.nextID(node.ID, handle); ok {
		return Advance{NodeID: id}, nil
	}
	if open {
		if id, ok := call.nextID(node.ID, ""); ok {
			return Advance{NodeID: id}, nil
		}
	}
	return Respond{Body: markup.SpeakAndHangup(msgClosed)}, nil
}

// handleHolidayCheck consults the tenant's holiday calendar for today. On a
// holiday with no authored holiday branch the caller hears the holiday
// message; on a normal day the node is transparent.
func handleHolidayCheck(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	holiday, err := call.Deps.Holidays.IsHoliday(ctx, call.Tenant, call.Clock.Now())
	if err != nil {
		call.Logger.Error("holiday lookup failed", "node", node.ID, "error", err)
		holiday = false
	}

	handle := "no"
	if holiday {
		handle = "yes"
	}
	if id, ok := call.nextID(node.ID, handle); ok {
		return Advance{NodeID: id}, nil
	}
	if holiday {
		return Respond{Body: markup.SpeakAndHangup(msgHoliday)}, nil
	}
	return call.advanceNext(node.ID), nil
}

// handleCallerIDCheck matches the caller's number against an authored
// pattern.
func handleCallerIDCheck(_ context.Context, call *Call, node flow.Node) (Result, error) {
	caller := call.Params.From()
	matchType := cfgString(node.Config, "matchType", "exact")
	matchValue := cfgString(node.Config, "matchValue", "")

	matched := false
	switch matchType {
	case "contains":
		matched = strings.Contains(caller, matchValue)
	case "starts_with":
		matched = strings.HasPrefix(caller, matchValue)
	case "ends_with":
		matched = strings.HasSuffix(caller, matchValue)
	case "regex":
		re, err := regexp.Compile(matchValue)
		if err != nil {
			call.Logger.Error("invalid caller id pattern", "node", node.ID, "pattern", matchValue, "error", err)
		} else {
			matched = re.MatchString(caller)
		}
	default:
		matched = caller == matchValue && matchValue != ""
	}

	return conditionResult(call, node.ID, matched), nil
}

// handleVIPCheck branches on the caller being a flagged VIP contact.
func handleVIPCheck(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	vip, err := call.Deps.Contacts.IsVIP(ctx, call.Tenant, call.Params.From())
	if err != nil {
		call.Logger.Error("vip lookup failed", "node", node.ID, "error", err)
		vip = false
	}
	return conditionResult(call, node.ID, vip), nil
}

// languagePrompts are the default selection menu, spoken each in its own
// language.
var languagePrompts = []markup.Say{
	{Language: "en-US", Text: "For English, press 1."},
	{Language: "es-ES", Text: "Para español, presione 2."},
	{Language: "fr-FR", Text: "Pour le français, appuyez sur 3."},
}

// handleLanguageCheck is an input condition: it prompts for a language choice
// and routes the typed digit like a menu.
func handleLanguageCheck(_ context.Context, call *Call, node flow.Node) (Result, error) {
	if call.Params.Digits() != "" {
		digits := consumeDigits(call)
		call.Logger.Info("language selected", "node", node.ID, "digits", digits)
		if id, ok := digitEdge(call, node.ID, digits); ok {
			return Advance{NodeID: id}, nil
		}
	}

	g := markup.Gather{
		NumDigits: 1,
		Timeout:   cfgInt(node.Config, "timeout", 10),
		Action:    call.Cont.Action(call.Flow.ID, node.ID, ActionLanguage),
	}
	for _, say := range languagePrompts {
		g.Verbs = append(g.Verbs, say)
	}
	return Respond{Body: markup.New(g)}, nil
}

// handleGeoCheck branches on the caller's area code being in the configured
// set. Non-US/Canada numbers never match.
func handleGeoCheck(_ context.Context, call *Call, node flow.Node) (Result, error) {
	areaCode := AreaCode(call.Params.From())
	matched := false
	for _, code := range cfgStrings(node.Config, "areaCodes") {
		if code == areaCode && areaCode != "" {
			matched = true
			break
		}
	}
	return conditionResult(call, node.ID, matched), nil
}

// handleAgentAvailability branches on any agent being in the available state.
func handleAgentAvailability(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	count, err := call.Deps.Agents.AvailableCount(ctx, call.Tenant)
	if err != nil {
		call.Logger.Error("agent count failed", "node", node.ID, "error", err)
		count = 0
	}
	return conditionResult(call, node.ID, count > 0), nil
}

// handleQueueStatus branches on a queue being in acceptable shape: occupancy
// under maxSize and average wait under maxWait minutes.
func handleQueueStatus(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	queueName := cfgString(node.Config, "queueName", "default")
	maxWait := time.Duration(cfgInt(node.Config, "maxWait", 10)) * time.Minute
	maxSize := cfgInt(node.Config, "maxSize", 20)

	occupancy, err := call.Deps.Queues.Occupancy(ctx, call.Tenant, queueName)
	if err != nil {
		call.Logger.Error("queue occupancy read failed", "node", node.ID, "queue", queueName, "error", err)
	}
	avgWait, err := call.Deps.Queues.AverageWait(ctx, call.Tenant, queueName)
	if err != nil {
		call.Logger.Error("queue wait read failed", "node", node.ID, "queue", queueName, "error", err)
	}

	acceptable := occupancy < maxSize && avgWait < maxWait
	call.Logger.Info("queue status check",
		"node", node.ID,
		"queue", queueName,
		"occupancy", occupancy,
		"avg_wait", avgWait,
		"acceptable", acceptable)
	return conditionResult(call, node.ID, acceptable), nil
}

// handleExpressionCheck evaluates an authored boolean expression over the
// current request. An unparseable or failing expression takes the no branch.
func handleExpressionCheck(_ context.Context, call *Call, node flow.Node) (Result, error) {
	source := cfgString(node.Config, "expression", "")
	if source == "" {
		return conditionResult(call, node.ID, false), nil
	}

	now := call.Clock.Now()
	env := map[string]any{
		"from":     call.Params.From(),
		"to":       call.Params.To(),
		"digits":   call.Params.Digits(),
		"call_sid": call.Params.CallSID(),
		"hour":     now.Hour(),
		"weekday":  int(now.Weekday()),
	}

	matched := false
	program, err := expr.Compile(source, expr.Env(env), expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		call.Logger.Error("expression compile failed", "node", node.ID, "expression", source, "error", err)
	} else {
		out, err := expr.Run(program, env)
		if err != nil {
			call.Logger.Error("expression eval failed", "node", node.ID, "expression", source, "error", err)
		} else if b, ok := out.(bool); ok {
			matched = b
		}
	}

	return conditionResult(call, node.ID, matched), nil
}

// conditionResult is the shared branch shape: the keyed yes/no edge, then the
// unkeyed default, then end of flow.
func conditionResult(call *Call, nodeID string, yes bool) Result {
	if r, ok := call.branch(nodeID, yes); ok {
		return r
	}
	return Terminate{}
}
