package engine

import (
	"context"
	"time"
)

// Agent is a routable member of the tenant's call team.
type Agent struct {
	ID         string
	Name       string
	Phone      string
	Extension  string
	Department string
	Status     string
}

// AgentDirectory answers routing questions about the tenant's agents. All
// lookups tolerate "no data" by returning empty results, never errors.
type AgentDirectory interface {
	// AvailableAgent resolves an agent id to the agent record, only while the
	// agent is in the available state. Returns nil when not routable.
	AvailableAgent(ctx context.Context, tenant, agentID string) (*Agent, error)
	// DepartmentNumbers lists dialable numbers of available agents in a
	// department, for simultaneous ring.
	DepartmentNumbers(ctx context.Context, tenant, department string) ([]string, error)
	// AvailableCount counts agents in the available state.
	AvailableCount(ctx context.Context, tenant string) (int, error)
}

// ContactDirectory looks up callers in the tenant's CRM contacts.
type ContactDirectory interface {
	// IsVIP reports whether the caller number belongs to a VIP contact.
	IsVIP(ctx context.Context, tenant, number string) (bool, error)
	// EmailFor resolves a caller number to a contact email, "" when unknown.
	EmailFor(ctx context.Context, tenant, number string) (string, error)
}

// HolidayCalendar checks the tenant's holiday table. Recurring holidays match
// by month and day, ignoring the year.
type HolidayCalendar interface {
	IsHoliday(ctx context.Context, tenant string, day time.Time) (bool, error)
}

// MediaLibrary resolves library media ids to playable URLs, "" when missing.
type MediaLibrary interface {
	MediaURL(ctx context.Context, tenant, mediaID string) (string, error)
}

// QueueStats reads current queue occupancy and wait. Implementations must
// back the counters with atomic operations; two calls may hit the same
// capacity check concurrently.
type QueueStats interface {
	Occupancy(ctx context.Context, tenant, queue string) (int, error)
	AverageWait(ctx context.Context, tenant, queue string) (time.Duration, error)
}

// Messenger sends SMS and email on behalf of the tenant.
type Messenger interface {
	SendSMS(ctx context.Context, tenant, from, to, body string) error
	SendEmail(ctx context.Context, tenant, to, subject, body string) error
}

// WebhookSender fires a tenant-configured webhook with a JSON payload.
type WebhookSender interface {
	Send(ctx context.Context, url, method string, headers map[string]string, payload map[string]any) error
}

// CallTagger attaches a tag to a call log entry, creating the tag on first
// use.
type CallTagger interface {
	TagCall(ctx context.Context, tenant, callSID, tag string) error
}

// Ticket is a helpdesk ticket opened by a create_ticket node.
type Ticket struct {
	Subject     string
	Description string
	Priority    string
	Source      string
}

// CRM owns tickets and contact pipeline stages.
type CRM interface {
	CreateTicket(ctx context.Context, tenant string, t Ticket) error
	UpdateContactStage(ctx context.Context, tenant, callerNumber, stage string) error
}

// CallbackLog records callers who asked to be called back, for the sweeper to
// dial later.
type CallbackLog interface {
	RequestCallback(ctx context.Context, tenant, callSID, number string) error
}

// SurveyStore records single-question survey answers keyed by call and node.
type SurveyStore interface {
	RecordResponse(ctx context.Context, tenant, callSID, nodeID, digits string) error
}

// Tenants exposes per-tenant provider configuration. The provider name
// selects the markup dialect.
type Tenants interface {
	Provider(ctx context.Context, tenant string) (string, error)
}

// Deps bundles every external collaborator the handlers touch. Any nil field
// is treated as "no data" for reads and a logged no-op for writes.
type Deps struct {
	Agents    AgentDirectory
	Contacts  ContactDirectory
	Holidays  HolidayCalendar
	Media     MediaLibrary
	Queues    QueueStats
	Messenger Messenger
	Webhooks  WebhookSender
	Tagger    CallTagger
	CRM       CRM
	Callbacks CallbackLog
	Surveys   SurveyStore
	Tenants   Tenants
}
