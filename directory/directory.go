// Package directory provides the tenant data lookups the engine consults
// while routing: agents, contacts, holidays, media, and provider selection.
package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/xordon/callflow/engine"
)

var (
	_ engine.AgentDirectory   = &Memory{}
	_ engine.ContactDirectory = &Memory{}
	_ engine.HolidayCalendar  = &Memory{}
	_ engine.MediaLibrary     = &Memory{}
	_ engine.Tenants          = &Memory{}
)

// Memory is a map-backed directory covering every engine read interface.
// It serves single-tenant deployments configured from files, and tests.
type Memory struct {
	mu        sync.RWMutex
	agents    map[string][]engine.Agent    // tenant -> agents
	contacts  map[string][]Contact         // tenant -> contacts
	holidays  map[string][]Holiday         // tenant -> holidays
	media     map[string]map[string]string // tenant -> media id -> URL
	providers map[string]string            // tenant -> provider name
}

// Contact is a CRM contact as the directory needs it: a phone number plus
// the flags the condition nodes branch on.
type Contact struct {
	Phone string `yaml:"phone"`
	Email string `yaml:"email"`
	VIP   bool   `yaml:"vip"`
}

// Holiday is one closure date. Recurring holidays match by month and day
// every year.
type Holiday struct {
	Date      time.Time `yaml:"date"`
	Recurring bool      `yaml:"recurring"`
}

func NewMemory() *Memory {
	return &Memory{
		agents:    make(map[string][]engine.Agent),
		contacts:  make(map[string][]Contact),
		holidays:  make(map[string][]Holiday),
		media:     make(map[string]map[string]string),
		providers: make(map[string]string),
	}
}

func (m *Memory) AddAgent(tenant string, a engine.Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[tenant] = append(m.agents[tenant], a)
}

func (m *Memory) AddContact(tenant string, c Contact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[tenant] = append(m.contacts[tenant], c)
}

func (m *Memory) AddHoliday(tenant string, h Holiday) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays[tenant] = append(m.holidays[tenant], h)
}

func (m *Memory) AddMedia(tenant, mediaID, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.media[tenant] == nil {
		m.media[tenant] = make(map[string]string)
	}
	m.media[tenant][mediaID] = url
}

func (m *Memory) SetProvider(tenant, provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[tenant] = provider
}

func (m *Memory) AvailableAgent(_ context.Context, tenant, agentID string) (*engine.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.agents[tenant] {
		if a.ID == agentID && a.Status == "available" {
			agent := a
			return &agent, nil
		}
	}
	return nil, nil
}

func (m *Memory) DepartmentNumbers(_ context.Context, tenant, department string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var numbers []string
	for _, a := range m.agents[tenant] {
		if a.Department == department && a.Status == "available" && a.Phone != "" {
			numbers = append(numbers, a.Phone)
		}
	}
	return numbers, nil
}

func (m *Memory) AvailableCount(_ context.Context, tenant string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, a := range m.agents[tenant] {
		if a.Status == "available" {
			count++
		}
	}
	return count, nil
}

func (m *Memory) IsVIP(_ context.Context, tenant, number string) (bool, error) {
	if c := m.findContact(tenant, number); c != nil {
		return c.VIP, nil
	}
	return false, nil
}

func (m *Memory) EmailFor(_ context.Context, tenant, number string) (string, error) {
	if c := m.findContact(tenant, number); c != nil {
		return c.Email, nil
	}
	return "", nil
}

// findContact matches by normalized digits so formatting differences between
// the provider and the CRM do not hide a contact.
func (m *Memory) findContact(tenant, number string) *Contact {
	digits := engine.DigitsOnly(number)
	if digits == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.contacts[tenant] {
		stored := engine.DigitsOnly(m.contacts[tenant][i].Phone)
		if stored == digits || strings.HasSuffix(stored, digits) || strings.HasSuffix(digits, stored) {
			return &m.contacts[tenant][i]
		}
	}
	return nil
}

func (m *Memory) IsHoliday(_ context.Context, tenant string, day time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.holidays[tenant] {
		if h.Recurring {
			if h.Date.Month() == day.Month() && h.Date.Day() == day.Day() {
				return true, nil
			}
			continue
		}
		y1, m1, d1 := h.Date.Date()
		y2, m2, d2 := day.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) MediaURL(_ context.Context, tenant, mediaID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.media[tenant][mediaID], nil
}

func (m *Memory) Provider(_ context.Context, tenant string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[tenant], nil
}
