package engine

import (
	"context"
	"time"
)

// withDefaults fills unset collaborators with no-data implementations so
// handlers never nil-check. Reads come back empty; writes are refused with an
// error the action wrappers log and absorb.
func (d *Deps) withDefaults() {
	if d.Agents == nil {
		d.Agents = noopDeps{}
	}
	if d.Contacts == nil {
		d.Contacts = noopDeps{}
	}
	if d.Holidays == nil {
		d.Holidays = noopDeps{}
	}
	if d.Media == nil {
		d.Media = noopDeps{}
	}
	if d.Queues == nil {
		d.Queues = noopDeps{}
	}
	if d.Tenants == nil {
		d.Tenants = noopDeps{}
	}
}

type noopDeps struct{}

func (noopDeps) AvailableAgent(context.Context, string, string) (*Agent, error) { return nil, nil }
func (noopDeps) DepartmentNumbers(context.Context, string, string) ([]string, error) {
	return nil, nil
}
func (noopDeps) AvailableCount(context.Context, string) (int, error)       { return 0, nil }
func (noopDeps) IsVIP(context.Context, string, string) (bool, error)       { return false, nil }
func (noopDeps) EmailFor(context.Context, string, string) (string, error)  { return "", nil }
func (noopDeps) IsHoliday(context.Context, string, time.Time) (bool, error) {
	return false, nil
}
func (noopDeps) MediaURL(context.Context, string, string) (string, error) { return "", nil }
func (noopDeps) Occupancy(context.Context, string, string) (int, error)   { return 0, nil }
func (noopDeps) AverageWait(context.Context, string, string) (time.Duration, error) {
	return 0, nil
}
func (noopDeps) Provider(context.Context, string) (string, error) { return "", nil }
