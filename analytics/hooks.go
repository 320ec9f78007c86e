// Package analytics provides lightweight in-process KPI hooks driven by
// domain events. Hooks subscribe to the event bus and aggregate counters;
// they never block or fail the award path.
package analytics

import (
	"context"
	"sync"
	"time"

	"xpkit/core"
	"xpkit/engine"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// Attach subscribes a hook to every event type on the bus.
// Returns a func that removes the subscriptions.
func Attach(bus *engine.EventBus, hook Hook) func() {
	unsubs := make([]func(), 0, len(core.AllEventTypes()))
	for _, typ := range core.AllEventTypes() {
		unsubs = append(unsubs, bus.Subscribe(typ, func(_ context.Context, e core.Event) {
			hook.OnEvent(e)
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// DAU tracks daily active users.
type DAU struct {
	mu   sync.Mutex
	days map[string]map[core.UserID]struct{}
}

func NewDAU() *DAU { return &DAU{days: map[string]map[core.UserID]struct{}{}} }

func (d *DAU) OnEvent(e core.Event) {
	day := dayKey(e.Time)
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.days[day]
	if m == nil {
		m = map[core.UserID]struct{}{}
		d.days[day] = m
	}
	m[e.UserID] = struct{}{}
}

func (d *DAU) Count(day string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days[day])
}

// XPTotals aggregates awarded XP per day and per action.
type XPTotals struct {
	mu       sync.Mutex
	byDay    map[string]int64
	byAction map[core.Action]int64
}

func NewXPTotals() *XPTotals {
	return &XPTotals{
		byDay:    map[string]int64{},
		byAction: map[core.Action]int64{},
	}
}

func (x *XPTotals) OnEvent(e core.Event) {
	if e.Type != core.EventXPAwarded || e.Amount <= 0 {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.byDay[dayKey(e.Time)] += e.Amount
	x.byAction[e.Action] += e.Amount
}

func (x *XPTotals) ByDay(day string) int64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.byDay[day]
}

func (x *XPTotals) ByAction(action core.Action) int64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.byAction[action]
}

// SuspiciousCounter counts suspicious-activity events by kind. Useful for
// spotting users who repeatedly hit rate caps.
type SuspiciousCounter struct {
	mu     sync.Mutex
	byKind map[string]int64
	byUser map[core.UserID]int64
}

func NewSuspiciousCounter() *SuspiciousCounter {
	return &SuspiciousCounter{
		byKind: map[string]int64{},
		byUser: map[core.UserID]int64{},
	}
}

func (s *SuspiciousCounter) OnEvent(e core.Event) {
	if e.Type != core.EventSuspiciousActivity {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKind[e.Kind]++
	s.byUser[e.UserID]++
}

func (s *SuspiciousCounter) ByKind(kind string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byKind[kind]
}

func (s *SuspiciousCounter) ByUser(user core.UserID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byUser[user]
}

// Multi fans a single event out to several hooks.
type Multi []Hook

func (m Multi) OnEvent(e core.Event) {
	for _, h := range m {
		h.OnEvent(e)
	}
}
