package capture

import (
	"fmt"
	"sync"
	"time"
)

// Default per-endpoint unit costs of the upstream API. search is two orders
// of magnitude pricier than plain reads.
var defaultUnitCosts = map[string]int{
	"search.list":        100,
	"videos.list":        1,
	"channels.list":      1,
	"playlistItems.list": 1,
}

// ErrQuotaExceeded is returned when a reservation would push usage past the
// daily cap. Callers stop the current program rather than burning the rest
// of the day's budget.
type ErrQuotaExceeded struct {
	Endpoint  string
	Need      int
	Remaining int
}

func (e *ErrQuotaExceeded) Error() string {
	return fmt.Sprintf("quota exceeded: need %d units for %s but only %d remain", e.Need, e.Endpoint, e.Remaining)
}

// QuotaManager tracks daily API unit usage. The cap resets at the first
// reservation after local midnight.
type QuotaManager struct {
	mu        sync.Mutex
	dailyCap  int
	remaining int
	resetAt   time.Time
	unitCosts map[string]int
	now       func() time.Time
}

func NewQuotaManager(dailyCap int) *QuotaManager {
	if dailyCap <= 0 {
		dailyCap = 10000
	}

	costs := make(map[string]int, len(defaultUnitCosts))
	for k, v := range defaultUnitCosts {
		costs[k] = v
	}

	m := &QuotaManager{
		dailyCap:  dailyCap,
		remaining: dailyCap,
		unitCosts: costs,
		now:       time.Now,
	}
	m.resetAt = nextMidnight(m.now())

	return m
}

// EstimateCost returns the unit cost of pages calls to endpoint. Unknown
// endpoints cost one unit per page.
func (m *QuotaManager) EstimateCost(endpoint string, pages int) int {
	cost, ok := m.unitCosts[endpoint]
	if !ok {
		cost = 1
	}
	if pages < 1 {
		pages = 1
	}
	return cost * pages
}

// Reserve charges the cost of pages calls to endpoint, or fails without
// charging when the daily budget cannot cover it.
func (m *QuotaManager) Reserve(endpoint string, pages int) error {
	need := m.EstimateCost(endpoint, pages)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeResetLocked()

	if m.remaining < need {
		return &ErrQuotaExceeded{Endpoint: endpoint, Need: need, Remaining: m.remaining}
	}

	m.remaining -= need
	return nil
}

// Release refunds a reservation whose call failed before consuming quota.
func (m *QuotaManager) Release(endpoint string, pages int) {
	charged := m.EstimateCost(endpoint, pages)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeResetLocked()

	m.remaining += charged
	if m.remaining > m.dailyCap {
		m.remaining = m.dailyCap
	}
}

func (m *QuotaManager) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeResetLocked()
	return m.remaining
}

func (m *QuotaManager) Used() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maybeResetLocked()
	return m.dailyCap - m.remaining
}

func (m *QuotaManager) maybeResetLocked() {
	if now := m.now(); !now.Before(m.resetAt) {
		m.remaining = m.dailyCap
		m.resetAt = nextMidnight(now)
	}
}

func nextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
