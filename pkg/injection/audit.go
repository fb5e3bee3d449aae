package injection

import (
	"fmt"
	"sync"
	"time"
)

// Audit records the apply and restore actions taken by injectors so that a
// run leaves a verifiable trail of what was disturbed and what was put
// back.
type Audit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// AuditEntry is one recorded action.
type AuditEntry struct {
	Timestamp time.Time
	Action    string
	Detail    string
	Err       error
}

// NewAudit creates an empty audit trail.
func NewAudit() *Audit {
	return &Audit{}
}

// Record appends an action. A nil Audit is a no-op so injectors never need
// to guard their calls.
func (a *Audit) Record(action, detail string, err error) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, AuditEntry{
		Timestamp: time.Now(),
		Action:    action,
		Detail:    detail,
		Err:       err,
	})
}

// Entries returns a copy of the recorded actions in order.
func (a *Audit) Entries() []AuditEntry {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AuditEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Summary aggregates the trail into counts.
func (a *Audit) Summary() AuditSummary {
	var s AuditSummary
	for _, e := range a.Entries() {
		s.Total++
		if e.Err == nil {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// AuditSummary counts recorded actions by outcome.
type AuditSummary struct {
	Total     int
	Succeeded int
	Failed    int
}

// String renders the summary for logs.
func (s AuditSummary) String() string {
	return fmt.Sprintf("cleanup audit: %d actions, %d succeeded, %d failed",
		s.Total, s.Succeeded, s.Failed)
}
