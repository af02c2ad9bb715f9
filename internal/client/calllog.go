package client

import (
	"encoding/json"
	"sync"
	"time"
)

const maxCallLogEntries = 50

// CallEntry is one recorded API call.
type CallEntry struct {
	Time       time.Time `json:"time"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// CallLog keeps the most recent calls under KeyAPILogs. Writes are best
// effort and never fail a request.
type CallLog struct {
	mu    sync.Mutex
	store Store
}

func NewCallLog(store Store) *CallLog {
	return &CallLog{store: store}
}

func (l *CallLog) Record(e CallEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := append(l.load(), e)
	if len(entries) > maxCallLogEntries {
		entries = entries[len(entries)-maxCallLogEntries:]
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	_ = l.store.Set(KeyAPILogs, string(raw))
}

// Entries returns the log oldest first.
func (l *CallLog) Entries() []CallEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *CallLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.store.Delete(KeyAPILogs)
}

func (l *CallLog) load() []CallEntry {
	raw, ok := l.store.Get(KeyAPILogs)
	if !ok {
		return nil
	}
	var entries []CallEntry
	if json.Unmarshal([]byte(raw), &entries) != nil {
		return nil
	}
	return entries
}
