package collection

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Notice levels
const (
	NoticeInfo    = "info"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice is a short message for the owner about the last operation
type Notice struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// AppState is the presentation-facing state of one owner's session.
// Busy is set while a mutating operation is in flight.
type AppState struct {
	Busy atomic.Bool

	mu        sync.RWMutex
	last      Notice
	listeners map[int]func(Notice)
	nextID    int
	now       func() time.Time
}

func NewAppState() *AppState {
	return &AppState{
		listeners: make(map[int]func(Notice)),
		now:       time.Now,
	}
}

// Notify records a notice and forwards it to every listener
func (s *AppState) Notify(level, message string) {
	s.mu.Lock()
	n := Notice{Level: level, Message: message, Time: s.now()}
	s.last = n
	listeners := make([]func(Notice), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(n)
	}
}

// LastNotice returns the most recent notice, zero if none
func (s *AppState) LastNotice() Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Subscribe registers fn for future notices and returns an unsubscribe func
func (s *AppState) Subscribe(fn func(Notice)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
