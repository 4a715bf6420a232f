// Package stream polls the notification feed and fans changes out to
// subscribers (the console's server-sent events).
package stream

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"timepay.uz/crm/internal/crm"
	"timepay.uz/crm/internal/obs"
)

// DefaultInterval is the notification poll period.
const DefaultInterval = 30 * time.Second

// Source yields notifications for the signed-in user.
type Source interface {
	Notifications(ctx context.Context) ([]crm.Notification, error)
}

// Update is one published state of the feed.
type Update struct {
	Unread int                `json:"unread"`
	Items  []crm.Notification `json:"items"`
	At     time.Time          `json:"at"`
}

// Stream is safe for concurrent use.
type Stream struct {
	source func() Source

	mu   sync.RWMutex
	subs map[int]chan Update
	next int
	last *Update
	sig  string
}

// New builds a stream. source may return nil while nobody is signed in; the
// poll is then skipped.
func New(source func() Source) *Stream {
	return &Stream{source: source, subs: make(map[int]chan Update)}
}

// Subscribe registers a subscriber. The latest update, if any, is delivered
// first. The channel is closed when ctx ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Update {
	ch := make(chan Update, 8)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	if s.last != nil {
		ch <- *s.last
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fans the update out; slow subscribers miss it.
func (s *Stream) Publish(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := u
	s.last = &cp
	for _, ch := range s.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// Last returns the most recent update.
func (s *Stream) Last() (Update, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Update{}, false
	}
	return *s.last, true
}

// Subscribers reports the number of active subscribers.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Poll fetches the feed once and publishes it when it differs from the last
// published state. It reports whether an update went out.
func (s *Stream) Poll(ctx context.Context) (bool, error) {
	src := s.source()
	if src == nil {
		return false, nil
	}
	items, err := src.Notifications(ctx)
	if err != nil {
		return false, err
	}
	sig := signature(items)
	s.mu.Lock()
	changed := s.last == nil || sig != s.sig
	s.sig = sig
	s.mu.Unlock()
	if !changed {
		return false, nil
	}
	s.Publish(Update{Unread: crm.UnreadCount(items), Items: items, At: time.Now().UTC()})
	return true, nil
}

// Start polls every interval until the returned stop function is called or
// ctx ends.
func (s *Stream) Start(ctx context.Context, interval time.Duration) func() {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := s.Poll(ctx); err != nil && ctx.Err() == nil {
				obs.Warn("notification_poll_failed", map[string]any{"error": err.Error()})
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return cancel
}

func signature(items []crm.Notification) string {
	var b strings.Builder
	for _, n := range items {
		b.WriteString(strconv.Itoa(n.ID))
		if n.IsRead {
			b.WriteByte('r')
		}
		b.WriteByte(',')
	}
	return b.String()
}
