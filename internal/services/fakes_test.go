package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"stanfood-backend/internal/models"
	"stanfood-backend/internal/push"
	"stanfood-backend/internal/repository"
)

func int64Ptr(v int64) *int64 { return &v }

// memStore is an in-memory stand-in for the Postgres repositories
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex // serializes counter transactions like a pin row lock

	// conns, when set, models a connection pool: every store call holds a
	// slot for its duration and a transaction holds one until it ends
	conns chan struct{}

	events map[string]*models.Event
	food   map[string]*models.FoodItem
	pins   map[string]*int64

	// pinExists tracks pins separately so a NULL counter can be modelled
	pinExists map[string]bool

	users    map[string]*models.User
	settings []*models.UserSettings

	// conflicts makes every transform run fn this many extra times
	conflicts int

	listErr      error
	foodListErr  error
	transformErr error

	deleteEventCalls int
}

func newMemStore() *memStore {
	return &memStore{
		events:    make(map[string]*models.Event),
		food:      make(map[string]*models.FoodItem),
		pins:      make(map[string]*int64),
		pinExists: make(map[string]bool),
		users:     make(map[string]*models.User),
	}
}

// acquire takes a connection slot and returns its release func
func (m *memStore) acquire() func() {
	if m.conns == nil {
		return func() {}
	}
	m.conns <- struct{}{}
	return func() { <-m.conns }
}

func (m *memStore) addPin(id string, count *int64) {
	m.pins[id] = count
	m.pinExists[id] = true
}

func (m *memStore) addEvent(id, pinID string, start, duration *int64) {
	m.events[id] = &models.Event{ID: id, PinID: pinID, TimeStart: start, Duration: duration}
}

func (m *memStore) addFood(id, eventID, imagePath string) {
	m.food[id] = &models.FoodItem{ID: id, EventID: eventID, ImagePath: imagePath}
}

func (m *memStore) count(pinID string) *int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pins[pinID]
}

func (m *memStore) hasEvent(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.events[id]
	return ok
}

func (m *memStore) hasFood(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.food[id]
	return ok
}

func (m *memStore) ListEvents(ctx context.Context) ([]*models.Event, error) {
	defer m.acquire()()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}

	events := make([]*models.Event, 0, len(m.events))
	for _, e := range m.events {
		copied := *e
		events = append(events, &copied)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (m *memStore) ListByPinID(ctx context.Context, pinID string) ([]*models.Event, error) {
	all, err := m.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	var events []*models.Event
	for _, e := range all {
		if e.PinID == pinID {
			events = append(events, e)
		}
	}
	return events, nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*models.Event, error) {
	defer m.acquire()()
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, repository.ErrNotFound)
	}
	copied := *e
	return &copied, nil
}

func (m *memStore) ListByEventID(ctx context.Context, eventID string) ([]*models.FoodItem, error) {
	defer m.acquire()()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.foodListErr != nil {
		return nil, m.foodListErr
	}

	var items []*models.FoodItem
	for _, f := range m.food {
		if f.EventID == eventID {
			copied := *f
			items = append(items, &copied)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *memStore) DeleteFood(ctx context.Context, id string) error {
	defer m.acquire()()
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.food, id)
	return nil
}

// RemoveEvent mimics an optimistic store transaction: it holds one connection
// for its whole run, deletes the event and runs fn once per attempt, and only
// the final attempt's value is written.
func (m *memStore) RemoveEvent(ctx context.Context, pinID, eventID string, fn func(current *int64) *int64) error {
	if m.transformErr != nil {
		return m.transformErr
	}

	defer m.acquire()()
	m.txMu.Lock()
	defer m.txMu.Unlock()

	for attempt := 0; ; attempt++ {
		m.mu.Lock()
		var current *int64
		if c := m.pins[pinID]; c != nil {
			current = int64Ptr(*c)
		}
		exists := m.pinExists[pinID]
		m.deleteEventCalls++
		delete(m.events, eventID)
		m.mu.Unlock()

		next := fn(current)

		if attempt < m.conflicts {
			continue
		}

		m.mu.Lock()
		if exists {
			m.pins[pinID] = next
		}
		m.mu.Unlock()
		return nil
	}
}

func (m *memStore) ListUsers(ctx context.Context) (map[string]*models.User, error) {
	defer m.acquire()()
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make(map[string]*models.User, len(m.users))
	for id, u := range m.users {
		users[id] = u
	}
	return users, nil
}

func (m *memStore) ListPushEnabledSettings(ctx context.Context) ([]*models.UserSettings, error) {
	defer m.acquire()()
	m.mu.Lock()
	defer m.mu.Unlock()
	var settings []*models.UserSettings
	for _, s := range m.settings {
		if s.ReceivePushNotifications {
			settings = append(settings, s)
		}
	}
	return settings, nil
}

// memBlobs records deleted paths; paths in failing return an error
type memBlobs struct {
	mu      sync.Mutex
	deleted []string
	failing map[string]bool
}

func (b *memBlobs) Delete(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing[path] {
		return errors.New("storage unavailable")
	}
	b.deleted = append(b.deleted, path)
	return nil
}

func (b *memBlobs) paths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]string(nil), b.deleted...)
	sort.Strings(out)
	return out
}

// fakeSender records batches and answers with preset error codes
type fakeSender struct {
	calls   int
	tokens  []string
	payload push.Payload
	codes   map[string]string
	err     error
}

func (f *fakeSender) SendBatch(ctx context.Context, tokens []string, p push.Payload) ([]push.Result, error) {
	f.calls++
	f.tokens = append([]string(nil), tokens...)
	f.payload = p
	if f.err != nil {
		return nil, f.err
	}

	results := make([]push.Result, len(tokens))
	for i, tok := range tokens {
		results[i] = push.Result{Token: tok, ErrorCode: f.codes[tok]}
	}
	return results, nil
}
