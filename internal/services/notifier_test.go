package services

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"stanfood-backend/internal/models"
	"stanfood-backend/internal/push"
	"stanfood-backend/internal/repository"
)

var pacific = time.FixedZone("UTC-07:00", -7*60*60)

// eventAt builds an event starting at hh:mm in the -07:00 reference zone
func eventAt(id string, hour, minute int, duration time.Duration) *models.Event {
	start := time.Date(2019, 5, 1, hour, minute, 0, 0, pacific).UnixMilli()
	return &models.Event{
		ID:        id,
		PinID:     "p1",
		TimeStart: int64Ptr(start),
		Duration:  int64Ptr(duration.Milliseconds()),
	}
}

func addSubscriber(store *memStore, userID, token, windowStart, windowEnd string, enabled bool) {
	store.users[userID] = &models.User{ID: userID, InstanceID: token}
	store.settings = append(store.settings, &models.UserSettings{
		UserID:                   userID,
		ReceivePushNotifications: enabled,
		TimeWindowStart:          windowStart,
		TimeWindowEnd:            windowEnd,
	})
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func TestOnEventCreatedSelectsOverlappingUsers(t *testing.T) {
	store := newMemStore()
	addSubscriber(store, "end-inside", "tok-end", "10:30", "12:00", true)
	addSubscriber(store, "start-inside", "tok-start", "9:00", "10:00", true)
	addSubscriber(store, "padded", "tok-padded", "09:45", "10:15", true)
	addSubscriber(store, "spanned", "tok-spanned", "10:15", "10:45", true)
	addSubscriber(store, "later", "tok-later", "14:00", "16:00", true)
	addSubscriber(store, "disabled", "tok-disabled", "10:00", "11:00", false)
	sender := &fakeSender{}

	s := NewNotificationService(store, store, sender, pacific)
	result, err := s.OnEventCreated(context.Background(), eventAt("e1", 10, 0, time.Hour), "e1")
	if err != nil {
		t.Fatalf("OnEventCreated failed: %v", err)
	}

	wantUsers := []string{"end-inside", "padded", "start-inside"}
	if got := sorted(result.Recipients); !reflect.DeepEqual(got, wantUsers) {
		t.Errorf("recipients = %v, want %v", got, wantUsers)
	}
	wantTokens := []string{"tok-end", "tok-padded", "tok-start"}
	if got := sorted(sender.tokens); !reflect.DeepEqual(got, wantTokens) {
		t.Errorf("tokens = %v, want %v", got, wantTokens)
	}
	if sender.calls != 1 {
		t.Errorf("expected a single batch, got %d", sender.calls)
	}
	if sender.payload != (push.Payload{Title: NotificationTitle, Body: "e1"}) {
		t.Errorf("unexpected payload %+v", sender.payload)
	}
}

func TestOnEventCreatedEventSpanningWindowIsNotMatched(t *testing.T) {
	store := newMemStore()
	addSubscriber(store, "u1", "tok-1", "10:15", "10:45", true)
	sender := &fakeSender{}

	s := NewNotificationService(store, store, sender, pacific)
	result, err := s.OnEventCreated(context.Background(), eventAt("e1", 10, 0, time.Hour), "e1")
	if err != nil {
		t.Fatalf("OnEventCreated failed: %v", err)
	}
	if len(result.Recipients) != 0 {
		t.Errorf("only endpoint containment counts as overlap, got %v", result.Recipients)
	}
	if sender.calls != 0 {
		t.Error("no batch should be sent without recipients")
	}
}

func TestOnEventCreatedNoEndpointInWindow(t *testing.T) {
	store := newMemStore()
	addSubscriber(store, "u1", "tok-1", "10:00", "11:00", true)
	sender := &fakeSender{}

	s := NewNotificationService(store, store, sender, pacific)
	result, err := s.OnEventCreated(context.Background(), eventAt("e1", 9, 0, 15*time.Minute), "e1")
	if err != nil {
		t.Fatalf("OnEventCreated failed: %v", err)
	}
	if len(result.Recipients) != 0 || sender.calls != 0 {
		t.Errorf("expected no recipients, got %v", result.Recipients)
	}
}

func TestOnEventCreatedUsesReferenceOffset(t *testing.T) {
	store := newMemStore()
	// 17:00 UTC is 10:00 at -07:00
	addSubscriber(store, "u1", "tok-1", "9:30", "10:30", true)
	sender := &fakeSender{}

	start := time.Date(2019, 5, 1, 17, 0, 0, 0, time.UTC).UnixMilli()
	event := &models.Event{ID: "e1", TimeStart: int64Ptr(start), Duration: int64Ptr(0)}

	s := NewNotificationService(store, store, sender, pacific)
	result, err := s.OnEventCreated(context.Background(), event, "e1")
	if err != nil {
		t.Fatalf("OnEventCreated failed: %v", err)
	}
	if len(result.Recipients) != 1 {
		t.Errorf("expected u1 to match at 10:00 -07:00, got %v", result.Recipients)
	}
}

func TestOnEventCreatedSkipsUnjoinableUsers(t *testing.T) {
	store := newMemStore()
	addSubscriber(store, "no-token", "", "10:00", "11:00", true)
	addSubscriber(store, "bad-window", "tok-bad", "ten", "11:00", true)
	addSubscriber(store, "ok", "tok-ok", "10:00", "11:00", true)
	// settings without a matching user record
	store.settings = append(store.settings, &models.UserSettings{
		UserID:                   "ghost",
		ReceivePushNotifications: true,
		TimeWindowStart:          "10:00",
		TimeWindowEnd:            "11:00",
	})
	sender := &fakeSender{}

	s := NewNotificationService(store, store, sender, pacific)
	result, err := s.OnEventCreated(context.Background(), eventAt("e1", 10, 0, time.Hour), "e1")
	if err != nil {
		t.Fatalf("OnEventCreated failed: %v", err)
	}
	if !reflect.DeepEqual(result.Recipients, []string{"ok"}) {
		t.Errorf("recipients = %v, want [ok]", result.Recipients)
	}
	if !reflect.DeepEqual(sender.tokens, []string{"tok-ok"}) {
		t.Errorf("tokens = %v, want [tok-ok]", sender.tokens)
	}
}

func TestOnEventCreatedReportsFailures(t *testing.T) {
	store := newMemStore()
	addSubscriber(store, "a", "tok-a", "10:00", "11:00", true)
	addSubscriber(store, "b", "tok-b", "10:00", "11:00", true)
	addSubscriber(store, "c", "tok-c", "10:00", "11:00", true)
	addSubscriber(store, "d", "tok-d", "10:00", "11:00", true)
	sender := &fakeSender{codes: map[string]string{
		"tok-b": push.ErrorCodeInvalidToken,
		"tok-c": push.ErrorCodeNotRegistered,
		"tok-d": push.ErrorCodeInternal,
	}}

	s := NewNotificationService(store, store, sender, pacific)
	result, err := s.OnEventCreated(context.Background(), eventAt("e1", 10, 0, time.Hour), "e1")
	if err != nil {
		t.Fatalf("OnEventCreated failed: %v", err)
	}

	if result.Failures != 3 {
		t.Errorf("expected 3 failures, got %d", result.Failures)
	}
	if got := sorted(result.StaleTokens); !reflect.DeepEqual(got, []string{"tok-b", "tok-c"}) {
		t.Errorf("stale tokens = %v", got)
	}
	// Stale tokens are reported, not pruned
	if store.users["b"].InstanceID != "tok-b" {
		t.Error("user tokens must not be modified")
	}
}

func TestOnEventCreatedPropagatesSendError(t *testing.T) {
	store := newMemStore()
	addSubscriber(store, "a", "tok-a", "10:00", "11:00", true)
	boom := errors.New("apns unreachable")

	s := NewNotificationService(store, store, &fakeSender{err: boom}, pacific)
	if _, err := s.OnEventCreated(context.Background(), eventAt("e1", 10, 0, time.Hour), "e1"); !errors.Is(err, boom) {
		t.Fatalf("expected send error, got %v", err)
	}
}

func TestOnEventCreatedMalformedEvent(t *testing.T) {
	s := NewNotificationService(newMemStore(), newMemStore(), &fakeSender{}, pacific)
	event := &models.Event{ID: "e1", TimeStart: int64Ptr(0)}

	if _, err := s.OnEventCreated(context.Background(), event, "e1"); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", err)
	}
}

func TestNotifyByID(t *testing.T) {
	store := newMemStore()
	e := eventAt("e1", 10, 0, time.Hour)
	store.addEvent(e.ID, e.PinID, e.TimeStart, e.Duration)
	addSubscriber(store, "a", "tok-a", "10:00", "11:00", true)
	sender := &fakeSender{}

	s := NewNotificationService(store, store, sender, pacific)
	result, err := s.NotifyByID(context.Background(), "e1")
	if err != nil {
		t.Fatalf("NotifyByID failed: %v", err)
	}
	if result.EventID != "e1" || len(result.Recipients) != 1 {
		t.Errorf("unexpected result %+v", result)
	}

	if _, err := s.NotifyByID(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
