package models

// Event represents a time-bounded food listing at a pin.
// TimeStart is epoch milliseconds and Duration is milliseconds; both are
// nullable because rows written by older clients may lack them.
type Event struct {
	ID          string `json:"id"`
	PinID       string `json:"pin_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TimeStart   *int64 `json:"time_start,omitempty"`
	Duration    *int64 `json:"duration,omitempty"`
}

// EndTime returns timeStart + duration in epoch milliseconds
func (e *Event) EndTime() (int64, bool) {
	if e.TimeStart == nil || e.Duration == nil {
		return 0, false
	}
	return *e.TimeStart + *e.Duration, true
}

// IsExpired reports whether the event ended strictly before nowMillis.
// ok is false when the record lacks timeStart or duration.
func (e *Event) IsExpired(nowMillis int64) (expired bool, ok bool) {
	end, ok := e.EndTime()
	if !ok {
		return false, false
	}
	return end < nowMillis, true
}

// FoodItem represents an item offered at an event
type FoodItem struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	Description string `json:"description"`
	ImagePath   string `json:"image_path,omitempty"`
}

// User represents an app user and their push device token
type User struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	InstanceID string `json:"instance_id,omitempty"`
}

// UserSettings holds a user's notification preferences.
// The time window is a same-day clock range in H:mm or HH:mm form.
type UserSettings struct {
	UserID                   string `json:"user_id"`
	ReceivePushNotifications bool   `json:"receive_push_notifications"`
	TimeWindowStart          string `json:"time_window_start"`
	TimeWindowEnd            string `json:"time_window_end"`
}
