package model

import (
	"time"
)

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Appointment is one booked slot. Date and Time are the canonical tenant-local
// YYYY-MM-DD and HH:MM strings; together they identify the slot.
type Appointment struct {
	ID              int64      `json:"id" bson:"_id" db:"id"`
	Phone           string     `json:"phone" bson:"phone" db:"phone"`
	CustomerName    string     `json:"customer_name" bson:"customer_name" db:"customer_name"`
	ServiceCode     string     `json:"service_code" bson:"service_code" db:"service_code"`
	Date            string     `json:"date" bson:"date" db:"date"`
	Time            string     `json:"time" bson:"time" db:"time"`
	DurationMinutes int        `json:"duration_minutes" bson:"duration_minutes" db:"duration_minutes"`
	Price           float64    `json:"price" bson:"price" db:"price"`
	Status          string     `json:"status" bson:"status" db:"status"`
	ExternalEventID string     `json:"external_event_id,omitempty" bson:"external_event_id,omitempty" db:"external_event_id"`
	CreatedAt       time.Time  `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" bson:"updated_at" db:"updated_at"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty" db:"cancelled_at"`
}

func (a *Appointment) IsConfirmed() bool {
	return a.Status == StatusConfirmed
}

// Start resolves the slot to an instant in loc.
func (a *Appointment) Start(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", a.Date+" "+a.Time, loc)
}

func (a *Appointment) End(loc *time.Location) (time.Time, error) {
	start, err := a.Start(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(a.DurationMinutes) * time.Minute), nil
}

// SlotChange carries the fields modify may rewrite. All values are already
// validated and canonical.
type SlotChange struct {
	Date            string
	Time            string
	ServiceCode     string
	DurationMinutes int
	Price           float64
}
