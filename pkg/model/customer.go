package model

// CustomerProfile summarizes what earlier bookings tell about a phone.
type CustomerProfile struct {
	Phone string `json:"phone"`
	// Name is taken from the most recent booking, in any status.
	Name string `json:"name"`
	// Bookings counts confirmed appointments, past and upcoming.
	Bookings int `json:"bookings"`
	// LastVisit is the latest confirmed date on or before today, if any.
	LastVisit string `json:"last_visit,omitempty"`
}

func (p *CustomerProfile) IsReturning() bool {
	return p != nil && p.Bookings > 0
}
