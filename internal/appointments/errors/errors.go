package errors

import "errors"

// Storage sentinels. Repository implementations translate driver errors into
// these; the service layer maps them to reason codes.
var (
	ErrNotFound = errors.New("appointment not found")

	ErrDuplicateSlot = errors.New("slot already holds a confirmed appointment")
)

// Reason codes carried by AppError.Code and relayed to the model.
const (
	CodeInvalidDateFormat    = "INVALID_DATE_FORMAT"
	CodeInvalidTimeFormat    = "INVALID_TIME_FORMAT"
	CodeClosedHoliday        = "CLOSED_HOLIDAY"
	CodeClosedPrefix         = "CLOSED_"
	CodeOutsideBusinessHours = "OUTSIDE_BUSINESS_HOURS"

	CodeInvalidPhone         = "INVALID_PHONE"
	CodeCustomerNameRequired = "CUSTOMER_NAME_REQUIRED"
	CodeInvalidService       = "INVALID_SERVICE"
	CodePastDateNotAllowed   = "PAST_DATE_NOT_ALLOWED"

	CodeSlotAlreadyBooked = "SLOT_ALREADY_BOOKED"
	CodeSlotJustBooked    = "SLOT_JUST_BOOKED"

	CodeAppointmentNotFound = "APPOINTMENT_NOT_FOUND"
)
