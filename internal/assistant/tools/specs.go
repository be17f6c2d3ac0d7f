package tools

import (
	"concierge/internal/assistant/llm"
	"concierge/internal/tenant"
)

const (
	CheckAvailability       = "check_availability"
	GetAvailableSlots       = "get_available_slots"
	CreateAppointment       = "create_appointment"
	ModifyAppointment       = "modify_appointment"
	CancelAppointment       = "cancel_appointment"
	GetCustomerAppointments = "get_customer_appointments"
)

// Specs declares the tool set offered to the model. The service enum is the
// tenant catalog.
func Specs(t *tenant.Tenant) []llm.ToolSpec {
	codes := t.ServiceCodes()

	return []llm.ToolSpec{
		{
			Name:        CheckAvailability,
			Description: "Check if a specific date and time slot is available for booking.",
			Params: []llm.Param{
				{Name: "date", Type: llm.TypeString, Description: "Date in YYYY-MM-DD format"},
				{Name: "time", Type: llm.TypeString, Description: "Time in HH:MM 24h format"},
			},
		},
		{
			Name:        GetAvailableSlots,
			Description: "Show all available time slots for a specific date.",
			Params: []llm.Param{
				{Name: "date", Type: llm.TypeString, Description: "Date in YYYY-MM-DD format"},
			},
		},
		{
			Name:        CreateAppointment,
			Description: "Book an appointment for the customer. Check availability first and ask for the customer's name.",
			Params: []llm.Param{
				{Name: "customer_name", Type: llm.TypeString, Description: "Name the customer gave for the booking"},
				{Name: "service_type", Type: llm.TypeString, Description: "Service code", Enum: codes},
				{Name: "date", Type: llm.TypeString, Description: "Date in YYYY-MM-DD format"},
				{Name: "time", Type: llm.TypeString, Description: "Time in HH:MM 24h format"},
			},
		},
		{
			Name:        ModifyAppointment,
			Description: "Modify or reschedule an appointment. Use the appointment_id from get_customer_appointments.",
			Params: []llm.Param{
				{Name: "appointment_id", Type: llm.TypeInteger, Description: "The appointment_id from get_customer_appointments"},
				{Name: "new_date", Type: llm.TypeString, Description: "New date in YYYY-MM-DD format, null to keep", Nullable: true},
				{Name: "new_time", Type: llm.TypeString, Description: "New time in HH:MM 24h format, null to keep", Nullable: true},
				{Name: "new_service", Type: llm.TypeString, Description: "New service code, null to keep", Enum: codes, Nullable: true},
			},
		},
		{
			Name:        CancelAppointment,
			Description: "Cancel an appointment. Use the appointment_id from get_customer_appointments.",
			Params: []llm.Param{
				{Name: "appointment_id", Type: llm.TypeInteger, Description: "The appointment_id from get_customer_appointments"},
			},
		},
		{
			Name:        GetCustomerAppointments,
			Description: "List the customer's upcoming appointments. Call this before modify or cancel.",
		},
	}
}
