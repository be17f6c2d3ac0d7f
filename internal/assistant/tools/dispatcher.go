package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"concierge/internal/appointments/service"
	"concierge/internal/assistant/llm"
	"concierge/internal/tenant"
	apperrors "concierge/pkg/errors"
	"concierge/pkg/logger"
	"concierge/pkg/model"
	"concierge/pkg/sanitizer"
)

type handlerFunc func(ctx context.Context, phone string, raw json.RawMessage) (Result, error)

// Dispatcher is the fixed table from tool name to booking operation. The
// caller phone always comes from the transport, never from the arguments.
type Dispatcher struct {
	svc      service.AppointmentService
	tenant   *tenant.Tenant
	args     *argsDecoder
	log      *logger.Logger
	specs    []llm.ToolSpec
	handlers map[string]handlerFunc
}

func NewDispatcher(svc service.AppointmentService, t *tenant.Tenant, log *logger.Logger) *Dispatcher {
	d := &Dispatcher{
		svc:    svc,
		tenant: t,
		args:   newArgsDecoder(),
		log:    log,
		specs:  Specs(t),
	}
	d.handlers = map[string]handlerFunc{
		CheckAvailability:       d.checkAvailability,
		GetAvailableSlots:       d.availableSlots,
		CreateAppointment:       d.createAppointment,
		ModifyAppointment:       d.modifyAppointment,
		CancelAppointment:       d.cancelAppointment,
		GetCustomerAppointments: d.customerAppointments,
	}
	return d
}

func (d *Dispatcher) Specs() []llm.ToolSpec {
	return d.specs
}

// Dispatch runs one tool call and always returns a Result.
func (d *Dispatcher) Dispatch(ctx context.Context, phone string, call llm.ToolCall) (result Result) {
	start := time.Now()
	log := d.log.With("tool", call.Name, "call_id", call.ID, "phone", sanitizer.MaskPhone(phone))

	defer func() {
		if r := recover(); r != nil {
			log.Error("tool handler panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			result = internalResult()
		}
		log.Info("tool dispatched",
			"success", result.Success,
			"code", result.Error,
			"duration", time.Since(start),
		)
	}()

	handler, found := d.handlers[call.Name]
	if !found {
		return unknownFunctionResult(call.Name)
	}

	res, err := handler(ctx, phone, call.Arguments)
	if err == nil {
		return res
	}

	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		return invalidArgumentsResult(argErr)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Kind != apperrors.KindInternal {
		return fromAppError(appErr)
	}

	log.Error("tool failed", "error", err)
	return internalResult()
}

func (d *Dispatcher) checkAvailability(ctx context.Context, _ string, raw json.RawMessage) (Result, error) {
	var args CheckAvailabilityArgs
	if err := d.args.decode(raw, &args); err != nil {
		return Result{}, err
	}

	availability, err := d.svc.CheckAvailability(ctx, args.Date, args.Time)
	if err != nil {
		return Result{}, err
	}
	return ok(availability, availability.Messages), nil
}

func (d *Dispatcher) availableSlots(ctx context.Context, _ string, raw json.RawMessage) (Result, error) {
	var args AvailableSlotsArgs
	if err := d.args.decode(raw, &args); err != nil {
		return Result{}, err
	}

	slots, err := d.svc.AvailableSlots(ctx, args.Date)
	if err != nil {
		return Result{}, err
	}
	return ok(slots, slots.Messages), nil
}

func (d *Dispatcher) createAppointment(ctx context.Context, phone string, raw json.RawMessage) (Result, error) {
	var args CreateAppointmentArgs
	if err := d.args.decode(raw, &args); err != nil {
		return Result{}, err
	}

	appt, err := d.svc.Create(ctx, phone, args.CustomerName, args.ServiceType, args.Date, args.Time)
	if err != nil {
		return Result{}, err
	}
	return ok(d.view(appt), bilingual(
		fmt.Sprintf("Appointment #%d confirmed for %s at %s.", appt.ID, appt.Date, appt.Time),
		fmt.Sprintf("Appuntamento #%d confermato per il %s alle %s.", appt.ID, appt.Date, appt.Time),
	)), nil
}

func (d *Dispatcher) modifyAppointment(ctx context.Context, phone string, raw json.RawMessage) (Result, error) {
	var args ModifyAppointmentArgs
	if err := d.args.decode(raw, &args); err != nil {
		return Result{}, err
	}

	res, err := d.svc.Modify(ctx, phone, args.AppointmentID, service.ModifyRequest{
		Date:    deref(args.NewDate),
		Time:    deref(args.NewTime),
		Service: deref(args.NewService),
	})
	if err != nil {
		return Result{}, err
	}

	data := map[string]any{
		"appointment": d.view(res.Appointment),
		"changes":     res.Changes,
	}
	if len(res.Changes) == 0 {
		return ok(data, bilingual(
			fmt.Sprintf("Appointment #%d is unchanged.", res.Appointment.ID),
			fmt.Sprintf("L'appuntamento #%d non è cambiato.", res.Appointment.ID),
		)), nil
	}
	return ok(data, bilingual(
		fmt.Sprintf("Appointment #%d updated: %s at %s.", res.Appointment.ID, res.Appointment.Date, res.Appointment.Time),
		fmt.Sprintf("Appuntamento #%d aggiornato: %s alle %s.", res.Appointment.ID, res.Appointment.Date, res.Appointment.Time),
	)), nil
}

func (d *Dispatcher) cancelAppointment(ctx context.Context, phone string, raw json.RawMessage) (Result, error) {
	var args CancelAppointmentArgs
	if err := d.args.decode(raw, &args); err != nil {
		return Result{}, err
	}

	appt, err := d.svc.Cancel(ctx, phone, args.AppointmentID)
	if err != nil {
		return Result{}, err
	}
	return ok(map[string]any{"cancelled_appointment_id": appt.ID}, bilingual(
		fmt.Sprintf("Appointment #%d has been cancelled.", appt.ID),
		fmt.Sprintf("L'appuntamento #%d è stato cancellato.", appt.ID),
	)), nil
}

func (d *Dispatcher) customerAppointments(ctx context.Context, phone string, raw json.RawMessage) (Result, error) {
	var args CustomerAppointmentsArgs
	if err := d.args.decode(raw, &args); err != nil {
		return Result{}, err
	}

	appts, err := d.svc.ListActive(ctx, phone)
	if err != nil {
		return Result{}, err
	}

	views := make([]AppointmentView, 0, len(appts))
	for _, appt := range appts {
		views = append(views, d.view(appt))
	}
	return ok(map[string]any{
		"your_phone":   sanitizer.MaskPhone(sanitizer.NormalizePhone(phone)),
		"appointments": views,
		"count":        len(views),
	}, nil), nil
}

// AppointmentView is the appointment as shown to the model.
type AppointmentView struct {
	AppointmentID   int64   `json:"appointment_id"`
	CustomerName    string  `json:"customer_name"`
	ServiceCode     string  `json:"service_code"`
	ServiceIT       string  `json:"service_it"`
	ServiceEN       string  `json:"service_en"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	PriceLabel      string  `json:"price_label"`
}

func (d *Dispatcher) view(appt *model.Appointment) AppointmentView {
	return AppointmentView{
		AppointmentID:   appt.ID,
		CustomerName:    appt.CustomerName,
		ServiceCode:     appt.ServiceCode,
		ServiceIT:       d.tenant.ServiceName(appt.ServiceCode, tenant.LangIT),
		ServiceEN:       d.tenant.ServiceName(appt.ServiceCode, tenant.LangEN),
		Date:            appt.Date,
		Time:            appt.Time,
		DurationMinutes: appt.DurationMinutes,
		Price:           appt.Price,
		PriceLabel:      d.tenant.PriceLabel(appt.Price),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
