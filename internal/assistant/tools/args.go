package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Date and time formats are checked by the booking validator, which owns
// their reason codes.

type CheckAvailabilityArgs struct {
	Date string `json:"date" validate:"required"`
	Time string `json:"time" validate:"required"`
}

type AvailableSlotsArgs struct {
	Date string `json:"date" validate:"required"`
}

type CreateAppointmentArgs struct {
	CustomerName string `json:"customer_name" validate:"required,max=100"`
	ServiceType  string `json:"service_type" validate:"required"`
	Date         string `json:"date" validate:"required"`
	Time         string `json:"time" validate:"required"`
}

type ModifyAppointmentArgs struct {
	AppointmentID int64   `json:"appointment_id" validate:"required,gt=0"`
	NewDate       *string `json:"new_date"`
	NewTime       *string `json:"new_time"`
	NewService    *string `json:"new_service"`
}

type CancelAppointmentArgs struct {
	AppointmentID int64 `json:"appointment_id" validate:"required,gt=0"`
}

type CustomerAppointmentsArgs struct{}

// ArgumentError lists per-field problems with model-supplied arguments.
type ArgumentError struct {
	Fields map[string]string
}

func (e *ArgumentError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return fmt.Sprintf("invalid arguments: [%s]", strings.Join(parts, "; "))
}

type argsDecoder struct {
	validate *validator.Validate
}

func newArgsDecoder() *argsDecoder {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &argsDecoder{validate: v}
}

// decode parses raw into dst, rejecting unknown fields and trailing data,
// then validates the struct tags.
func (d *argsDecoder) decode(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ArgumentError{Fields: map[string]string{decodeField(err): decodeMessage(err)}}
	}
	if _, err := dec.Token(); err != io.EOF {
		return &ArgumentError{Fields: map[string]string{"arguments": "arguments must be a single JSON object"}}
	}

	if err := d.validate.Struct(dst); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) *ArgumentError {
	fields := make(map[string]string, len(errs))
	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		}

		fields[err.Field()] = message
	}
	return &ArgumentError{Fields: fields}
}

func decodeField(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr.Field
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "json: unknown field ") {
		return strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`)
	}
	return "arguments"
}

func decodeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("must be of type %s", typeErr.Type.String())
	}
	if strings.HasPrefix(err.Error(), "json: unknown field ") {
		return "unknown field"
	}
	return "arguments must be a JSON object"
}
