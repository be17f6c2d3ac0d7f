package tools

import (
	"encoding/json"

	apperrors "concierge/pkg/errors"
)

const (
	CodeUnknownFunction  = "UNKNOWN_FUNCTION"
	CodeInvalidArguments = "INVALID_ARGUMENTS"
	CodeInternalError    = apperrors.CodeInternal
)

// Result is what the model sees for one tool call.
type Result struct {
	Success  bool              `json:"success"`
	Error    string            `json:"error,omitempty"`
	Messages map[string]string `json:"messages,omitempty"`
	Details  map[string]any    `json:"details,omitempty"`
	Data     any               `json:"data,omitempty"`
}

func (r Result) JSON() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		fallback, _ := json.Marshal(internalResult())
		return fallback
	}
	return data
}

func ok(data any, messages map[string]string) Result {
	return Result{Success: true, Data: data, Messages: messages}
}

func failure(code string, messages map[string]string, details map[string]any) Result {
	return Result{Success: false, Error: code, Messages: messages, Details: details}
}

func fromAppError(appErr *apperrors.AppError) Result {
	return failure(appErr.Code, appErr.Messages, appErr.Details)
}

func unknownFunctionResult(name string) Result {
	return failure(CodeUnknownFunction, bilingual(
		"Unknown function "+name+".",
		"Funzione sconosciuta "+name+".",
	), map[string]any{"function_name": name})
}

func invalidArgumentsResult(argErr *ArgumentError) Result {
	return failure(CodeInvalidArguments, bilingual(
		"The request is missing or has invalid details.",
		"La richiesta contiene dati mancanti o non validi.",
	), map[string]any{"fields": argErr.Fields})
}

func internalResult() Result {
	return failure(CodeInternalError, bilingual(
		"A technical problem occurred. Please try again shortly.",
		"Si è verificato un problema tecnico. Riprova tra poco.",
	), nil)
}

func bilingual(en, it string) map[string]string {
	return map[string]string{apperrors.LangEN: en, apperrors.LangIT: it}
}
