package service

import (
	"fmt"
	"strings"

	apperrors "concierge/pkg/errors"
)

func bilingual(en, it string) map[string]string {
	return map[string]string{
		apperrors.LangEN: en,
		apperrors.LangIT: it,
	}
}

func invalidPhoneMessages() map[string]string {
	return bilingual(
		"A valid phone number is required.",
		"È necessario un numero di telefono valido.",
	)
}

func nameRequiredMessages() map[string]string {
	return bilingual(
		"Please tell me the name for the booking.",
		"Per favore dimmi il nome per la prenotazione.",
	)
}

func invalidServiceMessages(provided string, valid []string) map[string]string {
	list := strings.Join(valid, ", ")
	return bilingual(
		fmt.Sprintf("Unknown service %q. Available services: %s.", provided, list),
		fmt.Sprintf("Servizio %q non disponibile. Servizi disponibili: %s.", provided, list),
	)
}

func pastDateMessages() map[string]string {
	return bilingual(
		"That date and time are in the past. Please choose a future slot.",
		"Data e orario sono nel passato. Scegli un orario futuro.",
	)
}

func slotAlreadyBookedMessages(date, clock string) map[string]string {
	return bilingual(
		fmt.Sprintf("The slot on %s at %s is already booked.", date, clock),
		fmt.Sprintf("L'orario del %s alle %s è già occupato.", date, clock),
	)
}

func slotJustBookedMessages(date, clock string) map[string]string {
	return bilingual(
		fmt.Sprintf("The slot on %s at %s was just taken by another customer.", date, clock),
		fmt.Sprintf("L'orario del %s alle %s è appena stato prenotato da un altro cliente.", date, clock),
	)
}

func notFoundMessages(id int64) map[string]string {
	return bilingual(
		fmt.Sprintf("No active appointment #%d was found for your number.", id),
		fmt.Sprintf("Nessun appuntamento attivo #%d trovato per il tuo numero.", id),
	)
}
