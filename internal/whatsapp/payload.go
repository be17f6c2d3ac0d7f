package whatsapp

import "strings"

const (
	ObjectBusinessAccount = "whatsapp_business_account"

	TypeText        = "text"
	TypeInteractive = "interactive"
)

// WebhookPayload is the Cloud API notification envelope. Only the fields the
// assistant reads are mapped.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type Message struct {
	ID          string       `json:"id"`
	From        string       `json:"from"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *Text        `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

type Text struct {
	Body string `json:"body"`
}

type Interactive struct {
	Type        string `json:"type"`
	ButtonReply *Reply `json:"button_reply,omitempty"`
	ListReply   *Reply `json:"list_reply,omitempty"`
}

type Reply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Inbound is one customer message ready for the assistant. Supported is
// false for media and other types the assistant cannot read.
type Inbound struct {
	ID        string
	From      string
	Text      string
	Supported bool
}

// Inbound flattens entry, changes and messages in payload order.
func (p *WebhookPayload) Inbound() []Inbound {
	var out []Inbound
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.ID == "" || msg.From == "" {
					continue
				}
				text, ok := msg.body()
				out = append(out, Inbound{
					ID:        msg.ID,
					From:      msg.From,
					Text:      text,
					Supported: ok,
				})
			}
		}
	}
	return out
}

func (m *Message) body() (string, bool) {
	switch m.Type {
	case TypeText:
		if m.Text == nil {
			return "", false
		}
		text := strings.TrimSpace(m.Text.Body)
		return text, text != ""
	case TypeInteractive:
		if m.Interactive == nil {
			return "", false
		}
		if r := m.Interactive.ButtonReply; r != nil && r.Title != "" {
			return r.Title, true
		}
		if r := m.Interactive.ListReply; r != nil && r.Title != "" {
			return r.Title, true
		}
	}
	return "", false
}
