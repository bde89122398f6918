// Package payload navigates raw webhook update payloads. Upstream field
// placement varies between update kinds (message, data, inline_message), so
// every accessor tolerates missing or differently shaped fields.
package payload

import "strconv"

// Update is a raw webhook payload as decoded from JSON.
type Update = map[string]any

// ExtractMessage returns the embedded message object, trying message, data
// and inline_message in that order.
func ExtractMessage(update Update) map[string]any {
	for _, key := range []string{"message", "data", "inline_message"} {
		if m, ok := update[key].(map[string]any); ok && len(m) > 0 {
			return m
		}
	}
	return nil
}

// ChatID returns the chat identifier from message.chat.id or message.chat_id.
func ChatID(message map[string]any) string {
	if message == nil {
		return ""
	}
	if chat, ok := message["chat"].(map[string]any); ok {
		if id := Str(chat, "id"); id != "" {
			return id
		}
	}
	return Str(message, "chat_id")
}

// MessageID returns message.message_id or message.id.
func MessageID(message map[string]any) string {
	if message == nil {
		return ""
	}
	if id := Str(message, "message_id"); id != "" {
		return id
	}
	return Str(message, "id")
}

// SenderID returns message.sender.id or message.sender_id.
func SenderID(message map[string]any) string {
	if message == nil {
		return ""
	}
	if sender, ok := message["sender"].(map[string]any); ok {
		if id := Str(sender, "id"); id != "" {
			return id
		}
	}
	return Str(message, "sender_id")
}

// Text returns message.text or message.body.
func Text(message map[string]any) string {
	if message == nil {
		return ""
	}
	if t := Str(message, "text"); t != "" {
		return t
	}
	return Str(message, "body")
}

// ChatType returns message.chat.type.
func ChatType(message map[string]any) string {
	if message == nil {
		return ""
	}
	if chat, ok := message["chat"].(map[string]any); ok {
		return Str(chat, "type")
	}
	return ""
}

// Str reads m[key] as a string. The platform sends string identifiers, but
// numeric ids observed in the wild are coerced rather than dropped.
func Str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
