package payload

import "testing"

func TestExtractMessage_Precedence(t *testing.T) {
	tests := []struct {
		name   string
		update Update
		want   string // message_id of the extracted message, "" = nil
	}{
		{
			name:   "message wins over data",
			update: Update{"message": map[string]any{"message_id": "m1"}, "data": map[string]any{"message_id": "m2"}},
			want:   "m1",
		},
		{
			name:   "data when no message",
			update: Update{"data": map[string]any{"message_id": "m2"}},
			want:   "m2",
		},
		{
			name:   "inline_message last",
			update: Update{"inline_message": map[string]any{"message_id": "m3"}},
			want:   "m3",
		},
		{
			name:   "none present",
			update: Update{"type": "NewMessage"},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ExtractMessage(tt.update)
			if got := MessageID(m); got != tt.want {
				t.Errorf("MessageID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFieldFallbacks(t *testing.T) {
	m := map[string]any{
		"id":        "m9",
		"chat_id":   "c9",
		"sender_id": "u9",
		"body":      "hello",
	}
	if got := MessageID(m); got != "m9" {
		t.Errorf("MessageID fallback = %q, want m9", got)
	}
	if got := ChatID(m); got != "c9" {
		t.Errorf("ChatID fallback = %q, want c9", got)
	}
	if got := SenderID(m); got != "u9" {
		t.Errorf("SenderID fallback = %q, want u9", got)
	}
	if got := Text(m); got != "hello" {
		t.Errorf("Text fallback = %q, want hello", got)
	}
}

func TestNestedFields(t *testing.T) {
	m := map[string]any{
		"chat":   map[string]any{"id": "c1", "type": "Group"},
		"sender": map[string]any{"id": "u1"},
		"text":   "hi",
	}
	if ChatID(m) != "c1" || SenderID(m) != "u1" || Text(m) != "hi" || ChatType(m) != "Group" {
		t.Errorf("nested extraction failed: %q %q %q %q", ChatID(m), SenderID(m), Text(m), ChatType(m))
	}
}

func TestStr_NumericCoercion(t *testing.T) {
	m := map[string]any{"id": float64(42)}
	if got := Str(m, "id"); got != "42" {
		t.Errorf("Str numeric = %q, want 42", got)
	}
}

func TestNilMessage(t *testing.T) {
	if ChatID(nil) != "" || MessageID(nil) != "" || SenderID(nil) != "" || Text(nil) != "" {
		t.Error("nil message accessors must return empty strings")
	}
}
