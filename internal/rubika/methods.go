package rubika

import "context"

// API is the surface plugins and the app depend on. *Client satisfies it;
// tests substitute fakes.
type API interface {
	Call(ctx context.Context, method string, payload map[string]any) Result
	SendMessage(ctx context.Context, chatID, text string) Result
	SendMessageWithKeypad(ctx context.Context, chatID, text string, inlineKeypad map[string]any) Result
	EditMessageText(ctx context.Context, chatID, messageID, text string) Result
	EditInlineKeypad(ctx context.Context, chatID, messageID string, inlineKeypad map[string]any) Result
	DeleteMessage(ctx context.Context, chatID, messageID string) Result
	BanChatMember(ctx context.Context, chatID, userID string) Result
	UnbanChatMember(ctx context.Context, chatID, userID string) Result
	SetCommands(ctx context.Context, commands []BotCommand) Result
}

// GetMe returns the bot identity.
func (c *Client) GetMe(ctx context.Context) Result {
	return c.Call(ctx, "getMe", nil)
}

// SendMessage sends plain text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) Result {
	return c.Call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
}

// SendMessageWithKeypad sends text with an inline keypad attached.
func (c *Client) SendMessageWithKeypad(ctx context.Context, chatID, text string, inlineKeypad map[string]any) Result {
	return c.Call(ctx, "sendMessage", map[string]any{
		"chat_id":       chatID,
		"text":          text,
		"inline_keypad": inlineKeypad,
	})
}

// SendChatKeypad sends text and replaces the chat's bottom keypad.
func (c *Client) SendChatKeypad(ctx context.Context, chatID, text string, keypad map[string]any) Result {
	return c.Call(ctx, "sendMessage", map[string]any{
		"chat_id":          chatID,
		"text":             text,
		"chat_keypad":      keypad,
		"chat_keypad_type": "New",
	})
}

// SendPoll sends a poll with the given options.
func (c *Client) SendPoll(ctx context.Context, chatID, question string, options []string) Result {
	return c.Call(ctx, "sendPoll", map[string]any{
		"chat_id":  chatID,
		"question": question,
		"options":  options,
	})
}

// SendLocation sends a map pin.
func (c *Client) SendLocation(ctx context.Context, chatID, latitude, longitude string) Result {
	return c.Call(ctx, "sendLocation", map[string]any{
		"chat_id":   chatID,
		"latitude":  latitude,
		"longitude": longitude,
	})
}

// SendContact sends a contact card.
func (c *Client) SendContact(ctx context.Context, chatID, firstName, lastName, phoneNumber string) Result {
	return c.Call(ctx, "sendContact", map[string]any{
		"chat_id":      chatID,
		"first_name":   firstName,
		"last_name":    lastName,
		"phone_number": phoneNumber,
	})
}

// SendFile sends a previously uploaded file by id.
func (c *Client) SendFile(ctx context.Context, chatID, fileID, caption string) Result {
	payload := map[string]any{
		"chat_id": chatID,
		"file_id": fileID,
	}
	if caption != "" {
		payload["text"] = caption
	}
	return c.Call(ctx, "sendFile", payload)
}

// GetChat fetches chat metadata.
func (c *Client) GetChat(ctx context.Context, chatID string) Result {
	return c.Call(ctx, "getChat", map[string]any{"chat_id": chatID})
}

// GetUpdates polls pending updates. Used by doctor checks, not the hot path;
// production delivery is webhook push.
func (c *Client) GetUpdates(ctx context.Context, offsetID string, limit int) Result {
	payload := map[string]any{"limit": limit}
	if offsetID != "" {
		payload["offset_id"] = offsetID
	}
	return c.Call(ctx, "getUpdates", payload)
}

// ForwardMessage forwards a message between chats.
func (c *Client) ForwardMessage(ctx context.Context, fromChatID, messageID, toChatID string) Result {
	return c.Call(ctx, "forwardMessage", map[string]any{
		"from_chat_id": fromChatID,
		"message_id":   messageID,
		"to_chat_id":   toChatID,
	})
}

// EditMessageText edits a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID, text string) Result {
	return c.Call(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	})
}

// EditInlineKeypad replaces the inline keypad on a sent message.
func (c *Client) EditInlineKeypad(ctx context.Context, chatID, messageID string, inlineKeypad map[string]any) Result {
	return c.Call(ctx, "editMessageKeypad", map[string]any{
		"chat_id":       chatID,
		"message_id":    messageID,
		"inline_keypad": inlineKeypad,
	})
}

// EditChatKeypad replaces or removes the chat's bottom keypad.
func (c *Client) EditChatKeypad(ctx context.Context, chatID string, keypad map[string]any) Result {
	payload := map[string]any{"chat_id": chatID}
	if keypad == nil {
		payload["chat_keypad_type"] = "Removed"
	} else {
		payload["chat_keypad_type"] = "New"
		payload["chat_keypad"] = keypad
	}
	return c.Call(ctx, "editChatKeypad", payload)
}

// DeleteMessage removes a message from a chat.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID string) Result {
	return c.Call(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	})
}

// BanChatMember removes a member from a group.
func (c *Client) BanChatMember(ctx context.Context, chatID, userID string) Result {
	return c.Call(ctx, "banChatMember", map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	})
}

// UnbanChatMember lifts a ban.
func (c *Client) UnbanChatMember(ctx context.Context, chatID, userID string) Result {
	return c.Call(ctx, "unbanChatMember", map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	})
}

// BotCommand is one entry of the bot's command menu.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// SetCommands publishes the command menu.
func (c *Client) SetCommands(ctx context.Context, commands []BotCommand) Result {
	list := make([]map[string]any, 0, len(commands))
	for _, cmd := range commands {
		list = append(list, map[string]any{
			"command":     cmd.Command,
			"description": cmd.Description,
		})
	}
	return c.Call(ctx, "setCommands", map[string]any{"bot_commands": list})
}

// UpdateBotEndpoints registers webhook URLs with the platform. endpointType
// is ReceiveUpdate or ReceiveInlineMessage.
func (c *Client) UpdateBotEndpoints(ctx context.Context, url, endpointType string) Result {
	return c.Call(ctx, "updateBotEndpoints", map[string]any{
		"url":  url,
		"type": endpointType,
	})
}
