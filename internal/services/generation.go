package services

import "chatseek_go_backend/internal/models"

// ChatMessage is one role-tagged entry sent to the inference engine.
type ChatMessage struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

type GenerationRequest struct {
	Model           string
	SystemDirective string
	Context         []ChatMessage
	Prompt          string
}

// Messages orders the upstream conversation: system directive, history,
// then the active prompt.
func (r GenerationRequest) Messages() []ChatMessage {
	messages := make([]ChatMessage, 0, len(r.Context)+2)
	if r.SystemDirective != "" {
		messages = append(messages, ChatMessage{Role: models.RoleSystem, Content: r.SystemDirective})
	}
	messages = append(messages, r.Context...)
	messages = append(messages, ChatMessage{Role: models.RoleUser, Content: r.Prompt})
	return messages
}

// Fragment is one incremental piece of generated text.
type Fragment struct {
	Text string
	Done bool
	Err  error
}

type ModelInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Size  int64  `json:"size"`
}
