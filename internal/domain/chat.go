package domain

import (
	"time"

	"github.com/ascendhq/ascend/internal/action"
)

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleSystem    ChatRole = "system"
)

// ChatMessage is one turn of a session transcript. Assistant turns carry the
// actions they proposed, so a restored transcript keeps what was executed;
// IsError marks fallback replies produced when a model call failed.
type ChatMessage struct {
	ID        string               `json:"id"`
	Role      ChatRole             `json:"role"`
	Content   string               `json:"content"`
	CreatedAt time.Time            `json:"created_at"`
	Actions   []*action.ChatAction `json:"actions,omitempty"`
	IsError   bool                 `json:"is_error,omitempty"`
}
