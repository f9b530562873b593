package conversation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"jan-server/services/chat-api/internal/utils/idgen"
)

// ValidationConfig holds conversation validation limits.
type ValidationConfig struct {
	MaxTitleLength   int
	MaxMessageLength int
}

func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxTitleLength:   256,
		MaxMessageLength: 100000,
	}
}

type Validator struct {
	config *ValidationConfig
}

func NewValidator(config *ValidationConfig) *Validator {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &Validator{config: config}
}

func (v *Validator) ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if utf8.RuneCountInString(title) > v.config.MaxTitleLength {
		return fmt.Errorf("title exceeds maximum length of %d characters", v.config.MaxTitleLength)
	}
	return nil
}

func (v *Validator) ValidateConversationID(id string) error {
	if !idgen.ValidateIDFormat(id, idgen.ConversationPrefix) {
		return fmt.Errorf("invalid conversation ID format: %q", id)
	}
	return nil
}

func (v *Validator) ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}
	if !msg.Role.Valid() {
		return fmt.Errorf("invalid role %q", msg.Role)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return fmt.Errorf("message content cannot be empty")
	}
	if utf8.RuneCountInString(msg.Content) > v.config.MaxMessageLength {
		return fmt.Errorf("message exceeds maximum length of %d characters", v.config.MaxMessageLength)
	}
	if msg.ID != "" && !idgen.ValidateIDFormat(msg.ID, idgen.MessagePrefix) {
		return fmt.Errorf("invalid message ID format: %q", msg.ID)
	}
	return nil
}
