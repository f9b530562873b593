// Package requests holds HTTP request bodies and their validation rules.
package requests

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/provider"
)

// CreateConversationRequest creates an empty conversation bound to a provider and model.
type CreateConversationRequest struct {
	Title    string `json:"title" validate:"max=256"`
	Provider string `json:"provider" validate:"required,provider_key"`
	Model    string `json:"model" validate:"required,max=128"`
}

// RenameConversationRequest sets a user chosen title.
type RenameConversationRequest struct {
	Title string `json:"title" validate:"required,max=256"`
}

// Message is one chat turn sent by the client.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest runs a chat turn. Messages carries the full history ending with the new user
// message. Without ConversationID nothing is persisted.
type ChatRequest struct {
	ConversationID string    `json:"conversation_id,omitempty"`
	Provider       string    `json:"provider" validate:"required,provider_key"`
	Model          string    `json:"model" validate:"required,max=128"`
	Messages       []Message `json:"messages" validate:"required,min=1,dive"`
	UserMessageID  string    `json:"user_message_id,omitempty"`
}

// TitleRequest generates a title. When ConversationID is set the result is stored. A non-empty
// Title is stored as given instead of being synthesized from Messages.
type TitleRequest struct {
	ConversationID string    `json:"conversation_id,omitempty"`
	Messages       []Message `json:"messages,omitempty" validate:"omitempty,min=1,dive"`
	Title          string    `json:"title,omitempty" validate:"omitempty,max=256"`
}

// Validator checks request bodies against struct tags plus the provider catalog.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the provider_key rule, which accepts only providers in catalog.
func NewValidator(catalog *provider.Catalog) (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.RegisterValidation("provider_key", func(fl validator.FieldLevel) bool {
		_, ok := catalog.Lookup(fl.Field().String())
		return ok
	})
	if err != nil {
		return nil, fmt.Errorf("register provider_key validation: %w", err)
	}
	return &Validator{validate: validate}, nil
}

// Struct validates req and returns a readable message naming the first failing field.
func (v *Validator) Struct(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "provider_key":
		return fmt.Errorf("invalid provider %q", fe.Value())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", field, fe.Param())
	case "max":
		return fmt.Errorf("%s exceeds maximum length of %s", field, fe.Param())
	case "min":
		return fmt.Errorf("%s must contain at least %s item", field, fe.Param())
	default:
		return fmt.Errorf("%s is invalid", field)
	}
}

// ToDomainMessages converts client messages into conversation messages.
func ToDomainMessages(messages []Message) []conversation.Message {
	out := make([]conversation.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, conversation.Message{Role: conversation.Role(m.Role), Content: m.Content})
	}
	return out
}
