package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const (
	ConversationPrefix = "conv"
	MessagePrefix      = "msg"

	defaultLength = 16
)

// GenerateSecureID returns prefix_ followed by length characters drawn from [0-9a-z] with crypto/rand.
func GenerateSecureID(prefix string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid id length %d", length)
	}

	max := big.NewInt(int64(len(alphabet)))
	var sb strings.Builder
	sb.Grow(len(prefix) + 1 + length)
	sb.WriteString(prefix)
	sb.WriteByte('_')
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NewConversationID generates a public conversation id.
func NewConversationID() (string, error) {
	return GenerateSecureID(ConversationPrefix, defaultLength)
}

// NewMessageID generates a public message id.
func NewMessageID() (string, error) {
	return GenerateSecureID(MessagePrefix, defaultLength)
}

// ValidateIDFormat checks that id is expectedPrefix_ followed by one or more [0-9a-z] characters.
func ValidateIDFormat(id, expectedPrefix string) bool {
	head := expectedPrefix + "_"
	if !strings.HasPrefix(id, head) {
		return false
	}
	suffix := id[len(head):]
	if suffix == "" {
		return false
	}
	for _, r := range suffix {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
