package idgen

import (
	"strconv"
	"strings"
	"testing"
)

func TestGenerateSecureID(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		length     int
		wantErr    bool
		wantPrefix string
	}{
		{
			name:       "generate conversation ID",
			prefix:     ConversationPrefix,
			length:     16,
			wantPrefix: "conv_",
		},
		{
			name:       "generate message ID",
			prefix:     MessagePrefix,
			length:     16,
			wantPrefix: "msg_",
		},
		{
			name:       "generate short ID",
			prefix:     "test",
			length:     8,
			wantPrefix: "test_",
		},
		{
			name:    "zero length",
			prefix:  "test",
			length:  0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateSecureID(tt.prefix, tt.length)
			if (err != nil) != tt.wantErr {
				t.Errorf("GenerateSecureID() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("GenerateSecureID() = %v, want prefix %v", got, tt.wantPrefix)
			}
			expectedLen := len(tt.prefix) + 1 + tt.length
			if len(got) != expectedLen {
				t.Errorf("GenerateSecureID() length = %v, want %v", len(got), expectedLen)
			}
			suffix := got[len(tt.prefix)+1:]
			for _, char := range suffix {
				if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9')) {
					t.Errorf("GenerateSecureID() contains invalid character: %c", char)
				}
			}
		})
	}
}

func TestGenerateSecureID_Uniqueness(t *testing.T) {
	const iterations = 10000
	seen := make(map[string]bool)

	for i := 0; i < iterations; i++ {
		id, err := NewMessageID()
		if err != nil {
			t.Fatalf("NewMessageID() error = %v", err)
		}
		if seen[id] {
			t.Errorf("NewMessageID() generated duplicate ID: %v", id)
		}
		seen[id] = true
	}
}

func TestValidateIDFormat(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		expectedPrefix string
		want           bool
	}{
		{"valid conversation ID", "conv_a3f8d2k9p1m4n7q2", "conv", true},
		{"valid message ID", "msg_x7y2z5w8r3t6u9v1", "msg", true},
		{"wrong prefix", "conv_a3f8d2k9p1m4n7q2", "msg", false},
		{"missing underscore", "conva3f8d2k9p1m4n7q2", "conv", false},
		{"empty suffix", "conv_", "conv", false},
		{"uppercase", "conv_A3F8D2K9P1M4N7Q2", "conv", false},
		{"special chars", "conv_a3f8-d2k9-p1m4", "conv", false},
		{"underscore in suffix", "conv_a3f8_d2k9", "conv", false},
		{"empty ID", "", "conv", false},
		{"only prefix", "conv", "conv", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateIDFormat(tt.id, tt.expectedPrefix); got != tt.want {
				t.Errorf("ValidateIDFormat(%q, %q) = %v, want %v", tt.id, tt.expectedPrefix, got, tt.want)
			}
		})
	}
}

func TestValidateIDFormat_GeneratedIDs(t *testing.T) {
	for _, prefix := range []string{ConversationPrefix, MessagePrefix} {
		for _, length := range []int{8, 16, 32} {
			t.Run(prefix+"_"+strconv.Itoa(length), func(t *testing.T) {
				id, err := GenerateSecureID(prefix, length)
				if err != nil {
					t.Fatalf("GenerateSecureID() error = %v", err)
				}
				if !ValidateIDFormat(id, prefix) {
					t.Errorf("Generated ID %q failed validation with prefix %q", id, prefix)
				}
			})
		}
	}
}

func BenchmarkGenerateSecureID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := NewConversationID(); err != nil {
			b.Fatal(err)
		}
	}
}
