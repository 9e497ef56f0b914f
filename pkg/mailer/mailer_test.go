package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		expected error
	}{
		{
			name:     "missing host",
			cfg:      Config{From: "a@example.com", Recipients: "b@example.com"},
			expected: ErrHostRequired,
		},
		{
			name:     "missing from",
			cfg:      Config{Host: "smtp.example.com", Recipients: "b@example.com"},
			expected: ErrFromRequired,
		},
		{
			name:     "missing recipients",
			cfg:      Config{Host: "smtp.example.com", From: "a@example.com"},
			expected: ErrRecipientsRequired,
		},
		{
			name:     "recipients of only separators",
			cfg:      Config{Host: "smtp.example.com", From: "a@example.com", Recipients: " , ,"},
			expected: ErrRecipientsRequired,
		},
		{
			name: "valid",
			cfg:  Config{Host: "smtp.example.com", From: "a@example.com", Recipients: "b@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expected)
			}
		})
	}
}

func TestRecipientList(t *testing.T) {
	cfg := Config{Recipients: "a@example.com, b@example.com ,,c@example.com"}
	assert.Equal(t,
		[]string{"a@example.com", "b@example.com", "c@example.com"},
		cfg.RecipientList())
}

func TestNewSMTPSenderValidates(t *testing.T) {
	_, err := NewSMTPSender(&Config{})
	assert.ErrorIs(t, err, ErrHostRequired)
}
