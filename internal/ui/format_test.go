package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSuggestion(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{
			name:     "auth failure",
			message:  "[CETL1003] ERROR: Authentication failed",
			expected: "Check your username and password in the configuration",
		},
		{
			name:     "permission",
			message:  "access denied for role ETL_ROLE",
			expected: "Ensure your role has the necessary privileges on the ETL database",
		},
		{
			name:     "missing object",
			message:  "SQL compilation error: Object does not exist",
			expected: "Verify the RAW and CURATED schemas exist in the target database",
		},
		{
			name:     "unknown message has no tip",
			message:  "something else entirely",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, getSuggestion(tt.message))
		})
	}
}

func TestColorFuncPassthroughWithoutTerminal(t *testing.T) {
	// Tests never run on a TTY stdout, so color must be a no-op.
	if supportsColor {
		t.Skip("stdout is a terminal")
	}
	assert.Equal(t, "plain", ColorError("plain"))
	assert.Equal(t, "plain", ColorBold("plain"))
}
