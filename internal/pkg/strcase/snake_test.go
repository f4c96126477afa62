package strcase_test

import (
	"testing"

	"github.com/shandysiswandi/otpgate/internal/pkg/strcase"
	"github.com/stretchr/testify/assert"
)

func TestToLowerSnake(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":           "",
		"Email":      "email",
		"UserID":     "user_id",
		"HTTPServer": "http_server",
		"Token":      "token",
		"otpBase32":  "otp_base32",
	}

	for in, want := range tests {
		assert.Equal(t, want, strcase.ToLowerSnake(in), in)
	}
}
