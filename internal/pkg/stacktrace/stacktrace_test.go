package stacktrace_test

import (
	"testing"

	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
	"github.com/stretchr/testify/assert"
)

func TestInternalPaths(t *testing.T) {
	t.Parallel()

	stack := []byte(`goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/otpgate/internal/twofa/usecase.(*Usecase).OTPVerify(...)
	/src/otpgate/internal/twofa/usecase/otp_verify.go:42 +0x1a
net/http.HandlerFunc.ServeHTTP(...)
	/usr/local/go/src/net/http/server.go:2220 +0x29
`)

	assert.Equal(t, []string{"internal/twofa/usecase/otp_verify.go:42"}, stacktrace.InternalPaths(stack))
	assert.Empty(t, stacktrace.InternalPaths([]byte("nothing here")))
}
