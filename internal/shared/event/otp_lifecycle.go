package event

const (
	OTPEnabledDestination  string = "twofa.otp.enabled"
	OTPDisabledDestination string = "twofa.otp.disabled"
)

// OTPLifecycleMessage is published when a user confirms or removes the
// second factor. It never carries the secret.
type OTPLifecycleMessage struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	OccurredAt int64  `json:"occurred_at"`
}
