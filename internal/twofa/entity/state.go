package entity

// State is the position of a user in the OTP workflow.
type State int

const (
	StateNoOTP State = iota
	StateOTPGenerated
	StateOTPVerified
)

func (s State) String() string {
	switch s {
	case StateOTPGenerated:
		return "otp_generated"
	case StateOTPVerified:
		return "otp_verified"
	default:
		return "no_otp"
	}
}
