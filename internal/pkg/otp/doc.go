// Package otp issues and checks time-based one-time passwords (RFC 6238).
//
// The parameters are fixed: SHA-1, 6 digits, a 30 second step and a skew of
// one step on either side, giving a 90 second acceptance band centred on the
// verification time. Secrets are RFC 4648 base32 without padding.
package otp
