package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// SecretSize is the number of random bytes behind every secret (160 bits),
// which encodes to 32 base32 characters.
const SecretSize = 20

// ErrEntropySourceUnavailable is returned when the random source cannot be read.
var ErrEntropySourceUnavailable = errors.New("otp: entropy source unavailable")

// totp.Generate insists on both labels. Only the secret of the returned key
// is used; provisioning URIs come from Engine.ProvisioningURI.
const (
	keyIssuer  = "otpgate"
	keyAccount = "secret"
)

// SecretGenerator produces base32 shared secrets from a secure random source.
type SecretGenerator struct {
	rand io.Reader
}

// NewSecretGenerator returns a generator reading from crypto/rand.
func NewSecretGenerator() *SecretGenerator {
	return &SecretGenerator{rand: rand.Reader}
}

// NewSecretGeneratorFrom returns a generator reading from r.
func NewSecretGeneratorFrom(r io.Reader) *SecretGenerator {
	return &SecretGenerator{rand: r}
}

// Generate returns a fresh secret of SecretSize bytes encoded as unpadded base32.
func (g *SecretGenerator) Generate() (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      keyIssuer,
		AccountName: keyAccount,
		Period:      Period,
		SecretSize:  SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		Rand:        fullReader{g.rand},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEntropySourceUnavailable, err)
	}

	return key.Secret(), nil
}

// fullReader turns a short read into an error; totp.Generate reads once.
type fullReader struct{ r io.Reader }

func (f fullReader) Read(p []byte) (int, error) {
	return io.ReadFull(f.r, p)
}
