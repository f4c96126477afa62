// Package twofa wires the TOTP second-factor module: user registration and
// login, secret issuance, enrollment confirmation, login-time validation and
// removal.
package twofa

import (
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/qrcode"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/twofa/inbound"
	"github.com/shandysiswandi/otpgate/internal/twofa/outbound/mq"
	"github.com/shandysiswandi/otpgate/internal/twofa/outbound/repository"
	"github.com/shandysiswandi/otpgate/internal/twofa/usecase"
)

type Dependency struct {
	Repository *repository.Locked         `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Bcrypt     hash.Hash                  `validate:"required"`
	Secrets    *otp.SecretGenerator       `validate:"required"`
	Totp       *otp.Engine                `validate:"required"`
	QRCode     qrcode.Renderer            `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoUser:      dep.Repository,
		RepoMessaging: repoMsg,
		Validator:     dep.Validator,
		Bcrypt:        dep.Bcrypt,
		UUID:          dep.UUID,
		Secrets:       dep.Secrets,
		Totp:          dep.Totp,
		QRCode:        dep.QRCode,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
		Issuer:        dep.Config.GetString("otp.issuer"),
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
