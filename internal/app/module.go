package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/otpgate/internal/twofa"
)

func (a *App) initModules() {
	if err := twofa.New(twofa.Dependency{
		Repository: a.repository,
		Goroutine:  a.goroutine,
		Router:     a.router,
		Messaging:  a.messaging,
		Config:     a.config,
		Instrument: a.ins,
		UUID:       a.uuid,
		Bcrypt:     a.bcrypt,
		Secrets:    a.secrets,
		Totp:       a.totp,
		QRCode:     a.qrcode,
		Clock:      a.clock,
		Validator:  a.validator,
	}); err != nil {
		slog.Error("failed to init module twofa", "error", err)
		os.Exit(1)
	}
}
