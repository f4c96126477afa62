package app

import (
	"context"
	"net/http"

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
	"github.com/shandysiswandi/otpgate/internal/twofa/outbound/repository"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	configPath string
	config     config.Config
	ins        instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	bcrypt    hash.Hash
	uuid      uid.StringID
	secrets   *otp.SecretGenerator
	totp      *otp.Engine
	qrcode    qrcode.Renderer

	// resources
	repository *repository.Locked
	messaging  messaging.Publisher

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application from the config file at configPath and
// returns an App instance. An empty path falls back to CONFIG_PATH and then
// ./config/config.yaml.
func New(configPath string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:        ctx,
		cancel:     cancel,
		configPath: configPath,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initRepository()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
