package router

import (
	"net/http"
	"slices"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
)

// middlewareMaintenance answers 503 while app.maintenance.enabled is set,
// or for the routes listed in app.maintenance.endpoints. Both keys are read
// per request so a config file reload takes effect without a restart.
// The health check stays reachable.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg == nil {
				next.ServeHTTP(w, r)
				return
			}

			route := matchedRoutePath(r)
			blocked := cfg.GetBool("app.maintenance.enabled") && route != HealthPath
			if !blocked {
				blocked = slices.Contains(cfg.GetArray("app.maintenance.endpoints"), route)
			}

			if blocked {
				writeJSON(w, ErrorResponse{Status: StatusError, Message: "service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
