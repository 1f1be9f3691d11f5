package controllers

import (
	"context"
	"net/http"

	"github.com/aliasttt/bonusweb-sub000/api/responses"
	"github.com/aliasttt/bonusweb-sub000/pkg/config"
	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
	"github.com/aliasttt/bonusweb-sub000/pkg/logger"
	"github.com/aliasttt/bonusweb-sub000/pkg/redis"
)

const envHeader = "X-BonusWeb-Env"

type dbPinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness of the database and Redis dependencies.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP dbPinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				checks["database"] = "unavailable"
				healthy = false
			} else {
				checks["database"] = "ok"
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				checks["redis"] = "unavailable"
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
