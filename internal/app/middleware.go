package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/planit/planit/internal/config"
	"github.com/planit/planit/internal/metrics"
	"github.com/planit/planit/internal/rest"
	"github.com/planit/planit/pkg/user"
	log "github.com/sirupsen/logrus"
)

const (
	UserIdHeader       = "X-User-Id"
	UserTimezoneHeader = "X-User-Timezone"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) {
	if cfg.Metrics.Enabled {
		r.Use(metrics.Middleware)
	}
	r.Use(requestLogger)
	r.Use(identity(deps.UserService, cfg.Auth))
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, req)
		log.WithFields(log.Fields{
			"method":   req.Method,
			"path":     req.URL.Path,
			"duration": time.Since(start),
		}).Debug("Handled request")
	})
}

// identity propagates the X-User-Id header set by the fronting auth service into
// the request context as the resolved user.
func identity(userService user.Service, cfg config.Auth) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			uid := req.Header.Get(UserIdHeader)
			ctx := req.Context()

			if uid != "" {
				u, err := userService.GetUserByUid(ctx, uid)
				if errors.Is(err, user.ErrUserNotFound) && cfg.AutoProvision {
					u, err = provision(ctx, userService, uid, req.Header.Get(UserTimezoneHeader))
				}
				if err != nil {
					if errors.Is(err, user.ErrUserNotFound) {
						log.Debugf("user not found: %s", uid)
						rest.WriteError(w, http.StatusForbidden, "Forbidden", "user not found")
						return
					}
					log.Errorf("failed to resolve user: %v", err)
					rest.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
					return
				}
				log.Tracef("user found: %s", u.Uid)
				ctx = user.WithUser(ctx, u)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// provision creates the user on its first request. A concurrent request may create
// the same uid first; its user is then looked up again and used.
func provision(ctx context.Context, userService user.Service, uid, timezone string) (user.User, error) {
	log.Infof("provisioning user %s", uid)
	created, err := userService.CreateUser(ctx, user.User{
		Uid:      uid,
		Username: uid,
		Settings: user.Settings{Timezone: timezone},
	})
	if err == nil {
		return created, nil
	}

	existing, lookupErr := userService.GetUserByUid(ctx, uid)
	if lookupErr != nil {
		log.Errorf("failed to provision user %s: %v", uid, err)
		return user.User{}, err
	}
	log.Debugf("user %s was provisioned concurrently", uid)
	return existing, nil
}

// requireUser rejects requests without a resolved user.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if _, err := user.CurrentUser(req.Context()); err != nil {
			rest.WriteError(w, http.StatusUnauthorized, "Unauthorized", "missing "+UserIdHeader+" header")
			return
		}
		next.ServeHTTP(w, req)
	})
}
