package sweep

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"aidmap/entity"
	"aidmap/lib/api/response"
	"aidmap/lib/sl"
)

type Core interface {
	SweepExpiredNeeds() (entity.SweepResult, error)
}

// Run executes one expiry pass. Privileged: the external scheduler must
// present the shared secret as a bearer credential; anything else is 401.
// Overlapping triggers are harmless, already-expired rows never match again.
func Run(log *slog.Logger, handler Core, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.sweep"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if !authorized(r, secret) {
			logger.Warn("sweep called with bad credential")
			render.Status(r, 401)
			render.JSON(w, r, response.Error("Unauthorized"))
			return
		}

		result, err := handler.SweepExpiredNeeds()
		if err != nil {
			logger.Error("sweep expired needs", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		logger.Info("sweep completed", slog.Int64("marked_as_expired", result.MarkedAsExpired))
		render.JSON(w, r, response.Ok(result))
	}
}

func authorized(r *http.Request, secret string) bool {
	if secret == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}
