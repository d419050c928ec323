package profile

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"aidmap/entity"
	"aidmap/lib/api/cont"
	"aidmap/lib/api/response"
	"aidmap/lib/sl"
)

type Core interface {
	Profile(user *entity.User) (entity.Profile, error)
}

// Get returns the caller's own profile; a referral code is generated on the
// first read when the account has none yet.
func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.profile"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		user := cont.GetUser(r.Context())

		profile, err := handler.Profile(user)
		if err != nil {
			logger.Error("load profile", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		render.JSON(w, r, response.Ok(profile))
	}
}
