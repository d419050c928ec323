package invite

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
	ValidateInviteCode(code string) (entity.InviteValidation, error)
	InvitationStats(user *entity.User) (entity.InviteStats, error)
}

// Validate answers whether a candidate invite code can still admit a
// signup. Public: the signup form polls it before submitting.
func Validate(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.invite"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		code := r.URL.Query().Get("code")
		result, err := handler.ValidateInviteCode(code)
		if err != nil {
			logger.Error("validate invite code", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		render.JSON(w, r, response.Ok(result))
	}
}

// Stats returns the caller's referral code and remaining invites.
func Stats(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.invite"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		user := cont.GetUser(r.Context())

		stats, err := handler.InvitationStats(user)
		if err != nil {
			logger.Error("invitation stats", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		render.JSON(w, r, response.Ok(stats))
	}
}
