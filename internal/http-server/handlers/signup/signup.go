package signup

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"aidmap/entity"
	"aidmap/lib/api/response"
	"aidmap/lib/sl"
)

type Core interface {
	Signup(req *entity.SignupRequest) (*entity.User, error)
}

type result struct {
	User  *entity.User `json:"user"`
	Token string       `json:"token"`
}

// Register is the account provisioning callback. New identities must carry
// a consumable invite code; rejections answer 403 with one of the named
// outcomes (invite-required, invalid-invite, invite-limit-reached) so the
// front end can route to the matching page. Existing identities pass
// through untouched.
func Register(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.signup"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.SignupRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(sl.Secret("email", req.Email))

		user, err := handler.Signup(&req)
		if err != nil {
			switch {
			case errors.Is(err, entity.ErrInviteRequired),
				errors.Is(err, entity.ErrInvalidInvite),
				errors.Is(err, entity.ErrInviteLimitReached):
				logger.Info("signup rejected", slog.String("outcome", err.Error()))
				render.Status(r, 403)
				render.JSON(w, r, response.Error(err.Error()))
			default:
				logger.Error("signup", sl.Err(err))
				render.Status(r, 500)
				render.JSON(w, r, response.Error("Internal error"))
			}
			return
		}
		logger.Info("signup completed", slog.String("user", user.Id))
		render.JSON(w, r, response.Ok(result{User: user, Token: user.Token}))
	}
}
