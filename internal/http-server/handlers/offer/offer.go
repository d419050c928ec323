package offer

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"aidmap/entity"
	"aidmap/lib/api/cont"
	"aidmap/lib/api/response"
	"aidmap/lib/sl"
)

type Core interface {
	SubmitHelpOffer(needPostId string, user *entity.User, message string) (*entity.HelpOffer, error)
	MyOffers(user *entity.User) ([]*entity.HelpOffer, error)
}

// Submit records a help offer on a listing. A duplicate offer by the same
// caller is a bad request; a missing listing is not found.
func Submit(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.offer"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		needPostId := chi.URLParam(r, "id")
		user := cont.GetUser(r.Context())

		var req entity.OfferRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		offer, err := handler.SubmitHelpOffer(needPostId, user, req.Message)
		if err != nil {
			switch {
			case errors.Is(err, entity.ErrNotFound):
				render.Status(r, 404)
				render.JSON(w, r, response.Error("Listing not found"))
			case errors.Is(err, entity.ErrDuplicateOffer):
				render.Status(r, 400)
				render.JSON(w, r, response.Error("You already have a help offer on this listing"))
			default:
				logger.Error("submit help offer", sl.Err(err))
				render.Status(r, 500)
				render.JSON(w, r, response.Error("Internal error"))
			}
			return
		}
		logger.Debug("help offer created",
			slog.String("need", needPostId),
			slog.String("user", user.Id),
		)
		render.JSON(w, r, response.Ok(offer))
	}
}

// My returns the caller's offers, newest first.
func My(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.offer"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		user := cont.GetUser(r.Context())

		offers, err := handler.MyOffers(user)
		if err != nil {
			logger.Error("list user offers", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		render.JSON(w, r, response.Ok(offers))
	}
}
