package need

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
	SubmitNeed(req *entity.NeedRequest, owner *entity.User) (*entity.NeedPost, error)
	ListActiveNeeds() ([]entity.NeedSummary, error)
	NeedDetail(id string, caller *entity.User) (*entity.NeedDetail, error)
	MyNeeds(user *entity.User) ([]*entity.NeedPost, error)
	UpdateNeedStatus(id string, user *entity.User, status entity.NeedStatus) (*entity.NeedPost, error)
}

// Submit creates a new need listing for the authenticated caller.
func Submit(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.need"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		user := cont.GetUser(r.Context())

		var req entity.NeedRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		post, err := handler.SubmitNeed(&req, user)
		if err != nil {
			renderNeedError(w, r, logger, err)
			return
		}
		logger.Debug("need listing created",
			slog.String("id", post.Id),
			slog.String("user", user.Id),
		)
		render.JSON(w, r, response.Ok(post))
	}
}

// List returns active listings for the map, newest first.
func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.need"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		needs, err := handler.ListActiveNeeds()
		if err != nil {
			logger.Error("list active needs", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		render.JSON(w, r, response.Ok(needs))
	}
}

// Detail returns one listing; contact fields are redacted unless the caller
// may see them.
func Detail(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.need"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		id := chi.URLParam(r, "id")
		caller := cont.GetUser(r.Context())

		detail, err := handler.NeedDetail(id, caller)
		if err != nil {
			renderNeedError(w, r, logger, err)
			return
		}
		render.JSON(w, r, response.Ok(detail))
	}
}

// My returns the caller's own listings, including expired ones.
func My(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.need"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		user := cont.GetUser(r.Context())

		posts, err := handler.MyNeeds(user)
		if err != nil {
			logger.Error("list user needs", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		render.JSON(w, r, response.Ok(posts))
	}
}

// Status applies an owner-driven status transition.
func Status(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.need"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		id := chi.URLParam(r, "id")
		user := cont.GetUser(r.Context())

		var req entity.StatusRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		post, err := handler.UpdateNeedStatus(id, user, req.Status)
		if err != nil {
			renderNeedError(w, r, logger, err)
			return
		}
		logger.Debug("need status updated",
			slog.String("id", id),
			slog.String("status", string(req.Status)),
		)
		render.JSON(w, r, response.Ok(post))
	}
}

func renderNeedError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var quotaErr *entity.QuotaExceededError
	switch {
	case errors.Is(err, entity.ErrValidation):
		render.Status(r, 400)
		render.JSON(w, r, response.Error(err.Error()))
	case errors.As(err, &quotaErr):
		render.Status(r, 403)
		render.JSON(w, r, response.Error(quotaErr.Error()))
	case errors.Is(err, entity.ErrNotFound):
		render.Status(r, 404)
		render.JSON(w, r, response.Error("Listing not found or not yours to change"))
	case errors.Is(err, entity.ErrForbidden):
		render.Status(r, 403)
		render.JSON(w, r, response.Error("Access denied"))
	default:
		logger.Error("need operation", sl.Err(err))
		render.Status(r, 500)
		render.JSON(w, r, response.Error("Internal error"))
	}
}
