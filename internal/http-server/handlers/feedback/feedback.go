package feedback

import (
	"fmt"
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
	SubmitFeedback(req *entity.FeedbackRequest, user *entity.User) (*entity.Feedback, error)
	MyFeedback(user *entity.User) ([]*entity.Feedback, error)
}

func Submit(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.feedback"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		user := cont.GetUser(r.Context())

		var req entity.FeedbackRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		feedback, err := handler.SubmitFeedback(&req, user)
		if err != nil {
			logger.Error("submit feedback", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		logger.Debug("feedback received", slog.String("user", user.Id))
		render.JSON(w, r, response.Ok(feedback))
	}
}

func My(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.feedback"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		user := cont.GetUser(r.Context())

		items, err := handler.MyFeedback(user)
		if err != nil {
			logger.Error("list feedback", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Internal error"))
			return
		}
		render.JSON(w, r, response.Ok(items))
	}
}
