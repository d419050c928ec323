package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"aidmap/internal/config"
	"aidmap/internal/http-server/handlers/errors"
	"aidmap/internal/http-server/handlers/feedback"
	"aidmap/internal/http-server/handlers/invite"
	"aidmap/internal/http-server/handlers/need"
	"aidmap/internal/http-server/handlers/offer"
	"aidmap/internal/http-server/handlers/profile"
	"aidmap/internal/http-server/handlers/signup"
	"aidmap/internal/http-server/handlers/sweep"
	"aidmap/internal/http-server/middleware/authenticate"
	"aidmap/internal/http-server/middleware/timeout"
	"aidmap/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	need.Core
	offer.Core
	invite.Core
	signup.Core
	profile.Core
	sweep.Core
	feedback.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(5))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Post("/auth/signup", signup.Register(log, handler))
		rootApi.Get("/invite/validate", invite.Validate(log, handler))
		rootApi.Get("/needs", need.List(log, handler))

		// public read, but redaction depends on who is asking
		rootApi.With(authenticate.Optional(log, handler)).
			Get("/needs/{id}", need.Detail(log, handler))

		rootApi.Group(func(private chi.Router) {
			private.Use(authenticate.New(log, handler))
			private.Post("/needs", need.Submit(log, handler))
			private.Patch("/needs/{id}/status", need.Status(log, handler))
			private.Post("/needs/{id}/offers", offer.Submit(log, handler))
			private.Get("/my/needs", need.My(log, handler))
			private.Get("/my/offers", offer.My(log, handler))
			private.Get("/profile", profile.Get(log, handler))
			private.Get("/invite/stats", invite.Stats(log, handler))
			private.Post("/feedback", feedback.Submit(log, handler))
			private.Get("/feedback", feedback.My(log, handler))
		})
	})
	router.Route("/cron", func(cron chi.Router) {
		cron.Get("/check-expired-needs", sweep.Run(log, handler, conf.Sweep.Secret))
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
