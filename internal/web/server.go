package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/jaminalder/timetravel-tic-tac-toe/internal/app"
)

const defaultHeartbeat = 15 * time.Second

// NewServer wires routes and returns an http.Handler. It also makes the service
// broadcast rendered board fragments.
func NewServer(s *app.Service, log zerolog.Logger, heartbeat time.Duration) http.Handler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	h := &handlers{
		svc:       s,
		tpl:       loadTemplates(),
		log:       log.With().Str("component", "web").Logger(),
		heartbeat: heartbeat,
	}
	s.SetRenderer(func(gs app.GameState) []byte { return h.renderBoard(gs, "") })

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(log))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))

	r.Get("/", h.index)
	r.Get("/ping", h.ping)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/join", h.join)
		r.Post("/play", h.play)
		r.Post("/jump", h.jump)
		r.Post("/order", h.order)
		r.Post("/bot", h.bot)
		r.Get("/state", h.state)
		r.Get("/events", h.events)
	})
	return r
}
