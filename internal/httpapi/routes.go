package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/dice-duel-backend/internal/character"
	"github.com/DoyleJ11/dice-duel-backend/internal/hub"
	"github.com/DoyleJ11/dice-duel-backend/internal/ws"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Hub        *hub.Hub
	Characters character.Repository
	BaseURL    string
	Log        *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Log))

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, d.Log))

	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", CreateRoom(d))
		r.Get("/", ListRooms(d))
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", GetRoom(d))
			r.Delete("/", DeleteRoom(d))
			r.Post("/join", JoinRoom(d))
			r.Post("/viewers", AddViewer(d))
			r.Delete("/viewers/{id}", RemoveViewer(d))
			r.Post("/start", StartBattle(d))
			r.Get("/log", BattleLog(d))
			r.Get("/spectate", SpectateLink(d))
			r.Get("/spectate.png", SpectateQR(d))
		})
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("requestId", middleware.GetReqID(r.Context())))
		})
	}
}
