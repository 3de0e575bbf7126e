package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/sketch-duel/internal/hub"
	"github.com/DoyleJ11/sketch-duel/internal/rating"
	"github.com/DoyleJ11/sketch-duel/internal/ws"
)

type Deps struct {
	Hub            *hub.Hub
	Ratings        rating.Store
	AllowedOrigins []string
	Logger         *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, ws.Options{OriginPatterns: originPatterns(d.AllowedOrigins), Logger: log}))
	r.Get("/ratings/{identity}", GetRating(d.Ratings, log))

	c := cors.New(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	})
	return c.Handler(r)
}

// originPatterns strips schemes since websocket.Accept matches on host.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		out = append(out, o)
	}
	return out
}
