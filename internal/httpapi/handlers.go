package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/sketch-duel/internal/rating"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// GetRating looks up the authority's rating for one identity.
func GetRating(store rating.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := chi.URLParam(r, "identity")

		rec, err := store.Get(r.Context(), identity)
		switch {
		case errors.Is(err, rating.ErrNotFound):
			http.Error(w, "identity not found", http.StatusNotFound)
			return
		case err != nil:
			log.Error("rating lookup", zap.String("identity", identity), zap.Error(err))
			http.Error(w, "failed to load rating", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rec)
	}
}
