package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers the calendar routes. Methods are checked inside the
// handlers so a wrong method gets 405 before authentication runs. limit wraps
// POSTs to the generation endpoints.
func RegisterRoutes(h *Handler, r *mux.Router, limit func(http.Handler) http.Handler) {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	r.HandleFunc("/health", h.Health).Methods("GET")

	r.Handle("/create-calendar", limitPost(limit, h.CreateCalendar))
	r.Handle("/create-content-item", limitPost(limit, h.CreateContentItem))

	r.HandleFunc("/calendars", h.ListCalendars)
	r.HandleFunc("/calendars/{id}", h.GetCalendar)
	r.HandleFunc("/calendar-items/{id}/assets", h.ListItemAssets)
}

// limitPost only charges POSTs against limit; other methods reach the handler
// directly and get their 405.
func limitPost(limit func(http.Handler) http.Handler, next http.HandlerFunc) http.Handler {
	limited := limit(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}
