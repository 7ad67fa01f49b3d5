package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /readyz", handler.Readyz)
}

func registerFeedRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/feed", handler.GetFeedStatus)
	mux.HandleFunc("POST /v1/feed/reload", handler.ReloadFeed)
	mux.HandleFunc("GET /v1/leagues", handler.ListLeagues)
}

func registerMatchRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/matches", handler.ListMatches)
	mux.HandleFunc("GET /v1/matches/{matchID}", handler.GetMatch)
	mux.HandleFunc("POST /v1/matches/{matchID}/summary", handler.SummarizeMatch)
}

// Browser routes render HTML and redirect instead of returning the JSON envelope.
func registerDashboardRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /{$}", handler.Dashboard)
	mux.HandleFunc("POST /reload", handler.DashboardReload)
	mux.HandleFunc("POST /matches/{matchID}/summary", handler.DashboardSummary)
}
