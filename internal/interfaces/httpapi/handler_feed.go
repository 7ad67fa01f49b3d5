package httpapi

import "net/http"

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports ready only once a snapshot is held. It never triggers a fetch.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Readyz")
	defer span.End()

	snapshot, err := h.feedService.Current(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"status":     "ready",
		"matchCount": len(snapshot.Matches),
	})
}

func (h *Handler) GetFeedStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFeedStatus")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, feedStatusToDTO(ctx, h.feedService.Status(ctx)))
}

func (h *Handler) ReloadFeed(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReloadFeed")
	defer span.End()

	status, err := h.feedService.Load(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "reload feed failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, feedStatusToDTO(ctx, status))
}

func (h *Handler) ListLeagues(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListLeagues")
	defer span.End()

	leagues, err := h.feedService.Leagues(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list leagues failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]leagueDTO, 0, len(leagues))
	for _, name := range leagues {
		items = append(items, leagueToDTO(ctx, name))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}
