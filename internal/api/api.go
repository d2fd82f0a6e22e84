/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the playback engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/muse/internal/history"
	"github.com/friendsincode/muse/internal/master"
	"github.com/friendsincode/muse/internal/track"
	"github.com/friendsincode/muse/internal/version"
)

const (
	defaultUpcoming = 5
	maxUpcoming     = 100
)

// Persister saves engine state on demand.
type Persister interface {
	Persist(ctx context.Context) error
}

// API exposes HTTP handlers.
type API struct {
	master    *master.Master
	persister Persister
	bus       EventSource
	logger    zerolog.Logger
}

// New creates the API router wrapper. persister and bus may be nil.
func New(m *master.Master, persister Persister, bus EventSource, logger zerolog.Logger) *API {
	return &API{
		master:    m,
		persister: persister,
		bus:       bus,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers the API endpoints on r.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Get("/now", a.handleNow)
		r.Get("/upcoming", a.handleUpcoming)
		r.Post("/next", a.handleNext)
		r.Post("/seek", a.handleSeek)
		r.Post("/override", a.handleOverride)
		r.Post("/extension", a.handleExtension)
		r.Post("/persist", a.handlePersist)
		r.Get("/events", a.handleEvents)

		r.Route("/sources", func(r chi.Router) {
			r.Get("/", a.handleSourcesList)
			r.Post("/stacked", a.handleStacked)
			r.Route("/{name}", func(r chi.Router) {
				r.Post("/active", a.handleSourceActive)
				r.Post("/reset", a.handleSourceReset)
				r.Get("/groups", a.handleSourceGroups)
			})
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/played", a.handlePlayed)
			r.Get("/{bucket}", a.handleHistoryBucket)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"session": a.master.SessionID(),
		"version": version.Version,
	})
}

func (a *API) handleNow(w http.ResponseWriter, r *http.Request) {
	sel, ok := a.master.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "nothing_playing")
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (a *API) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	n := defaultUpcoming
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid_n")
			return
		}
		n = min(parsed, maxUpcoming)
	}
	writeJSON(w, http.StatusOK, map[string]any{"upcoming": a.master.Upcoming(n)})
}

func (a *API) handleNext(w http.ResponseWriter, r *http.Request) {
	sel, ok := a.master.Next(r.Context())
	if !ok {
		writeError(w, http.StatusConflict, "exhausted")
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

type seekRequest struct {
	Identity string `json:"identity"`
}

func (a *API) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity_required")
		return
	}
	if !a.master.SeekToTrack(r.Context(), req.Identity) {
		writeError(w, http.StatusNotFound, "track_not_found")
		return
	}
	sel, _ := a.master.Current()
	writeJSON(w, http.StatusOK, sel)
}

type injectRequest struct {
	Track     track.Track `json:"track"`
	Wait      bool        `json:"wait"`
	Overwrite bool        `json:"overwrite"`
}

func decodeInject(r *http.Request) (injectRequest, bool) {
	var req injectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Track.Path == "" {
		return req, false
	}
	return req, true
}

func (a *API) handleOverride(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeInject(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "track_required")
		return
	}
	if req.Wait {
		if err := a.master.SetNextOverride(r.Context(), req.Track); err != nil {
			writeError(w, http.StatusRequestTimeout, "override_wait_cancelled")
			return
		}
	} else if !a.master.TrySetNextOverride(req.Track) {
		writeError(w, http.StatusConflict, "override_pending")
		return
	}
	a.logger.Info().Str("track", req.Track.Path).Msg("override queued")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (a *API) handleExtension(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeInject(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "track_required")
		return
	}
	source, err := a.master.InsertExtension(req.Track, req.Overwrite)
	if errors.Is(err, master.ErrNoSource) {
		writeError(w, http.StatusConflict, "no_source")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("insert extension failed")
		writeError(w, http.StatusInternalServerError, "insert_failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "inserted", "source": source})
}

func (a *API) handlePersist(w http.ResponseWriter, r *http.Request) {
	if a.persister == nil {
		writeError(w, http.StatusNotImplemented, "persistence_disabled")
		return
	}
	if err := a.persister.Persist(r.Context()); err != nil {
		a.logger.Error().Err(err).Msg("persist failed")
		writeError(w, http.StatusInternalServerError, "persist_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSourcesList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stacked": a.master.Stacked(),
		"sources": a.master.Sources(),
	})
}

type toggleRequest struct {
	Value bool `json:"value"`
}

func decodeToggle(w http.ResponseWriter, r *http.Request) (bool, bool) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return false, false
	}
	return req.Value, true
}

func (a *API) handleStacked(w http.ResponseWriter, r *http.Request) {
	value, ok := decodeToggle(w, r)
	if !ok {
		return
	}
	a.master.SetStacked(value)
	writeJSON(w, http.StatusOK, map[string]bool{"stacked": value})
}

func (a *API) handleSourceActive(w http.ResponseWriter, r *http.Request) {
	value, ok := decodeToggle(w, r)
	if !ok {
		return
	}
	if err := a.master.SetActive(chi.URLParam(r, "name"), value); err != nil {
		a.writeSourceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": value})
}

func (a *API) handleSourceReset(w http.ResponseWriter, r *http.Request) {
	if err := a.master.ResetLoop(r.Context(), chi.URLParam(r, "name")); err != nil {
		a.writeSourceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSourceGroups(w http.ResponseWriter, r *http.Request) {
	p, ok := a.master.Source(chi.URLParam(r, "name"))
	if !ok {
		writeError(w, http.StatusNotFound, "source_not_found")
		return
	}
	resp := map[string]any{"grouping": p.Grouping().String()}
	if value := r.URL.Query().Get("value"); value != "" {
		resp["value"] = value
		resp["count"] = p.GroupCount(value)
	}
	if next, ok := p.NextGrouping(); ok {
		resp["next"] = next
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handlePlayed(w http.ResponseWriter, r *http.Request) {
	played := a.master.Played()
	writeJSON(w, http.StatusOK, map[string]any{
		"identities": limit(played.Identities(), r),
		"details":    limit(played.Details(), r),
	})
}

func (a *API) handleHistoryBucket(w http.ResponseWriter, r *http.Request) {
	bucket := history.Bucket(chi.URLParam(r, "bucket"))
	if !slices.Contains(history.AllBuckets(), bucket) {
		writeError(w, http.StatusNotFound, "unknown_bucket")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bucket": bucket,
		"values": limit(a.master.History().Snapshot(bucket), r),
	})
}

func (a *API) writeSourceError(w http.ResponseWriter, err error) {
	if errors.Is(err, master.ErrUnknownSource) {
		writeError(w, http.StatusNotFound, "source_not_found")
		return
	}
	a.logger.Error().Err(err).Msg("source operation failed")
	writeError(w, http.StatusInternalServerError, "source_operation_failed")
}

// limit truncates values to the n query parameter when present.
func limit(values []string, r *http.Request) []string {
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil || n < 0 || n >= len(values) {
		return values
	}
	return values[:n]
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
