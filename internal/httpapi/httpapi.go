/*
 * stashd: temporary artifact store
 * Copyright © 2026 nvrio
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package httpapi is the external collaborator surface: a small
// go-chi router over internal/engine, rendering HTML listings and
// streaming blob downloads.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nvrio/stashd/internal/engine"
	"github.com/nvrio/stashd/internal/errs"
)

// Server wires an Engine to an http.Handler.
type Server struct {
	eng    *engine.Engine
	log    zerolog.Logger
	router *chi.Mux
}

// New builds the router described in spec §6: project/version/file
// listings, a download endpoint, star/unstar admin actions, and an
// upload endpoint.
func New(eng *engine.Engine, log zerolog.Logger) *Server {
	s := &Server{eng: eng, log: log, router: chi.NewRouter()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(requestLogger(s.log))
	s.router.Use(middleware.Recoverer)

	s.router.Get("/", s.handleListProjects)
	s.router.Get("/project/{project}", s.handleListVersions)
	s.router.Get("/version/{project}/{version}", s.handleListFiles)
	s.router.Get("/download/{project}/{version}/{file}", s.handleDownload)
	s.router.Get("/admin/star/{project}/{version}", s.handleStar)
	s.router.Get("/admin/unstar/{project}/{version}", s.handleUnstar)
	s.router.Post("/upload", s.handleUpload)
}

// requestLogger logs each request's method, path, status, and
// duration once it completes.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// writeError maps an engine error to the HTTP status spec §7
// requires and writes a plain-text body. Internal error detail is
// logged server-side only; the client sees a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("unmapped error")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	switch e.Kind {
	case errs.NotFound:
		http.Error(w, e.Msg, http.StatusNotFound)
	case errs.InvalidName, errs.InvalidSHA256, errs.InvalidStar, errs.DuplicateFile:
		http.Error(w, e.Msg, http.StatusBadRequest)
	default:
		s.log.Error().Err(e).Str("path", r.URL.Path).Msg("internal error")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
