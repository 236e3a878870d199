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

package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.eng.ListProjects(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render(w, r, s, indexTemplate, struct{ Projects any }{Projects: projects})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")

	versions, err := s.eng.ListVersions(r.Context(), project)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render(w, r, s, projectTemplate, struct {
		Project  string
		Versions any
	}{Project: project, Versions: versions})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	version := chi.URLParam(r, "version")

	files, err := s.eng.ListFiles(r.Context(), project, version)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render(w, r, s, versionTemplate, struct {
		Project string
		Version string
		Files   any
	}{Project: project, Version: version, Files: files})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	version := chi.URLParam(r, "version")
	file := chi.URLParam(r, "file")

	rc, err := s.eng.Download(r.Context(), project, version, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file))
	if _, err := io.Copy(w, rc); err != nil {
		s.log.Error().Err(err).Msg("stream download")
	}
}

func (s *Server) handleStar(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	version := chi.URLParam(r, "version")

	if err := s.eng.StarVersion(r.Context(), project, version); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/project/"+project, http.StatusSeeOther)
}

func (s *Server) handleUnstar(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	version := chi.URLParam(r, "version")

	if err := s.eng.UnstarVersion(r.Context(), project, version); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/project/"+project, http.StatusSeeOther)
}

// maxUploadBytes bounds the multipart form's in-memory portion; the
// uploaded file itself streams to a temp file past this limit via
// http.Request.ParseMultipartForm's usual spill-to-disk behavior.
const maxUploadBytes = 32 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid upload form", http.StatusBadRequest)
		return
	}

	project := r.FormValue("project")
	version := r.FormValue("version")

	file, header, err := r.FormFile("upload")
	if err != nil {
		http.Error(w, "missing upload file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := s.eng.Upload(r.Context(), project, version, header.Filename, file, 0); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
