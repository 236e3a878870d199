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
	"html/template"
	"net/http"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<title>stashd</title>
<h1>Projects</h1>
<ul>
{{range .Projects}}<li><a href="/project/{{.Name}}">{{.Name}}</a></li>
{{else}}<li>no projects yet</li>
{{end}}
</ul>
`))

var projectTemplate = template.Must(template.New("project").Parse(`<!doctype html>
<title>{{.Project}} - stashd</title>
<h1>{{.Project}}</h1>
<ul>
{{range .Versions}}<li>
  <a href="/version/{{$.Project}}/{{.Name}}">{{.Name}}</a> — {{.Date}}
  {{if .Star}}
    <a href="/admin/unstar/{{$.Project}}/{{.Name}}">unstar</a>
  {{else}}
    <a href="/admin/star/{{$.Project}}/{{.Name}}">star</a>
  {{end}}
</li>
{{else}}<li>no versions yet</li>
{{end}}
</ul>
`))

var versionTemplate = template.Must(template.New("version").Parse(`<!doctype html>
<title>{{.Project}} {{.Version}} - stashd</title>
<h1>{{.Project}} {{.Version}}</h1>
<ul>
{{range .Files}}<li><a href="/download/{{$.Project}}/{{$.Version}}/{{.Name}}">{{.Name}}</a></li>
{{else}}<li>no files yet</li>
{{end}}
</ul>
`))

// render executes tmpl into the response, logging (not surfacing) any
// execution-time failure, since headers and a partial body may have
// already been written by the time template execution fails.
func render(w http.ResponseWriter, r *http.Request, s *Server, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("render template")
	}
}
