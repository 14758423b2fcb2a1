package web

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/frameless-media/datatables/internal/engine"
	"github.com/frameless-media/datatables/pkg/core"
)

type pageLink struct {
	Number  int
	Current bool
}

type indexData struct {
	Title     string
	Instances []core.TableInstance
}

type tableData struct {
	Title string
	Table *engine.RenderedTable
	Pages []pageLink
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	instances, err := s.instances.ListInstances(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.renderHTML(w, r, indexTmpl, indexData{Title: "Data Tables", Instances: instances})
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	inst, rendered, err := s.renderPage(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}

	pages := make([]pageLink, 0, rendered.PageCount())
	for i := 1; i <= rendered.PageCount(); i++ {
		pages = append(pages, pageLink{Number: i, Current: i == rendered.Page})
	}

	title := inst.Title
	if title == "" {
		title = inst.Name
	}
	s.renderHTML(w, r, tableTmpl, tableData{Title: title, Table: rendered, Pages: pages})
}

func (s *Server) handleListJSON(w http.ResponseWriter, r *http.Request) {
	instances, err := s.instances.ListInstances(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	type item struct {
		Name           string `json:"name"`
		Title          string `json:"title"`
		SourceTemplate string `json:"sourceTemplate"`
	}
	out := make([]item, len(instances))
	for i, inst := range instances {
		out[i] = item{Name: inst.Name, Title: inst.Title, SourceTemplate: inst.SourceTemplate}
	}
	s.respondJSON(w, r, out)
}

func (s *Server) handleTableJSON(w http.ResponseWriter, r *http.Request) {
	_, rendered, err := s.renderPage(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	s.respondJSON(w, r, map[string]any{
		"header":  rendered.Header,
		"rows":    rendered.Rows,
		"total":   rendered.Total,
		"page":    rendered.Page,
		"perPage": rendered.PerPage,
		"pages":   rendered.PageCount(),
	})
}

// renderPage resolves the instance from the URL and renders the requested
// page. The page query parameter is 1-based; garbage falls back to page 1.
func (s *Server) renderPage(r *http.Request) (*core.TableInstance, *engine.RenderedTable, error) {
	name := chi.URLParam(r, "name")
	inst, err := s.instances.GetInstance(r.Context(), name)
	if err != nil {
		return nil, nil, err
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	rendered, err := s.engine.RenderTable(r.Context(), inst, page, s.perPage)
	if err != nil {
		return nil, nil, err
	}
	return inst, rendered, nil
}

func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("render template",
			"path", r.URL.Path, "error", err,
			"request_id", middleware.GetReqID(r.Context()))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, r *http.Request, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response",
			"path", r.URL.Path, "error", err,
			"request_id", middleware.GetReqID(r.Context()))
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	s.logger.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err,
		"request_id", middleware.GetReqID(r.Context()))
	http.Error(w, http.StatusText(status), status)
}
