// ABOUTME: HTTP handlers for the editor UI.
// ABOUTME: Each editor action runs one session command and answers with the out-of-band panel fragments.

package web

import (
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/2389/dic/internal/auth"
	apierrors "github.com/2389/dic/internal/errors"
	"github.com/2389/dic/internal/render"
	"github.com/2389/dic/internal/reorder"
	"github.com/2389/dic/internal/schema"
	"github.com/2389/dic/internal/session"
	"github.com/2389/dic/internal/store"
)

const maxUploadSize = 1 << 20

// anonymousSession is used when a request carries no session, e.g. behind a
// router without the auth middleware.
const anonymousSession = "anonymous"

var examplePrompts = []string{
	"Create a contact form with name, email, and message fields",
	"Build a user registration form with validation",
	"Design a landing page hero section with a call-to-action",
	"Make a product showcase with image and description",
}

var textVariants = []string{"h1", "h2", "h3", "h4", "h5", "h6", "p", "span"}

var logAreas = []string{"page", "editor", "ws", "api"}

// LogReader answers the request log queries behind the logs page.
type LogReader interface {
	GetRequestLogs(q *store.RequestLogQuery) ([]*store.RequestLog, error)
	GetRequestLogStats() (*store.RequestLogStats, error)
}

type Handlers struct {
	sessions *session.Manager
	logs     LogReader
	logger   *zap.Logger
}

func NewHandlers(sessions *session.Manager, logs LogReader, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{sessions: sessions, logs: logs, logger: logger.Named("web")}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Handle("/static/*", staticHandler())
	r.Get("/", h.editor)
	r.Get("/logs", h.logsList)

	r.Route("/editor", func(r chi.Router) {
		r.Post("/buffer", h.editBuffer)
		r.Post("/format", h.format)
		r.Post("/clear", h.clear)
		r.Post("/add/{kind}", h.add)

		r.Route("/components/{id}", func(r chi.Router) {
			r.Post("/delete", h.deleteComponent)
			r.Post("/content", h.editContent)
			r.Post("/props", h.updateProps)
			r.Post("/fields", h.addField)
			r.Post("/fields/{field}", h.updateField)
			r.Post("/fields/{field}/delete", h.removeField)
		})

		r.Post("/drag/start", h.dragStart)
		r.Post("/drag/over", h.dragOver)
		r.Post("/drag/drop", h.dragDrop)
		r.Post("/drag/cancel", h.dragCancel)

		r.Post("/forms/{id}/submit", h.submit)

		r.Post("/generate", h.generate)
		r.Post("/save", h.save)
		r.Get("/library", h.openLibrary)
		r.Post("/library/close", h.closeLibrary)
		r.Post("/library/{id}/load", h.load)
		r.Post("/import", h.importSchema)
		r.Get("/export", h.exportSchema)
		r.Post("/notices/{id}/dismiss", h.dismiss)

		r.Get("/ws", h.liveUpdates)
	})
}

// pageData feeds the editor page and the fragment bundle.
type pageData struct {
	OOB      bool
	Mode     string
	View     session.View
	Preview  template.HTML
	Examples []string
	Variants []string
}

func (h *Handlers) session(r *http.Request) *session.Session {
	id := auth.SessionFromContext(r.Context())
	if id == "" {
		id = anonymousSession
	}
	return h.sessions.Get(id)
}

func modeOf(r *http.Request) render.Mode {
	if r.FormValue("mode") == render.Preview.String() {
		return render.Preview
	}
	return render.Interactive
}

func snapshot(s *session.Session, mode render.Mode, oob bool) pageData {
	v := s.View(mode)
	return pageData{
		OOB:      oob,
		Mode:     mode.String(),
		View:     v,
		Preview:  template.HTML(v.Preview.HTML()),
		Examples: examplePrompts,
		Variants: textVariants,
	}
}

// respond answers an editor action with the current panels.
func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, s *session.Session) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderFragments(w, snapshot(s, modeOf(r), true)); err != nil {
		h.logger.Error("render fragments", zap.Error(err))
	}
}

// settle waits for an outstanding collaborator call so the response carries
// its outcome.
func (h *Handlers) settle(r *http.Request, s *session.Session) {
	if err := s.Await(r.Context()); err != nil {
		h.logger.Debug("request ended before call completed", zap.Error(err))
	}
}

func (h *Handlers) editor(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPage(w, "editor", snapshot(s, modeOf(r), false)); err != nil {
		h.logger.Error("render editor", zap.Error(err))
	}
}

func (h *Handlers) editBuffer(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	// Parse failures are shown next to the buffer.
	if err := s.EditBuffer(r.FormValue("buffer")); err != nil {
		h.logger.Debug("buffer rejected", zap.Error(err))
	}
	h.respond(w, r, s)
}

func (h *Handlers) format(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	s.Format()
	h.respond(w, r, s)
}

func (h *Handlers) clear(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	s.Clear()
	h.respond(w, r, s)
}

func (h *Handlers) add(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	kind := schema.Kind(chi.URLParam(r, "kind"))
	if err := s.Add(kind); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "Unknown component type: "+string(kind))
		return
	}
	h.respond(w, r, s)
}

func (h *Handlers) deleteComponent(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	if err := s.Delete(chi.URLParam(r, "id")); err != nil {
		h.componentError(w, err)
		return
	}
	h.respond(w, r, s)
}

func (h *Handlers) editContent(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	if err := s.EditContent(chi.URLParam(r, "id"), r.FormValue("value")); err != nil {
		h.componentError(w, err)
		return
	}
	h.respond(w, r, s)
}

// booleanProps are posted as checkbox pairs.
var booleanProps = map[string]bool{"rounded": true, "shadow": true, "required": true}

func (h *Handlers) updateProps(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	if err := r.ParseForm(); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidBody, "The form could not be parsed")
		return
	}
	patch := schema.Props{}
	for key, values := range r.PostForm {
		if key == "mode" || len(values) == 0 {
			continue
		}
		// A checked checkbox follows its hidden "false" input.
		last := values[len(values)-1]
		if booleanProps[key] {
			patch[key] = last == "true"
			continue
		}
		patch[key] = last
	}
	if len(patch) == 0 {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "No properties to update")
		return
	}
	if err := s.UpdateProps(chi.URLParam(r, "id"), patch); err != nil {
		h.componentError(w, err)
		return
	}
	h.respond(w, r, s)
}

func (h *Handlers) addField(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	label := strings.TrimSpace(r.FormValue("label"))
	if label == "" {
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrMissingField, "Label is required", "label")
		return
	}
	typ := r.FormValue("type")
	if typ == "" {
		typ = "text"
	}
	f := schema.Field{
		Label:       label,
		Type:        typ,
		Required:    r.FormValue("required") == "true",
		Placeholder: r.FormValue("placeholder"),
	}
	if err := s.AddField(chi.URLParam(r, "id"), f); err != nil {
		h.componentError(w, err)
		return
	}
	h.respond(w, r, s)
}

func (h *Handlers) updateField(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	field, ok := intParam(chi.URLParam(r, "field"))
	if !ok {
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "Invalid field index", "field")
		return
	}
	if err := r.ParseForm(); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidBody, "The form could not be parsed")
		return
	}
	patch := map[string]any{
		// An unchecked box is absent from the form.
		"required": r.PostForm.Get("required") == "true",
	}
	for _, key := range []string{"label", "type", "placeholder"} {
		if values, ok := r.PostForm[key]; ok {
			patch[key] = values[0]
		}
	}
	if err := s.UpdateField(chi.URLParam(r, "id"), field, patch); err != nil {
		h.componentError(w, err)
		return
	}
	h.respond(w, r, s)
}

func (h *Handlers) removeField(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	field, ok := intParam(chi.URLParam(r, "field"))
	if !ok {
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "Invalid field index", "field")
		return
	}
	if err := s.RemoveField(chi.URLParam(r, "id"), field); err != nil {
		h.componentError(w, err)
		return
	}
	h.respond(w, r, s)
}

// componentError maps a failed component command. Missing components are a
// 404; other failures already produced a notice and answer with the panels.
func (h *Handlers) componentError(w http.ResponseWriter, err error) {
	var notFound *reorder.NotFoundError
	if errors.As(err, &notFound) {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrNotFound, "Component not found")
		return
	}
	var indexErr *schema.IndexError
	var fieldErr *schema.FieldError
	if errors.As(err, &indexErr) || errors.As(err, &fieldErr) {
		apierrors.WriteErrorWithDetails(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "Index out of range", err.Error())
		return
	}
	apierrors.WriteErrorWithDetails(w, http.StatusUnprocessableEntity, apierrors.ErrInvalidRequest, "The change could not be applied", err.Error())
}

func (h *Handlers) dragStart(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	index, ok := intParam(r.FormValue("index"))
	if !ok {
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrMissingField, "Index is required", "index")
		return
	}
	if err := s.DragStart(index); err != nil {
		apierrors.WriteErrorWithDetails(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "Index out of range", err.Error())
		return
	}
	h.respond(w, r, s)
}

func (h *Handlers) dragOver(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	index, ok := intParam(r.FormValue("index"))
	if !ok {
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrMissingField, "Index is required", "index")
		return
	}
	if err := s.DragOver(index); err != nil {
		h.logger.Debug("drag over ignored", zap.Error(err))
	}
	h.respond(w, r, s)
}

func (h *Handlers) dragDrop(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	index, ok := intParam(r.FormValue("index"))
	if err := s.DragDrop(index, ok); err != nil {
		h.logger.Debug("drop ignored", zap.Error(err))
	}
	h.respond(w, r, s)
}

func (h *Handlers) dragCancel(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	s.DragCancel()
	h.respond(w, r, s)
}

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	if err := r.ParseForm(); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidBody, "The form could not be parsed")
		return
	}
	values := map[string]any{}
	for key, vals := range r.PostForm {
		if key == "mode" || len(vals) == 0 {
			continue
		}
		if len(vals) == 1 {
			values[key] = vals[0]
			continue
		}
		list := make([]any, len(vals))
		for i, v := range vals {
			list[i] = v
		}
		values[key] = list
	}
	if _, err := s.Submit(chi.URLParam(r, "id"), values); err != nil {
		h.componentError(w, err)
		return
	}
	h.respond(w, r, s)
}

func (h *Handlers) generate(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	err := s.Generate(r.FormValue("prompt"))
	switch {
	case errors.Is(err, session.ErrEmptyPrompt):
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrMissingField, "Prompt is required", "prompt")
		return
	case errors.Is(err, session.ErrBusy):
		apierrors.WriteError(w, http.StatusConflict, apierrors.ErrBusy, "Another request is in progress")
		return
	}
	h.settle(r, s)
	h.respond(w, r, s)
}

func (h *Handlers) save(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	err := s.Save(r.FormValue("name"), r.FormValue("description"))
	if errors.Is(err, session.ErrBusy) {
		apierrors.WriteError(w, http.StatusConflict, apierrors.ErrBusy, "Another request is in progress")
		return
	}
	if err != nil && !errors.Is(err, session.ErrUnavailable) {
		apierrors.WriteFromError(w, err, "Failed to save schema")
		return
	}
	h.settle(r, s)
	h.respond(w, r, s)
}

func (h *Handlers) openLibrary(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	if err := s.OpenLibrary(); errors.Is(err, session.ErrBusy) {
		apierrors.WriteError(w, http.StatusConflict, apierrors.ErrBusy, "Another request is in progress")
		return
	}
	h.settle(r, s)
	h.respond(w, r, s)
}

func (h *Handlers) closeLibrary(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	s.CloseLibrary()
	h.respond(w, r, s)
}

func (h *Handlers) load(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	err := s.Load(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, session.ErrBusy):
		apierrors.WriteError(w, http.StatusConflict, apierrors.ErrBusy, "Another request is in progress")
		return
	case errors.Is(err, session.ErrUnavailable):
		apierrors.WriteError(w, http.StatusServiceUnavailable, apierrors.ErrServiceUnavailable, "Failed to load schemas")
		return
	}
	h.settle(r, s)
	h.respond(w, r, s)
}

func (h *Handlers) importSchema(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		apierrors.WriteErrorWithDetails(w, http.StatusBadRequest, apierrors.ErrInvalidBody, "The upload could not be read", err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrMissingField, "A schema file is required", "file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		apierrors.WriteErrorWithDetails(w, http.StatusBadRequest, apierrors.ErrInvalidBody, "The upload could not be read", err.Error())
		return
	}
	// Rejected documents surface as a notice.
	if err := s.Import(data); err != nil {
		h.logger.Debug("import rejected", zap.Error(err))
	}
	h.respond(w, r, s)
}

func (h *Handlers) exportSchema(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	data, err := s.Export()
	if err != nil {
		if !errors.Is(err, session.ErrNothingToExport) {
			h.logger.Error("export failed", zap.Error(err))
		}
		h.respond(w, r, s)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="ui-schema.json"`)
	w.Write(data)
}

func (h *Handlers) dismiss(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apierrors.WriteErrorWithField(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "Invalid notice id", "id")
		return
	}
	s.Dismiss(id)
	h.respond(w, r, s)
}

func (h *Handlers) logsList(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		apierrors.WriteError(w, http.StatusServiceUnavailable, apierrors.ErrServiceUnavailable, "Request logs are not available")
		return
	}
	q := &store.RequestLogQuery{
		Limit:      100,
		Area:       r.URL.Query().Get("area"),
		Method:     strings.ToUpper(r.URL.Query().Get("method")),
		PathPrefix: r.URL.Query().Get("path"),
	}
	logs, err := h.logs.GetRequestLogs(q)
	if err != nil {
		apierrors.WriteErrorWithDetails(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "Failed to load request logs", err.Error())
		return
	}
	stats, err := h.logs.GetRequestLogStats()
	if err != nil {
		apierrors.WriteErrorWithDetails(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "Failed to load request logs", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPage(w, "logs", map[string]any{
		"Logs":   logs,
		"Stats":  stats,
		"Filter": q,
		"Areas":  logAreas,
	}); err != nil {
		h.logger.Error("render logs", zap.Error(err))
	}
}

func intParam(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}
