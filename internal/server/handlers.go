package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/conneroisu/mediakit/internal/adapters"
	"github.com/conneroisu/mediakit/internal/builder"
	"github.com/conneroisu/mediakit/internal/canvas"
	"github.com/conneroisu/mediakit/internal/controls"
	"github.com/conneroisu/mediakit/internal/errors"
	"github.com/conneroisu/mediakit/internal/eventbus"
	"github.com/conneroisu/mediakit/internal/palette"
	"github.com/conneroisu/mediakit/internal/types"
)

// maxBodySize bounds every JSON request body.
const maxBodySize = 1 << 20

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /{$}", s.handleEditor)
	mux.HandleFunc("GET /preview", s.handlePreview)

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/document", s.handleDocument)

	mux.HandleFunc("GET /api/palette", s.handlePalette)
	mux.HandleFunc("GET /api/palette/categories", s.handleCategories)
	mux.HandleFunc("POST /api/palette/add", s.handlePaletteAdd)

	mux.HandleFunc("POST /api/components", s.handleAddComponent)
	mux.HandleFunc("GET /api/components/{id}", s.handleGetComponent)
	mux.HandleFunc("PATCH /api/components/{id}", s.handleUpdateComponent)
	mux.HandleFunc("DELETE /api/components/{id}", s.handleRemoveComponent)
	mux.HandleFunc("POST /api/components/{id}/move", s.handleMoveComponent)
	mux.HandleFunc("POST /api/components/{id}/up", s.handleStep(true))
	mux.HandleFunc("POST /api/components/{id}/down", s.handleStep(false))
	mux.HandleFunc("POST /api/components/{id}/duplicate", s.handleDuplicate)
	mux.HandleFunc("POST /api/components/{id}/select", s.handleSelect)
	mux.HandleFunc("DELETE /api/selection", s.handleClearSelection)
	mux.HandleFunc("POST /api/components/{id}/items", s.handleAddItem)
	mux.HandleFunc("DELETE /api/components/{id}/items/{index}", s.handleRemoveItem)
	mux.HandleFunc("POST /api/components/{id}/items/move", s.handleMoveItem)
	mux.HandleFunc("POST /api/components/{id}/inline", s.handleInlineEdit)
	mux.HandleFunc("POST /api/components/{id}/actions/{action}", s.handleAction)

	mux.HandleFunc("GET /api/canvas", s.handleCanvas)
	mux.HandleFunc("GET /api/canvas/zones", s.handleDropZones)
	mux.HandleFunc("GET /api/panel", s.handlePanel)
	mux.HandleFunc("GET /api/panel/html", s.handlePanelHTML)
	mux.HandleFunc("POST /api/panel/edit", s.handlePanelEdit)

	mux.HandleFunc("POST /api/sections", s.handleAddSection)
	mux.HandleFunc("DELETE /api/sections/{id}", s.handleRemoveSection)
	mux.HandleFunc("POST /api/sections/{id}/move", s.handleMoveSection)

	mux.HandleFunc("GET /api/drag", s.handleDragState)
	mux.HandleFunc("POST /api/drag/palette", s.handleDragPalette)
	mux.HandleFunc("POST /api/drag/component", s.handleDragComponent)
	mux.HandleFunc("POST /api/drag/drop", s.handleDrop)
	mux.HandleFunc("DELETE /api/drag", s.handleCancelDrag)

	mux.HandleFunc("POST /api/undo", s.handleUndo)
	mux.HandleFunc("POST /api/redo", s.handleRedo)
	mux.HandleFunc("POST /api/save", s.handleSave)
	mux.HandleFunc("POST /api/load", s.handleLoad)
	mux.HandleFunc("GET /api/kits", s.handleKits)
	mux.HandleFunc("POST /api/export", s.handleExport)
	mux.HandleFunc("GET /api/controls", s.handleControls)
	mux.HandleFunc("POST /api/controls/retry", s.handleRetry)
	mux.HandleFunc("DELETE /api/controls/notice", s.handleDismissNotice)
	mux.HandleFunc("POST /api/preview", s.handlePreviewToggle)

	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("POST /api/templates/{name}/apply", s.handleApplyTemplate)

	mux.HandleFunc("POST /api/host/{event}", s.handleHostEvent)
}

var errUnsupportedFormat = errors.NewAdapterError(errors.ErrCodeUnsupportedFormat, "unsupported format", nil)

// statusFor maps a builder error onto an HTTP status. Adapter failures whose
// cause is a missing kit are reported as not found, and unsupported export
// formats as unprocessable.
func statusFor(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsInvariant(err):
		return http.StatusConflict
	case errors.IsAdapter(err):
		switch {
		case causedByNotFound(err):
			return http.StatusNotFound
		case errors.Is(err, errUnsupportedFormat):
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	case errors.TypeOf(err) == errors.ErrorTypeConfig:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func causedByNotFound(err error) bool {
	var be *errors.BuilderError
	for errors.As(err, &be) {
		if be.Type == errors.ErrorTypeNotFound {
			return true
		}
		if be.Cause == nil {
			return false
		}
		err = be.Cause
	}
	return false
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.writeJSON(w, r, statusFor(err), map[string]any{"error": eventbus.NewErrorPayload(op, err)})
}

func badRequest(msg string, err error) error {
	be := errors.NewValidationError(errors.ErrCodeValidationFailed, msg)
	be.Cause = err
	return be
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return badRequest("read request body", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return badRequest("malformed request body", err)
	}
	return nil
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.deps.Renderer.RenderPage(r.Context(), w, s.deps.Title+" (editing)", s.deps.Builder.Document()); err != nil {
		s.logger.Error(r.Context(), err, "Failed to render editor page")
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.deps.Renderer.RenderPage(r.Context(), w, s.deps.Title, s.deps.Builder.Document()); err != nil {
		s.logger.Error(r.Context(), err, "Failed to render preview page")
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.deps.Builder.State())
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.deps.Builder.Document())
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := s.deps.Palette.Items(palette.Filter{Category: q.Get("category"), Query: q.Get("q")})
	s.writeJSON(w, r, http.StatusOK, items)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.deps.Palette.Categories())
}

type addRequest struct {
	Type     string          `json:"type"`
	Position *types.Position `json:"position,omitempty"`
	Content  map[string]any  `json:"content,omitempty"`
}

func (s *Server) handlePaletteAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "add-component", err)
		return
	}
	if err := s.deps.Palette.Add(r.Context(), req.Type, req.Position); err != nil {
		s.writeError(w, r, "add-component", err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, s.deps.Builder.Document())
}

func (s *Server) handleAddComponent(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "add-component", err)
		return
	}
	if s.deps.Palette != nil {
		if err := s.deps.Palette.CanAdd(req.Type); err != nil {
			s.writeError(w, r, "add-component", err)
			return
		}
	}
	c, err := s.deps.Builder.AddComponent(r.Context(), req.Type, req.Position, req.Content)
	if err != nil {
		s.writeError(w, r, "add-component", err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, c)
}

type componentResponse struct {
	Component types.Component `json:"component"`
	Location  types.Location  `json:"location"`
}

func (s *Server) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	c, loc, err := s.deps.Builder.GetComponent(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, "get-component", err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, componentResponse{Component: c, Location: loc})
}

func (s *Server) handleUpdateComponent(w http.ResponseWriter, r *http.Request) {
	var changes builder.Changes
	if err := decode(r, &changes); err != nil {
		s.writeError(w, r, "update-component", err)
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Builder.UpdateComponent(r.Context(), id, changes); err != nil {
		s.writeError(w, r, "update-component", err)
		return
	}
	s.handleGetComponent(w, r)
}

func (s *Server) handleRemoveComponent(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Builder.RemoveComponent(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, "remove-component", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveComponent(w http.ResponseWriter, r *http.Request) {
	var pos types.Position
	if err := decode(r, &pos); err != nil {
		s.writeError(w, r, "move-component", err)
		return
	}
	if err := s.deps.Builder.MoveComponentToPosition(r.Context(), r.PathValue("id"), pos); err != nil {
		s.writeError(w, r, "move-component", err)
		return
	}
	s.handleGetComponent(w, r)
}

func (s *Server) handleStep(up bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var err error
		if up {
			err = s.deps.Canvas.MoveUp(r.Context(), id)
		} else {
			err = s.deps.Canvas.MoveDown(r.Context(), id)
		}
		if err != nil {
			s.writeError(w, r, "move-component", err)
			return
		}
		s.handleGetComponent(w, r)
	}
}

func (s *Server) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Canvas.Duplicate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, "duplicate-component", err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, c)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Canvas.Select(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, "select-component", err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.deps.Panel.View())
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Canvas.Select(r.Context(), ""); err != nil {
		s.writeError(w, r, "select-component", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
		Value any  `json:"value"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "add-list-item", err)
		return
	}
	index := -1
	if req.Index != nil {
		index = *req.Index
	}
	if err := s.deps.Canvas.AddItem(r.Context(), r.PathValue("id"), index, req.Value); err != nil {
		s.writeError(w, r, "add-list-item", err)
		return
	}
	s.handleGetComponent(w, r)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.writeError(w, r, "remove-list-item", badRequest("item index must be an integer", err))
		return
	}
	if err := s.deps.Canvas.RemoveItem(r.Context(), r.PathValue("id"), index); err != nil {
		s.writeError(w, r, "remove-list-item", err)
		return
	}
	s.handleGetComponent(w, r)
}

func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "move-list-item", err)
		return
	}
	if err := s.deps.Builder.MoveListItem(r.Context(), r.PathValue("id"), req.From, req.To); err != nil {
		s.writeError(w, r, "move-list-item", err)
		return
	}
	s.handleGetComponent(w, r)
}

func (s *Server) handleInlineEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "inline-edit", err)
		return
	}
	if err := s.deps.Canvas.CommitInlineEdit(r.Context(), r.PathValue("id"), req.Field, req.Value); err != nil {
		s.writeError(w, r, "inline-edit", err)
		return
	}
	s.handleGetComponent(w, r)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")
	if err := s.deps.Canvas.Do(r.Context(), action, r.PathValue("id")); err != nil {
		s.writeError(w, r, action, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.deps.Builder.Document())
}

func (s *Server) handleCanvas(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.deps.Canvas.Render(r.Context(), w); err != nil {
		s.logger.Error(r.Context(), err, "Failed to render canvas")
	}
}

func (s *Server) handleDropZones(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, canvas.DropZones(s.deps.Builder.Document()))
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.deps.Panel.View())
}

func (s *Server) handlePanelHTML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.deps.Panel.Render(r.Context(), w); err != nil {
		s.logger.Error(r.Context(), err, "Failed to render design panel")
	}
}

func (s *Server) handlePanelEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Group    string `json:"group"`
		Property string `json:"property"`
		Value    any    `json:"value"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "panel-edit", err)
		return
	}
	if err := s.deps.Panel.Edit(r.Context(), req.Group, req.Property, req.Value); err != nil {
		s.writeError(w, r, "panel-edit", err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.deps.Panel.View())
}

func (s *Server) handleAddSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type   string       `json:"type"`
		Layout types.Layout `json:"layout"`
		Index  *int         `json:"index"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "add-section", err)
		return
	}
	index := -1
	if req.Index != nil {
		index = *req.Index
	}
	sec, err := s.deps.Builder.AddSection(r.Context(), req.Type, req.Layout, index)
	if err != nil {
		s.writeError(w, r, "add-section", err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, sec)
}

func (s *Server) handleRemoveSection(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Builder.RemoveSection(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, "remove-section", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveSection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "move-section", err)
		return
	}
	if err := s.deps.Builder.MoveSection(r.Context(), r.PathValue("id"), req.Index); err != nil {
		s.writeError(w, r, "move-section", err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.deps.Builder.Document())
}

type dragResponse struct {
	Active bool              `json:"active"`
	Drag   *canvas.DragState `json:"drag,omitempty"`
}

func (s *Server) writeDrag(w http.ResponseWriter, r *http.Request, code int) {
	resp := dragResponse{}
	if d, ok := s.deps.Canvas.Drag(); ok {
		resp.Active = true
		resp.Drag = &d
	}
	s.writeJSON(w, r, code, resp)
}

func (s *Server) handleDragState(w http.ResponseWriter, r *http.Request) {
	s.writeDrag(w, r, http.StatusOK)
}

func (s *Server) handleDragPalette(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "drag-start", err)
		return
	}
	if err := s.deps.Canvas.StartPaletteDrag(r.Context(), req.Type); err != nil {
		s.writeError(w, r, "drag-start", err)
		return
	}
	s.writeDrag(w, r, http.StatusOK)
}

func (s *Server) handleDragComponent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "drag-start", err)
		return
	}
	if err := s.deps.Canvas.StartComponentDrag(r.Context(), req.ID); err != nil {
		s.writeError(w, r, "drag-start", err)
		return
	}
	s.writeDrag(w, r, http.StatusOK)
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var zone canvas.DropZone
	if err := decode(r, &zone); err != nil {
		s.writeError(w, r, "drop", err)
		return
	}
	if err := s.deps.Canvas.Drop(r.Context(), zone); err != nil {
		s.writeError(w, r, "drop", err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.deps.Builder.Document())
}

func (s *Server) handleCancelDrag(w http.ResponseWriter, r *http.Request) {
	s.deps.Canvas.CancelDrag(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type historyResponse struct {
	Changed bool            `json:"changed"`
	Status  controls.Status `json:"status"`
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	changed, err := s.deps.Controls.Undo(r.Context())
	if err != nil {
		s.writeError(w, r, "undo", err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, historyResponse{Changed: changed, Status: s.deps.Controls.Status()})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	changed, err := s.deps.Controls.Redo(r.Context())
	if err != nil {
		s.writeError(w, r, "redo", err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, historyResponse{Changed: changed, Status: s.deps.Controls.Status()})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id, err := s.deps.Controls.Save(r.Context())
	if err != nil {
		s.writeError(w, r, "save", err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"id": id, "status": s.deps.Controls.Status()})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "load", err)
		return
	}
	if req.ID == "" {
		s.writeError(w, r, "load", errors.NewValidationError(errors.ErrCodeValidationFailed, "kit id is required",
			errors.Issue{Path: "id", Message: "must not be empty"}))
		return
	}
	if err := s.deps.Builder.Load(r.Context(), req.ID); err != nil {
		s.writeError(w, r, "load", err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.deps.Builder.Document())
}

func (s *Server) handleKits(w http.ResponseWriter, r *http.Request) {
	kits, err := s.deps.Adapter.Kits(r.Context())
	if err != nil {
		s.writeError(w, r, "list-kits", err)
		return
	}
	if kits == nil {
		kits = []adapters.Summary{}
	}
	s.writeJSON(w, r, http.StatusOK, kits)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Format types.ExportFormat `json:"format"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "export", err)
		return
	}
	if req.Format == "" {
		req.Format = types.ExportHTML
	}
	res, err := s.deps.Controls.Export(r.Context(), req.Format)
	if err != nil {
		s.writeError(w, r, "export", err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleControls(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.deps.Controls.Status())
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Controls.Retry(r.Context()); err != nil {
		s.writeError(w, r, "retry", err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.deps.Controls.Status())
}

func (s *Server) handleDismissNotice(w http.ResponseWriter, r *http.Request) {
	s.deps.Controls.DismissNotice()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePreviewToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "preview", err)
		return
	}
	if req.Enabled == nil {
		s.deps.Controls.TogglePreview(r.Context())
	} else {
		s.deps.Controls.SetPreview(r.Context(), *req.Enabled)
	}
	s.writeJSON(w, r, http.StatusOK, s.deps.Controls.Status())
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	allowPremium := q.Get("premium") != "false"
	s.writeJSON(w, r, http.StatusOK, s.deps.Templates.Filter(q.Get("category"), allowPremium))
}

func (s *Server) handleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Builder.ApplyTemplate(r.Context(), r.PathValue("name")); err != nil {
		s.writeError(w, r, "apply-template", err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.deps.Builder.Document())
}

// handleHostEvent lets the embedding host ask for a save or a load.
func (s *Server) handleHostEvent(w http.ResponseWriter, r *http.Request) {
	event := r.PathValue("event")
	if event != adapters.HostSaveRequested && event != adapters.HostLoadRequested {
		s.writeError(w, r, "host-event", errors.NewValidationError(errors.ErrCodeValidationFailed, "unknown host event",
			errors.Issue{Path: "event", Message: event + " is not a host event"}))
		return
	}
	var req struct {
		KitID string `json:"kitId"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, "host-event", err)
		return
	}
	handled := s.deps.Adapter.Request(r.Context(), event, req.KitID)
	s.writeJSON(w, r, http.StatusAccepted, map[string]any{"event": event, "handlers": handled})
}
