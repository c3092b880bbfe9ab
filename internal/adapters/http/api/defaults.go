package api

import (
	"net/http"

	"github.com/okian/examscore/internal/domain/inputs"
)

// DefaultsHandler serves the reset defaults and the input schema.
type DefaultsHandler struct {
	deps Dependencies
}

// NewDefaultsHandler creates a new defaults handler.
func NewDefaultsHandler(deps Dependencies) *DefaultsHandler {
	return &DefaultsHandler{deps: deps}
}

type defaultsResponse struct {
	Inputs inputs.Raw `json:"inputs"`
	Result string     `json:"result"`
}

// HandleDefaults handles GET /api/defaults.
func (h *DefaultsHandler) HandleDefaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	raw, result := h.deps.ResetDefaults()
	writeJSON(w, http.StatusOK, defaultsResponse{Inputs: raw, Result: result})
}

// HandleSchema handles GET /api/schema.
func (h *DefaultsHandler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	const op = "api.schema"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	schema, err := h.deps.Schema()
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, WrapKind(op, kindFor(status), err))
		return
	}
	writeJSON(w, http.StatusOK, schema)
}
