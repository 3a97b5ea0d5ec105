package nodeapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dagu-org/faultline/internal/cmn/logger"
	"github.com/dagu-org/faultline/internal/cmn/logger/tag"
	"github.com/dagu-org/faultline/internal/core"
	"github.com/dagu-org/faultline/internal/noderegistry"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

const (
	opAdd    = "add"
	opList   = "list"
	opDelete = "delete"
)

type handlers struct {
	backend noderegistry.Backend
	metrics *Metrics
}

func (h *handlers) addNode(w http.ResponseWriter, r *http.Request) {
	var node noderegistry.Node
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&node); err != nil {
		h.respond(w, opAdd, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}
	if node.Kind == "" {
		node.Kind = noderegistry.KindPhysical
	}
	if node.Kind != noderegistry.KindPhysical {
		h.respond(w, opAdd, http.StatusBadRequest, errorResponse{Error: "unsupported node kind", Field: "kind"})
		return
	}

	if err := h.backend.Add(r.Context(), node); err != nil {
		h.writeError(w, r, opAdd, err)
		return
	}
	logger.Info(r.Context(), "Node registered", tag.Node(node.Name))
	h.respond(w, opAdd, http.StatusCreated, node)
}

func (h *handlers) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.backend.List(r.Context())
	if err != nil {
		h.writeError(w, r, opList, err)
		return
	}
	h.metrics.Listed(len(nodes))
	h.respond(w, opList, http.StatusOK, nodes)
}

func (h *handlers) deleteNode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.backend.Delete(r.Context(), name); err != nil {
		h.writeError(w, r, opDelete, err)
		return
	}
	logger.Info(r.Context(), "Node deleted", tag.Node(name))
	h.metrics.Request(opDelete, http.StatusOK)
	w.WriteHeader(http.StatusOK)
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		verrs    core.ValidationErrors
		verr     *core.ValidationError
		conflict *core.ConflictError
		notFound *core.NotFoundError
	)
	switch {
	case errors.As(err, &verrs) && len(verrs) > 0:
		h.respond(w, op, http.StatusBadRequest, errorResponse{Error: verrs[0].Err.Error(), Field: verrs[0].Field})
	case errors.As(err, &verr):
		h.respond(w, op, http.StatusBadRequest, errorResponse{Error: verr.Err.Error(), Field: verr.Field})
	case errors.As(err, &conflict):
		h.respond(w, op, http.StatusConflict, errorResponse{Error: conflict.Error()})
	case errors.As(err, &notFound):
		h.respond(w, op, http.StatusNotFound, errorResponse{Error: notFound.Error()})
	default:
		logger.Error(r.Context(), "Node registry request failed", tag.Path(r.URL.Path), tag.Error(err))
		h.respond(w, op, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *handlers) respond(w http.ResponseWriter, op string, status int, body any) {
	h.metrics.Request(op, status)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
