package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/podushkina/taskdispatch/internal/dispatch"
	"github.com/podushkina/taskdispatch/internal/worker"
)

// Sender queues invocations for publishing.
type Sender interface {
	Submit(ctx context.Context, inv worker.Invocation) (<-chan worker.Result, error)
}

type Handler struct {
	registry *dispatch.Registry
	sender   Sender
}

func NewHandler(r *dispatch.Registry, s Sender) *Handler {
	return &Handler{registry: r, sender: s}
}

type SendTaskRequest struct {
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

type SendTaskResponse struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	TaskName  string `json:"taskname"`
}

type NamespaceResponse struct {
	Name            string   `json:"name"`
	Topic           string   `json:"topic"`
	DeadletterTopic string   `json:"deadletter_topic"`
	DefaultRetry    any      `json:"default_retry"`
	Tasks           []string `json:"tasks"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) SendTask(w http.ResponseWriter, r *http.Request) {
	ns, err := h.registry.Namespace(chi.URLParam(r, "namespace"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	t, err := ns.Task(chi.URLParam(r, "task"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	var req SendTaskRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	done, err := h.sender.Submit(r.Context(), worker.Invocation{
		Task:   t,
		Args:   req.Args,
		Kwargs: req.Kwargs,
	})
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	select {
	case res := <-done:
		if res.Err != nil {
			respondError(w, statusFor(res.Err), res.Err.Error())
			return
		}
		respondJSON(w, http.StatusAccepted, SendTaskResponse{
			ID:        res.ID,
			Namespace: ns.Name(),
			TaskName:  t.Name(),
		})
	case <-r.Context().Done():
		respondError(w, http.StatusServiceUnavailable, r.Context().Err().Error())
	}
}

func (h *Handler) ListNamespaces(w http.ResponseWriter, r *http.Request) {
	list := h.registry.Namespaces()

	out := make([]NamespaceResponse, 0, len(list))
	for _, ns := range list {
		out = append(out, namespaceResponse(ns))
	}

	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) GetNamespace(w http.ResponseWriter, r *http.Request) {
	ns, err := h.registry.Namespace(chi.URLParam(r, "namespace"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, namespaceResponse(ns))
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func namespaceResponse(ns *dispatch.Namespace) NamespaceResponse {
	tasks := ns.Tasks()
	names := make([]string, 0, len(tasks))
	for _, t := range tasks {
		names = append(names, t.Name())
	}

	return NamespaceResponse{
		Name:            ns.Name(),
		Topic:           ns.Topic(),
		DeadletterTopic: ns.DeadletterTopic(),
		DefaultRetry:    ns.DefaultRetry(),
		Tasks:           names,
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, worker.ErrPoolFull), errors.Is(err, worker.ErrPoolClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, dispatch.ErrPublishTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, dispatch.ErrNamespaceNotFound), errors.Is(err, dispatch.ErrTaskNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
