package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olga-ai/atendimento/internal/queue"
	"github.com/olga-ai/atendimento/internal/router"
	"github.com/olga-ai/atendimento/internal/session"
)

const defaultBatchSize = 5

// CustomerCounter is the slice of the customer lookup the API needs.
type CustomerCounter interface {
	Count(ctx context.Context) (int64, error)
}

// WorkerControl exposes the background worker's switch to the API.
type WorkerControl interface {
	Start() bool
	Stop() bool
	IsRunning() bool
}

type Handler struct {
	queue     queue.Queue
	router    *router.Router
	customers CustomerCounter
	worker    WorkerControl
	sessions  session.Store
	dbPing    func(context.Context) error
}

func NewHandler(
	q queue.Queue,
	rt *router.Router,
	customers CustomerCounter,
	worker WorkerControl,
	sessions session.Store,
	dbPing func(context.Context) error,
) *Handler {
	return &Handler{
		queue:     q,
		router:    rt,
		customers: customers,
		worker:    worker,
		sessions:  sessions,
		dbPing:    dbPing,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) DBHealth(w http.ResponseWriter, r *http.Request) {
	if h.dbPing == nil {
		writeJSON(w, http.StatusOK, map[string]any{"db": "unconfigured"})
		return
	}
	if err := h.dbPing(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"db": "down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"db": "ok"})
}

type addRequest struct {
	Phone    string `json:"phone"`
	Message  string `json:"message"`
	Priority *int   `json:"priority"`
}

func (h *Handler) AddToQueue(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	priority := queue.DefaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}

	res, err := h.queue.Enqueue(r.Context(), req.Phone, req.Message, priority)
	if err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type nextRequest struct {
	BatchSize *int `json:"batchSize"`
}

type claimedItem struct {
	ID       int64  `json:"id"`
	Phone    string `json:"phone"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

func (h *Handler) NextItems(w http.ResponseWriter, r *http.Request) {
	var req nextRequest
	// An empty body means the default batch size.
	_ = json.NewDecoder(r.Body).Decode(&req)

	batch := defaultBatchSize
	if req.BatchSize != nil {
		batch = *req.BatchSize
	}

	items, err := h.queue.ClaimBatch(r.Context(), batch)
	if err != nil {
		writeQueueError(w, err)
		return
	}

	out := make([]claimedItem, 0, len(items))
	for _, it := range items {
		out = append(out, claimedItem{
			ID:       it.ID,
			Phone:    it.Phone,
			Message:  it.Message,
			Priority: it.Priority,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CompleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var result map[string]any
	_ = json.NewDecoder(r.Body).Decode(&result)
	if result == nil {
		result = map[string]any{}
	}

	if err := h.queue.Complete(r.Context(), id, result); err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type failRequest struct {
	Error string `json:"error"`
}

func (h *Handler) FailItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	var req failRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.queue.Fail(r.Context(), id, req.Error); err != nil {
		writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type routeRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (h *Handler) RouteMessage(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Phone == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "phone and message are required")
		return
	}

	dec, err := h.router.Route(r.Context(), req.Phone, req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.sessions != nil {
		if err := h.sessions.Save(r.Context(), req.Phone, map[string]any{
			"flow":        dec.Flow,
			"next_action": dec.NextAction,
		}); err != nil {
			slog.Warn("session save failed", "phone", req.Phone, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, dec)
}

func (h *Handler) CustomersCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.customers.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": n})
}

func (h *Handler) WorkerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.worker.IsRunning()})
}

func (h *Handler) WorkerStart(w http.ResponseWriter, r *http.Request) {
	h.worker.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.worker.IsRunning()})
}

func (h *Handler) WorkerStop(w http.ResponseWriter, r *http.Request) {
	h.worker.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.worker.IsRunning()})
}

func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid queue item id")
		return 0, false
	}
	return id, true
}

// writeQueueError maps engine errors to client and server faults.
func writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrEmptyPhone),
		errors.Is(err, queue.ErrEmptyMessage),
		errors.Is(err, queue.ErrBatchSize):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, queue.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
