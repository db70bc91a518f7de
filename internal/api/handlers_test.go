package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/olga-ai/atendimento/internal/model"
	"github.com/olga-ai/atendimento/internal/queue"
	"github.com/olga-ai/atendimento/internal/router"
)

type fakeFinder struct {
	customer *model.Customer
}

func (f *fakeFinder) FindByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	return f.customer, nil
}

type fakeCounter struct {
	n   int64
	err error
}

func (f *fakeCounter) Count(ctx context.Context) (int64, error) {
	return f.n, f.err
}

type fakeWorker struct {
	running bool
}

func (f *fakeWorker) Start() bool {
	if f.running {
		return false
	}
	f.running = true
	return true
}

func (f *fakeWorker) Stop() bool {
	if !f.running {
		return false
	}
	f.running = false
	return true
}

func (f *fakeWorker) IsRunning() bool { return f.running }

type testServer struct {
	queue   *queue.MemoryQueue
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	q := queue.NewMemoryQueue()
	h := NewHandler(
		q,
		router.New(&fakeFinder{}),
		&fakeCounter{n: 3},
		&fakeWorker{},
		nil,
		func(context.Context) error { return nil },
	)
	return &testServer{queue: q, handler: Router(h)}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v body=%q", err, rec.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/db/health", "")
	body := decode[map[string]any](t, rec)
	if body["db"] != "ok" {
		t.Fatalf("expected db ok, got %#v", body)
	}
}

func TestAddToQueue(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/queue/add", `{"phone":"+5511999","message":"quero cotação"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	res := decode[queue.EnqueueResult](t, rec)
	if res.ID == 0 {
		t.Fatalf("expected queue_id assigned, got %+v", res)
	}
	if res.Position != 0 {
		t.Fatalf("expected position 0 on empty queue, got %d", res.Position)
	}
	if res.EstimatedWait == "" {
		t.Fatalf("expected estimated_wait, got %+v", res)
	}

	// Duplicate while WAITING returns the same id.
	rec = ts.do(t, http.MethodPost, "/api/queue/add", `{"phone":"+5511999","message":"outra"}`)
	dup := decode[queue.EnqueueResult](t, rec)
	if dup.ID != res.ID {
		t.Fatalf("expected dedup to return id %d, got %d", res.ID, dup.ID)
	}
}

func TestAddToQueue_Validation(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	for _, body := range []string{
		`{"message":"sem telefone"}`,
		`{"phone":"+5511999"}`,
		`not json`,
	} {
		rec := ts.do(t, http.MethodPost, "/api/queue/add", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestNextItems(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ctx := context.Background()

	ts.queue.Enqueue(ctx, "+551", "m", 9)
	ts.queue.Enqueue(ctx, "+552", "m", 1)

	rec := ts.do(t, http.MethodPost, "/api/queue/next", `{"batchSize":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	items := decode[[]claimedItem](t, rec)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Phone != "+552" {
		t.Fatalf("expected higher urgency first, got %+v", items)
	}

	// Claimed items are PROCESSING now; nothing left.
	rec = ts.do(t, http.MethodPost, "/api/queue/next", "")
	items = decode[[]claimedItem](t, rec)
	if len(items) != 0 {
		t.Fatalf("expected empty batch, got %d", len(items))
	}
}

func TestNextItems_InvalidBatchSize(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/queue/next", `{"batchSize":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCompleteItem(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ctx := context.Background()

	res, _ := ts.queue.Enqueue(ctx, "+5511999", "m", queue.DefaultPriority)
	ts.queue.ClaimBatch(ctx, 1)

	rec := ts.do(t, http.MethodPost, "/api/queue/1/complete", `{"flow":"VENDAS"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	it, _ := ts.queue.Item(res.ID)
	if it.Status != model.Done {
		t.Fatalf("expected DONE, got %s", it.Status)
	}
	if it.Result["flow"] != "VENDAS" {
		t.Fatalf("expected result stored, got %#v", it.Result)
	}
}

func TestCompleteItem_Errors(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/queue/999/complete", "{}")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/queue/abc/complete", "{}")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestFailItem(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ctx := context.Background()

	res, _ := ts.queue.Enqueue(ctx, "+5511999", "m", queue.DefaultPriority)
	ts.queue.ClaimBatch(ctx, 1)

	rec := ts.do(t, http.MethodPost, "/api/queue/1/error", `{"error":"downstream timeout"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	it, _ := ts.queue.Item(res.ID)
	if it.Status != model.Waiting || it.RetryCount != 1 {
		t.Fatalf("expected re-queued item, got status=%s retries=%d", it.Status, it.RetryCount)
	}

	// Empty error body defaults to "unknown".
	ts.queue.ClaimBatch(ctx, 1)
	rec = ts.do(t, http.MethodPost, "/api/queue/1/error", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	it, _ = ts.queue.Item(res.ID)
	if it.LastError == nil || *it.LastError != "unknown" {
		t.Fatalf("expected last_error unknown, got %v", it.LastError)
	}
}

func TestRouteMessage(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/router/route", `{"phone":"+5511999","message":"quero cotação"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	dec := decode[router.Decision](t, rec)
	if dec.Flow != router.FlowVendas {
		t.Fatalf("expected VENDAS, got %s", dec.Flow)
	}
	if dec.NextAction != router.ActionCollectLeadInfo {
		t.Fatalf("expected COLLECT_LEAD_INFO, got %s", dec.NextAction)
	}

	rec = ts.do(t, http.MethodPost, "/api/router/route", `{"phone":"","message":"oi"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty phone, got %d", rec.Code)
	}
}

func TestCustomersCount(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/customers/count", "")
	body := decode[map[string]any](t, rec)
	if body["customers"] != float64(3) {
		t.Fatalf("expected 3 customers, got %#v", body)
	}
}

func TestCustomersCount_Error(t *testing.T) {
	t.Parallel()

	h := NewHandler(
		queue.NewMemoryQueue(),
		router.New(&fakeFinder{}),
		&fakeCounter{err: errors.New("db down")},
		&fakeWorker{},
		nil,
		nil,
	)
	rec := httptest.NewRecorder()
	Router(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/customers/count", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestWorkerEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/worker/status", "")
	status := decode[map[string]any](t, rec)
	if status["running"] != false {
		t.Fatalf("expected worker stopped initially, got %#v", status)
	}

	rec = ts.do(t, http.MethodPost, "/api/worker/start", "")
	status = decode[map[string]any](t, rec)
	if status["running"] != true {
		t.Fatalf("expected worker running after start, got %#v", status)
	}

	rec = ts.do(t, http.MethodPost, "/api/worker/stop", "")
	status = decode[map[string]any](t, rec)
	if status["running"] != false {
		t.Fatalf("expected worker stopped after stop, got %#v", status)
	}
}
