package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sitevoice/fieldreport/constants"
	"github.com/sitevoice/fieldreport/internal/async"
	"github.com/sitevoice/fieldreport/internal/common"
	"github.com/sitevoice/fieldreport/internal/entity"
	"github.com/sitevoice/fieldreport/internal/export"
	"github.com/sitevoice/fieldreport/internal/storage"
)

type fakeRepo struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*entity.Report
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{reports: make(map[uuid.UUID]*entity.Report)}
}

func (f *fakeRepo) put(rep *entity.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports[rep.ID] = rep
}

func (f *fakeRepo) Create(_ context.Context, siteName, audioKey string) (*entity.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rep := &entity.Report{
		ID:        uuid.New(),
		SiteName:  siteName,
		AudioKey:  audioKey,
		Status:    constants.StatusUploading,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	f.reports[rep.ID] = rep
	cp := *rep
	return &cp, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rep, ok := f.reports[id]
	if !ok {
		return nil, common.Tagf(common.ErrNotFound, "report %s", id)
	}
	cp := *rep
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context, _, _ *time.Time) ([]*entity.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Report
	for _, r := range f.reports {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRepo) MarkProcessing(_ context.Context, _ uuid.UUID) error { return nil }
func (f *fakeRepo) FinishSuccess(_ context.Context, _ uuid.UUID, _ string, _ *entity.ExtractedData, _ string) error {
	return nil
}
func (f *fakeRepo) FinishFailure(_ context.Context, _ uuid.UUID, _ string) error { return nil }

type fakeSigner struct {
	gotKey  string
	gotMime string
}

func (f *fakeSigner) SignUpload(_ context.Context, key, contentType string) (*storage.SignedUpload, error) {
	f.gotKey, f.gotMime = key, contentType
	return &storage.SignedUpload{
		UploadURL: "https://storage.googleapis.com/site-audio/" + key + "?sig=abc",
		Method:    http.MethodPut,
		Headers:   map[string]string{"Content-Type": contentType},
		ObjectKey: key,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

type fakeQueue struct {
	mu         sync.Mutex
	jobs       []async.Job
	enqueueErr error
}

func (f *fakeQueue) Enqueue(_ context.Context, job async.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeQueue) Shutdown(_ context.Context) {}

func (f *fakeQueue) jobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

type testHarness struct {
	repo   *fakeRepo
	signer *fakeSigner
	queue  *fakeQueue
	router *gin.Engine
}

func newTestHarness() *testHarness {
	gin.SetMode(gin.TestMode)
	h := &testHarness{
		repo:   newFakeRepo(),
		signer: &fakeSigner{},
		queue:  &fakeQueue{},
	}
	svc := NewService(h.repo, h.signer, h.queue, export.NewService(h.repo, nil), nil)
	h.router = gin.New()
	svc.Routes(h.router)
	return h
}

func (h *testHarness) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body == "" {
		rdr = bytes.NewReader(nil)
	} else {
		rdr = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestCreateReportIssuesSignedUpload(t *testing.T) {
	h := newTestHarness()
	w := h.do(t, http.MethodPost, "/v1/reports", `{"siteName":"Riverside Tower","fileName":"morning-report.mp3"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		AudioKey string `json:"audioKey"`
		Upload   struct {
			UploadURL string `json:"uploadUrl"`
			Method    string `json:"method"`
			ObjectKey string `json:"objectKey"`
		} `json:"upload"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "UPLOADING" {
		t.Fatalf("status = %q, want UPLOADING", resp.Status)
	}
	if !strings.HasPrefix(resp.AudioKey, "audio/") || !strings.HasSuffix(resp.AudioKey, ".mp3") {
		t.Fatalf("audioKey = %q", resp.AudioKey)
	}
	if resp.Upload.Method != http.MethodPut || resp.Upload.UploadURL == "" {
		t.Fatalf("upload = %+v", resp.Upload)
	}
	if resp.Upload.ObjectKey != resp.AudioKey {
		t.Fatalf("object key = %q, audio key = %q", resp.Upload.ObjectKey, resp.AudioKey)
	}
	if h.signer.gotMime != "audio/mpeg" {
		t.Fatalf("signed content type = %q, want audio/mpeg", h.signer.gotMime)
	}
}

func TestCreateReportRejectsUnsupportedType(t *testing.T) {
	h := newTestHarness()
	for _, body := range []string{
		`{"fileName":"notes.txt"}`,
		`{"fileName":"archive.zip"}`,
		`{"fileName":"noextension"}`,
		`{"siteName":"Depot"}`,
	} {
		if w := h.do(t, http.MethodPost, "/v1/reports", body); w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, w.Code)
		}
	}
	if h.queue.jobCount() != 0 {
		t.Fatal("rejected creates must not enqueue anything")
	}
}

func TestGetReportNotFound(t *testing.T) {
	h := newTestHarness()
	w := h.do(t, http.MethodGet, "/v1/reports/"+uuid.NewString(), "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	w = h.do(t, http.MethodGet, "/v1/reports/not-a-uuid", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestProcessTriggerAcknowledgesAndQueues(t *testing.T) {
	h := newTestHarness()
	rep, _ := h.repo.Create(context.Background(), "Depot", "audio/a.mp3")

	w := h.do(t, http.MethodPost, "/v1/reports/"+rep.ID.String()+"/process", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID     string `json:"id"`
		Queued bool   `json:"queued"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != rep.ID.String() || !resp.Queued {
		t.Fatalf("resp = %+v", resp)
	}
	if h.queue.jobCount() != 1 {
		t.Fatalf("jobs = %d, want 1", h.queue.jobCount())
	}
	if h.queue.jobs[0].TranscriptOverride != "" {
		t.Fatal("no override expected for empty body")
	}
}

func TestProcessTriggerWithTranscriptOverride(t *testing.T) {
	h := newTestHarness()
	rep, _ := h.repo.Create(context.Background(), "Depot", "audio/a.mp3")

	w := h.do(t, http.MethodPost, "/v1/reports/"+rep.ID.String()+"/process",
		`{"transcriptText":"three carpenters framing the second floor"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := h.queue.jobs[0].TranscriptOverride; got != "three carpenters framing the second floor" {
		t.Fatalf("override = %q", got)
	}
}

func TestProcessTriggerUnknownReportIs404BeforeEnqueue(t *testing.T) {
	h := newTestHarness()
	w := h.do(t, http.MethodPost, "/v1/reports/"+uuid.NewString()+"/process", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if h.queue.jobCount() != 0 {
		t.Fatal("unknown report must not be enqueued")
	}
}

func TestProcessTriggerDuringShutdownIs503(t *testing.T) {
	h := newTestHarness()
	rep, _ := h.repo.Create(context.Background(), "Depot", "audio/a.mp3")
	h.queue.enqueueErr = async.ErrShuttingDown

	w := h.do(t, http.MethodPost, "/v1/reports/"+rep.ID.String()+"/process", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if strings.Contains(w.Body.String(), `"queued":true`) {
		t.Fatal("a rejected job must not be acknowledged as queued")
	}
}

func TestGetSummaryStates(t *testing.T) {
	h := newTestHarness()
	rep, _ := h.repo.Create(context.Background(), "Depot", "audio/a.mp3")

	// not READY yet
	w := h.do(t, http.MethodGet, "/v1/reports/"+rep.ID.String()+"/summary", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 while not ready", w.Code)
	}

	summary := "DAILY CONSTRUCTION REPORT\nSite: Depot\n"
	h.repo.put(&entity.Report{
		ID:          rep.ID,
		SiteName:    rep.SiteName,
		AudioKey:    rep.AudioKey,
		Status:      constants.StatusReady,
		SummaryText: summary,
	})

	w = h.do(t, http.MethodGet, "/v1/reports/"+rep.ID.String()+"/summary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
	if w.Body.String() != summary {
		t.Fatalf("summary served = %q, want verbatim stored text", w.Body.String())
	}
}

func TestListReportsRejectsBadDate(t *testing.T) {
	h := newTestHarness()
	if w := h.do(t, http.MethodGet, "/v1/reports?from=12-06-2025", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if w := h.do(t, http.MethodGet, "/v1/reports?from=2025-06-01&to=2025-06-30", ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestExportEndpointServesWorkbook(t *testing.T) {
	h := newTestHarness()
	w := h.do(t, http.MethodGet, "/v1/reports/export.xlsx", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("content disposition = %q", cd)
	}
	if w.Body.Len() == 0 {
		t.Fatal("empty workbook body")
	}
}
