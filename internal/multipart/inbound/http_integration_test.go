package inbound

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/gomultipart/internal/multipart/assemble"
	"github.com/shandysiswandi/gomultipart/internal/multipart/partstore"
	"github.com/shandysiswandi/gomultipart/internal/multipart/store"
	"github.com/shandysiswandi/gomultipart/internal/multipart/usecase"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgsign"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkguid"
)

type envelope[T any] struct {
	Message string         `json:"message"`
	Data    T              `json:"data"`
	Error   map[string]any `json:"error"`
}

type server struct {
	router http.Handler
	dir    string
}

func newServer(t *testing.T, signer *pkgsign.Signer) *server {
	t.Helper()

	dir := t.TempDir()
	parts, err := partstore.NewDisk(filepath.Join(dir, ".parts"), 1<<20)
	if err != nil {
		t.Fatalf("new disk: %v", err)
	}

	uc := usecase.New(usecase.Dependency{
		Registry:  store.NewInMemoryRegistry(),
		Parts:     parts,
		Assembler: assemble.New(parts),
		Signer:    signer,
		ID:        pkguid.NewRandomUUID(),
		Config: usecase.Config{
			Dir:     dir,
			BaseURL: "http://localhost:3000",
			URLTTL:  time.Minute,
		},
	})

	router := pkgrouter.NewRouter(pkguid.NewUUID())
	RegisterHTTPEndpoint(router, uc, Limits{MaxJSONBytes: 1 << 16, MaxPartBytes: 1 << 20})

	return &server{router: router, dir: dir}
}

func (s *server) do(t *testing.T, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *server) postJSON(t *testing.T, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return s.do(t, http.MethodPost, target, body, "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

// pathOf strips scheme and host from an absolute part URL.
func pathOf(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u.RequestURI()
}

func TestMultipartUploadFlow(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)

	rec := s.postJSON(t, "/api/init-multipart-upload/", map[string]any{
		"fileName":     "report.pdf",
		"fileType":     "application/pdf",
		"interviewId":  "iv-7",
		"candidate_id": "c-3",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("init status %d: %s", rec.Code, rec.Body.String())
	}
	initEnv := decode[InitUploadResponse](t, rec)
	uploadID := initEnv.Data.UploadID
	if uploadID == "" || initEnv.Data.Key != "iv-7/c-3/"+uploadID {
		t.Fatalf("unexpected init response: %+v", initEnv)
	}
	if initEnv.Message != "Multipart upload initialized" {
		t.Fatalf("unexpected message %q", initEnv.Message)
	}

	etags := map[int]string{}
	for _, n := range []int{2, 1} {
		rec = s.postJSON(t, "/api/get-upload-part-url/", map[string]any{"uploadId": uploadID, "partNumber": n})
		if rec.Code != http.StatusOK {
			t.Fatalf("part url status %d: %s", rec.Code, rec.Body.String())
		}
		target := decode[PartURLResponse](t, rec).Data.URL
		if !strings.HasPrefix(target, "http://localhost:3000/api/upload-part/"+uploadID+"/") {
			t.Fatalf("unexpected target %q", target)
		}

		body := map[int]string{1: "AAA", 2: "BBB"}[n]
		rec = s.do(t, http.MethodPut, pathOf(t, target), []byte(body), "application/octet-stream")
		if rec.Code != http.StatusOK {
			t.Fatalf("upload part status %d: %s", rec.Code, rec.Body.String())
		}
		etag := rec.Header().Get("ETag")
		if len(etag) != 34 || !strings.HasPrefix(etag, `"`) {
			t.Fatalf("unexpected etag header %q", etag)
		}
		etags[n] = etag
	}

	// S3 style casing as sent by browser clients
	rec = s.postJSON(t, "/api/complete-multipart-upload/", map[string]any{
		"uploadId": uploadID,
		"parts": []map[string]any{
			{"PartNumber": 1, "ETag": etags[1]},
			{"PartNumber": 2, "ETag": etags[2]},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status %d: %s", rec.Code, rec.Body.String())
	}
	done := decode[CompleteUploadResponse](t, rec)
	if done.Message != "Upload completed successfully" || done.Data.Location != "/uploads/report.pdf" {
		t.Fatalf("unexpected completion: %+v", done)
	}

	got, err := os.ReadFile(filepath.Join(s.dir, "report.pdf"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(got) != "AAABBB" {
		t.Fatalf("expected AAABBB, got %q", got)
	}

	rec = s.do(t, http.MethodGet, "/api/uploads/"+uploadID, nil, "")
	status := decode[UploadStatusResponse](t, rec)
	if status.Data.Status != "completed" || status.Data.Size != 6 {
		t.Fatalf("unexpected status view: %+v", status.Data)
	}

	rec = s.postJSON(t, "/api/complete-multipart-upload/", map[string]any{
		"uploadId": uploadID,
		"parts":    []map[string]any{{"partNumber": 1, "etag": etags[1]}, {"partNumber": 2, "etag": etags[2]}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second completion, got %d", rec.Code)
	}
	if code := decode[any](t, rec).Error["kind"]; code != "INVALID_STATE" {
		t.Fatalf("unexpected error kind %v", code)
	}
}

func TestUnknownUploadReturns404(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)

	checks := []*httptest.ResponseRecorder{
		s.postJSON(t, "/api/get-upload-part-url/", map[string]any{"uploadId": "missing", "partNumber": 1}),
		s.do(t, http.MethodPut, "/api/upload-part/missing/1", []byte("x"), "application/octet-stream"),
		s.postJSON(t, "/api/complete-multipart-upload/", map[string]any{
			"uploadId": "missing",
			"parts":    []map[string]any{{"partNumber": 1, "etag": "x"}},
		}),
		s.do(t, http.MethodGet, "/api/uploads/missing", nil, ""),
	}

	for i, rec := range checks {
		if rec.Code != http.StatusNotFound {
			t.Fatalf("check %d: expected 404, got %d: %s", i, rec.Code, rec.Body.String())
		}
		env := decode[any](t, rec)
		if env.Message != "Upload ID not found" || env.Error["kind"] != "UNKNOWN_UPLOAD" {
			t.Fatalf("check %d: unexpected body %+v", i, env)
		}
	}
}

func TestCompleteWithWrongETagReturns400(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)

	uploadID := decode[InitUploadResponse](t, s.postJSON(t, "/api/init-multipart-upload/", map[string]any{"fileName": "a.bin"})).Data.UploadID
	rec := s.do(t, http.MethodPut, "/api/upload-part/"+uploadID+"/1", []byte("AAA"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload part status %d", rec.Code)
	}

	rec = s.postJSON(t, "/api/complete-multipart-upload/", map[string]any{
		"uploadId": uploadID,
		"parts":    []map[string]any{{"partNumber": 1, "etag": "deadbeef"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decode[any](t, rec)
	if env.Message != "Part verification failed" || env.Error["part_number"] != float64(1) {
		t.Fatalf("unexpected body %+v", env)
	}
	if _, err := os.Stat(filepath.Join(s.dir, "a.bin")); !os.IsNotExist(err) {
		t.Fatalf("artifact must not exist: %v", err)
	}
}

func TestSignedUploadPart(t *testing.T) {
	t.Parallel()

	s := newServer(t, pkgsign.NewSigner([]byte("k")))

	uploadID := decode[InitUploadResponse](t, s.postJSON(t, "/api/init-multipart-upload/", map[string]any{"fileName": "a.bin"})).Data.UploadID

	rec := s.do(t, http.MethodPut, "/api/upload-part/"+uploadID+"/1", []byte("AAA"), "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without signature, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPut, "/api/upload-part/unknown-upload/1", []byte("AAA"), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown upload even when signing, got %d", rec.Code)
	}

	resp := decode[PartURLResponse](t, s.postJSON(t, "/api/get-upload-part-url/", map[string]any{"uploadId": uploadID, "partNumber": 1}))
	if resp.Data.ExpiresAt == nil || !strings.Contains(resp.Data.URL, "signature=") {
		t.Fatalf("expected signed url, got %+v", resp.Data)
	}

	rec = s.do(t, http.MethodPut, pathOf(t, resp.Data.URL), []byte("AAA"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected signed upload to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadPartTooLarge(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)
	uploadID := decode[InitUploadResponse](t, s.postJSON(t, "/api/init-multipart-upload/", map[string]any{"fileName": "a.bin"})).Data.UploadID

	rec := s.do(t, http.MethodPut, "/api/upload-part/"+uploadID+"/1", bytes.Repeat([]byte("x"), 1<<20+1), "")
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInvalidRequests(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)

	tests := []struct {
		name string
		rec  *httptest.ResponseRecorder
		want int
	}{
		{
			name: "malformed json",
			rec:  s.do(t, http.MethodPost, "/api/init-multipart-upload/", []byte("{"), "application/json"),
			want: http.StatusBadRequest,
		},
		{
			name: "missing file name",
			rec:  s.postJSON(t, "/api/init-multipart-upload/", map[string]any{"fileType": "x"}),
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "bad part number",
			rec:  s.do(t, http.MethodPut, "/api/upload-part/abc/one", []byte("x"), ""),
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "oversized json",
			rec:  s.do(t, http.MethodPost, "/api/init-multipart-upload/", append([]byte(`{"fileName":"`), bytes.Repeat([]byte("a"), 1<<17)...), "application/json"),
			want: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		if tt.rec.Code != tt.want {
			t.Fatalf("%s: expected %d, got %d: %s", tt.name, tt.want, tt.rec.Code, tt.rec.Body.String())
		}
	}
}

func TestAbortUpload(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)
	uploadID := decode[InitUploadResponse](t, s.postJSON(t, "/api/init-multipart-upload/", map[string]any{"fileName": "a.bin"})).Data.UploadID

	rec := s.do(t, http.MethodDelete, "/api/uploads/"+uploadID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("abort status %d", rec.Code)
	}
	if env := decode[AbortUploadResponse](t, rec); env.Data.Status != "failed" || env.Message != "Upload aborted" {
		t.Fatalf("unexpected abort response %+v", env)
	}

	rec = s.do(t, http.MethodPut, "/api/upload-part/"+uploadID+"/1", []byte("x"), "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 after abort, got %d", rec.Code)
	}
}

func TestCSRFAndHello(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/get-csrf-token/", nil, "")
	token := decode[CSRFTokenResponse](t, rec).Data.CSRFToken
	if len(token) != 16 || strings.Trim(token, "0123456789abcdef") != "" {
		t.Fatalf("unexpected csrf token %q", token)
	}

	rec = s.do(t, http.MethodGet, "/api", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("hello status %d", rec.Code)
	}

	rec = s.postJSON(t, "/api/complete-interview-upload/", map[string]any{"interviewId": "iv", "notes": "ok"})
	if env := decode[CompleteInterviewResponse](t, rec); env.Data.Received != 2 {
		t.Fatalf("unexpected interview ack %+v", env)
	}
}
