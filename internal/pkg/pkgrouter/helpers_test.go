package pkgrouter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizeCID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "trims spaces", in: "  abc  ", want: "abc"},
		{name: "rejects newline only", in: "\n", want: ""},
		{name: "rejects header injection", in: "abc\r\nX-Evil: 1", want: ""},
		{name: "truncates", in: strings.Repeat("a", 200), want: strings.Repeat("a", 128)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := normalizeCID(tt.in); got != tt.want {
				t.Fatalf("normalizeCID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMaskHeadersHidesCSRFAndCookies(t *testing.T) {
	t.Parallel()

	headers := http.Header{}
	headers.Set("X-CSRF-Token", "deadbeef")
	headers.Set("Cookie", "session=1")
	headers.Set("Content-Type", "application/octet-stream")

	masked := maskHeaders(headers)
	if got := masked.Get("X-CSRF-Token"); got != "***" {
		t.Fatalf("expected masked csrf header, got %q", got)
	}
	if got := masked.Get("Cookie"); got != "***" {
		t.Fatalf("expected masked cookie, got %q", got)
	}
	if got := masked.Get("Content-Type"); got != "application/octet-stream" {
		t.Fatalf("expected content type to stay, got %q", got)
	}
	if got := headers.Get("X-CSRF-Token"); got != "deadbeef" {
		t.Fatalf("expected original headers unchanged, got %q", got)
	}
}

func TestParseAndMaskBodyJSON(t *testing.T) {
	t.Parallel()

	body := []byte(`{"csrfToken":"secret","fileName":"a.webm","parts":[{"PartNumber":1,"access_token":"x"}]}`)
	parsed := parseAndMaskBody("application/json", body)

	m, ok := parsed.(map[string]any)
	if !ok {
		encoded, _ := json.Marshal(parsed)
		t.Fatalf("expected map, got %s", string(encoded))
	}
	if m["csrfToken"] != "***" {
		t.Fatalf("expected masked csrfToken, got %v", m["csrfToken"])
	}
	if m["fileName"] != "a.webm" {
		t.Fatalf("expected fileName to remain, got %v", m["fileName"])
	}
	part := m["parts"].([]any)[0].(map[string]any)
	if part["access_token"] != "***" {
		t.Fatalf("expected nested token masked, got %v", part["access_token"])
	}
	if part["PartNumber"] != float64(1) {
		t.Fatalf("expected part number kept, got %v", part["PartNumber"])
	}
}

func TestParseAndMaskBodyForm(t *testing.T) {
	t.Parallel()

	parsed := parseAndMaskBody("application/x-www-form-urlencoded", []byte("password=secret&name=bob"))

	m, ok := parsed.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", parsed)
	}
	if m["password"] != "***" || m["name"] != "bob" {
		t.Fatalf("unexpected form masking: %v", m)
	}
}

func TestParseAndMaskBodyBinaryPart(t *testing.T) {
	t.Parallel()

	parsed := parseAndMaskBody("text/plain", []byte{0xff, 0xfe, 0xfd})
	if parsed != "<binary body omitted>" {
		t.Fatalf("expected binary body omission, got %v", parsed)
	}
}

func TestMiddlewareRecovererWritesEnvelope(t *testing.T) {
	t.Parallel()

	h := middlewareRecoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/complete-multipart-upload/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var body struct {
		Message string         `json:"message"`
		Error   map[string]any `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "Internal server error" || body.Error["code"] != "ERROR_CODE_INTERNAL" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
}

func TestMiddlewareRecovererSkipsUpgradedConnections(t *testing.T) {
	t.Parallel()

	h := middlewareRecoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws/voice/i/c/", nil)
	req.Header.Set("Connection", "Upgrade")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Body.Len() != 0 {
		t.Fatalf("expected no body, got %q", rec.Body.String())
	}
}

func TestAppFrames(t *testing.T) {
	t.Parallel()

	stack := []byte("goroutine 1 [running]:\n" +
		"github.com/x/y/internal/multipart/usecase.(*Usecase).Complete(...)\n" +
		"\t/src/internal/multipart/usecase/complete.go:42 +0x1d\n" +
		"net/http.HandlerFunc.ServeHTTP(...)\n" +
		"\t/usr/local/go/src/net/http/server.go:2294 +0x29\n")

	frames := appFrames(stack)
	if len(frames) != 1 || frames[0] != "internal/multipart/usecase/complete.go:42" {
		t.Fatalf("unexpected frames: %v", frames)
	}
}
