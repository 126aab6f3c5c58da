package pkgrouter

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgerror"
)

// middlewareRecoverer turns a handler panic into a 500 error envelope.
//
// Upgraded connections (the voice websocket) already left HTTP, so nothing is
// written for them; the panic is only logged.
func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			//nolint:err113,errorlint // sentinel must be re-raised as-is
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			slog.ErrorContext(r.Context(), "panic on the server",
				"because", rvr,
				"route", matchedRoutePath(r),
				"stack", appFrames(debug.Stack()),
			)

			if strings.EqualFold(r.Header.Get("Connection"), "upgrade") {
				return
			}

			writeJSON(w, errorResponse{
				Message: "Internal server error",
				Error:   map[string]any{"code": pkgerror.CodeInternal.String()},
			}, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}

// appFrames keeps the file:line frames under internal/ from a stack dump.
func appFrames(stack []byte) []string {
	var frames []string
	for line := range strings.SplitSeq(string(stack), "\n") {
		line = strings.TrimSpace(line)
		idx := strings.Index(line, "/internal/")
		if idx == -1 || !strings.Contains(line, ".go:") {
			continue
		}
		frame := line[idx+1:]
		if sp := strings.IndexByte(frame, ' '); sp != -1 {
			frame = frame[:sp]
		}
		frames = append(frames, frame)
	}
	return frames
}
