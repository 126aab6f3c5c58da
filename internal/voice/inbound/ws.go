package inbound

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkguid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10
	replyTimeout   = 30 * time.Second
)

type Picker interface {
	Next() string
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Reply is sent for every client message.
type Reply struct {
	Type     string `json:"type"`
	AudioURL string `json:"audio_url,omitempty"`
	Text     string `json:"text,omitempty"`
	Message  string `json:"message,omitempty"`
}

type Config struct {
	// AllowedOrigins for the upgrade; empty or "*" accepts any origin.
	AllowedOrigins []string
}

type Dependency struct {
	Picker      Picker
	Synthesizer Synthesizer
	Sessions    pkguid.NumberID
	Metrics     prometheus.Registerer
	Config      Config
}

// VoiceEndpoint answers each message on a voice socket with a spoken reply.
type VoiceEndpoint struct {
	picker   Picker
	synth    Synthesizer
	sessions pkguid.NumberID
	upgrader websocket.Upgrader

	active  prometheus.Gauge
	replies *prometheus.CounterVec
}

func NewVoiceEndpoint(dep Dependency) *VoiceEndpoint {
	reg := dep.Metrics
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &VoiceEndpoint{
		picker:   dep.Picker,
		synth:    dep.Synthesizer,
		sessions: dep.Sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(dep.Config.AllowedOrigins),
		},
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "gomultipart",
			Subsystem: "voice",
			Name:      "sessions_active",
			Help:      "Open voice sockets.",
		}),
		replies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gomultipart",
			Subsystem: "voice",
			Name:      "replies_total",
			Help:      "Voice replies by outcome.",
		}, []string{"outcome"}),
	}
}

func RegisterWebsocketEndpoint(r *pkgrouter.Router, end *VoiceEndpoint) {
	r.Handle(http.MethodGet, "/ws/voice/:interviewId/:candidateId/", http.HandlerFunc(end.ServeHTTP))
}

func (e *VoiceEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	interviewID := pkgrouter.GetParam(ctx, "interviewId")
	candidateID := pkgrouter.GetParam(ctx, "candidateId")

	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already wrote an http error
		slog.WarnContext(ctx, "voice upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	session := ""
	if e.sessions != nil {
		session = strconv.FormatInt(e.sessions.Generate(), 10)
	}
	log := slog.With("session", session, "interview_id", interviewID, "candidate_id", candidateID)
	log.InfoContext(ctx, "voice session opened")

	e.active.Inc()
	defer e.active.Dec()

	// the request context ends once the handler returns; keep our own
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go e.keepAlive(sessCtx, conn)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.WarnContext(ctx, "voice session read failed", "error", err)
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		log.DebugContext(ctx, "voice message received", "bytes", len(msg))

		reply := e.reply(sessCtx)
		if err := writeJSON(conn, reply); err != nil {
			log.WarnContext(ctx, "voice session write failed", "error", err)
			break
		}
	}

	log.InfoContext(ctx, "voice session closed")
}

func (e *VoiceEndpoint) reply(ctx context.Context) Reply {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	text := e.picker.Next()
	audio, err := e.synth.Synthesize(ctx, text)
	if err != nil {
		e.replies.WithLabelValues("error").Inc()
		slog.ErrorContext(ctx, "speech synthesis failed", "error", err)
		return Reply{Type: "error", Message: "Failed to synthesize speech"}
	}

	e.replies.WithLabelValues("ok").Inc()
	return Reply{
		Type:     "ai_response",
		AudioURL: base64.StdEncoding.EncodeToString(audio),
		Text:     text,
	}
}

func (e *VoiceEndpoint) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					slog.DebugContext(ctx, "voice ping failed", "error", err)
				}
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.Contains(allowed, u.Scheme+"://"+u.Host)
	}
}
