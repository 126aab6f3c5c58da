package multipart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shandysiswandi/gomultipart/internal/multipart/assemble"
	"github.com/shandysiswandi/gomultipart/internal/multipart/event"
	"github.com/shandysiswandi/gomultipart/internal/multipart/inbound"
	"github.com/shandysiswandi/gomultipart/internal/multipart/partstore"
	"github.com/shandysiswandi/gomultipart/internal/multipart/store"
	"github.com/shandysiswandi/gomultipart/internal/multipart/usecase"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkglog"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgnats"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgs3"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgsign"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkguid"
)

const maxJSONBytes = 1 << 20

type Dependency struct {
	Config    pkgconfig.Config
	Goroutine *pkgroutine.Manager
	Router    *pkgrouter.Router
	Context   context.Context
	// ID issues upload ids and must be unguessable.
	ID      pkguid.StringID
	Metrics prometheus.Registerer
}

func New(dep Dependency) (func(context.Context) error, error) {
	cfg := dep.Config

	dir := cfg.GetString("upload.dir")
	if dir == "" {
		dir = "./uploads"
	}
	maxPart := cfg.GetInt("upload.max_part_bytes")

	parts, err := partstore.NewDisk(dir, maxPart)
	if err != nil {
		return nil, err
	}

	if dep.ID == nil {
		dep.ID = pkguid.NewRandomUUID()
	}

	eventIDs, err := pkguid.NewSnowflake()
	if err != nil {
		return nil, fmt.Errorf("init event id generator: %w", err)
	}

	handlers := []event.Handler{event.LogHandler{}}
	if dep.Metrics != nil {
		handlers = append(handlers, event.NewMetricsHandler(dep.Metrics, "gomultipart"))
	}

	var closers []func(context.Context) error

	if url := cfg.GetString("nats.url"); url != "" {
		pub, err := pkgnats.New(url, pkglog.ServiceName)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		prefix := cfg.GetString("nats.subject_prefix")
		if prefix == "" {
			prefix = "uploads"
		}
		handlers = append(handlers, event.NewNATSHandler(pub, prefix))
		closers = append(closers, pub.Close)
		slog.Info("upload events forwarded to nats", "subject_prefix", prefix)
	}

	if cfg.GetBool("s3.enabled") {
		client, err := pkgs3.NewClient(dep.Context, pkgs3.Config{
			Endpoint:       cfg.GetString("s3.endpoint"),
			Region:         cfg.GetString("s3.region"),
			Bucket:         cfg.GetString("s3.bucket"),
			AccessKey:      cfg.GetString("s3.access_key"),
			SecretKey:      cfg.GetString("s3.secret_key"),
			DisableTLS:     cfg.GetBool("s3.disable_tls"),
			ForcePathStyle: cfg.GetBool("s3.force_path_style"),
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 mirror: %w", err)
		}
		handlers = append(handlers, event.NewMirrorHandler(client))
		slog.Info("completed uploads mirrored to s3", "bucket", client.Bucket())
	}

	bus := event.NewBus(intOr(cfg.GetInt("events.buffer"), 512))
	consumer := event.NewConsumer(bus, handlers, event.ConsumerConfig{
		Workers:     intOr(cfg.GetInt("events.workers"), 4),
		MaxRetries:  intOr(cfg.GetInt("events.max_retries"), 3),
		BaseBackoff: 200 * time.Millisecond,
	})
	consumer.Start()

	signer := pkgsign.NewSigner([]byte(cfg.GetString("upload.sign_secret")))
	if !signer.Enabled() {
		slog.Warn("upload.sign_secret is empty, part upload urls are not signed")
	}

	uc := usecase.New(usecase.Dependency{
		Registry:  store.NewInMemoryRegistry(),
		Parts:     parts,
		Assembler: assemble.New(parts),
		Events:    bus,
		Signer:    signer,
		ID:        dep.ID,
		EventID:   eventIDs.AsString(),
		Config: usecase.Config{
			Dir:         dir,
			BaseURL:     cfg.GetString("server.base_url"),
			URLTTL:      cfg.GetDuration("upload.url_ttl"),
			IdleTimeout: cfg.GetDuration("upload.idle_timeout"),
			Retention:   cfg.GetDuration("upload.retention"),
		},
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, inbound.Limits{
		MaxJSONBytes: maxJSONBytes,
		MaxPartBytes: maxPart,
	})

	dep.Goroutine.Every(dep.Context, "upload sweeper", cfg.GetDuration("upload.sweep_interval"), func(ctx context.Context) error {
		_, err := uc.Sweep(ctx)
		return err
	})

	return func(ctx context.Context) error {
		errs := []error{consumer.Stop(ctx)}
		for _, c := range closers {
			errs = append(errs, c(ctx))
		}
		return errors.Join(errs...)
	}, nil
}

func intOr(v int64, def int) int {
	if v <= 0 {
		return def
	}
	return int(v)
}
