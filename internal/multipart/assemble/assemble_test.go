package assemble

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
	"github.com/shandysiswandi/gomultipart/internal/multipart/partstore"
)

func storeParts(t *testing.T, d *partstore.Disk, uploadID string, payloads ...string) []Source {
	t.Helper()
	sources := make([]Source, 0, len(payloads))
	for i, p := range payloads {
		part, err := d.Store(context.Background(), uploadID, i+1, strings.NewReader(p))
		if err != nil {
			t.Fatalf("Store: %v", err)
		}
		sources = append(sources, Source{PartNumber: part.PartNumber, Path: part.Path, ETag: part.ETag})
	}
	return sources
}

func newDisk(t *testing.T) *partstore.Disk {
	t.Helper()
	d, err := partstore.NewDisk(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	return d
}

func TestAssembleConcatenatesInOrderAndRemovesParts(t *testing.T) {
	t.Parallel()

	d := newDisk(t)
	sources := storeParts(t, d, "u1", "alpha-", "beta-", "gamma")
	final := filepath.Join(d.Dir(), "out.bin")

	res, err := New(d).Assemble(context.Background(), final, sources)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	got, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("read final: %v", err)
	}
	if string(got) != "alpha-beta-gamma" {
		t.Fatalf("unexpected content %q", got)
	}
	if res.Size != int64(len(got)) || res.Path != final || len(res.MD5) != 32 {
		t.Fatalf("unexpected result %+v", res)
	}

	for _, s := range sources {
		if _, err := os.Stat(s.Path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected part %d removed, stat err %v", s.PartNumber, err)
		}
	}
	assertNoStaging(t, d.Dir())
}

func TestAssembleLargePartsStream(t *testing.T) {
	t.Parallel()

	d := newDisk(t)
	big := strings.Repeat("x", 3<<20)
	sources := storeParts(t, d, "u1", big, big)
	final := filepath.Join(d.Dir(), "big.bin")

	res, err := New(d).Assemble(context.Background(), final, sources)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if res.Size != int64(2*len(big)) {
		t.Fatalf("unexpected size %d", res.Size)
	}
}

func TestAssembleMissingPartLeavesNoArtifact(t *testing.T) {
	t.Parallel()

	d := newDisk(t)
	sources := storeParts(t, d, "u1", "one", "two")
	_ = os.Remove(sources[1].Path)
	final := filepath.Join(d.Dir(), "out.bin")

	_, err := New(d).Assemble(context.Background(), final, sources)
	if !errors.Is(err, entity.ErrVerification) {
		t.Fatalf("expected verification error, got %v", err)
	}
	if _, statErr := os.Stat(final); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("final artifact must not exist, stat err %v", statErr)
	}
	assertNoStaging(t, d.Dir())
}

func TestAssembleDetectsChangedBytes(t *testing.T) {
	t.Parallel()

	d := newDisk(t)
	sources := storeParts(t, d, "u1", "one", "two")
	if err := os.WriteFile(sources[0].Path, []byte("tampered"), 0o600); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	final := filepath.Join(d.Dir(), "out.bin")

	_, err := New(d).Assemble(context.Background(), final, sources)
	if !errors.Is(err, entity.ErrVerification) {
		t.Fatalf("expected verification error, got %v", err)
	}
	if _, statErr := os.Stat(final); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("final artifact must not exist, stat err %v", statErr)
	}
}

func TestAssembleKeepsExistingFinalOnFailure(t *testing.T) {
	t.Parallel()

	d := newDisk(t)
	final := filepath.Join(d.Dir(), "out.bin")
	if err := os.WriteFile(final, []byte("previous"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := New(d).Assemble(context.Background(), final, []Source{{PartNumber: 1, Path: filepath.Join(d.Dir(), "nope")}})
	if err == nil {
		t.Fatal("expected error")
	}

	got, _ := os.ReadFile(final)
	if !bytes.Equal(got, []byte("previous")) {
		t.Fatalf("existing artifact modified: %q", got)
	}
}

func TestAssembleCanceled(t *testing.T) {
	t.Parallel()

	d := newDisk(t)
	sources := storeParts(t, d, "u1", "one")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(d).Assemble(ctx, filepath.Join(d.Dir(), "out.bin"), sources)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if _, statErr := os.Stat(sources[0].Path); statErr != nil {
		t.Fatalf("part must survive a canceled assembly: %v", statErr)
	}
}

func TestAssembleRequiresParts(t *testing.T) {
	t.Parallel()

	if _, err := New(newDisk(t)).Assemble(context.Background(), filepath.Join(t.TempDir(), "x"), nil); err == nil {
		t.Fatal("expected error for empty source list")
	}
}

func assertNoStaging(t *testing.T, dir string) {
	t.Helper()
	matches, _ := filepath.Glob(filepath.Join(dir, stagingPattern))
	if len(matches) != 0 {
		t.Fatalf("staging files left behind: %v", matches)
	}
}
