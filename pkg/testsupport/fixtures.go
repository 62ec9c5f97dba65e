// Package testsupport holds helpers shared by package tests: fixture and
// golden file loading, deterministic ids and memory-backed repositories.
package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kauppa/kauppa-sub001/codec"
	"github.com/kauppa/kauppa-sub001/pkg/clock"
	"github.com/kauppa/kauppa-sub001/repositorycache"
	"github.com/kauppa/kauppa-sub001/store"
	"github.com/kauppa/kauppa-sub001/store/memory"
)

// Epoch is the start time of clocks returned by NewRepository.
var Epoch = time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)

// LoadFixture reads a file relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON decodes a JSON fixture into dest.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()
	LoadFixtureAs(t, codec.JSON, path, dest)
}

// LoadFixtureAs decodes a fixture with c into dest.
func LoadFixtureAs(t testing.TB, c codec.Codec, path string, dest any) {
	t.Helper()

	if err := c.Unmarshal(LoadFixture(t, path), dest); err != nil {
		t.Fatalf("failed to decode %s fixture from %s: %v", c.ContentType(), path, err)
	}
}

// WriteGolden writes data to path, creating parent directories.
func WriteGolden(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write golden file %s: %v", path, err)
	}
}

// CompareWithGolden compares actual with the golden file at path. A missing
// golden file is created from actual.
func CompareWithGolden(t testing.TB, path string, actual []byte) {
	t.Helper()

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("golden file %s does not exist, creating it", path)
			WriteGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nexpected:\n%s\nactual:\n%s", path, expected, actual)
	}
}

// FixturePath joins filename onto the package testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath joins filename onto testdata/golden.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}

// SequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

// NewRepository builds a repository over a fresh memory store with a fake
// clock started at Epoch.
func NewRepository[V any](t testing.TB, handlers store.ModelHandlers[string, V], capacity int) (*repositorycache.Repository[string, V], *memory.Store[string, V], *clock.Fake) {
	t.Helper()

	st := memory.New(handlers)
	clk := clock.NewFake(Epoch)
	repo, err := repositorycache.New[string, V](st, handlers, repositorycache.Options{
		Capacity: capacity,
		Clock:    clk,
		Logger:   DiscardLogger(),
	})
	if err != nil {
		t.Fatalf("failed to build %s repository: %v", handlers.Entity, err)
	}
	return repo, st, clk
}
