package app

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/listingmap"
	"github.com/agentstation/listingmap/internal/config"
	"github.com/agentstation/listingmap/internal/geocoding"
	"github.com/agentstation/listingmap/internal/store/memory"
	"github.com/agentstation/listingmap/pkg/logging"
	"github.com/agentstation/listingmap/pkg/surface"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("LISTINGMAP_STORE_SEED", "testdata/rooms.yaml")
	t.Setenv("LISTINGMAP_GEOCODER_BACKEND", "static")
	cfg, err := config.Load(config.WithEnvFiles(), config.WithSearchPaths(t.TempDir()))
	require.NoError(t, err)
	return cfg
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	return New("1.2.3", "abc123", "2026-10-01", "test",
		WithConfig(testConfig(t)),
		WithLogger(logging.NewNopLogger()),
	)
}

func TestStoreLoadsSeed(t *testing.T) {
	a := newTestApp(t)

	st, err := a.Store(context.Background())
	require.NoError(t, err)
	mem, ok := st.(*memory.Store)
	require.True(t, ok)
	assert.Equal(t, 3, mem.Len())

	again, err := a.Store(context.Background())
	require.NoError(t, err)
	assert.Same(t, mem, again)
	assert.NoError(t, a.Shutdown(context.Background()))
}

func TestGeocoderIsCached(t *testing.T) {
	a := newTestApp(t)
	g := a.Geocoder()
	cached, ok := g.(*geocoding.Cached)
	require.True(t, ok)

	_, err := g.Forward(context.Background(), "Sinza")
	require.NoError(t, err)
	_, err = g.Forward(context.Background(), "Sinza")
	require.NoError(t, err)
	hits, misses := cached.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Same(t, g, a.Geocoder())
}

func TestScreenOptions(t *testing.T) {
	a := newTestApp(t)
	st, err := a.Store(context.Background())
	require.NoError(t, err)

	rec := surface.NewRecorder()
	screen, err := listingmap.New(st, rec, a.ScreenOptions()...)
	require.NoError(t, err)
	defer screen.Destroy()

	require.NoError(t, screen.Visible())
	require.Eventually(t, func() bool { return len(rec.Handles()) == 2 }, testWait, testTick,
		"only available seeded listings are drawn")
	assert.Equal(t, a.Config().Map.DefaultZoom, rec.Ops()[0].Camera.Zoom)
}

func TestExecuteVersion(t *testing.T) {
	a := newTestApp(t)
	var out bytes.Buffer
	root := a.createRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--verbose"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "listingmap 1.2.3")
	assert.Contains(t, out.String(), "commit:   abc123")
}

func TestExecuteRejectsBadConfigFile(t *testing.T) {
	a := New("dev", "", "", "", WithLogger(logging.NewNopLogger()))
	err := a.Execute(context.Background(), []string{"--config", "testdata/missing.yaml", "version"})
	assert.Error(t, err)
}

func TestOutputFormat(t *testing.T) {
	a := newTestApp(t)
	assert.Equal(t, "text", a.OutputFormat())
	a.flags.Format = "json"
	assert.Equal(t, "json", a.OutputFormat())
}

const (
	testWait = 2 * time.Second
	testTick = 5 * time.Millisecond
)
