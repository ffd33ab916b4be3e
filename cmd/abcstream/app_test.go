package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/abcstream/internal/config"
	"github.com/Faultbox/abcstream/internal/scene"
)

const fixture = "testdata/scene.yaml"

// run executes the CLI with args and returns what it printed. The user
// config dir is isolated so a developer's own settings do not leak in.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ABCSTREAM_CONFIG", "")

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"abcstream"}, args...))
	return out.String(), err
}

func TestInfo(t *testing.T) {
	out, err := run(t, "info", fixture)
	require.NoError(t, err)

	assert.Contains(t, out, "Frames:  2")
	assert.Contains(t, out, "Schemas: 4")
	assert.Contains(t, out, "/geo [Xform] samples=2 constant=false")
	assert.Contains(t, out, "/geo/mesh [PolyMesh] samples=2")
	assert.Contains(t, out, "topology=Constant")
	assert.Contains(t, out, "property weight Float len=1")
	assert.Contains(t, out, "/cam [Camera] samples=1 constant=true")
	assert.Contains(t, out, "peak=3 ids=true")
}

func TestSampleAtTime(t *testing.T) {
	out, err := run(t, "sample", "--time", "1", fixture)
	require.NoError(t, err)

	assert.Contains(t, out, "/geo [Xform] index=1 next=1 alpha=0.000 dirty=true")
	assert.Contains(t, out, "translation=[-2 0 0]")
	assert.Contains(t, out, "splits=1 submeshes=1 vertices=4 indices=6")
	assert.Contains(t, out, "points=3")
}

func TestSampleByIndexToleratesNodeErrors(t *testing.T) {
	// cam and pts store one sample, so index 1 fails for them only.
	out, err := run(t, "sample", "--index", "1", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "/geo/mesh [PolyMesh] index=1")

	_, err = run(t, "sample", "--index", "-1", fixture)
	assert.Error(t, err)
}

func TestGlobalOverrides(t *testing.T) {
	out, err := run(t, "--swap-handedness=false", "sample", "--time", "1", fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "translation=[2 0 0]")
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "frame.glb")
	out, err := run(t, "export", "--time", "0", "--binary", "-o", path, fixture)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	doc, err := gltf.Open(path)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 4)

	path = filepath.Join(t.TempDir(), "frame.gltf")
	_, err = run(t, "export", "--hide", "/pts", "-o", path, fixture)
	require.NoError(t, err)
	doc, err = gltf.Open(path)
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 3)

	_, err = run(t, "export", "--hide", "/nope", "-o", path, fixture)
	assert.ErrorIs(t, err, scene.ErrNotFound)
}

func TestPlay(t *testing.T) {
	out, err := run(t, "--fps", "2", "play", fixture)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "frame    0 t=0.000 dirty=4", lines[0])
	assert.Equal(t, "frame    1 t=0.500 dirty=0", lines[1])
	assert.Equal(t, "frame    2 t=1.000 dirty=2", lines[2])
}

func TestPlayLoop(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "abcstream.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("playback:\n  fps: 1\n  loop: true\n"), 0644))

	_, err := run(t, "--config", cfgPath, "play", fixture)
	assert.ErrorContains(t, err, "--frames")

	out, err := run(t, "--config", cfgPath, "play", "--frames", "5", fixture)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[2], "t=0.000", "wraps after the last frame")
}

func TestConfigShowAndSave(t *testing.T) {
	out, err := run(t, "--split-unit", "128", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "split_unit: 128")

	path := filepath.Join(t.TempDir(), "saved.yaml")
	_, err = run(t, "--workers", "3", "config", "save", path)
	require.NoError(t, err)

	cfg, err := config.Load(config.Overrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
}

func TestErrors(t *testing.T) {
	_, err := run(t, "info")
	assert.ErrorContains(t, err, "missing cache file")

	_, err = run(t, "info", "testdata/absent.yaml")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = run(t, "--split-unit", "2", "info", fixture)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
