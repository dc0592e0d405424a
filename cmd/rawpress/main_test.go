package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/fosdem/rawpress/lib/codec"
	"github.com/fosdem/rawpress/lib/config"
	"github.com/fosdem/rawpress/lib/encdec"
	"github.com/fosdem/rawpress/lib/keyframe"
)

// parseEncodeFlags runs the encode flag set over args and returns the
// resulting config without encoding anything.
func parseEncodeFlags(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	cmd := encodeCommand()
	var cfg *config.Config
	var cfgErr error
	cmd.Action = func(c *cli.Context) error {
		cfg, cfgErr = configFromFlags(c)
		return nil
	}
	app := &cli.App{Commands: []*cli.Command{cmd}}
	require.NoError(t, app.Run(append([]string{"rawpress", "encode"}, args...)))
	return cfg, cfgErr
}

func TestEncodeFlagsY4M(t *testing.T) {
	cfg, err := parseEncodeFlags(t, "-i", "clip.Y4M", "-o", "out.rpva", "-q", "9", "-k", "12", "-t", "0")
	require.NoError(t, err)

	assert.Equal(t, "y4m", cfg.Input.Type)
	assert.Equal(t, &config.Y4MSourceCfg{Path: "clip.Y4M"}, cfg.Input.Cfg)
	assert.Equal(t, 9, *cfg.Quality)
	assert.Equal(t, 12, *cfg.KeyframeInterval)
	assert.Equal(t, 0, *cfg.Threads)

	cfg.ApplyDefaults()
	assert.Equal(t, config.FormatBuffered, cfg.Format)
	assert.Equal(t, "out", cfg.Name)
}

func TestEncodeFlagsDefaults(t *testing.T) {
	cfg, err := parseEncodeFlags(t, "-i", "-", "-o", "-")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultQuality, *cfg.Quality)
	assert.Equal(t, config.DefaultKeyframeInterval, *cfg.KeyframeInterval)
	assert.Equal(t, config.DefaultThreads, *cfg.Threads)
}

func TestEncodeFlagsImages(t *testing.T) {
	cfg, err := parseEncodeFlags(t, "-i", "img%04d.png", "--images", "90", "--fps", "25", "-o", "x.rpv")
	require.NoError(t, err)

	assert.Equal(t, "image_sequence", cfg.Input.Type)
	assert.Equal(t, &config.ImageSequenceCfg{Pattern: "img%04d.png", Count: 90, Framerate: 25}, cfg.Input.Cfg)
}

func TestEncodeFlagsFFmpeg(t *testing.T) {
	cfg, err := parseEncodeFlags(t, "--ffmpeg", "ffmpeg -i in.mkv -f yuv4mpegpipe -", "-o", "x.rpv")
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg_stdout", cfg.Input.Type)

	_, err = parseEncodeFlags(t, "--ffmpeg", "true", "-i", "a.y4m", "-o", "x.rpv")
	assert.Error(t, err)
}

func TestEncodeFlagsRejectUnknownInput(t *testing.T) {
	_, err := parseEncodeFlags(t, "-i", "movie.mkv", "-o", "x.rpv")
	assert.ErrorContains(t, err, "movie.mkv")

	_, err = parseEncodeFlags(t, "-o", "x.rpv")
	assert.Error(t, err)
}

func TestEncodeFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input:
  type: y4m
  path: in.y4m
output: out.rpv
quality: 2
`), 0o644))

	cfg, err := parseEncodeFlags(t, "-c", path, "-k", "5")
	require.NoError(t, err)

	assert.Equal(t, 2, *cfg.Quality)
	assert.Equal(t, 5, *cfg.KeyframeInterval)
	assert.Equal(t, config.CfgPath(filepath.Join(dir, "out.rpv")), cfg.Output)
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.rpv")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc, err := codec.NewStreamEncoder(f, codec.Params{Width: 2, Height: 2, Framerate: 30, Quality: 1, Threads: 1})
	require.NoError(t, err)
	sched, err := keyframe.New(2)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		plane := &encdec.Plane{Width: 2, Height: 2, Data: []byte{byte(i), 1, 2, 3}}
		require.NoError(t, enc.Submit(encdec.AssembleFrame(2, 2, plane, plane, plane), sched.Next()))
	}
	require.NoError(t, enc.Finish())

	var out bytes.Buffer
	require.NoError(t, inspect(path, &out))
	assert.Contains(t, out.String(), "stream, 2x2 at 30 fps")
	assert.Contains(t, out.String(), "     1 predicted\n")
	assert.Contains(t, out.String(), "3 frames, 2 independent")
}
