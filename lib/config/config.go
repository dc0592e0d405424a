package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	yaml "github.com/goccy/go-yaml"
)

const (
	FormatStream   = "stream"
	FormatBuffered = "buffered"

	BufferedExtension = ".rpva"

	DefaultQuality          = 5
	DefaultThreads          = 8
	DefaultKeyframeInterval = 30
	MaxQuality              = 10
)

type Config struct {
	Name             string
	Input            *SourceCfg
	Audio            CfgPath
	Output           CfgPath
	Format           string
	Quality          *int
	Threads          *int
	KeyframeInterval *int    `yaml:"keyframe_interval"`
	MetricsTextfile  CfgPath `yaml:"metrics_textfile"`
}

func Parse(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %s", filename, err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			slog.Default().With(slog.String("module", "config")).Warn(fmt.Sprintf("could not close %s: %s", filename, err))
		}
	}(f)

	absFilename, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("somehow, %s is malformed: %w", filename, err)
	}
	UnmarshalBase = filepath.Dir(absFilename)

	m := yaml.NewDecoder(f)
	cfg := &Config{}
	err = m.Decode(cfg)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, err
}

func intPtr(v int) *int {
	return &v
}

// ApplyDefaults fills unset knobs and replaces out of range quality and
// thread counts with their defaults, warning about each replacement.
func (c *Config) ApplyDefaults() {
	logger := slog.Default().With(slog.String("module", "config"))

	if c.Quality == nil {
		c.Quality = intPtr(DefaultQuality)
	} else if *c.Quality < 0 || *c.Quality > MaxQuality {
		logger.Warn(fmt.Sprintf("Quality must be between 0 and %d. Using default quality (%d)", MaxQuality, DefaultQuality))
		c.Quality = intPtr(DefaultQuality)
	}

	if c.Threads == nil {
		c.Threads = intPtr(DefaultThreads)
	} else if *c.Threads < 0 {
		logger.Warn(fmt.Sprintf("Threads must be >0. Using default threads (%d)", DefaultThreads))
		c.Threads = intPtr(DefaultThreads)
	}

	if c.KeyframeInterval == nil {
		c.KeyframeInterval = intPtr(DefaultKeyframeInterval)
	}

	if c.Format == "" {
		c.Format = FormatStream
		if strings.EqualFold(filepath.Ext(string(c.Output)), BufferedExtension) {
			c.Format = FormatBuffered
		}
	}

	if c.Name == "" {
		base := filepath.Base(string(c.Output))
		c.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
}

func (c *Config) Validate() error {
	if c.Input == nil || c.Input.Cfg == nil {
		return fmt.Errorf("an input must be defined")
	}
	if err := c.Input.Validate(); err != nil {
		return fmt.Errorf("input is invalid: %w", err)
	}
	if c.Output == "" {
		return fmt.Errorf("an output path must be specified")
	}
	switch c.Format {
	case FormatStream:
		if c.Audio != "" {
			return fmt.Errorf("audio is only supported by the %s format (use a %s output)", FormatBuffered, BufferedExtension)
		}
	case FormatBuffered:
	default:
		return fmt.Errorf("unknown output format: %s", c.Format)
	}
	if c.KeyframeInterval == nil || *c.KeyframeInterval < 1 {
		return fmt.Errorf("keyframe_interval must be at least 1")
	}
	if c.Quality == nil || c.Threads == nil {
		return fmt.Errorf("defaults were not applied")
	}
	return nil
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Input: %s\n", c.Input.Type))
	if c.Audio != "" {
		b.WriteString(fmt.Sprintf("Audio: %s\n", c.Audio))
	}
	b.WriteString(fmt.Sprintf("Output: %s (%s)\n", c.Output, c.Format))
	b.WriteString(fmt.Sprintf("Quality: %d, threads: %d, keyframe interval: %d\n", *c.Quality, *c.Threads, *c.KeyframeInterval))
	return b.String()
}

type Valid interface {
	Validate() error
}

type SourceCfgStub struct {
	Type string
}

type SourceCfg struct {
	SourceCfgStub
	Cfg Valid
}

// Y4MSourceCfg reads a YUV4MPEG2 file, or stdin when Path is "-".
type Y4MSourceCfg struct {
	Path CfgPath
}

// FFmpegSourceCfg runs a shell command that writes YUV4MPEG2 to stdout.
type FFmpegSourceCfg struct {
	Cmd string
}

type ImageSequenceCfg struct {
	Pattern   CfgPath
	Count     int
	Framerate int
}

func (s *SourceCfg) UnmarshalYAML(b []byte) error {
	err := yaml.Unmarshal(b, &s.SourceCfgStub)
	if err != nil {
		return err
	}

	switch s.Type {
	case "y4m":
		cfg := Y4MSourceCfg{}
		s.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	case "ffmpeg_stdout":
		cfg := FFmpegSourceCfg{}
		s.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	case "image_sequence":
		cfg := ImageSequenceCfg{}
		s.Cfg = &cfg
		return yaml.Unmarshal(b, &cfg)
	default:
		return fmt.Errorf("unknown source type: %s", s.Type)
	}
}

func (s *SourceCfg) Validate() error {
	return s.Cfg.Validate()
}

func (s *Y4MSourceCfg) Validate() error {
	if s.Path == "" {
		return fmt.Errorf("y4m path must be specified")
	}
	return nil
}

func (s *FFmpegSourceCfg) Validate() error {
	if s.Cmd == "" {
		return fmt.Errorf("ffmpeg cmd must be specified")
	}
	return nil
}

func (s *ImageSequenceCfg) Validate() error {
	if s.Pattern == "" {
		return fmt.Errorf("image pattern must be specified")
	}
	if !strings.Contains(string(s.Pattern), "%") {
		return fmt.Errorf("image pattern %s has no frame number verb (like %%04d)", s.Pattern)
	}
	if s.Count < 1 {
		return fmt.Errorf("image count must be at least 1")
	}
	if s.Framerate < 1 {
		return fmt.Errorf("image framerate must be at least 1")
	}
	return nil
}
