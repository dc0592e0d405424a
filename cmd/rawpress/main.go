package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/fosdem/rawpress/lib/codec"
	"github.com/fosdem/rawpress/lib/config"
	"github.com/fosdem/rawpress/lib/keyframe"
	rlog "github.com/fosdem/rawpress/lib/log"
	"github.com/fosdem/rawpress/lib/pipeline"
	"github.com/fosdem/rawpress/lib/progress"
)

func main() {
	app := &cli.App{
		Name:  "rawpress",
		Usage: "normalise raw video and audio into rawpress containers",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log at debug level"},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelInfo
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			rlog.Setup(level, isatty.IsTerminal(os.Stderr.Fd()))
			return nil
		},
		Commands: []*cli.Command{
			encodeCommand(),
			inspectCommand(),
			validateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func encodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: "encode an input into a .rpv (stream) or .rpva (buffered) file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "read the run from a YAML config file"},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "y4m file, - for stdin, or a printf pattern with --images"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file, - for stdout"},
			&cli.StringFlag{Name: "format", Usage: "stream or buffered (default: from the output extension)"},
			&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Value: config.DefaultQuality, Usage: "0 (fastest) to 10 (smallest)"},
			&cli.IntFlag{Name: "keyint", Aliases: []string{"k"}, Value: config.DefaultKeyframeInterval, Usage: "frames between independent frames"},
			&cli.IntFlag{Name: "threads", Aliases: []string{"t"}, Value: config.DefaultThreads, Usage: "encoder threads, 0 for one per CPU"},
			&cli.IntFlag{Name: "images", Usage: "treat --input as an image sequence of this many frames"},
			&cli.IntFlag{Name: "fps", Value: 30, Usage: "framerate of an image sequence"},
			&cli.StringFlag{Name: "audio", Usage: "WAV file to store alongside the video (buffered only)"},
			&cli.StringFlag{Name: "ffmpeg", Usage: "shell command writing y4m to stdout"},
			&cli.StringFlag{Name: "metrics-textfile", Usage: "write prometheus metrics here after the run"},
		},
		Action: encode,
	}
}

func encode(c *cli.Context) error {
	cfg, err := configFromFlags(c)
	if err != nil {
		return err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	out := os.Stdout
	if cfg.Output == "-" {
		out = os.Stderr
	}
	rep := progress.New(out, rlog.Module("progress"))
	return pipeline.Run(cfg, rep)
}

func configFromFlags(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		parsed, err := config.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("config invalid: %w", err)
		}
		cfg = parsed
	} else {
		input, err := inputFromFlags(c)
		if err != nil {
			return nil, err
		}
		cfg = &config.Config{Input: input}
	}

	if c.IsSet("output") {
		cfg.Output = config.CfgPath(c.String("output"))
	}
	if c.IsSet("format") {
		cfg.Format = c.String("format")
	}
	if c.IsSet("audio") {
		cfg.Audio = config.CfgPath(c.String("audio"))
	}
	if c.IsSet("metrics-textfile") {
		cfg.MetricsTextfile = config.CfgPath(c.String("metrics-textfile"))
	}
	if c.IsSet("quality") || cfg.Quality == nil {
		q := c.Int("quality")
		cfg.Quality = &q
	}
	if c.IsSet("keyint") || cfg.KeyframeInterval == nil {
		k := c.Int("keyint")
		cfg.KeyframeInterval = &k
	}
	if c.IsSet("threads") || cfg.Threads == nil {
		t := c.Int("threads")
		cfg.Threads = &t
	}
	return cfg, nil
}

func inputFromFlags(c *cli.Context) (*config.SourceCfg, error) {
	in := c.String("input")
	switch {
	case c.IsSet("ffmpeg"):
		if in != "" {
			return nil, errors.New("--input and --ffmpeg are mutually exclusive")
		}
		return &config.SourceCfg{
			SourceCfgStub: config.SourceCfgStub{Type: "ffmpeg_stdout"},
			Cfg:           &config.FFmpegSourceCfg{Cmd: c.String("ffmpeg")},
		}, nil
	case c.IsSet("images"):
		return &config.SourceCfg{
			SourceCfgStub: config.SourceCfgStub{Type: "image_sequence"},
			Cfg: &config.ImageSequenceCfg{
				Pattern:   config.CfgPath(in),
				Count:     c.Int("images"),
				Framerate: c.Int("fps"),
			},
		}, nil
	case in == "-" || strings.HasSuffix(strings.ToLower(in), ".y4m"):
		return &config.SourceCfg{
			SourceCfgStub: config.SourceCfgStub{Type: "y4m"},
			Cfg:           &config.Y4MSourceCfg{Path: config.CfgPath(in)},
		}, nil
	case in == "":
		return nil, errors.New("an input is required (--input, --ffmpeg or --config)")
	default:
		return nil, fmt.Errorf("cannot tell what kind of input %s is; use a .y4m file, --images or --ffmpeg", in)
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "print the header and frame modes of an encoded file",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("Usage: rawpress inspect <file>", 2)
			}
			return inspect(c.Args().First(), os.Stdout)
		},
	}
}

func inspect(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rd, err := codec.NewReader(f)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	defer rd.Close()

	p := rd.Params()
	kind := config.FormatStream
	if rd.Buffered() {
		kind = config.FormatBuffered
	}
	fmt.Fprintf(w, "%s: %s, %dx%d at %d fps, quality %d\n", path, kind, p.Width, p.Height, p.Framerate, p.Quality)

	var n, independent int
	for {
		u, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", n, err)
		}
		fmt.Fprintf(w, "%6d %s\n", n, u.Mode)
		if u.Mode == keyframe.Independent {
			independent++
		}
		n++
	}
	fmt.Fprintf(w, "%d frames, %d independent\n", n, independent)
	if a := rd.Audio(); a != nil {
		fmt.Fprintf(w, "audio: %d samples, %d Hz, %d channels\n", len(a.Samples), a.SampleRate, a.Channels)
	}
	return nil
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate-config",
		Usage:     "check a YAML config file and print it",
		ArgsUsage: "<config file>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("Usage: rawpress validate-config <config file>", 2)
			}
			cfg, err := config.Parse(c.Args().First())
			if err != nil {
				return cli.Exit(fmt.Sprintf("Config invalid: %s", err), 1)
			}
			fmt.Print("Config valid!\n\n")
			fmt.Print(cfg)
			return nil
		},
	}
}
