package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fosdem/rawpress/lib/audio"
	"github.com/fosdem/rawpress/lib/codec"
	"github.com/fosdem/rawpress/lib/config"
	"github.com/fosdem/rawpress/lib/keyframe"
	rlog "github.com/fosdem/rawpress/lib/log"
	"github.com/fosdem/rawpress/lib/metrics"
	"github.com/fosdem/rawpress/lib/progress"
	"github.com/fosdem/rawpress/lib/source/ffmpegsource"
	"github.com/fosdem/rawpress/lib/source/imgsource"
	"github.com/fosdem/rawpress/lib/source/y4msource"
	"github.com/fosdem/rawpress/lib/utils"
)

var ErrAudioNotSupported = errors.New("audio is only supported by the buffered output format")

// input is an opened source, ready to be driven.
type input struct {
	width     int
	height    int
	framerate int
	drive     func(d *Driver) (int, error)
	close     func() error
}

// Run performs one complete encoding run as described by cfg. Inputs and
// the output are closed on every path; after an error the output holds
// whatever the encoder had already written.
func Run(cfg *config.Config, rep progress.Reporter) (err error) {
	logger := rlog.Module(cfg.Name)
	m := metrics.NewRunMetrics(cfg.Name)
	if rep == nil {
		rep = progress.Nop{}
	}
	defer func() {
		if err != nil {
			m.RunsFailed.Inc()
		}
		if cfg.MetricsTextfile != "" {
			if werr := metrics.WriteTextfile(string(cfg.MetricsTextfile)); werr != nil {
				logger.Error(fmt.Sprintf("could not write metrics: %s", werr))
			}
		}
	}()

	pcm, err := loadAudio(cfg, logger)
	if err != nil {
		return err
	}
	if pcm != nil && cfg.Format != config.FormatBuffered {
		return ErrAudioNotSupported
	}

	sched, err := keyframe.New(*cfg.KeyframeInterval)
	if err != nil {
		return err
	}

	in, err := openInput(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := in.close(); cerr != nil && err == nil {
			err = fmt.Errorf("could not close input: %w", cerr)
		}
	}()

	out, closeOut, err := openOutput(string(cfg.Output))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = fmt.Errorf("could not close output: %w", cerr)
		}
	}()
	w := &metrics.CountingWriter{Writer: out, Counter: m.BytesWritten}

	params := codec.Params{
		Width:     in.width,
		Height:    in.height,
		Framerate: in.framerate,
		Quality:   *cfg.Quality,
		Threads:   *cfg.Threads,
	}
	logger.Info(fmt.Sprintf("Encoding %dx%d at %d fps to %s", in.width, in.height, in.framerate, cfg.Output),
		"format", cfg.Format, "keyframe_interval", sched.Interval())

	d := &Driver{Scheduler: sched, Progress: rep, Metrics: &m}

	var n int
	switch cfg.Format {
	case config.FormatStream:
		enc, err := codec.NewStreamEncoder(w, params)
		if err != nil {
			return err
		}
		d.Encoder = enc
		n, err = runStream(d, enc, in)
		if err != nil {
			return err
		}
	case config.FormatBuffered:
		enc, err := codec.NewBufferedEncoder(params)
		if err != nil {
			return err
		}
		d.Encoder = enc
		n, err = runBuffered(d, enc, in, pcm, w, &m)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown output format: %s", cfg.Format)
	}

	rep.Done(n)
	return nil
}

func runStream(d *Driver, enc StreamSink, in *input) (int, error) {
	n, err := in.drive(d)
	if err != nil {
		_ = enc.Abort()
		return n, err
	}
	return n, enc.Finish()
}

func runBuffered(d *Driver, enc BufferedSink, in *input, pcm *audio.Buffer, w io.Writer, m *metrics.RunMetrics) (int, error) {
	n, err := in.drive(d)
	if err != nil {
		_ = enc.Discard()
		return n, err
	}
	if pcm != nil {
		if err := enc.AppendAudio(pcm); err != nil {
			_ = enc.Discard()
			return n, fmt.Errorf("could not add audio: %w", err)
		}
		m.AudioSamples.Add(float64(len(pcm.Samples)))
	}
	_, err = enc.WriteTo(w)
	return n, err
}

// loadAudio returns nil when the run has no audio.
func loadAudio(cfg *config.Config, logger *slog.Logger) (*audio.Buffer, error) {
	raw := audio.NoAudio
	if cfg.Audio != "" {
		var err error
		raw, err = audio.ReadWAVFile(string(cfg.Audio))
		if err != nil {
			return nil, err
		}
	}
	if raw.Empty() {
		return nil, nil
	}

	pcm, err := audio.Normalize(raw)
	if err != nil {
		return nil, err
	}
	logger.Debug(fmt.Sprintf("Audio: %d samples, %d Hz, %d channels (%s)", len(pcm.Samples), pcm.SampleRate, pcm.Channels, raw.Format))
	return pcm, nil
}

func openInput(cfg *config.Config, logger *slog.Logger) (*input, error) {
	switch src := cfg.Input.Cfg.(type) {
	case *config.Y4MSourceCfg:
		f := os.Stdin
		closeFile := func() error { return nil }
		if src.Path != "-" {
			var err error
			f, err = os.Open(string(src.Path))
			if err != nil {
				return nil, fmt.Errorf("could not open %s: %w", src.Path, err)
			}
			if err := utils.AdviseSequential(f); err != nil {
				logger.Debug(fmt.Sprintf("could not advise sequential reads: %s", err))
			}
			closeFile = f.Close
		}
		dec, err := y4msource.NewDecoder(f)
		if err != nil {
			_ = closeFile()
			return nil, fmt.Errorf("could not read %s: %w", src.Path, err)
		}
		in, err := y4mInput(dec, closeFile)
		if err != nil {
			_ = closeFile()
			return nil, err
		}
		return in, nil

	case *config.FFmpegSourceCfg:
		ff := ffmpegsource.New(cfg.Name+"/ffmpeg", src)
		dec, err := ff.Start()
		if err != nil {
			return nil, err
		}
		in, err := y4mInput(dec, ff.Close)
		if err != nil {
			_ = ff.Close()
			return nil, err
		}
		return in, nil

	case *config.ImageSequenceCfg:
		seq := imgsource.New(cfg.Name+"/images", src)
		w, h, err := seq.Dimensions()
		if err != nil {
			return nil, err
		}
		return &input{
			width:     w,
			height:    h,
			framerate: seq.Framerate,
			drive: func(d *Driver) (int, error) {
				return d.DriveCount(seq.Count, seq.LoadFrame)
			},
			close: func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Input.Type)
	}
}

func y4mInput(dec *y4msource.Decoder, closer func() error) (*input, error) {
	frames, err := NewY4MFrames(dec)
	if err != nil {
		return nil, err
	}
	fps, err := dec.Framerate().Integer()
	if err != nil {
		return nil, err
	}
	return &input{
		width:     dec.Width(),
		height:    dec.Height(),
		framerate: fps,
		drive: func(d *Driver) (int, error) {
			return d.DriveUntilEOF(frames)
		},
		close: closer,
	}, nil
}

// openOutput creates path, or uses stdout for "-". The returned close
// function is safe to call on every path.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create %s: %w", path, err)
	}
	return f, f.Close, nil
}
