// Package ffmpegsource reads YUV4MPEG2 frames from the stdout of a shell
// command, usually ffmpeg with -f yuv4mpegpipe.
package ffmpegsource

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/fosdem/rawpress/lib/config"
	rlog "github.com/fosdem/rawpress/lib/log"
	"github.com/fosdem/rawpress/lib/source/y4msource"
	"github.com/fosdem/rawpress/lib/utils"
)

type FFmpegSource struct {
	shellCmd string
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	out      *eofReader
	stderr   io.ReadCloser
	logger   *slog.Logger

	stderrDone sync.WaitGroup
	closed     bool
}

func New(name string, cfg *config.FFmpegSourceCfg) *FFmpegSource {
	return &FFmpegSource{
		shellCmd: cfg.Cmd,
		logger:   rlog.Module(name),
	}
}

// Start runs the command and reads the stream header from its stdout.
func (f *FFmpegSource) Start() (*y4msource.Decoder, error) {
	err := f.setupCmd()
	if err != nil {
		return nil, fmt.Errorf("could not setup ffmpeg command: %w", err)
	}

	f.logger.Debug("starting ffmpeg", "cmd", f.shellCmd)
	err = f.cmd.Start()
	if err != nil {
		return nil, fmt.Errorf("could not start ffmpeg: %w", err)
	}

	f.stderrDone.Add(1)
	go f.processStderr()

	f.out = &eofReader{r: f.stdout}
	dec, err := y4msource.NewDecoder(f.out)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("could not read ffmpeg's output: %w", err)
	}
	return dec, nil
}

func (f *FFmpegSource) setupCmd() error {
	f.cmd = exec.Command("bash", "-c", f.shellCmd)
	utils.KillWithParent(f.cmd)
	var err error
	f.stdout, err = f.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("could not get ffmpeg stdout: %s", err)
	}
	f.stderr, err = f.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("could not get ffmpeg stderr: %s", err)
	}
	return nil
}

func (f *FFmpegSource) processStderr() {
	defer f.stderrDone.Done()
	scanner := bufio.NewScanner(f.stderr)
	for scanner.Scan() {
		f.logger.Debug("[ffmpeg] " + scanner.Text())
	}
}

// Close stops the command if it is still running and reaps it. The exit
// status only counts when the stream was read to its end.
func (f *FFmpegSource) Close() error {
	if f.closed || f.cmd == nil || f.cmd.Process == nil {
		return nil
	}
	f.closed = true

	killed := !f.out.eof
	if killed {
		_ = f.cmd.Process.Kill()
	}
	f.stderrDone.Wait()

	err := f.cmd.Wait()
	if killed {
		f.logger.Debug("ffmpeg stopped before the end of its output")
		return nil
	}
	if err != nil {
		return fmt.Errorf("ffmpeg error: %w", err)
	}
	return nil
}

// eofReader remembers whether the command's output was read to the end.
type eofReader struct {
	r   io.Reader
	eof bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if errors.Is(err, io.EOF) {
		e.eof = true
	}
	return n, err
}
