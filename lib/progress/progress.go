// Package progress shows how far an encoding run has come.
package progress

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fosdem/rawpress/lib/stats"
	"github.com/fosdem/rawpress/lib/utils"
	"github.com/mattn/go-isatty"
)

const logInterval = 5 * time.Second

type Reporter interface {
	Frame(encoded int)
	Done(encoded int)
}

// Terminal redraws a single "Encoded: N" line on a terminal and falls
// back to periodic log lines when output is redirected.
type Terminal struct {
	out    io.Writer
	tty    bool
	stats  *stats.Stats
	logs   utils.Window
	logger *slog.Logger
}

func New(out *os.File, logger *slog.Logger) *Terminal {
	tty := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
	return NewWriter(out, tty, logger)
}

func NewWriter(out io.Writer, tty bool, logger *slog.Logger) *Terminal {
	return &Terminal{
		out:    out,
		tty:    tty,
		stats:  stats.New(),
		logs:   utils.Window{Period: logInterval},
		logger: logger,
	}
}

func (t *Terminal) Frame(encoded int) {
	t.stats.Update()
	if t.tty {
		fmt.Fprintf(t.out, "\r\033[2KEncoded: %d (%d fps)", encoded, t.stats.FPS)
		return
	}

	if t.logs.Tick(time.Now()) {
		t.logger.Info(fmt.Sprintf("Encoded: %d", encoded), "fps", t.stats.FPS)
	}
}

func (t *Terminal) Done(encoded int) {
	if t.tty {
		fmt.Fprint(t.out, "\n")
	}
	fmt.Fprintf(t.out, "Finished encoding! %d frames in %.1fs (%.1f fps)\n",
		encoded, t.stats.Elapsed().Seconds(), t.stats.AverageFPS())
}

// Nop reports nothing.
type Nop struct{}

func (Nop) Frame(int) {}
func (Nop) Done(int)  {}
