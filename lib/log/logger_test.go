package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerPrintsModuleAndAttrs(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(NewHandler(&out, false, nil)).With(slog.String("module", "y4m"))

	logger.Info("opened input", "width", 640, "height", 480)

	line := out.String()
	assert.Contains(t, line, "INFO [y4m] opened input")
	assert.Contains(t, line, " height=480 width=640\n")
	assert.NotContains(t, line, "\033[")
}

func TestHandlerRespectsLevel(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(NewHandler(&out, true, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger.Info("hidden")
	assert.Empty(t, out.String())

	logger.Warn("shown")
	assert.Contains(t, out.String(), "shown")
	assert.Contains(t, out.String(), "\033[93m")
}
