package metrics

import (
	"io"

	"github.com/fosdem/rawpress/lib/keyframe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesEncoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rawpress_frames_encoded_total",
		Help: "Total number of frames submitted to the encoder, by coding mode",
	}, []string{"name", "mode"})
	AudioSamples = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rawpress_audio_samples_total",
		Help: "Total number of normalised audio samples submitted to the encoder",
	}, []string{"name"})
	BytesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rawpress_output_bytes_total",
		Help: "Total number of bytes written to the output",
	}, []string{"name"})
	RunsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rawpress_runs_failed_total",
		Help: "Total number of encoding runs aborted by an error",
	}, []string{"name"})
)

type RunMetrics struct {
	Independent  prometheus.Counter
	Predicted    prometheus.Counter
	AudioSamples prometheus.Counter
	BytesWritten prometheus.Counter
	RunsFailed   prometheus.Counter
}

func NewRunMetrics(name string) RunMetrics {
	m := RunMetrics{
		Independent:  FramesEncoded.WithLabelValues(name, keyframe.Independent.String()),
		Predicted:    FramesEncoded.WithLabelValues(name, keyframe.Predicted.String()),
		AudioSamples: AudioSamples.WithLabelValues(name),
		BytesWritten: BytesWritten.WithLabelValues(name),
		RunsFailed:   RunsFailed.WithLabelValues(name),
	}
	m.Independent.Add(0)
	m.Predicted.Add(0)
	m.AudioSamples.Add(0)
	m.BytesWritten.Add(0)
	m.RunsFailed.Add(0)
	return m
}

func (m RunMetrics) Frame(mode keyframe.Mode) {
	if mode == keyframe.Independent {
		m.Independent.Inc()
	} else {
		m.Predicted.Inc()
	}
}

// CountingWriter adds everything written through it to a counter.
type CountingWriter struct {
	io.Writer
	Counter prometheus.Counter
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.Writer.Write(p)
	c.Counter.Add(float64(n))
	return n, err
}

// WriteTextfile dumps the default registry for the node exporter's
// textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
