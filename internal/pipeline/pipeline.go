// Package pipeline connects line sources to the log ring and drains the
// ring through the wire decoder into filters and sinks:
//
//	Source → Logger.EmitDynamic → ring → Drainer → wire.Unmarshal → Filter → Sinks
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oktetlabs/test-environment-sub029/internal/core"
	"github.com/oktetlabs/test-environment-sub029/internal/entry"
	"github.com/oktetlabs/test-environment-sub029/internal/filter"
	"github.com/oktetlabs/test-environment-sub029/internal/sink"
	"github.com/oktetlabs/test-environment-sub029/internal/source"
)

// ErrNoSink is returned when a pipeline has nowhere to write.
var ErrNoSink = errors.New("pipeline: at least one sink is required")

// Config holds pipeline configuration.
type Config struct {
	Source source.Source
	Logger *core.Logger

	// Level is stamped on every line; zero detects it from the text and
	// falls back to INFO.
	Level entry.Level

	Filters *filter.Chain
	Sinks   []sink.Sink
	Raw     *sink.RawSink // optional copy of the drained wire bytes

	BufferSize int
	Interval   time.Duration
	Burst      int

	Log *logrus.Logger
}

// Run feeds the source into the logger and drains until the source is
// exhausted and the ring is empty, or ctx is cancelled. Sinks are flushed
// and closed before it returns.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Source == nil {
		return fmt.Errorf("pipeline: source is required")
	}
	if cfg.Logger == nil {
		return fmt.Errorf("pipeline: logger is required")
	}
	if len(cfg.Sinks) == 0 && cfg.Raw == nil {
		return ErrNoSink
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	lines, err := cfg.Source.Start(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: start source: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		Produce(cfg.Logger, cfg.Source.Name(), cfg.Level, lines)
	}()

	d := NewDrainer(cfg)
	runErr := d.Run(ctx, done)
	closeErr := d.Close()

	st := cfg.Logger.Stats()
	log.WithFields(logrus.Fields{
		"source":  cfg.Source.Name(),
		"emitted": st.Emitted(),
		"dropped": st.DroppedTotal(),
		"drained": st.Drained(),
		"written": d.Written(),
	}).Info("pipeline: finished")

	return errors.Join(runErr, closeErr)
}

// Produce emits every line as a dynamic record until lines is closed.
func Produce(l *core.Logger, name string, level entry.Level, lines <-chan source.Line) {
	for ln := range lines {
		lv := level
		if lv == entry.LevelUnknown {
			if lv = filter.DetectLevel(ln.Text); lv == entry.LevelUnknown {
				lv = entry.LevelInfo
			}
		}
		l.EmitDynamic(ln.Time, lv, userFor(name, ln.Stream), ln.Text)
	}
}

func userFor(name, stream string) string {
	if stream == "" || stream == name {
		return name
	}
	return name + "/" + stream
}
