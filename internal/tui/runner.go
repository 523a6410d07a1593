package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
	"github.com/oktetlabs/test-environment-sub029/internal/monitor"
	"github.com/oktetlabs/test-environment-sub029/internal/pipeline"
	"github.com/oktetlabs/test-environment-sub029/internal/sink"
)

// programSink forwards drained records to the dashboard.
type programSink struct {
	p    *tea.Program
	rate *monitor.RateDetector
}

func (s *programSink) Write(r *entry.Record) error {
	s.p.Send(RecordMsg{Record: r})
	if s.rate != nil && s.rate.Add(1) {
		s.p.Send(SpikeMsg{Rate: s.rate.Current()})
	}
	return nil
}

func (s *programSink) Flush() error { return nil }
func (s *programSink) Close() error { return nil }
func (s *programSink) Name() string { return "tui" }

// Run drives the pipeline with the dashboard as an extra sink. It blocks
// until the user quits.
func Run(ctx context.Context, cfg *pipeline.Config) error {
	if cfg.Logger == nil || cfg.Source == nil {
		return fmt.Errorf("tui: logger and source are required")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(cfg.Logger.Stats(), cfg.Logger, cfg.Source.Name())
	program := tea.NewProgram(model, tea.WithAltScreen())

	pc := *cfg
	pc.Sinks = append(append([]sink.Sink(nil), cfg.Sinks...), &programSink{
		p:    program,
		rate: monitor.NewRateDetector(10*time.Second, 3),
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := pipeline.Run(ctx, &pc)
		program.Send(DoneMsg{Err: err})
	}()

	_, err := program.Run()
	cancel()
	<-done
	return err
}
