package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
	"github.com/oktetlabs/test-environment-sub029/internal/pipeline"
	"github.com/oktetlabs/test-environment-sub029/internal/sink"
)

var (
	stressProducers int
	stressMessages  int
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run concurrent producers against one drainer and check ordering",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStress(stressProducers, stressMessages)
	},
}

func init() {
	stressCmd.Flags().IntVarP(&stressProducers, "producers", "p", 8, "number of producer goroutines")
	stressCmd.Flags().IntVarP(&stressMessages, "messages", "n", 10000, "messages per producer")
	rootCmd.AddCommand(stressCmd)
}

// orderSink checks that drained records keep sequence order overall and
// message order per producer.
type orderSink struct {
	lastSeq    uint32
	started    bool
	last       map[int]int
	violations int
}

func (s *orderSink) Write(r *entry.Record) error {
	if s.started && r.Seq <= s.lastSeq {
		s.violations++
	}
	s.started, s.lastSeq = true, r.Seq

	var p, n int
	if _, err := fmt.Sscanf(r.Message(), "producer %d message %d", &p, &n); err != nil {
		s.violations++
		return nil
	}
	if prev, ok := s.last[p]; ok && n <= prev {
		s.violations++
	}
	s.last[p] = n
	return nil
}

func (s *orderSink) Flush() error { return nil }
func (s *orderSink) Close() error { return nil }
func (s *orderSink) Name() string { return "order" }

func runStress(producers, messages int) error {
	ctx, cancel := signalContext()
	defer cancel()

	l, stop, err := startLogger()
	if err != nil {
		return err
	}
	defer stop()

	user, err := l.Intern("stress")
	if err != nil {
		return err
	}
	format, err := l.Intern("producer %d message %d %s")
	if err != nil {
		return err
	}

	check := &orderSink{last: make(map[int]int)}
	d := pipeline.NewDrainer(&pipeline.Config{
		Logger:     l,
		Sinks:      []sink.Sink{check},
		BufferSize: cfg.Drain.BufferSize,
		Interval:   cfg.Drain.Interval,
		Burst:      cfg.Drain.Burst,
		Log:        log,
	})

	start := time.Now()
	done := make(chan struct{})
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for n := 0; n < messages; n++ {
				l.Emit(entry.LevelInfo, user, format, entry.Int(int64(p)), entry.Int(int64(n)), entry.Str("payload"))
			}
		}(p)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	if err := d.Run(ctx, done); err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Fprintln(os.Stdout, l.Stats().Summary())
	fmt.Fprintf(os.Stdout, "producers=%d messages=%d elapsed=%s ordering violations=%d\n",
		producers, producers*messages, elapsed.Round(time.Millisecond), check.violations)
	if err := l.CheckRing(); err != nil {
		return fmt.Errorf("ring check: %w", err)
	}
	if check.violations > 0 {
		return fmt.Errorf("%d ordering violations", check.violations)
	}
	return nil
}
