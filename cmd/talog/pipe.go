package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/oktetlabs/test-environment-sub029/internal/core"
	"github.com/oktetlabs/test-environment-sub029/internal/entry"
	"github.com/oktetlabs/test-environment-sub029/internal/filter"
	"github.com/oktetlabs/test-environment-sub029/internal/logfork"
	"github.com/oktetlabs/test-environment-sub029/internal/pipeline"
	"github.com/oktetlabs/test-environment-sub029/internal/sink"
	"github.com/oktetlabs/test-environment-sub029/internal/source"
	"github.com/oktetlabs/test-environment-sub029/internal/tui"
)

// Flags shared by pipe, watch and decode.
var (
	inputFile  string
	follow     bool
	fixedLevel string
	levels     string
	keywords   []string
	excludes   []string
	pattern    string
	matchAny   bool
	jsonOut    bool
	outputFile string
	rawFile    string
	noColor    bool
	forkListen string
)

var pipeCmd = &cobra.Command{
	Use:   "pipe [-- command args...]",
	Short: "Feed stdin, a file or a command's output through the ring and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipe(args, false)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [-- command args...]",
	Short: "Like pipe, with a live dashboard of records and ring occupancy",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipe(args, true)
	},
}

func init() {
	for _, c := range []*cobra.Command{pipeCmd, watchCmd} {
		c.Flags().StringVarP(&inputFile, "file", "f", "", "read lines from a file instead of stdin")
		c.Flags().BoolVar(&follow, "follow", false, "keep reading appended lines (with --file)")
		c.Flags().StringVar(&fixedLevel, "level", "", "stamp every line with this level instead of detecting it")
		c.Flags().StringVar(&rawFile, "raw", "", "also write the drained wire bytes to this file")
		c.Flags().StringVar(&forkListen, "fork-listen", "", "accept forwarded messages from forked children on this address")
		addFilterFlags(c)
		addOutputFlags(c)
	}
	rootCmd.AddCommand(pipeCmd, watchCmd)
}

func addFilterFlags(c *cobra.Command) {
	c.Flags().StringVarP(&levels, "levels", "l", "", "comma-separated levels to show")
	c.Flags().StringSliceVarP(&keywords, "keyword", "k", nil, "show records whose user or message contains this")
	c.Flags().StringSliceVar(&excludes, "exclude", nil, "hide records whose message contains this")
	c.Flags().StringVar(&pattern, "grep", "", "show records whose message matches this regular expression")
	c.Flags().BoolVar(&matchAny, "any", false, "show records matching any filter instead of all")
}

func addOutputFlags(c *cobra.Command) {
	c.Flags().BoolVar(&jsonOut, "json", false, "print JSON Lines")
	c.Flags().StringVarP(&outputFile, "output", "o", "", "write records to a file instead of stdout")
	c.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func buildFilters() (*filter.Chain, error) {
	mode := filter.MatchAll
	if matchAny {
		mode = filter.MatchAny
	}
	chain := filter.NewChain(mode)
	if levels != "" {
		chain.Add(filter.ParseLevels(levels))
	}
	for _, k := range keywords {
		chain.Add(filter.NewKeywordFilter(k))
	}
	if len(excludes) > 0 {
		chain.Add(filter.NewExcludeFilter(excludes...))
	}
	if pattern != "" {
		f, err := filter.NewRegexFilter(pattern)
		if err != nil {
			return nil, err
		}
		chain.Add(f)
	}
	return chain, nil
}

func buildSinks() ([]sink.Sink, error) {
	if outputFile != "" {
		format := "text"
		if jsonOut {
			format = "json"
		}
		f, err := sink.NewFileSink(outputFile, format)
		if err != nil {
			return nil, err
		}
		return []sink.Sink{f}, nil
	}
	if jsonOut {
		return []sink.Sink{sink.NewJSONSink(os.Stdout)}, nil
	}
	return []sink.Sink{sink.NewTerminalSink(os.Stdout, !noColor)}, nil
}

func buildSource(args []string) source.Source {
	switch {
	case len(args) > 0:
		return source.NewExecSource(args[0], args[1:])
	case inputFile != "":
		return source.NewFileSource(inputFile, follow)
	default:
		return source.NewStdinSource()
	}
}

func runPipe(args []string, dashboard bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	l, stop, err := startLogger()
	if err != nil {
		return err
	}
	defer stop()

	filters, err := buildFilters()
	if err != nil {
		return err
	}
	pc := &pipeline.Config{
		Source:     buildSource(args),
		Logger:     l,
		Level:      entry.ParseLevel(fixedLevel),
		Filters:    filters,
		BufferSize: cfg.Drain.BufferSize,
		Interval:   cfg.Drain.Interval,
		Burst:      cfg.Drain.Burst,
		Log:        log,
	}
	if !dashboard {
		if pc.Sinks, err = buildSinks(); err != nil {
			return err
		}
	}
	if rawFile != "" {
		if pc.Raw, err = sink.CreateRawFile(rawFile); err != nil {
			return err
		}
	}
	if forkListen != "" {
		if err := serveForks(ctx, l, forkListen); err != nil {
			return err
		}
	}

	if dashboard {
		return tui.Run(ctx, pc)
	}
	if err := pipeline.Run(ctx, pc); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, l.Stats().Summary())
	return nil
}

// serveForks accepts logfork clients until ctx ends.
func serveForks(ctx context.Context, l *core.Logger, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("fork listener: %w", err)
	}
	srv := logfork.NewServer(l, log)
	go func() {
		if err := srv.Serve(ctx, ln); err != nil {
			log.WithError(err).Error("fork listener stopped")
		}
	}()
	return nil
}
