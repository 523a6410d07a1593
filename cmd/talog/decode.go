package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/oktetlabs/test-environment-sub029/internal/wire"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Print the records of a raw wire stream",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := io.Reader(os.Stdin)
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return decodeStream(in)
	},
}

func init() {
	addFilterFlags(decodeCmd)
	addOutputFlags(decodeCmd)
	rootCmd.AddCommand(decodeCmd)
}

func decodeStream(in io.Reader) error {
	filters, err := buildFilters()
	if err != nil {
		return err
	}
	sinks, err := buildSinks()
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}()

	dec := wire.NewDecoder(cfg.Wire(), in)
	count := 0
	for {
		rec, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", count+1, err)
		}
		count++
		if !filters.Match(rec) {
			continue
		}
		for _, s := range sinks {
			if err := s.Write(rec); err != nil {
				return err
			}
		}
	}
	log.WithField("records", count).Debug("decode finished")
	return nil
}
