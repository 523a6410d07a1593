package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/oktetlabs/test-environment-sub029/internal/entry"
	"github.com/oktetlabs/test-environment-sub029/internal/intern"
	"github.com/oktetlabs/test-environment-sub029/internal/logfork"
)

var (
	sendAddr  string
	sendUser  string
	sendLevel string
)

var sendCmd = &cobra.Command{
	Use:   "send <message...>",
	Short: "Forward one message to a --fork-listen parent, as a forked child does",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strs := intern.New(cfg.Wire().MaxField())
		c, err := logfork.Dial("tcp", sendAddr, strs)
		if err != nil {
			return err
		}
		lvl := entry.ParseLevel(sendLevel)
		if lvl == entry.LevelUnknown {
			lvl = entry.LevelInfo
		}
		c.Log("", 0, lvl, cfg.Entity, strs.MustIntern(sendUser), strs.MustIntern("%s"), entry.Str(strings.Join(args, " ")))
		if c.Dropped() > 0 {
			log.Warn("message not delivered")
		}
		return c.Close()
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendAddr, "addr", "127.0.0.1:7070", "parent address")
	sendCmd.Flags().StringVarP(&sendUser, "user", "u", "child", "log user")
	sendCmd.Flags().StringVar(&sendLevel, "level", "info", "message level")
	rootCmd.AddCommand(sendCmd)
}
