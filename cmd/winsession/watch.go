package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/winsession/internal/bus"
	"github.com/jmylchreest/winsession/internal/tui"
	"github.com/jmylchreest/winsession/internal/window"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Browse the saved layout live",
	Long: `Launch the terminal layout viewer. It follows the layout file as the
daemon rewrites it.

Key bindings:
  j/k, ↑/↓          Navigate windows
  tab/shift+tab     Switch workspace
  enter             Window details
  c / C             Copy label / copy all labels
  x                 Close the selected window
  s                 Shake the selected window
  r                 Reload
  ?                 Help
  q                 Quit`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	path, err := layoutPath()
	if err != nil {
		return err
	}

	return tui.Run(tui.RunOptions{
		Config:     cfg,
		LayoutPath: path,
		Logger:     logger,
		Actions: tui.Actions{
			Close: func(label string) error {
				return sendCommand(window.Command{Target: label, Action: window.ActionClose})
			},
			Shake: func(label string) error {
				return withBus(func(ctx context.Context, b bus.Bus) error {
					return window.RequestShake(ctx, b, label)
				})
			},
		},
	})
}
