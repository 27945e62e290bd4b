package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/winsession/internal/bus"
	"github.com/jmylchreest/winsession/internal/config"
	"github.com/jmylchreest/winsession/internal/core"
	"github.com/jmylchreest/winsession/internal/dbus"
	"github.com/jmylchreest/winsession/internal/messenger"
	"github.com/jmylchreest/winsession/internal/model"
	"github.com/jmylchreest/winsession/internal/store"
	"github.com/jmylchreest/winsession/internal/window"
)

// commandTimeout bounds one round of bus work from the CLI.
const commandTimeout = 5 * time.Second

var errNotRunning = errors.New("winsessiond is not running")

var openOpts struct {
	child    bool
	category string
}

var openCmd = &cobra.Command{
	Use:   "open <target> <path>",
	Short: "Ask a window to open another window",
	Long: `Ask the window labelled <target> to open a new window at <path>.

Without --child the new window is an independent auxiliary window. With
--child it is a modal child of <target>; if <target> already has a child,
that child is brought forward instead.

Examples:
  winsession open main /settings --category settings
  winsession open main /confirm --child`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action := window.ActionOpenAux
		if openOpts.child {
			action = window.ActionOpenChild
		}
		return sendCommand(window.Command{
			Target:   args[0],
			Action:   action,
			Path:     args[1],
			Category: openOpts.category,
		})
	},
}

var closeCmd = &cobra.Command{
	Use:   "close <label>",
	Short: "Close a window as if the user closed it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(window.Command{Target: args[0], Action: window.ActionClose})
	},
}

var shakeCmd = &cobra.Command{
	Use:   "shake <label>",
	Short: "Draw attention to the modal child of a window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBus(func(ctx context.Context, b bus.Bus) error {
			return window.RequestShake(ctx, b, args[0])
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <label>",
	Short: "Drop a window from the saved layout",
	Long: `Drop the record of <label> from the running session's layout. The window
itself is left alone; it will simply not be restored next time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == model.MainLabel {
			return fmt.Errorf("the %s window cannot be removed", model.MainLabel)
		}
		return withBus(func(ctx context.Context, b bus.Bus) error {
			return messenger.New(false, nil, b, logger).RemoveWindow(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(openCmd, closeCmd, shakeCmd, removeCmd)

	openCmd.Flags().BoolVar(&openOpts.child, "child", false,
		"Open a modal child instead of an auxiliary window")
	openCmd.Flags().StringVar(&openOpts.category, "category", "",
		"Preset category for the new window's geometry")
	_ = openCmd.RegisterFlagCompletionFunc("category", completeCategories)

	for _, c := range []*cobra.Command{openCmd, closeCmd, shakeCmd, removeCmd} {
		c.ValidArgsFunction = completeLabels
	}
}

// layoutEntries reads the current workspace's windows for completion.
func layoutEntries() []core.Entry {
	if daemonCfg == nil {
		daemonCfg = config.DefaultDaemonConfig()
	}
	path, err := layoutPath()
	if err != nil {
		return nil
	}
	state := store.ReadSnapshot(path, logger)
	return core.WorkspaceEntries(daemonCfg.Workspace(), state.Workspace(daemonCfg.Workspace()))
}

func completeCategories(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return core.UniqueCategories(layoutEntries()), cobra.ShellCompDirectiveNoFileComp
}

// completeLabels completes the first argument with known window labels.
func completeLabels(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var labels []string
	for _, e := range layoutEntries() {
		labels = append(labels, e.Label)
	}
	return labels, cobra.ShellCompDirectiveNoFileComp
}

func sendCommand(c window.Command) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return withBus(func(ctx context.Context, b bus.Bus) error {
		return window.SendCommand(ctx, b, c)
	})
}

// withBus connects to the session bus, checks a daemon is listening and
// runs fn as a non-main participant.
func withBus(fn func(ctx context.Context, b bus.Bus) error) error {
	running, err := dbus.SessionRunning()
	if err != nil {
		return err
	}
	if !running {
		return errNotRunning
	}

	b, err := dbus.Connect(daemonCfg.Bus.Queue, logger)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return fn(ctx, b)
}
