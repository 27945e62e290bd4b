package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/winsession/internal/dbus"
	"github.com/jmylchreest/winsession/internal/model"
	"github.com/jmylchreest/winsession/internal/store"
)

var statusOpts struct {
	waybar bool
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

// sessionStatus is what status reports, before formatting.
type sessionStatus struct {
	Running   bool
	BusErr    error
	Path      string
	Size      int64
	Modified  time.Time
	Missing   bool
	Workspace string
	Windows   int
	Children  int
	Presets   int
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a session is running and what it saved",
	Long: `Show whether winsessiond is running, and summarise the layout file.

With --waybar the output is a Waybar custom module JSON object:

  "custom/winsession": {
    "exec": "winsession status --waybar",
    "interval": 5,
    "return-type": "json",
    "on-click": "winsession watch"
  }`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.waybar, "waybar", false,
		"Output Waybar-compatible JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	path, err := layoutPath()
	if err != nil {
		return err
	}

	st := sessionStatus{Path: path, Workspace: daemonCfg.Workspace()}
	st.Running, st.BusErr = dbus.SessionRunning()
	if st.BusErr != nil {
		logger.Debug("failed to query session bus", "error", st.BusErr)
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		st.Missing = true
	case err != nil:
		return fmt.Errorf("failed to stat layout file: %w", err)
	default:
		st.Size = info.Size()
		st.Modified = info.ModTime()
	}

	if ws := store.ReadSnapshot(path, logger).Workspace(st.Workspace); ws != nil {
		st.Windows = len(ws.ActiveWindows)
		for _, w := range ws.ActiveWindows {
			if w.Type == model.WindowTypeChild {
				st.Children++
			}
		}
		st.Presets = len(ws.CategoryPresets)
	}

	if statusOpts.waybar {
		return json.NewEncoder(os.Stdout).Encode(waybarStatus(st))
	}
	return writeStatus(os.Stdout, st, time.Now())
}

func writeStatus(w io.Writer, st sessionStatus, now time.Time) error {
	daemon := "stopped"
	switch {
	case st.BusErr != nil:
		daemon = "unknown (no session bus)"
	case st.Running:
		daemon = "running"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "daemon:    %s\n", daemon)
	if st.Missing {
		fmt.Fprintf(&b, "layout:    %s (not saved yet)\n", st.Path)
	} else {
		fmt.Fprintf(&b, "layout:    %s (%s, saved %s)\n",
			st.Path, humanize.Bytes(uint64(st.Size)), humanize.RelTime(st.Modified, now, "ago", "from now"))
	}
	fmt.Fprintf(&b, "workspace: %s\n", st.Workspace)
	fmt.Fprintf(&b, "windows:   %s", humanize.Comma(int64(st.Windows)))
	if st.Children > 0 {
		fmt.Fprintf(&b, " (%d modal)", st.Children)
	}
	fmt.Fprintf(&b, "\npresets:   %s\n", humanize.Comma(int64(st.Presets)))

	_, err := io.WriteString(w, b.String())
	return err
}

func waybarStatus(st sessionStatus) WaybarStatus {
	if !st.Running {
		return WaybarStatus{Text: "", Alt: "stopped", Class: "stopped", Tooltip: "winsessiond is not running"}
	}

	class := "running"
	if st.Children > 0 {
		class = "modal"
	}
	tooltip := fmt.Sprintf("%s: %d windows, %d presets", st.Workspace, st.Windows, st.Presets)
	if !st.Missing {
		tooltip += "\nsaved " + humanize.Time(st.Modified)
	}
	return WaybarStatus{
		Text:    fmt.Sprintf("%d", st.Windows),
		Alt:     class,
		Tooltip: tooltip,
		Class:   class,
	}
}
