package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/winsession/internal/adapter/input"
	"github.com/jmylchreest/winsession/internal/adapter/output"
	"github.com/jmylchreest/winsession/internal/core"
)

var showOpts struct {
	format    string
	workspace string
	all       bool
	presets   bool
	template  string
	filter    string
	search    string
	sortBy    string
	sortOrder string
	from      string
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved window layout",
	Long: `Print the window layout saved by winsessiond.

By default only the configured workspace is shown. Use --all for every
workspace in the file.

Examples:
  # Human readable summary of the current workspace
  winsession show

  # Everything, as JSON
  winsession show --all --format json

  # One label per line, e.g. for a picker
  winsession show --format labels | fuzzel -d | xargs winsession shake

  # Pretty-print a layout from somewhere else
  ssh laptop cat .local/share/winsession/window-state.json | winsession show --all --from -

  # Custom line per window
  winsession show --template '{{.Label}} {{.URL}}'

  # Only modal children, ordered by category
  winsession show --filter type=child --sort category

  # Anything mentioning settings in its label, category or URL
  winsession show --search settings`,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVarP(&showOpts.format, "format", "f", "",
		"Output format (plain, json, yaml, labels; default from config)")
	showCmd.Flags().StringVarP(&showOpts.workspace, "workspace", "w", "",
		"Workspace to show (default from daemon config)")
	showCmd.Flags().BoolVarP(&showOpts.all, "all", "a", false,
		"Show every workspace")
	showCmd.Flags().BoolVar(&showOpts.presets, "presets", true,
		"Include category presets in plain output")
	showCmd.Flags().StringVar(&showOpts.template, "template", "",
		"Custom Go template for each window in plain output")
	showCmd.Flags().StringVar(&showOpts.filter, "filter", "",
		"Filter expression, e.g. \"type=aux,url~settings\" (fields: label, category, type, url, workspace)")
	showCmd.Flags().StringVarP(&showOpts.search, "search", "s", "",
		"Only windows whose label, category or URL contains this text")
	showCmd.Flags().StringVar(&showOpts.sortBy, "sort", "label",
		"Sort windows by field (label, category, type, url)")
	showCmd.Flags().StringVar(&showOpts.sortOrder, "order", "asc",
		"Sort order (asc, desc)")
	showCmd.Flags().StringVar(&showOpts.from, "from", "",
		"Read the layout from this file, or - for stdin (default: the layout file)")
}

func runShow(cmd *cobra.Command, args []string) error {
	format := output.FormatType(showOpts.format)
	if format == "" {
		format = output.FormatType(cfg.Output.Format)
	}
	if !slices.Contains(output.ValidFormats(), format) {
		return fmt.Errorf("invalid format %q, must be one of: %v", format, output.ValidFormats())
	}

	filter, err := core.ParseFilter(showOpts.filter)
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	field, err := core.ParseSortField(showOpts.sortBy)
	if err != nil {
		return err
	}
	order, err := core.ParseSortOrder(showOpts.sortOrder)
	if err != nil {
		return err
	}

	source := showOpts.from
	if source == "" {
		if source, err = layoutPath(); err != nil {
			return err
		}
	}
	adapter, err := input.NewAdapter(source)
	if err != nil {
		return err
	}
	state, err := adapter.Import(context.Background())
	if err != nil {
		return err
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = showOpts.template
	opts.Filter = filter
	opts.Search = showOpts.search
	opts.Sort = core.SortOptions{Field: field, Order: order}
	opts.ShowPresets = cfg.Output.Presets
	if cmd.Flags().Changed("presets") {
		opts.ShowPresets = showOpts.presets
	}
	if !showOpts.all {
		opts.Workspace = showOpts.workspace
		if opts.Workspace == "" {
			opts.Workspace = daemonCfg.Workspace()
		}
	}

	return output.NewFormatter(format, opts).Format(os.Stdout, state)
}
