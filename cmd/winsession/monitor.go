package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/winsession/internal/dbus"
)

var monitorOpts struct {
	json bool
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print winsession bus traffic as it happens",
	Long: `Print every message exchanged between winsession windows on the session
bus, until interrupted. Useful to see registry updates, lock broadcasts and
shake requests while debugging.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().BoolVar(&monitorOpts.json, "json", false,
		"Output one JSON object per message")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	enc := json.NewEncoder(os.Stdout)
	m := dbus.NewMonitor(logger)
	m.SetMessageHandler(func(msg dbus.Message) {
		if monitorOpts.json {
			_ = enc.Encode(msg)
			return
		}
		fmt.Printf("%s %-8s %-20s %s\n", msg.Time.Format("15:04:05.000"), msg.Sender, msg.Channel, msg.Payload)
	})
	if err := m.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	return m.Stop()
}
