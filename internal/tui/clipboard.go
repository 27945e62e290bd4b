package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

const clipboardTimeout = 5 * time.Second

var errNoClipboard = errors.New("no clipboard tool found (install wl-clipboard, xclip or xsel)")

// clipboardWriter puts text on the system clipboard.
type clipboardWriter func(text string) error

// newClipboard returns a writer for the [tui] clipboard setting. A
// command line is run with the text on stdin; empty uses whatever tool
// the session provides.
func newClipboard(command string) clipboardWriter {
	args := strings.Fields(command)
	if len(args) == 0 {
		return func(text string) error {
			if clipboard.Unsupported {
				return errNoClipboard
			}
			return clipboard.WriteAll(text)
		}
	}
	return func(text string) error {
		ctx, cancel := context.WithTimeout(context.Background(), clipboardTimeout)
		defer cancel()

		var stderr bytes.Buffer
		c := exec.CommandContext(ctx, args[0], args[1:]...)
		c.Stdin = strings.NewReader(text)
		c.Stderr = &stderr
		if err := c.Run(); err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("%s: %w: %s", args[0], err, msg)
			}
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return nil
	}
}
