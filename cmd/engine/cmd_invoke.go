package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"optiroute/internal/engine"
)

var invokeFlags struct {
	timeout time.Duration
	pretty  bool
}

var invokeCmd = &cobra.Command{
	Use:   "invoke <op> [payload|-]",
	Short: "Run one operation (optimize-route, plan-capacity)",
	Long: "Runs one operation. The payload is a path to a JSON file, '-' for stdin\n" +
		"(the default), or an inline JSON document. Exits 1 when the response is an error.",
	Args: cobra.RangeArgs(1, 2),
	RunE: runInvoke,
}

func init() {
	f := invokeCmd.Flags()
	f.DurationVar(&invokeFlags.timeout, "timeout", 30*time.Second, "overall deadline for the solve")
	f.BoolVar(&invokeFlags.pretty, "pretty", false, "indent the response")
}

func runInvoke(cmd *cobra.Command, args []string) error {
	src := "-"
	if len(args) == 2 {
		src = args[1]
	}
	payload, err := readPayload(cmd.InOrStdin(), src)
	if err != nil {
		return err
	}
	cfg, err := engineConfig()
	if err != nil {
		return err
	}

	runner := engine.NewRunner(engine.New(cfg), 1, invokeFlags.timeout)
	resp, err := runner.Run(context.Background(), args[0], payload)
	if err != nil {
		return err
	}
	body := resp.Body
	if invokeFlags.pretty {
		var buf bytes.Buffer
		if json.Indent(&buf, body, "", "  ") == nil {
			body = buf.Bytes()
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))
	if resp.Err != nil {
		return errFailed
	}
	return nil
}

// readPayload resolves src: "-" reads r, a leading '{' is inline JSON and
// anything else is a file path.
func readPayload(r io.Reader, src string) ([]byte, error) {
	switch {
	case src == "-":
		return io.ReadAll(r)
	case strings.HasPrefix(strings.TrimSpace(src), "{"):
		return []byte(src), nil
	default:
		b, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		return b, nil
	}
}
