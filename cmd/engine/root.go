// optiroute-engine runs one engine operation per process: the request JSON
// goes in as an argument or on stdin and the response JSON comes out on
// stdout.
//
// Usage:
//
//	optiroute-engine invoke optimize-route request.json
//	optiroute-engine invoke plan-capacity - < request.json
//	optiroute-engine config [--config=engine.yaml]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"optiroute/internal/buildinfo"
	"optiroute/internal/config"
	"optiroute/internal/opt"
)

// errFailed marks a response that carried an error body; the body itself has
// already been written.
var errFailed = errors.New("engine returned an error")

var rootFlags struct {
	configPath string
}

var rootCmd = &cobra.Command{
	Use:           "optiroute-engine",
	Short:         "Delivery route optimization engine",
	Long:          "Runs shortest-path, multi-stop routing and capacity planning requests\nusing the same JSON contract as the HTTP service.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", os.Getenv("ENGINE_CONFIG"), "YAML file of engine tunables")
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.Version = buildinfo.Version
}

func engineConfig() (opt.Config, error) {
	if rootFlags.configPath == "" {
		return opt.DefaultConfig(), nil
	}
	return config.LoadEngine(rootFlags.configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
