package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/metacrawl/metacrawl/internal/config"
)

func newShowConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			proxy := cfg.EffectiveProxy()
			if proxy == "" {
				proxy = "not set"
			}
			if path == "" {
				path = "not found"
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Proxy: %s\n", proxy)
			fmt.Fprintf(w, "Timeout: %d seconds\n", cfg.Timeout)
			fmt.Fprintf(w, "Retry: %d\n", cfg.Retry)
			fmt.Fprintf(w, "Config file: %s\n", path)
			return nil
		},
	}
}
