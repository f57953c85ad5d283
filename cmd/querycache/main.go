// Querycache runs the cached user repository example against sqlite or mysql.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "querycache",
		Short:         "Read-through query cache for gorm repositories",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error (env QUERYCACHE_LOG_LEVEL)")
	root.AddCommand(demoCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flagOrEnv returns the flag value if set, then the environment value, then defaultValue.
func flagOrEnv(cmd *cobra.Command, flagName, envName, defaultValue string) string {
	if v, _ := cmd.Flags().GetString(flagName); v != "" {
		return v
	}

	if v, ok := os.LookupEnv(envName); ok {
		return v
	}

	return defaultValue
}
