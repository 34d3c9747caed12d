// Package cli wires routectl's subcommands (serve-api, serve-consumers,
// migrate) onto a shared, layered configuration: cobra flags override viper-
// bound environment variables, which override an optional config file, which
// override config.Load's built-in defaults.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"routectl.dev/internal/config"
)

var cfgFile string

// overridableFlags lists the flag names (dash-separated) that bridge into
// config.Load's environment-variable namespace, e.g. "record-dsn" ->
// ROUTECTL_RECORD_DSN.
var overridableFlags = []string{
	"port", "host", "log-level", "log-format",
	"record-dsn", "cache-url", "eventlog-url", "audit-url",
	"eventlog-partitions", "service-name",
}

// RootCmd is the routectl entrypoint.
var RootCmd = &cobra.Command{
	Use:   "routectl",
	Short: "multi-tenant routing control plane",
	Long: `routectl resolves (tenant, service, env, version) identifiers to
backend URLs, serving reads from a cache-aside layer in front of a
transactional record store, and propagating writes through an ordered event
log to cache invalidation, cache warming, and audit persistence consumers.`,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml/json/toml)")
	for _, name := range overridableFlags {
		RootCmd.PersistentFlags().String(name, "", "override the corresponding ROUTECTL_* environment variable")
	}

	RootCmd.AddCommand(serveAPICmd)
	RootCmd.AddCommand(serveConsumersCmd)
	RootCmd.AddCommand(migrateCmd)
}

// loadConfig layers cobra flags over viper-bound env/file config, then
// delegates to config.Load for the fully typed, defaulted result.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ROUTECTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return config.Config{}, err
		}
	}

	for _, name := range overridableFlags {
		_ = v.BindPFlag(name, cmd.Flags().Lookup(name))
		if val := v.GetString(name); val != "" {
			envKey := "ROUTECTL_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
			setenvIfDiffers(envKey, val)
		}
	}

	return config.Load("ROUTECTL"), nil
}
