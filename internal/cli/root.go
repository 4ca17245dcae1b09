package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/billtrack/internal/model"
)

const version = "billtrack v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "billtrack",
	Short: "billtrack - legislative history and roll-call vote ingest",
	Long: `billtrack pulls bill event history and roll-call votes from the
Legislative Information System (LIS) into a Postgres store.

It records every status a bill passes through, works out which chamber
each status belongs to, resolves the votes those statuses cite, and scores
how strongly each vote split along party lines.

Runs are batch jobs meant for a scheduler. Every write is an upsert, so
a failed run is recovered by running it again.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.billtrack/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.Int64("session-id", 0, "internal session id")
	flags.String("session-code", "", "upstream LIS session code, e.g. 20251")
	flags.String("dsn", "", "Postgres connection string")
	flags.String("cache-dir", "", "directory for change snapshots and content hashes")
	flags.String("log-format", "", "log format (text, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("session.id", flags.Lookup("session-id"))
	_ = viper.BindPFlag("session.code", flags.Lookup("session-code"))
	_ = viper.BindPFlag("database.dsn", flags.Lookup("dsn"))
	_ = viper.BindPFlag("cache.dir", flags.Lookup("cache-dir"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	// A .env file in the working directory feeds BILLTRACK_* variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}

	setDefaults(viper.GetViper(), model.DefaultConfig())

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.billtrack")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match BILLTRACK_*, e.g. BILLTRACK_DATABASE_DSN
	viper.SetEnvPrefix("BILLTRACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so env vars can override keys
// that appear in no config file.
func setDefaults(v *viper.Viper, d *model.Config) {
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("session.id", d.Session.ID)
	v.SetDefault("session.code", d.Session.Code)
	v.SetDefault("lis.base_url", d.LIS.BaseURL)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)
	v.SetDefault("http.http_proxy", d.HTTP.HTTPProxy)
	v.SetDefault("http.https_proxy", d.HTTP.HTTPSProxy)
	v.SetDefault("rate_limiting.requests_per_second", d.RateLimiting.RequestsPerSecond)
	v.SetDefault("rate_limiting.burst_size", d.RateLimiting.BurstSize)
	v.SetDefault("rate_limiting.delay", d.RateLimiting.Delay)
	v.SetDefault("ingest.max_consecutive_failures", d.Ingest.MaxConsecutiveFailures)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.redis_url", d.Cache.RedisURL)
	v.SetDefault("votes.committee_ceiling.house", d.Votes.CommitteeCeiling.House)
	v.SetDefault("votes.committee_ceiling.senate", d.Votes.CommitteeCeiling.Senate)
	v.SetDefault("votes.correction_ceiling.house", d.Votes.CorrectionCeiling.House)
	v.SetDefault("votes.correction_ceiling.senate", d.Votes.CorrectionCeiling.Senate)
	v.SetDefault("metrics.pushgateway_url", d.Metrics.PushgatewayURL)
	v.SetDefault("metrics.job", d.Metrics.Job)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// loadConfig resolves the effective configuration from viper
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if v.GetBool("verbose") {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}
