package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "recruiter-reports",
	Short: "Recruiter Reports",
	Long:  `Weekly recruiter stack ranking, financials and hours reports reconciled across the Symplr and Bullhorn ATS mirrors.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads config.yml from path, or plain environment variables in
// container deployments, and initialises the process logger from it.
func loadConfig(path string) (*internal.Config, error) {
	v, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}

	var cfg *internal.Config
	if v == nil {
		cfg = internal.LoadConfigFromEnv()
	} else {
		cfg = &internal.Config{}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("error unmarshaling config: %w", err)
		}
		cfg.ApplyDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	logger.Init(cfg.Env, cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	return cfg, nil
}

// readConfigFile returns nil when the process is configured from the
// environment alone.
func readConfigFile(path string) (*viper.Viper, error) {
	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		return nil, nil
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}
	return v, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory holding config.yml")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(tokenCmd)
}
