// Package cmd implements the command-line interface for the regulatory
// announcement intake service.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmditems "github.com/jonesrussell/regintake/cmd/items"
	cmdrun "github.com/jonesrussell/regintake/cmd/run"
	cmdserve "github.com/jonesrussell/regintake/cmd/serve"
	"github.com/jonesrussell/regintake/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug mode for all commands.
	Debug bool

	// rootCmd represents the root command.
	rootCmd = &cobra.Command{
		Use:   "regintake",
		Short: "Regulatory announcement intake service",
		Long: `Ingests announcements published by government regulatory bodies as
syndicated feeds, deduplicates them, and stages accepted items for review
and promotion into the canonical entity/card record.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to viper.
	_ = godotenv.Load()

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("regintake version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(cmdrun.Command())
	rootCmd.AddCommand(cmdserve.Command())
	rootCmd.AddCommand(cmditems.Command())
}

// initConfig reads the config file and environment variables into viper.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := config.BindEnv(); err != nil {
		return err
	}

	// Config file is optional; defaults and environment variables cover
	// every setting except the domain allowlist and feed list.
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config file not found: %v\n", err)
	}

	// Parse flags early so --debug reaches the logger configuration.
	_ = rootCmd.ParseFlags(os.Args[1:])
	if Debug {
		viper.Set("app.debug", true)
		viper.Set("logger.level", "debug")
		viper.Set("logger.development", true)
		viper.Set("logger.encoding", "console")
	}

	return nil
}
