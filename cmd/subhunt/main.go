package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skywolf-loong/subhunt/cmd/subhunt/commands"
	"github.com/skywolf-loong/subhunt/pkg/utils"
)

var (
	version   = "1.0.0"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "subhunt",
	Short:         "SubHunt - wordlist-driven subdomain scanner",
	Long:          "SubHunt enumerates subdomains of a target domain by brute forcing a wordlist and verifying each candidate over DNS and HTTP.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := initLogging(); err != nil {
			return err
		}
		if !viper.GetBool("quiet") {
			printBanner()
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.subhunt/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet mode (no banner output)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("log-file", "", "log file path (rotated)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.AddCommand(commands.NewScanCommand())
	rootCmd.AddCommand(commands.NewConfigureCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, buildDate))

	rootCmd.SetVersionTemplate(fmt.Sprintf("SubHunt %s (commit %s, built %s)\n", version, commit, buildDate))
}

func initConfig() error {
	setDefaults()
	viper.SetEnvPrefix("SUBHUNT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("get home dir: %w", err)
		}
		viper.AddConfigPath(filepath.Join(home, ".subhunt"))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.Warnf("Failed reading config file: %v", err)
		}
	} else {
		logrus.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("quiet", false)
	viper.SetDefault("scan.concurrency", 50)
	viper.SetDefault("scan.timeout", 5)
	viper.SetDefault("scan.methods", []string{"dns", "http"})
	viper.SetDefault("scan.retries", 0)
	viper.SetDefault("scan.max_redirects", 3)
	viper.SetDefault("scan.insecure", true)
}

func initLogging() error {
	cfg := utils.LogConfig{
		Level:        viper.GetString("log_level"),
		Format:       viper.GetString("log_format"),
		FileLocation: viper.GetString("log_file"),
		MaxSizeMB:    50,
		MaxBackups:   5,
		MaxAgeDays:   14,
	}
	logger, err := utils.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	std := logrus.StandardLogger()
	std.SetLevel(logger.GetLevel())
	std.SetFormatter(logger.Formatter)
	std.SetOutput(logger.Out)
	return nil
}

func printBanner() {
	fmt.Printf(`
  ___      _    _  _          _
 / __|_  _| |__| || |_  _ _ _| |_
 \__ \ || | '_ \ __ | || | ' \  _|
 |___/\_,_|_.__/_||_|\_,_|_||_\__|   v%s

`, version)
}
