package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/skywolf-loong/subhunt/pkg/models"
)

func NewConfigureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Manage SubHunt configuration",
	}
	cmd.AddCommand(newConfigureInitCommand())
	cmd.AddCommand(newConfigureShowCommand())
	return cmd
}

func newConfigureInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long:  `Write the default scan configuration as YAML to $HOME/.subhunt/config.yaml.`,
		RunE:  runConfigureInit,
	}
}

func newConfigureShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE:  runConfigureShow,
	}
}

func runConfigureInit(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".subhunt")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	cfg := struct {
		LogLevel  string            `yaml:"log_level"`
		LogFormat string            `yaml:"log_format"`
		Scan      models.ScanConfig `yaml:"scan"`
	}{
		LogLevel:  "info",
		LogFormat: "text",
		Scan:      models.DefaultScanConfig(),
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	logrus.Infof("Wrote default configuration to %s", path)
	return nil
}

func runConfigureShow(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "KEY\tVALUE")
	for _, key := range viper.AllKeys() {
		fmt.Fprintf(w, "%s\t%v\n", key, viper.Get(key))
	}
	return nil
}
