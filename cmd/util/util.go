package util

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"collabtext/pkg/config"
	"collabtext/pkg/errors"
)

// GlobalFlags are the flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
	Server     string
}

// Register adds the global flags to cmd as persistent flags.
func (f *GlobalFlags) Register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.ConfigPath, "config", config.DefaultPath,
		"Path to the collabtext config file.")
	cmd.PersistentFlags().StringVar(&f.Server, "server", "",
		fmt.Sprintf("Origin of the document server. Overrides $%s and the config file.", config.ServerEnv))
}

// LoadConfig loads the configuration and applies the flag overrides.
func (f *GlobalFlags) LoadConfig() (config.Config, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return config.Config{}, errors.WithContext(err, "load config")
	}
	if f.Server != "" {
		cfg.Server = f.Server
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// HandleFatalError prints err and exits. Friendly errors are shown as-is;
// anything else is logged with its full context.
func HandleFatalError(err error) {
	if friendly, ok := errors.GetFriendlyError(err); ok {
		fmt.Fprintln(os.Stderr, friendly.Error())
		log.WithError(err).Debug("Fatal error")
	} else {
		log.WithError(err).Error("Fatal error")
	}
	os.Exit(1)
}
