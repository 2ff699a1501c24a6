// Copyright 2026 The Caster Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package launcher runs a caster server application: it parses the command
// line, loads and validates the configuration, sets up logging and hands
// control to the application.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	libconfig "github.com/rtkcaster/caster/private/config"
)

// Configuration keys used by the launcher.
const (
	cfgConfigFile                = "config"
	cfgLogConsoleLevel           = "log.console.level"
	cfgLogConsoleFormat          = "log.console.format"
	cfgLogConsoleStacktraceLevel = "log.console.stacktrace_level"
)

// EnvPrefix prefixes the environment variables that override configuration
// keys, e.g. CASTER_LOG_CONSOLE_LEVEL.
const EnvPrefix = "CASTER"

// Application models a caster server application.
type Application struct {
	// TOMLConfig holds the application-specific TOML configuration.
	TOMLConfig libconfig.Config

	// ShortName is the short name of the application. If empty, the
	// executable name is used.
	ShortName string

	// Main is the custom logic of the application. If nil, only the
	// setup/teardown harness runs. If Main returns an error, Run exits with
	// a non-zero exit code.
	Main func(ctx context.Context) error

	// ErrorWriter specifies where error output should be printed. If nil,
	// os.Stderr is used.
	ErrorWriter io.Writer

	cmd    *cobra.Command
	config *viper.Viper
}

// Run sets up the common server harness, and then passes control to the Main
// function (if one exists). Run exits the process on a fatal error.
func (a *Application) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := a.run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(a.getErrorWriter(), "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func (a *Application) run(ctx context.Context, args []string) error {
	executable := filepath.Base(os.Args[0])
	shortName := a.getShortName(executable)

	a.cmd = newCommandTemplate(executable, shortName, a.TOMLConfig)
	a.cmd.SetArgs(args)
	a.cmd.SetErr(a.getErrorWriter())
	a.cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return a.executeCommand(cmd.Context(), shortName)
	}
	a.config = viper.New()
	a.config.SetDefault(cfgLogConsoleLevel, log.DefaultConsoleLevel)
	a.config.SetDefault(cfgLogConsoleFormat, log.DefaultConsoleFormat)
	a.config.SetDefault(cfgLogConsoleStacktraceLevel, log.DefaultStacktraceLevel)
	a.config.SetEnvPrefix(EnvPrefix)
	a.config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.config.AutomaticEnv()
	// The configuration file location is specified through command-line flags.
	// Once the command-line flags are parsed, the location is available
	// through the viper config.
	if err := a.config.BindPFlag(cfgConfigFile, a.cmd.Flags().Lookup(cfgConfigFile)); err != nil {
		return err
	}
	return a.cmd.ExecuteContext(ctx)
}

func (a *Application) getShortName(executable string) string {
	if a.ShortName != "" {
		return a.ShortName
	}
	return executable
}

func (a *Application) executeCommand(ctx context.Context, shortName string) error {
	os.Setenv("TZ", "UTC")

	file := a.config.GetString(cfgConfigFile)
	// Launcher settings are read from the same file as the application
	// configuration.
	a.config.SetConfigType("toml")
	a.config.SetConfigFile(file)
	if err := a.config.ReadInConfig(); err != nil {
		return serrors.Wrap("loading generic server config from file", err, "file", file)
	}
	if err := libconfig.LoadFile(file, a.TOMLConfig); err != nil {
		return serrors.Wrap("loading config from file", err, "file", file)
	}
	a.TOMLConfig.InitDefaults()

	if err := log.Setup(a.getLogging()); err != nil {
		return serrors.Wrap("initialize logging", err)
	}
	defer log.Flush()
	defer log.HandlePanic()
	log.Info("=====================> Service started", "service", shortName)
	defer log.Info("=====================> Service stopped", "service", shortName)

	if err := a.TOMLConfig.Validate(); err != nil {
		return serrors.Wrap("validate config", err)
	}
	if a.Main == nil {
		return nil
	}
	return a.Main(ctx)
}

func (a *Application) getLogging() log.Config {
	return log.Config{
		Console: log.Console{
			Level:           a.config.GetString(cfgLogConsoleLevel),
			Format:          a.config.GetString(cfgLogConsoleFormat),
			StacktraceLevel: a.config.GetString(cfgLogConsoleStacktraceLevel),
		},
	}
}

func (a *Application) getErrorWriter() io.Writer {
	if a.ErrorWriter != nil {
		return a.ErrorWriter
	}
	return os.Stderr
}

// newCommandTemplate returns the root command of a server application with
// the --config flag and the sample subcommand.
func newCommandTemplate(executable, shortName string, config libconfig.Sampler) *cobra.Command {
	cmd := &cobra.Command{
		Use:           executable + " --config <file>",
		Short:         shortName,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.Flags().String(cfgConfigFile, "", "Configuration file (required)")
	cmd.MarkFlagRequired(cfgConfigFile)

	sample := &cobra.Command{
		Use:   "sample",
		Short: "Display sample files",
	}
	sample.AddCommand(&cobra.Command{
		Use:     "config",
		Short:   "Display a sample configuration file",
		Example: fmt.Sprintf("  %s sample config > %s.toml", executable, executable),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.Sample(cmd.OutOrStdout(), nil, nil)
			return nil
		},
	})
	cmd.AddCommand(sample)
	return cmd
}
