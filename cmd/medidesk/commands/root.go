package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/moolen/medidesk/internal/config"
	"github.com/moolen/medidesk/internal/logging"
)

const Version = "0.1.0"

var (
	logLevelFlags []string // Supports multiple --log-level flags
	configPath    string
	backendFlag   string
	modelFlag     string
	scenarioFlag  string
	delayFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "medidesk",
	Short: "MediDesk - hospital front-desk command center",
	Long: `MediDesk routes hospital front-desk requests to specialist sub-agents.
A coordinator model classifies each request with forced function calling and
hands it to medical records, patient management, appointments or billing.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// --log-level debug --log-level delegation=debug
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level", nil,
		"Log level for packages. Use 'level' or 'default=level' for the default, 'package=level' per package.\n"+
			"Examples: --log-level debug, --log-level delegation=debug --log-level session=warn")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Backend provider: gemini, anthropic or scenario")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "Model name (defaults per backend)")
	rootCmd.PersistentFlags().StringVar(&scenarioFlag, "scenario", "", "Scenario YAML for the scenario backend")
	rootCmd.PersistentFlags().StringVar(&delayFlag, "response-delay", "", "Specialist response delay, e.g. 1500ms")

	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(agentsCmd)
}

// loadConfig reads --config and applies flag overrides, then initializes
// logging from the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := setupLog(cfg, logLevelFlags); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlagOverrides(cfg *config.Config) error {
	if backendFlag != "" {
		cfg.Backend.Provider = backendFlag
	}
	if modelFlag != "" {
		cfg.Backend.Model = modelFlag
	}
	if scenarioFlag != "" {
		cfg.Backend.ScenarioPath = scenarioFlag
		if backendFlag == "" {
			cfg.Backend.Provider = config.ProviderScenario
		}
	}
	if delayFlag != "" {
		d, err := time.ParseDuration(delayFlag)
		if err != nil {
			return fmt.Errorf("--response-delay: %w", err)
		}
		cfg.Session.ResponseDelay = d
	}
	return nil
}

// setupLog initializes logging. Priority: CLI flags > environment > config
// file.
func setupLog(cfg *config.Config, flags []string) error {
	defaultLevel, packageLevels, err := parseLogLevelFlags(cfg.LogLevel, cfg.PackageLogLevels, flags)
	if err != nil {
		return err
	}
	return logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevelFlags merges config levels, LOG_LEVEL_* environment variables
// and CLI flags, in increasing priority.
//
// CLI format: ["debug"], ["default=info", "delegation=debug"]
// Env vars: LOG_LEVEL_APISERVER_STORE=debug (package name uppercased, dots to underscores)
func parseLogLevelFlags(configLevel string, configPackages map[string]string, flags []string) (string, map[string]string, error) {
	result := make(map[string]string, len(configPackages))
	for pkg, level := range configPackages {
		result[pkg] = level
	}
	if configLevel != "" {
		result["default"] = configLevel
	}

	for _, envPair := range os.Environ() {
		if !strings.HasPrefix(envPair, "LOG_LEVEL_") {
			continue
		}
		parts := strings.SplitN(envPair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		result[convertEnvKeyToPackageName(parts[0])] = parts[1]
	}

	for _, flag := range flags {
		if pkg, level, ok := strings.Cut(flag, "="); ok {
			result[pkg] = level
		} else {
			result["default"] = flag
		}
	}

	defaultLevel := "info"
	if level, exists := result["default"]; exists {
		defaultLevel = level
		delete(result, "default")
	}

	if err := logging.ValidateLevel(defaultLevel); err != nil {
		return "", nil, err
	}
	for pkg, level := range result {
		if err := logging.ValidateLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for package %q: %v", pkg, err)
		}
	}
	return defaultLevel, result, nil
}

// convertEnvKeyToPackageName converts LOG_LEVEL_APISERVER_STORE -> apiserver.store
func convertEnvKeyToPackageName(envKey string) string {
	name := strings.TrimPrefix(envKey, "LOG_LEVEL_")
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}
