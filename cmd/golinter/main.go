package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/CZERTAINLY/golinter/internal/log"
	"github.com/CZERTAINLY/golinter/internal/model"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var (
	userConfigPath string // /default/config/path/golinter on given OS
	configPath     string // actual config file used (if loaded)
	config         model.Config
	logCloser      io.Closer

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "golinter")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is golinter.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initGolinter
	rootCmd.PersistentPostRunE = closeLog

	lintCmd.Flags().BoolVar(&flagWorkspace, "workspace", false, "lint the whole workspace the file belongs to")
	lintCmd.Flags().StringVar(&flagFormat, "format", "", "output format: text or json, overrides service.format")
	lintCmd.Flags().BoolVar(&flagFailOnFindings, "fail-on-findings", false, "exit with non zero code when findings are reported")

	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, model.ErrFindings) {
			slog.Error("golinter failed", "err", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "golinter",
	Short:        "Runs golint or gometalinter on a file or a workspace",
	SilenceUsage: true,
}

var lintCmd = &cobra.Command{
	Use:   "lint <file>",
	Short: "lint command lints a single file or, with --workspace, the whole workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  doLint,
}

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "watch command lints the workspace on every change of a Go file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  doWatch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provide version of a golinter",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("golinter: version info not available")
			return
		}

		if configPath != "" {
			fmt.Printf("config:   %s\n", configPath)
		}
		fmt.Printf("golinter: %s\n", info.Main.Version)
		fmt.Printf("go:       %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:   %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:     %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:    %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

func initGolinter(cmd *cobra.Command, _ []string) error {
	if envConfig, ok := os.LookupEnv("GOLINTERCONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{".", userConfigPath} {
			path := filepath.Join(d, "golinter.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	var err error
	if configPath == "" {
		config, err = storeDefaultConfig()
	} else {
		config, err = loadConfig(configPath)
	}
	if err != nil {
		return err
	}

	// --verbose has a precedence over config file
	if flagVerbose {
		config.Service.Verbose = true
	}

	w, closer, err := log.Output(config.Service.Log)
	if err != nil {
		return err
	}
	logCloser = closer
	slog.SetDefault(log.New(w, config.Service.Verbose))

	slog.Debug("golinter run", "configPath", configPath)
	slog.Debug("golinter run", "config", config)
	return nil
}

func closeLog(*cobra.Command, []string) error {
	if logCloser == nil {
		return nil
	}
	return logCloser.Close()
}

// storeDefaultConfig writes the default configuration to the user config
// directory so it can be edited later.
func storeDefaultConfig() (model.Config, error) {
	cfg := model.DefaultConfig()
	configPath = filepath.Join(userConfigPath, "golinter.yaml")
	err := os.MkdirAll(filepath.Dir(configPath), 0755)
	if err != nil {
		return cfg, fmt.Errorf("creating directory %s: %w", filepath.Dir(configPath), err)
	}

	f, err := os.Create(configPath)
	if err != nil {
		return cfg, fmt.Errorf("creating file %s: %w", configPath, err)
	}
	defer func() {
		_ = f.Close()
	}()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return cfg, fmt.Errorf("storing configuration: %w", err)
	}
	return cfg, enc.Close()
}

func loadConfig(path string) (model.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Config{}, fmt.Errorf("opening config file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	cfg, err := model.LoadConfig(f)
	if err != nil {
		for _, d := range model.CueErrDetails(err) {
			slog.Error(d.String())
		}
		return model.Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
