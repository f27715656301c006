package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/lofcall/pkg/config"
	"github.com/mchmarny/lofcall/pkg/logging"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName = "lofcall"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	logLevel = &slog.LevelVar{}
)

const (
	debugFlagName    = "debug"
	logLevelFlagName = "log-level"
	configFlagName   = "config"
	formatFlagName   = "format"
)

func globalFlags() []urfave.Flag {
	return []urfave.Flag{
		&urfave.BoolFlag{
			Name:  debugFlagName,
			Usage: "Prints verbose logs (optional, default: false)",
		},
		&urfave.StringFlag{
			Name:    logLevelFlagName,
			Usage:   "Log level [debug, info, warn, error]",
			Value:   "info",
			Sources: urfave.EnvVars("LOFCALL_LOG_LEVEL"),
		},
		&urfave.StringFlag{
			Name:    configFlagName,
			Usage:   fmt.Sprintf("Path to the config file (default: $HOME/.%s/%s)", appName, config.ConfigFileName),
			Sources: urfave.EnvVars("LOFCALL_CONFIG"),
		},
		&urfave.StringFlag{
			Name:  formatFlagName,
			Usage: "Output format [json, yaml]",
			Value: formatJSON,
		},
	}
}

type appConfigKey struct{}

type appConfig struct {
	Config *config.Config
	Dir    string
	Format string
	Debug  bool
}

func getConfig(ctx context.Context) *appConfig {
	if cfg, ok := ctx.Value(appConfigKey{}).(*appConfig); ok {
		return cfg
	}
	return &appConfig{Config: config.Default(), Format: formatJSON}
}

// Execute creates and runs the CLI application.
func Execute() {
	initLogging("info")

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Loss-of-function confidence calls for variant-transcript annotations",
		Flags:                 globalFlags(),
		Commands: []*urfave.Command{
			classifyCmd(),
			scoreCmd(),
			fetchCmd(),
			dbCmd(),
			configCmd(),
		},
		Before: func(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
			debug := cmd.Bool(debugFlagName)
			if debug {
				initLogging("debug")
			} else {
				initLogging(cmd.String(logLevelFlagName))
			}

			format := formatJSON
			if f := cmd.String(formatFlagName); f == formatYAML || f == "yml" {
				format = formatYAML
			}

			cfg, dir, err := readConfig(cmd.String(configFlagName))
			if err != nil {
				return ctx, fmt.Errorf("reading config: %w", err)
			}

			return context.WithValue(ctx, appConfigKey{}, &appConfig{
				Config: cfg,
				Dir:    dir,
				Format: format,
				Debug:  debug,
			}), nil
		},
	}
}

// readConfig returns the config and the directory relative source paths
// resolve against.
func readConfig(path string) (*config.Config, string, error) {
	if path != "" {
		c, err := config.Load(path)
		return c, filepath.Dir(path), err
	}
	dir, _, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		slog.Debug("no home dir, using defaults", "error", err)
		return config.Default(), "", nil
	}
	c, err := config.ReadOrCreate(dir)
	return c, dir, err
}

func initLogging(level string) {
	logLevel.Set(logging.ParseLogLevel(level))
	slog.SetDefault(slog.New(logging.NewCLIHandler(os.Stderr, logLevel)))
}

// resolvePath joins relative paths onto base. Database URLs pass through.
func resolvePath(base, p string) string {
	if strings.Contains(p, "://") {
		return p
	}
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

func writer(cmd *urfave.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func encode(w io.Writer, format string, v any) error {
	if format == formatYAML {
		return yaml.NewEncoder(w).Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
