package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/imbot/pkg/imbot/config"
	"github.com/randalmurphal/imbot/pkg/imbot/observability"
)

const appName = "imbot"

var version = "0.0.0"

func newApp() *cli.App {
	return &cli.App{
		Name:    appName,
		Usage:   "Run a mock instant-messaging bot through the event pipeline",
		Version: version,
		Commands: []*cli.Command{
			simulateCmd(),
			settingsCmd(),
		},
	}
}

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Path to a YAML, JSON or TOML settings file",
}

func simulateCmd() *cli.Command {
	return &cli.Command{
		Name:    "simulate",
		Aliases: []string{"sim"},
		Usage:   "Run a scripted mock session and print a summary",
		Flags: []cli.Flag{
			configFlag,
			&cli.StringFlag{
				Name:  "scenario",
				Usage: "Path to a YAML or JSON scenario file",
			},
			&cli.IntFlag{
				Name:  "friends",
				Value: 5,
				Usage: "Number of friends when the scenario does not list them",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Value: 4,
				Usage: "Maximum number of messages broadcast at the same time",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Override log.format: text, json or otel",
			},
		},
		Action: func(c *cli.Context) error {
			s, err := loadSettings(c)
			if err != nil {
				return err
			}
			logger, err := newLogger(s, c.App.ErrWriter)
			if err != nil {
				return err
			}

			if c.Int("friends") < 0 {
				return fmt.Errorf("--friends must not be negative")
			}
			sc, err := loadScenario(c.String("scenario"), c.Int("friends"))
			if err != nil {
				return err
			}

			sum, err := simulate(c.Context, simulation{
				settings:    s,
				scenario:    sc,
				logger:      logger,
				concurrency: c.Int("concurrency"),
			})
			if err != nil {
				return err
			}
			return sum.print(c.App.Writer)
		},
	}
}

func settingsCmd() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Print the resolved settings",
		Flags: []cli.Flag{configFlag},
		Action: func(c *cli.Context) error {
			s, err := loadSettings(c)
			if err != nil {
				return err
			}
			return printSettings(c.App.Writer, s)
		},
	}
}

func loadSettings(c *cli.Context) (config.Settings, error) {
	s, err := config.LoadSettings(c.String("config"))
	if err != nil {
		return config.Settings{}, err
	}
	if c.IsSet("log-format") {
		s.Log.Format = c.String("log-format")
		if err := s.Validate(); err != nil {
			return config.Settings{}, err
		}
	}
	return s, nil
}

func printSettings(w io.Writer, s config.Settings) error {
	out, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// newLogger builds the process logger. The otel format hands records to the
// global OpenTelemetry logger provider.
func newLogger(s config.Settings, w io.Writer) (*slog.Logger, error) {
	level, err := s.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch s.Log.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "otel":
		return observability.NewOTelLogger(appName), nil
	default:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
}
