package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/xvzc/printbridge/internal/ptr"
)

// RunFunc starts the bridge with the resolved configuration. configPath is
// the loaded file, or "" when none was used.
type RunFunc func(ctx context.Context, configPath string, cfg *Config) error

// ServiceFunc performs a service manager action. args are the flags to
// persist into the installed service's command line.
type ServiceFunc func(
	ctx context.Context,
	action string,
	args []string,
	run func(ctx context.Context) error,
) error

var ErrMissingAction = errors.New("missing service action")

func CreateCommand(
	runFunc RunFunc,
	serviceFunc ServiceFunc,
	version string,
	commit string,
	build string,
) *cli.Command {
	cli.RootCommandHelpTemplate = createHelpTemplate()

	cmd := &cli.Command{
		Name:        "printbridge",
		Description: "Forward base64 print jobs from HTTP to raw TCP printers",
		Flags:       append(createFlags(), versionFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("version") {
				_, _ = fmt.Fprintf(cmd.Root().Writer, "printbridge %s %s (%s)\n", version, commit, build)
				return nil
			}

			configPath, cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			return runFunc(ctx, configPath, cfg)
		},
		Commands: []*cli.Command{
			{
				Name:      "service",
				Usage:     "Manage printbridge as a system service",
				ArgsUsage: "<install|uninstall|start|stop|restart|status|run>",
				Flags:     createFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					action := cmd.Args().First()
					if action == "" {
						return ErrMissingAction
					}

					configPath, cfg, err := resolveConfig(cmd)
					if err != nil {
						return err
					}

					run := func(ctx context.Context) error {
						return runFunc(ctx, configPath, cfg)
					}

					return serviceFunc(ctx, action, forwardedArgs(cmd), run)
				},
			},
		},
	}

	cli.HelpFlag = &cli.BoolFlag{
		Name:    "help",
		Aliases: []string{"h"},
		Usage: `
        show help`,
	}

	return cmd
}

func versionFlag() cli.Flag {
	return &cli.BoolFlag{
		Name: "version",
		Usage: `
				Print version information`,
		Aliases:  []string{"v"},
		OnlyOnce: true,
	}
}

func createFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name: "clean",
			Usage: `
				if set, all configuration files will be ignored`,
			OnlyOnce: true,
		},

		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage: `
				Custom location of the config file to load (.toml, .yaml or .yml).
				Options given through the command line flags will override the
				options set in this file.`,
			OnlyOnce: true,
			Sources:  cli.EnvVars("PRINTBRIDGE_CONFIG"),
		},

		&cli.IntFlag{
			Name: "default-port",
			Usage: `
				Printer port used when a job leaves 'port' out (default: 9100)`,
			OnlyOnce:  true,
			Validator: checkPort,
		},

		&cli.IntFlag{
			Name: "default-timeout",
			Usage: `
				Printer timeout in milliseconds used when a job leaves 'timeoutMs'
				out (default: 2000)`,
			OnlyOnce:  true,
			Validator: checkPositive,
		},

		&cli.StringFlag{
			Name: "events-addr",
			Usage: `
				Address to serve the websocket event stream on, e.g. 127.0.0.1:5180.
				Disabled when empty (default: "")`,
			OnlyOnce:  true,
			Validator: checkOptionalHostPort,
		},

		&cli.IntFlag{
			Name: "events-history",
			Usage: `
				Number of recent events kept for the log view (default: 80)`,
			OnlyOnce:  true,
			Validator: checkHistory,
		},

		&cli.StringFlag{
			Name: "listen-addr",
			Usage: `
				IP address and port to listen on (default: 0.0.0.0:5179)`,
			OnlyOnce:  true,
			Validator: checkHostPort,
		},

		&cli.StringFlag{
			Name: "log-format",
			Usage: `
				Log output format, one of 'console' or 'json' (default: 'console')`,
			OnlyOnce:  true,
			Validator: checkLogFormat,
		},

		&cli.StringFlag{
			Name: "log-level",
			Usage: `
				Set log level (default: 'info')`,
			OnlyOnce:  true,
			Validator: checkLogLevel,
		},

		&cli.BoolFlag{
			Name: "mdns",
			Usage: `
				Announce the bridge on the local network over mDNS`,
			OnlyOnce: true,
		},

		&cli.StringFlag{
			Name: "mdns-instance",
			Usage: `
				mDNS instance name (default: "printbridge")`,
			OnlyOnce:  true,
			Validator: checkInstance,
		},

		&cli.IntFlag{
			Name: "read-timeout",
			Usage: `
				Timeout in milliseconds for reading an inbound request.
				No effect when the value is 0 (default: 0)`,
			OnlyOnce:  true,
			Validator: checkNonNegative,
		},

		&cli.IntFlag{
			Name: "shutdown-timeout",
			Usage: `
				Time in milliseconds to wait for in-flight jobs on shutdown (default: 5000)`,
			OnlyOnce:  true,
			Validator: checkPositive,
		},

		&cli.BoolFlag{
			Name: "silent",
			Usage: `
				Do not show the banner and server information at start up`,
			OnlyOnce: true,
		},
	}
}

// persistedFlags are forwarded to an installed service's command line.
var persistedFlags = []string{
	"config",
	"default-port",
	"default-timeout",
	"events-addr",
	"events-history",
	"listen-addr",
	"log-format",
	"log-level",
	"mdns",
	"mdns-instance",
	"read-timeout",
	"shutdown-timeout",
}

func forwardedArgs(cmd *cli.Command) []string {
	var args []string
	if cmd.Bool("clean") {
		args = append(args, "--clean")
	}

	for _, name := range persistedFlags {
		if !cmd.IsSet(name) {
			continue
		}

		args = append(args, fmt.Sprintf("--%s=%v", name, cmd.Value(name)))
	}

	return args
}

// resolveConfig layers defaults, the config file and the flags, each
// overriding the previous one.
func resolveConfig(cmd *cli.Command) (string, *Config, error) {
	var fileCfg *Config
	var configPath string
	if !cmd.Bool("clean") {
		p, err := searchConfigFile(cmd.String("config"), defaultLookupPaths())
		if err != nil {
			return "", nil, err
		}

		if p != "" {
			configPath = p
			fileCfg, err = loadConfigFile(p)
			if err != nil {
				return "", nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	argsCfg := parseConfigFromArgs(cmd)

	cfg := NewConfig().Merge(fileCfg).Merge(argsCfg)

	if home := os.Getenv("HOME"); home != "" && strings.HasPrefix(configPath, home) {
		configPath = "~" + strings.TrimPrefix(configPath, home)
	}

	return configPath, cfg, nil
}

func parseConfigFromArgs(cmd *cli.Command) *Config {
	millis := func(name string) *time.Duration {
		return ptr.FromValue(time.Duration(cmd.Int(name)) * time.Millisecond)
	}

	general := &GeneralOptions{}
	if cmd.IsSet("log-level") {
		general.LogLevel = ptr.FromValue(MustParseLogLevel(cmd.String("log-level")))
	}
	if cmd.IsSet("log-format") {
		general.LogFormat = ptr.FromValue(MustParseLogFormat(cmd.String("log-format")))
	}
	if cmd.IsSet("silent") {
		general.Silent = ptr.FromValue(cmd.Bool("silent"))
	}

	server := &ServerOptions{}
	if cmd.IsSet("listen-addr") {
		server.ListenAddr = MustParseTCPAddr(cmd.String("listen-addr"))
	}
	if cmd.IsSet("read-timeout") {
		server.ReadTimeout = millis("read-timeout")
	}
	if cmd.IsSet("shutdown-timeout") {
		server.ShutdownTimeout = millis("shutdown-timeout")
	}

	printer := &PrinterOptions{}
	if cmd.IsSet("default-port") {
		printer.DefaultPort = ptr.FromValue(uint16(cmd.Int("default-port")))
	}
	if cmd.IsSet("default-timeout") {
		printer.DefaultTimeout = millis("default-timeout")
	}

	events := &EventsOptions{}
	if cmd.IsSet("events-addr") {
		events.ListenAddr = ptr.FromValue(cmd.String("events-addr"))
	}
	if cmd.IsSet("events-history") {
		events.History = ptr.FromValue(int(cmd.Int("events-history")))
	}

	discovery := &DiscoveryOptions{}
	if cmd.IsSet("mdns") {
		discovery.MDNS = ptr.FromValue(cmd.Bool("mdns"))
	}
	if cmd.IsSet("mdns-instance") {
		discovery.Instance = ptr.FromValue(cmd.String("mdns-instance"))
	}

	return &Config{
		General:   general,
		Server:    server,
		Printer:   printer,
		Events:    events,
		Discovery: discovery,
	}
}

func createHelpTemplate() string {
	return fmt.Sprintf(`DESCRIPTION:
  %s{{if .Copyright }}
COPYRIGHT:
  {{.Copyright}}{{end}}
USAGE:
  %s {{if .Flags}}%s{{end}}{{if .VisibleCommands}}
COMMANDS:
  {{range .VisibleCommands}}{{.Name}} {{.ArgsUsage}}
	{{.Usage}}
  {{end}}{{end}}
GLOBAL OPTIONS:
  {{range .VisibleFlags}}%s{{if .Aliases}}{{range .Aliases}}%s{{end}}{{end}} %s %s
	{{end}}
	`,
		"{{.Name}} - {{.Description}}",
		"{{.Name}}",
		"[global options]",
		"--{{.Name}}",
		", -{{.}}",
		"{{.TypeName}}",
		"{{.Usage}}",
	)
}
