package command

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv-go/internal/cli/config"
	"github.com/yndnr/respkv-go/internal/cli/connection"
	"github.com/yndnr/respkv-go/internal/cli/output"
	"github.com/yndnr/respkv-go/internal/cli/repl"
	"github.com/yndnr/respkv-go/internal/infra/buildinfo"
)

const optionsKey = "options"

// Options are the resolved global options.
type Options struct {
	Server      string
	Output      output.Format
	Timeout     time.Duration
	HistoryFile string
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:      "respkv-cli",
		Usage:     "respkv command-line client",
		UsageText: "respkv-cli [global options] [command [arg...]]",
		Version:   buildinfo.String(),
		Flags:     globalFlags(),
		Commands: []*cli.Command{
			HandshakeCommand(),
		},
		Before: resolveOptions,
		Action: rootAction,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI configuration file",
			EnvVars: []string{"RESPKV_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "server address (host:port)",
			EnvVars: []string{"RESPKV_SERVER"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: text, json, yaml",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "dial and command timeout (0 disables)",
		},
	}
}

// resolveOptions merges the configuration file with flags and stores the
// result in the app metadata.
func resolveOptions(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	opts := &Options{
		Server:      cfg.DefaultServer,
		Timeout:     cfg.Timeout,
		HistoryFile: cfg.HistoryFile,
	}
	if c.IsSet("server") {
		opts.Server = c.String("server")
	}
	if c.IsSet("timeout") {
		opts.Timeout = c.Duration("timeout")
	}

	format := cfg.DefaultOutput
	if c.IsSet("output") {
		format = c.String("output")
	}
	if opts.Output, err = output.ParseFormat(format); err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[optionsKey] = opts
	return nil
}

// GetOptions retrieves the resolved options from context.
func GetOptions(c *cli.Context) *Options {
	if opts, ok := c.App.Metadata[optionsKey].(*Options); ok {
		return opts
	}
	return &Options{Server: config.Default().DefaultServer, Output: output.FormatText, Timeout: connection.DefaultTimeout}
}

// rootAction runs the command given as arguments, or the REPL when there
// is none.
func rootAction(c *cli.Context) error {
	opts := GetOptions(c)

	mgr := connection.NewManager(connection.WithTimeout(opts.Timeout))
	mgr.SetAddr(opts.Server)
	defer mgr.Disconnect()

	session := NewSession(mgr, opts.Output, c.App.Writer)

	if c.NArg() > 0 {
		return session.Execute(c.Context, c.Args().Slice())
	}

	historyFile := opts.HistoryFile
	if historyFile == "" {
		historyFile = repl.DefaultHistoryFile()
	}
	r := repl.New(session,
		repl.WithInput(c.App.Reader),
		repl.WithOutput(c.App.Writer),
		repl.WithHistory(repl.NewHistory(repl.WithHistoryFile(historyFile))),
	)
	return r.Run(c.Context)
}
