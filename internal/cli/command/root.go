package command

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapmesh-go/internal/cli/config"
	"github.com/yndnr/snapmesh-go/internal/cli/connection"
	"github.com/yndnr/snapmesh-go/internal/cli/output"
	"github.com/yndnr/snapmesh-go/internal/infra/buildinfo"
)

const metaConfig = "cliConfig"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "snapmesh-cli",
		Usage:                "snapmesh admin and recording tool",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			StatusCommand(),
			HealthCommand(),
			VersionCommand(),
			ChannelCommand(),
			HostsCommand(),
			RecordCommand(),
			ProfileCommand(),
		},
		Before:   loadConfig,
		Metadata: map[string]any{},
	}
}

// globalFlags returns the global CLI flags. --server and --output have no
// flag default so the CLI config file can supply one.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "admin API address (default from the cli config, localhost:5080)",
			EnvVars: []string{"SNAPMESH_ADMIN"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			EnvVars: []string{"SNAPMESH_OUTPUT"},
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show wide output (more columns)",
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "cli config file",
			EnvVars: []string{"SNAPMESH_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
	}
}

func loadConfig(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	c.App.Metadata[metaConfig] = cfg
	return nil
}

// cliConfig returns the loaded CLI config, or defaults when Before did
// not run.
func cliConfig(c *cli.Context) *config.CLIConfig {
	for _, ctx := range c.Lineage() {
		if ctx.App == nil {
			continue
		}
		if cfg, ok := ctx.App.Metadata[metaConfig].(*config.CLIConfig); ok {
			return cfg
		}
	}
	return config.Default()
}

// GlobalFlags is the resolved set of global options.
type GlobalFlags struct {
	Server     string
	Output     output.Format
	Wide       bool
	ConfigPath string
}

// ParseGlobalFlags resolves global flags, falling back to the CLI config.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	cfg := cliConfig(c)

	server := c.String("server")
	if server == "" {
		server = cfg.Server()
	}
	outStr := c.String("output")
	if outStr == "" {
		outStr = cfg.DefaultOutput
	}
	format, err := output.ParseFormat(outStr)
	if err != nil {
		return nil, err
	}

	return &GlobalFlags{
		Server:     server,
		Output:     format,
		Wide:       c.Bool("wide"),
		ConfigPath: c.String("config"),
	}, nil
}

// newClient builds an admin API client from the global flags.
func newClient(c *cli.Context) (*connection.HTTPClient, error) {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, err
	}
	return connection.NewHTTPClient(flags.Server), nil
}

// requestContext bounds one admin call.
func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, connection.DefaultTimeout)
}

// getJSON performs GET path and decodes the response data into target.
func getJSON(c *cli.Context, path string, target any) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := client.Get(ctx, path)
	if err != nil {
		return err
	}
	return connection.ParseResponse(resp, target)
}

// render writes data in the selected format. table, when non-nil,
// replaces data for table output.
func render(c *cli.Context, data any, table any) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	if flags.Output == output.FormatTable && table != nil {
		data = table
	}
	return output.NewFormatter(flags.Output, flags.Wide).Format(c.App.Writer, data)
}

// isTable reports whether the table format is selected.
func isTable(c *cli.Context) bool {
	flags, err := ParseGlobalFlags(c)
	return err == nil && flags.Output == output.FormatTable
}

// apiError unwraps an admin API error for exit-code mapping.
func apiError(err error) (*connection.APIError, bool) {
	var apiErr *connection.APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
