package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapmesh-go/internal/cli/output"
	"github.com/yndnr/snapmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/snapmesh-go/internal/server/httpserver/handler"
)

// StatusCommand shows the node's session status.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show the node's session status",
		Action: showStatus,
	}
}

func showStatus(c *cli.Context) error {
	var st handler.StatusResponse
	if err := getJSON(c, "/v1/status", &st); err != nil {
		return err
	}
	return render(c, st, nil)
}

// HealthCommand checks that the admin API answers.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check node health",
		Action: checkHealth,
	}
}

func checkHealth(c *cli.Context) error {
	var result map[string]string
	if err := getJSON(c, "/health", &result); err != nil {
		return cli.Exit(fmt.Sprintf("unhealthy: %v", err), 1)
	}
	if isTable(c) {
		fmt.Fprintf(c.App.Writer, "%s (%s)\n", result["status"], result["time"])
		return nil
	}
	return render(c, result, nil)
}

// VersionCommand prints the CLI version and, unless --client, the node's.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show client and node versions",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "client",
				Usage: "only show the client version",
			},
		},
		Action: showVersion,
	}
}

type versions struct {
	Client buildinfo.Info  `json:"client"`
	Server *buildinfo.Info `json:"server,omitempty"`
}

func showVersion(c *cli.Context) error {
	v := versions{Client: buildinfo.Get()}
	if !c.Bool("client") {
		var server buildinfo.Info
		if err := getJSON(c, "/v1/version", &server); err != nil {
			return err
		}
		v.Server = &server
	}

	table := &output.Table{Headers: []string{"COMPONENT", "VERSION", "COMMIT", "BUILT", "GO"}}
	table.AddRow("client", v.Client.Version, v.Client.Commit, v.Client.BuildTime, v.Client.GoVersion)
	if v.Server != nil {
		table.AddRow("server", v.Server.Version, v.Server.Commit, v.Server.BuildTime, v.Server.GoVersion)
	}
	return render(c, v, table)
}

// HostsCommand lists hosts announced in the discovery pool.
func HostsCommand() *cli.Command {
	return &cli.Command{
		Name:   "hosts",
		Usage:  "List hosts seen through discovery",
		Action: listHosts,
	}
}

func listHosts(c *cli.Context) error {
	var resp handler.HostsResponse
	if err := getJSON(c, "/v1/hosts", &resp); err != nil {
		return err
	}
	if isTable(c) && !resp.Enabled {
		fmt.Fprintln(c.App.ErrWriter, "discovery is disabled on this node")
		return nil
	}
	return render(c, resp, resp.Hosts)
}
