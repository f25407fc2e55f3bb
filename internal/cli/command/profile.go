package command

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapmesh-go/internal/cli/config"
)

// ProfileCommand manages named node addresses in the CLI config.
func ProfileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Manage saved node profiles",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List profiles",
				Action:  listProfiles,
			},
			{
				Name:      "add",
				Usage:     "Save a node's admin address",
				ArgsUsage: "<name> <host:port>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "note", Usage: "free-form description"},
				},
				Action: addProfile,
			},
			{
				Name:      "use",
				Usage:     "Select the profile used when --server is not given",
				ArgsUsage: "<name|->",
				Action:    useProfile,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Delete a profile",
				ArgsUsage: "<name>",
				Action:    removeProfile,
			},
		},
	}
}

type profileRow struct {
	Name    string `json:"name"`
	Server  string `json:"server"`
	Current bool   `json:"current"`
	Note    string `json:"note" table:"wide"`
}

func listProfiles(c *cli.Context) error {
	cfg := cliConfig(c)

	rows := make([]profileRow, 0, len(cfg.Profiles))
	for name, p := range cfg.Profiles {
		rows = append(rows, profileRow{Name: name, Server: p.Server, Current: name == cfg.Current, Note: p.Note})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return render(c, rows, nil)
}

func saveConfig(c *cli.Context, cfg *config.CLIConfig) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	return config.Save(cfg, flags.ConfigPath)
}

func addProfile(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: profile add <name> <host:port>", 2)
	}
	name, server := c.Args().Get(0), c.Args().Get(1)
	if name == "-" {
		return cli.Exit(`"-" is reserved`, 2)
	}

	cfg := cliConfig(c)
	cfg.Profiles[name] = config.Profile{Server: server, Note: c.String("note")}
	if err := saveConfig(c, cfg); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "profile %s -> %s saved\n", name, server)
	return nil
}

// useProfile selects name; "-" clears the selection.
func useProfile(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: profile use <name|->", 2)
	}
	name := c.Args().First()

	cfg := cliConfig(c)
	if name == "-" {
		cfg.Current = ""
	} else {
		if _, ok := cfg.Profiles[name]; !ok {
			return cli.Exit(fmt.Sprintf("no profile %q", name), 1)
		}
		cfg.Current = name
	}
	if err := saveConfig(c, cfg); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "using %s\n", cfg.Server())
	return nil
}

func removeProfile(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: profile remove <name>", 2)
	}
	name := c.Args().First()

	cfg := cliConfig(c)
	if _, ok := cfg.Profiles[name]; !ok {
		return cli.Exit(fmt.Sprintf("no profile %q", name), 1)
	}
	delete(cfg.Profiles, name)
	if cfg.Current == name {
		cfg.Current = ""
	}
	if err := saveConfig(c, cfg); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "profile %s removed\n", name)
	return nil
}
