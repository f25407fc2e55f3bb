package command

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapmesh-go/internal/cli/connection"
	"github.com/yndnr/snapmesh-go/internal/server/httpserver/handler"
)

// ChannelCommand returns the channel subcommand group.
func ChannelCommand() *cli.Command {
	return &cli.Command{
		Name:    "channel",
		Aliases: []string{"ch"},
		Usage:   "Inspect and edit the node's channel table",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List registered channels",
				Action:  listChannels,
			},
			{
				Name:      "add",
				Usage:     "Register a peer address",
				ArgsUsage: "<host:port>",
				Action:    addChannel,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Unregister a channel",
				ArgsUsage: "<id>",
				Action:    removeChannel,
			},
		},
	}
}

func listChannels(c *cli.Context) error {
	var resp handler.ListChannelsResponse
	if err := getJSON(c, "/v1/channels", &resp); err != nil {
		return err
	}
	return render(c, resp, resp.Channels)
}

func addChannel(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: channel add <host:port>", 2)
	}

	client, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := client.Post(ctx, "/v1/channels", handler.AddChannelRequest{Addr: c.Args().First()})
	if err != nil {
		return err
	}
	var ch handler.ChannelResponse
	if err := connection.ParseResponse(resp, &ch); err != nil {
		return err
	}
	if isTable(c) {
		fmt.Fprintf(c.App.Writer, "channel %d -> %s\n", ch.ID, ch.Addr)
		return nil
	}
	return render(c, ch, nil)
}

func removeChannel(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: channel remove <id>", 2)
	}
	id, err := strconv.Atoi(c.Args().First())
	if err != nil || id < 0 {
		return cli.Exit(fmt.Sprintf("invalid channel id %q", c.Args().First()), 2)
	}

	client, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := client.Delete(ctx, "/v1/channels/"+strconv.Itoa(id))
	if err != nil {
		return err
	}
	var out handler.RemoveChannelResponse
	if err := connection.ParseResponse(resp, &out); err != nil {
		if apiErr, ok := apiError(err); ok && apiErr.Status == http.StatusNotFound {
			return cli.Exit(fmt.Sprintf("channel %d is not registered", id), 1)
		}
		return err
	}
	if isTable(c) {
		fmt.Fprintf(c.App.Writer, "channel %d removed\n", out.ID)
		return nil
	}
	return render(c, out, nil)
}
