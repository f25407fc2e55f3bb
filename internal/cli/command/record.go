package command

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/snapmesh-go/internal/cli/output"
	"github.com/yndnr/snapmesh-go/internal/core/domain"
	"github.com/yndnr/snapmesh-go/internal/core/snapshot"
	"github.com/yndnr/snapmesh-go/internal/storage/recorder"
	"github.com/yndnr/snapmesh-go/internal/telemetry/logger"
)

// RecordCommand returns the record subcommand group. It reads the Badger
// directory a host records snapshots into.
func RecordCommand() *cli.Command {
	dirFlag := &cli.StringFlag{
		Name:    "dir",
		Aliases: []string{"d"},
		Usage:   "recording directory (default from the cli config)",
		EnvVars: []string{"SNAPMESH_RECORD_DIR"},
	}

	return &cli.Command{
		Name:    "record",
		Aliases: []string{"rec"},
		Usage:   "Inspect recorded snapshot sessions",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List recorded sessions",
				Flags:   []cli.Flag{dirFlag},
				Action:  listRecordings,
			},
			{
				Name:      "show",
				Usage:     "List the frames of a session, or decode one with --tick",
				ArgsUsage: "<session>",
				Flags: []cli.Flag{
					dirFlag,
					&cli.StringFlag{
						Name:  "tick",
						Usage: "decode the frame recorded at this tick",
					},
					&cli.BoolFlag{
						Name:  "entities",
						Usage: "with --tick, list every entity",
					},
				},
				Action: showRecording,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Delete a recorded session (the node must be stopped)",
				ArgsUsage: "<session>",
				Flags:     []cli.Flag{dirFlag},
				Action:    removeRecording,
			},
		},
	}
}

func openRecorder(c *cli.Context, readOnly bool) (*recorder.Recorder, error) {
	dir := c.String("dir")
	if dir == "" {
		dir = cliConfig(c).RecordDir
	}

	cfg := recorder.DefaultConfig(dir)
	cfg.GCInterval = 0
	cfg.ReadOnly = readOnly
	rec, err := recorder.Open(cfg, quietLogger(c))
	if err != nil {
		return nil, fmt.Errorf("open recording dir %s: %w", dir, err)
	}
	return rec, nil
}

func quietLogger(c *cli.Context) *slog.Logger {
	l, err := logger.New(logger.Config{Level: "warn", Format: "text", Output: c.App.ErrWriter})
	if err != nil {
		return slog.Default()
	}
	return l.Slog()
}

func listRecordings(c *cli.Context) error {
	rec, err := openRecorder(c, true)
	if err != nil {
		return err
	}
	defer rec.Close()

	sessions, err := rec.Sessions(c.Context)
	if err != nil {
		return err
	}
	if sessions == nil {
		sessions = []recorder.Session{}
	}
	return render(c, sessions, nil)
}

// frameSummary is one row of `record show`.
type frameSummary struct {
	Tick     uint32 `json:"tick"`
	Bytes    int    `json:"bytes"`
	Entities int    `json:"entities"`
	Players  int    `json:"players"`
	Sectors  int    `json:"sectors" table:"wide"`
	Lines    int    `json:"lines" table:"wide"`
}

func summarize(tick uint32, payload []byte) (frameSummary, error) {
	snap, err := snapshot.Decode(payload)
	if err != nil {
		return frameSummary{}, fmt.Errorf("tick %d: %w", tick, err)
	}
	return frameSummary{
		Tick:     tick,
		Bytes:    len(payload),
		Entities: len(snap.Entities),
		Players:  snap.ActivePlayers(),
		Sectors:  len(snap.Sectors),
		Lines:    len(snap.Lines),
	}, nil
}

func showRecording(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: record show <session> [--tick N]", 2)
	}
	session := c.Args().First()

	rec, err := openRecorder(c, true)
	if err != nil {
		return err
	}
	defer rec.Close()

	if c.IsSet("tick") {
		tick, err := strconv.ParseUint(c.String("tick"), 10, 32)
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid tick %q", c.String("tick")), 2)
		}
		return showFrame(c, rec, session, uint32(tick))
	}

	var frames []frameSummary
	var decodeErr error
	err = rec.Frames(c.Context, session, func(tick uint32, payload []byte) bool {
		f, err := summarize(tick, payload)
		if err != nil {
			decodeErr = err
			return false
		}
		frames = append(frames, f)
		return true
	})
	if errors.Is(err, recorder.ErrNotFound) {
		return cli.Exit(fmt.Sprintf("no recording %q", session), 1)
	}
	if err != nil {
		return err
	}
	if decodeErr != nil {
		return decodeErr
	}
	return render(c, frames, nil)
}

func showFrame(c *cli.Context, rec *recorder.Recorder, session string, tick uint32) error {
	payload, err := rec.Get(c.Context, session, tick)
	if errors.Is(err, recorder.ErrNotFound) {
		return cli.Exit(fmt.Sprintf("no frame at tick %d in %q", tick, session), 1)
	}
	if err != nil {
		return err
	}

	snap, err := snapshot.Decode(payload)
	if err != nil {
		return fmt.Errorf("tick %d: %w", tick, err)
	}
	if !isTable(c) {
		return render(c, snap, nil)
	}

	if c.Bool("entities") {
		return render(c, entityTable(snap), nil)
	}
	summary, _ := summarize(tick, payload)
	return render(c, summary, nil)
}

func entityTable(snap *domain.Snapshot) *output.Table {
	t := &output.Table{Headers: []string{"ID", "TYPE", "POS", "VEL", "ANGLE", "HEALTH", "STATE"}}
	for _, e := range snap.Entities {
		t.AddRow(
			strconv.FormatUint(uint64(e.ID), 10),
			strconv.Itoa(int(e.Type)),
			fmt.Sprintf("%d,%d,%d", e.Pos.X, e.Pos.Y, e.Pos.Z),
			fmt.Sprintf("%d,%d,%d", e.Vel.X, e.Vel.Y, e.Vel.Z),
			strconv.FormatUint(uint64(e.Angle), 10),
			strconv.Itoa(int(e.Health)),
			strconv.Itoa(int(e.AnimState)),
		)
	}
	return t
}

func removeRecording(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: record remove <session>", 2)
	}
	session := c.Args().First()

	rec, err := openRecorder(c, false)
	if err != nil {
		return err
	}
	defer rec.Close()

	n, err := rec.DeleteSession(c.Context, session)
	if errors.Is(err, recorder.ErrNotFound) {
		return cli.Exit(fmt.Sprintf("no recording %q", session), 1)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "removed %s (%d frames)\n", session, n)
	return nil
}
