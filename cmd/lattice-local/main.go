// Command lattice-local is the single-binary entry point: either a
// persistent server speaking the client wire protocol (wire/), or a
// one-shot `--query` mode that evaluates a single query and exits,
// matching the source's client-vs-local split without a second binary.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/latticedb/lattice/errs"
	"github.com/latticedb/lattice/internal/config"
	"github.com/latticedb/lattice/internal/logutil"
)

const serverName = "lattice-local"

func main() {
	app := &cli.App{
		Name:  "lattice-local",
		Usage: "run the database server, or evaluate one query and exit",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a LATTICE_CONFIG TOML file"},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "evaluate one query and exit instead of serving"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func run(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return err
	}
	if err := logutil.Init(formatFor(cfg.Logging.Format), cfg.Logging.Debug); err != nil {
		return err
	}
	defer logutil.Sync()

	if q := ctx.String("query"); q != "" {
		return runOneShot(q)
	}
	return runServer(cfg)
}

// runOneShot evaluates q directly, bypassing the wire protocol
// entirely — the "query-over-file" one-shot mode needs no network
// round trip to its own process.
func runOneShot(q string) error {
	blk, err := execute(serverName, q)
	if err != nil {
		return err
	}
	for row := 0; row < blk.RowCount(); row++ {
		for i, nc := range blk.Columns {
			if i > 0 {
				fmt.Print("\t")
			}
			fmt.Print(nc.Column.Get(row).GoString())
		}
		fmt.Println()
	}
	return nil
}

func runServer(cfg config.Config) error {
	log := logutil.Named("cmd.lattice-local")

	lis, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("cmd/lattice-local: listening on %s: %w", cfg.Server.ListenAddr, err)
	}
	log.Infow("serving client protocol", "addr", cfg.Server.ListenAddr)

	for {
		conn, err := lis.Accept()
		if err != nil {
			return fmt.Errorf("cmd/lattice-local: accept: %w", err)
		}
		go serveConn(conn, serverName, log)
	}
}

func formatFor(s string) logutil.Format {
	if s == "json" {
		return logutil.FormatJSON
	}
	return logutil.FormatConsole
}

// exitCodeFor implements the documented exit-code convention: 0 on
// success, the last query's error code otherwise.
func exitCodeFor(err error) int {
	var e *errs.Error
	if errs.As(err, &e) {
		return int(e.Code)
	}
	return 1
}
