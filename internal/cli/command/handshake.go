package command

import (
	"context"
	"fmt"
	"net"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/respkv-go/internal/cli/output"
	"github.com/yndnr/respkv-go/internal/protocol/resp"
	"github.com/yndnr/respkv-go/internal/replication"
)

// HandshakeCommand returns the handshake command.
func HandshakeCommand() *cli.Command {
	return &cli.Command{
		Name:  "handshake",
		Usage: "Perform the replica handshake against the server and print the resync offer",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "listening-port",
				Usage: "port announced with REPLCONF listening-port",
				Value: 6380,
			},
		},
		Action: handshakeAction,
	}
}

func handshakeAction(c *cli.Context) error {
	opts := GetOptions(c)

	port := c.Int("listening-port")
	if port < 1 || port > 65535 {
		return fmt.Errorf("listening-port %d out of range", port)
	}

	ctx := c.Context
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", opts.Server)
	if err != nil {
		return fmt.Errorf("connect %s: %w", opts.Server, err)
	}
	defer conn.Close()

	hs := replication.NewHandshake(conn, port)
	res, err := hs.Run(ctx)
	if err != nil {
		return err
	}
	payload, err := hs.ReadSnapshot(ctx)
	if err != nil {
		return err
	}

	reply := resp.Array(
		resp.BulkStringFromString("run_id"), resp.BulkStringFromString(res.RunID),
		resp.BulkStringFromString("offset"), resp.Integer(res.Offset),
		resp.BulkStringFromString("snapshot_bytes"), resp.Integer(int64(len(payload))),
	)
	return output.NewFormatter(opts.Output).Format(c.App.Writer, reply)
}
