// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

/*
* CLI to serve and call xrpc methods
 */

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/op/go-logging"
	"github.com/urfave/cli"

	"github.com/luxfi/xrpc"
)

func PrintFatal(msg string, args ...interface{}) {
	os.Stderr.WriteString(Red(fmt.Sprintf(msg, args...)) + "\n")
	os.Exit(1)
}

func serveCommand(c *cli.Context) (err error) {
	server, err := xrpc.Listen(c.String("addr"), xrpc.WithServerTransport(c.GlobalString("transport")))
	if err != nil {
		PrintFatal(err.Error())
	}
	defer server.Close()

	var opts []xrpc.RegisterOption
	if allowed := c.StringSlice("allow"); len(allowed) > 0 {
		opts = append(opts, xrpc.WithAuthorization(allowHosts(allowed)))
	}
	for name, handler := range demoMethods() {
		if _, err = server.Register(name, handler, opts...); err != nil {
			PrintFatal(err.Error())
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(Green("serving " + strings.Join(server.Methods(), ", ") + " on " + server.Addr()))
	return server.Serve(ctx)
}

func callCommand(c *cli.Context) (err error) {
	if c.NArg() < 1 {
		PrintFatal("usage: xrpc call [--peer host:port] METHOD [ARG...]")
	}
	method := c.Args().First()
	args, err := parseArgs(c.Args().Tail())
	if err != nil {
		PrintFatal(err.Error())
	}

	client, err := xrpc.NewClient(
		xrpc.WithTransport(c.GlobalString("transport")),
		xrpc.WithCallTimeout(c.Duration("timeout")),
	)
	if err != nil {
		PrintFatal(err.Error())
	}
	defer client.Close()

	results, err := client.CallMethod(context.Background(), c.String("peer"), method, xrpc.Many(args...))
	if err != nil {
		PrintFatal(err.Error())
	}
	for _, line := range formatResults(results) {
		fmt.Println(Cyan(line))
	}
	return nil
}

func transportsCommand(c *cli.Context) (err error) {
	for _, name := range xrpc.AvailableTransports() {
		fmt.Println(name)
	}
	return nil
}

func main() {
	xrpc.SetupLogging("xrpc", logging.NOTICE)

	app := cli.NewApp()
	app.Name = "xrpc"
	app.Usage = "call and serve XML-RPC methods between peers"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "transport, t",
			Value:  xrpc.DefaultTransport,
			Usage:  "transport: zap, grpc or http",
			EnvVar: "XRPC_TRANSPORT",
		},
	}
	app.Commands = []cli.Command{
		cli.Command{
			Name:   "serve",
			Usage:  "serve the demo methods (ping, echo, add, now)",
			Action: serveCommand,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "addr", Value: ":9650", Usage: "listen address", EnvVar: "XRPC_ADDR"},
				cli.StringSliceFlag{Name: "allow", Usage: "only accept calls from this host (repeatable)"},
			},
		},
		cli.Command{
			Name:      "call",
			Usage:     "call METHOD on a peer; arguments are JSON literals or bare strings",
			ArgsUsage: "METHOD [ARG...]",
			Action:    callCommand,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "peer", Value: "127.0.0.1:9650", Usage: "peer address", EnvVar: "XRPC_PEER"},
				cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "per-call timeout"},
			},
		},
		cli.Command{
			Name:   "transports",
			Usage:  "list available transports",
			Action: transportsCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		PrintFatal(err.Error())
	}
}
