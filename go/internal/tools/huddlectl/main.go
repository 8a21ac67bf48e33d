package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/mcdev12/huddle/go/internal/gateway"
)

const usage = `usage: huddlectl [-server url] <command>
  resolve <prop> <outcome>   settle a prop bet
  stats <prop>               show picks on a prop bet
  recap [author]             publish a recap of the game`

func main() {
	server := flag.String("server", envOr("HUDDLE_SERVER", "http://localhost:8080"), "huddle server base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := gateway.NewHostServiceClient(http.DefaultClient, *server)
	out, err := run(ctx, client, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		if connect.CodeOf(err) == connect.CodeUnknown {
			fmt.Fprintln(os.Stderr, usage)
		}
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		os.Exit(1)
	}
}

// run executes one host command and returns its response message
func run(ctx context.Context, client gateway.HostServiceHandler, args []string) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing command")
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "resolve":
		if len(rest) < 2 {
			return nil, fmt.Errorf("resolve needs a prop and an outcome")
		}
		resp, err := client.ResolveBet(ctx, connect.NewRequest(&gateway.ResolveBetRequest{
			BetID:   rest[0],
			Outcome: strings.Join(rest[1:], " "),
		}))
		if err != nil {
			return nil, err
		}
		return resp.Msg, nil

	case "stats":
		if len(rest) != 1 {
			return nil, fmt.Errorf("stats needs a prop")
		}
		resp, err := client.GetBetStats(ctx, connect.NewRequest(&gateway.GetBetStatsRequest{BetID: rest[0]}))
		if err != nil {
			return nil, err
		}
		return resp.Msg, nil

	case "recap":
		req := &gateway.PublishRecapRequest{}
		if len(rest) > 0 {
			req.AuthorID = rest[0]
		}
		resp, err := client.PublishRecap(ctx, connect.NewRequest(req))
		if err != nil {
			return nil, err
		}
		return resp.Msg, nil

	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
