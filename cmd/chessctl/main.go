// chessctl is a small client for a running chess server.
//
//	CHESS_URL=http://localhost:8080 X_USER_ID=<player id> chessctl <command> [args]
//
// Commands: players, add-player <name>, games, game <id>, moves <id>, preview <id> <move>,
// history <player id>, send <event> [game id] [key=value ...], watch [game id].
//
// watch streams change notifications from CHESS_FEED_URL (default ws://localhost:8081/feed) as
// JSON lines until interrupted.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/park285/robochess/internal/httpapi"
	"github.com/park285/robochess/pkg/chessdto"
)

func main() {
	baseURL := os.Getenv("CHESS_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if len(os.Args) < 2 {
		log.Fatal("usage: chessctl <command> [args]")
	}

	if os.Args[1] == "watch" {
		if err := watch(os.Args[2:]); err != nil {
			log.Fatalf("watch: %v", err)
		}
		return
	}

	client := httpapi.NewClient(baseURL,
		httpapi.WithActor(os.Getenv("X_USER_ID")),
		httpapi.WithTimeout(8*time.Second),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := run(ctx, client, os.Args[1], os.Args[2:])
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func run(ctx context.Context, c *httpapi.Client, cmd string, args []string) (any, error) {
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("expected %d argument(s)", n)
		}
		return nil
	}
	switch cmd {
	case "players":
		return c.Players(ctx)
	case "add-player":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.CreatePlayer(ctx, strings.Join(args, " "))
	case "games":
		return c.Games(ctx)
	case "game":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.Game(ctx, args[0])
	case "moves":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.LegalMoves(ctx, args[0])
	case "preview":
		if err := need(2); err != nil {
			return nil, err
		}
		return c.Preview(ctx, args[0], args[1])
	case "history":
		if err := need(1); err != nil {
			return nil, err
		}
		return c.History(ctx, args[0], 10)
	case "send":
		if err := need(1); err != nil {
			return nil, err
		}
		req, err := commandFromArgs(args)
		if err != nil {
			return nil, err
		}
		return c.Submit(ctx, req)
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func watch(args []string) error {
	feedURL := os.Getenv("CHESS_FEED_URL")
	if feedURL == "" {
		feedURL = "ws://localhost:8081/feed"
	}
	gameID := ""
	if len(args) > 0 {
		gameID = args[0]
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	err := httpapi.Watch(ctx, feedURL, gameID, func(n chessdto.Notification) error {
		return enc.Encode(n)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// commandFromArgs reads "<event> [game id] [white=.. black=.. move=.. piece=..]".
func commandFromArgs(args []string) (chessdto.CommandRequest, error) {
	req := chessdto.CommandRequest{Event: args[0]}
	for _, a := range args[1:] {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			if req.GameID != "" {
				return req, fmt.Errorf("unexpected argument %q", a)
			}
			req.GameID = a
			continue
		}
		switch k {
		case "white":
			req.Params.WhitePlayer = v
		case "black":
			req.Params.BlackPlayer = v
		case "move":
			req.Params.Move = v
		case "piece":
			req.Params.Piece = v
		default:
			return req, fmt.Errorf("unknown parameter %q", k)
		}
	}
	return req, nil
}
