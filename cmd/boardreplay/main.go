// Command boardreplay plays a list of coordinate moves through a local
// session and prints the resulting ledgers, history and PGN. With -png the
// final board is rendered; with -webhook every move event is posted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/boardsync/internal/board"
	"github.com/park285/boardsync/internal/chess"
	"github.com/park285/boardsync/internal/game"
	"github.com/park285/boardsync/internal/notify"
	"github.com/park285/boardsync/internal/pgn"
	"github.com/park285/boardsync/internal/render"
)

func main() {
	fen := flag.String("fen", "", "starting position (default: standard start)")
	pngPath := flag.String("png", "", "write the final board to this PNG file")
	webhook := flag.String("webhook", "", "post each move event to this URL")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	g, err := game.New(ctx, chess.NewEngine(), game.Options{UserSide: board.White})
	if err != nil {
		log.Fatalf("session init error: %v", err)
	}
	if strings.TrimSpace(*fen) != "" {
		if err := g.LoadPosition(ctx, *fen); err != nil {
			log.Fatalf("load position: %v", err)
		}
	}

	if *webhook != "" {
		client := notify.NewClient(*webhook, notify.WithTimeout(5*time.Second))
		g.Subscribe(func(ev game.Event) {
			if err := client.Publish(ctx, notify.FromGameEvent("replay", ev, time.Now())); err != nil {
				log.Printf("webhook error: %v", err)
			}
		})
	}

	for _, arg := range flag.Args() {
		from, to, err := board.ParseMove(arg)
		if err != nil {
			log.Fatalf("move %q: %v", arg, err)
		}
		res, err := g.Move(ctx, from, to)
		if err != nil {
			log.Fatalf("move %q: %v", arg, err)
		}
		if res.Status != game.StatusApplied {
			log.Fatalf("move %q rejected in %s", arg, g.CurrentPosition())
		}
		c := res.Classification
		fmt.Printf("%-6s %-10s %s\n", res.Move, c.Kind, c.Notation)
	}

	fmt.Println()
	fmt.Printf("fen:      %s\n", g.CurrentPosition())
	fmt.Printf("history:  %s\n", strings.Join(g.History(), " "))
	fmt.Printf("white took: %s (%d)\n", g.RenderCaptured(board.White), g.MaterialTaken(board.White))
	fmt.Printf("black took: %s (%d)\n", g.RenderCaptured(board.Black), g.MaterialTaken(board.Black))
	fmt.Println()
	fmt.Print(pgn.Build(pgn.Record{
		Tags:     g.Tags(),
		StartFEN: g.StartPosition(),
		Moves:    g.Moves(),
		Notation: g.History(),
	}))

	if *pngPath != "" {
		opts := render.Options{Orientation: board.White}
		if from, to, ok := g.LastMove(); ok {
			opts.Highlight = &render.Highlight{From: from, To: to}
		}
		pieces := g.Pieces()
		raw, err := render.PNG(ctx, &pieces, opts)
		if err != nil {
			log.Fatalf("render: %v", err)
		}
		if err := os.WriteFile(*pngPath, raw, 0o644); err != nil {
			log.Fatalf("write %s: %v", *pngPath, err)
		}
		fmt.Printf("\nboard written to %s\n", *pngPath)
	}
}
