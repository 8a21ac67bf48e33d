package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/mcdev12/huddle/go/internal/betting"
	"github.com/mcdev12/huddle/go/internal/chat"
	"github.com/mcdev12/huddle/go/internal/content"
	"github.com/mcdev12/huddle/go/internal/dbconfig"
	"github.com/mcdev12/huddle/go/internal/docstore"
	"github.com/mcdev12/huddle/go/internal/gamestate"
	"github.com/mcdev12/huddle/go/internal/hub"
	"github.com/mcdev12/huddle/go/internal/leaderboard"
	"github.com/mcdev12/huddle/go/internal/models"
	"github.com/mcdev12/huddle/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// gameCollections are wiped by -reset before a new game.
var gameCollections = []string{
	chat.Collection,
	leaderboard.Collection,
	gamestate.Collection,
	gamestate.RecapCollection,
	betting.PropsCollection,
	betting.UserBetsCollection,
}

type seedQueries struct {
	tx *sql.Tx
}

func (q *seedQueries) ensureSchema(ctx context.Context) error {
	_, err := q.tx.ExecContext(ctx, docstore.Schema)
	return err
}

func (q *seedQueries) clear(ctx context.Context, collection string) (int64, error) {
	res, err := q.tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1`, collection)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// insertProp stores a prop document unless one exists, so resolutions survive a re-seed.
func (q *seedQueries) insertProp(ctx context.Context, id string, data pqtype.NullRawMessage) (bool, error) {
	res, err := q.tx.ExecContext(ctx, `
            INSERT INTO documents (collection, id, data, updated_at)
            VALUES ($1, $2, COALESCE($3::jsonb, '{}'::jsonb), now())
            ON CONFLICT (collection, id) DO NOTHING
        `, betting.PropsCollection, id, data)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func propDocument(p models.PropBet) (pqtype.NullRawMessage, error) {
	p.Resolved, p.Outcome = false, ""
	data, err := json.Marshal(p)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: len(data) > 0}, nil
}

func main() {
	reset := flag.Bool("reset", false, "delete chat, ranks, bets, props and game state before seeding")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}
	ctx := context.Background()

	// 1) Load the prop list, honoring a content override
	cfg, err := hub.LoadConfig(hub.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	catalog, err := content.Load(cfg.Content.Trivia, cfg.Content.Props)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load content: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	dbCfg := dbconfig.NewConfigFromEnv()
	db, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to ping database: %v\n", err)
		os.Exit(1)
	}

	// 3) Seed in one transaction
	var (
		total    = len(catalog.Props)
		inserted int
		skipped  int
		cleared  int64
	)
	err = sqlutil.Run(ctx, db, func(tx *sql.Tx) *seedQueries { return &seedQueries{tx: tx} }, func(q *seedQueries) error {
		if err := q.ensureSchema(ctx); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if *reset {
			for _, c := range gameCollections {
				n, err := q.clear(ctx, c)
				if err != nil {
					return fmt.Errorf("clear %s: %w", c, err)
				}
				cleared += n
			}
		}
		for _, p := range catalog.Props {
			data, err := propDocument(p)
			if err != nil {
				return fmt.Errorf("encode %s: %w", p.ID, err)
			}
			ok, err := q.insertProp(ctx, p.ID, data)
			if err != nil {
				return fmt.Errorf("insert %s: %w", p.ID, err)
			}
			if ok {
				inserted++
			} else {
				skipped++
			}
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	// 4) Print summary
	fmt.Printf(
		"Props seed complete: %d total, %d inserted, %d skipped, %d documents cleared\n",
		total, inserted, skipped, cleared,
	)
}
