package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/mcdev12/huddle/go/internal/events"
	"github.com/mcdev12/huddle/go/internal/models"
	"github.com/mcdev12/huddle/go/internal/session"
)

const helpText = `commands:
  /trivia                   list open trivia questions
  /answer <question> <n>    answer with option n (1-based)
  /props                    list prop bets and picks so far
  /bet <prop> <selection>   place a prop bet
  /resolve <prop> <outcome> settle a prop bet (host)
  /stats <prop>             show picks on a prop
  /board                    standings and awards
  /score                    shared scoreboard
  /recap                    publish a recap of the game
  /quit                     leave the party
anything else is sent to the chat; mention @coach to ask the coach`

// terminal renders one session on a text stream.
type terminal struct {
	s *session.Session

	mu   sync.Mutex
	out  io.Writer
	seen map[string]bool
}

func newTerminal(out io.Writer, s *session.Session) *terminal {
	t := &terminal{s: s, out: out, seen: make(map[string]bool)}
	s.OnChange(t.change)
	s.OnTransition(t.transition)
	return t
}

func (t *terminal) printf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// change prints chat messages not shown yet.
func (t *terminal) change(v session.View) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range v.Messages {
		if t.seen[m.ID] {
			continue
		}
		t.seen[m.ID] = true
		if !m.IsBot() {
			fmt.Fprintf(t.out, "<%s|%s> %s\n", m.SenderName, m.SenderSide, m.Text)
			continue
		}
		label := "fact"
		if m.Kind == models.SenderCoachBot {
			label = "coach"
		}
		fmt.Fprintf(t.out, "[%s] %s\n", label, m.Text)
	}
}

func (t *terminal) transition(c events.SyncStateChangedPayload) {
	switch session.SyncState(c.To) {
	case session.StateSyncing:
		t.printf("* connecting to the party...\n")
	case session.StateLive:
		t.printf("* live with the party\n")
	case session.StateSolo:
		t.printf("* playing solo, nothing is shared\n")
	}
}

// handle runs one input line. It returns false when the user quits.
func (t *terminal) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	if !strings.HasPrefix(line, "/") {
		if _, err := t.s.SendMessage(ctx, line); err != nil {
			t.printf("! %v\n", err)
		}
		return true
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	var err error
	switch cmd {
	case "/quit", "/exit":
		return false
	case "/help":
		t.printf("%s\n", helpText)
	case "/trivia":
		t.listTrivia()
	case "/answer":
		err = t.answer(ctx, args)
	case "/props":
		t.listProps()
	case "/bet":
		err = t.bet(ctx, args)
	case "/resolve":
		err = t.resolve(ctx, args)
	case "/stats":
		err = t.stats(ctx, args)
	case "/board":
		t.board()
	case "/score":
		g := t.s.View().Game
		half := ""
		if g.IsHalftime {
			half = " (halftime)"
		}
		t.printf("home %d - away %d%s\n", g.HomeScore, g.AwayScore, half)
	case "/recap":
		var r *models.Recap
		if r, err = t.s.PublishRecap(ctx); err == nil {
			t.printf("recap: %s\n", r.Text)
		}
	default:
		t.printf("unknown command %s, try /help\n", cmd)
	}
	if err != nil {
		t.printf("! %v\n", err)
	}
	return true
}

func (t *terminal) listTrivia() {
	v := t.s.View()
	if len(v.Trivia) == 0 {
		t.printf("no open questions\n")
		return
	}
	for _, q := range v.Trivia {
		t.printf("%s (%d pts) %s\n", q.ID, q.Points, q.Text)
		for i, o := range q.Options {
			t.printf("    %d) %s\n", i+1, o)
		}
	}
}

func (t *terminal) answer(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: /answer <question> <n>")
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("option must be a number")
	}
	res, err := t.s.AnswerTrivia(ctx, args[0], n-1)
	if err != nil {
		return err
	}
	if res.Correct {
		t.printf("correct! +%d (total %d)\n", res.Points, res.Total)
	} else {
		t.printf("wrong, it was option %d\n", res.CorrectIndex+1)
	}
	return nil
}

func (t *terminal) listProps() {
	v := t.s.View()
	for _, p := range v.Props {
		status := fmt.Sprintf("%d picks", v.BetStats[p.ID].TotalCount)
		if p.Resolved {
			status = "resolved: " + p.Outcome
		}
		mine := ""
		if b, ok := v.MyBets[p.ID]; ok {
			mine = fmt.Sprintf(" [you: %s, %s]", b.Selection, b.Status)
		}
		t.printf("%s [%s] %s {%s} (%s)%s\n", p.ID, p.Category, p.Question, strings.Join(p.Options, " | "), status, mine)
	}
}

func (t *terminal) bet(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: /bet <prop> <selection>")
	}
	b, err := t.s.PlaceBet(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	t.printf("bet placed: %s on %s\n", b.Selection, b.BetID)
	return nil
}

func (t *terminal) resolve(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: /resolve <prop> <outcome>")
	}
	res, err := t.s.ResolveBet(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	t.printf("%s resolved as %s: %d won, %d lost\n", res.BetID, res.Outcome, res.Winners, res.Losers)
	return nil
}

func (t *terminal) stats(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: /stats <prop>")
	}
	st, err := t.s.BetStats(ctx, args[0])
	if err != nil {
		return err
	}
	popular := st.MostPopularSelection
	if popular == "" {
		popular = "-"
	}
	t.printf("%s: %d picks, most popular %s\n", st.BetID, st.TotalCount, popular)
	return nil
}

func (t *terminal) board() {
	v := t.s.View()
	names := make(map[string]string)
	for i, e := range v.Board.Standings {
		names[e.UserID] = e.UserName
		t.printf("%2d. %-16s %-5s %4d\n", i+1, e.UserName, e.Side, e.Points)
	}
	for _, a := range v.Board.Awards {
		winners := make([]string, 0, len(a.UserIDs))
		for _, id := range a.UserIDs {
			winners = append(winners, names[id])
		}
		t.printf("%s: %s (%d)\n", a.Title, strings.Join(winners, ", "), a.Points)
	}
}
