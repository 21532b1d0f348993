package net

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/peterkuimelis/clash/internal/battle"
	"github.com/peterkuimelis/clash/internal/log"
)

// errQuit ends the REPL without an error.
var errQuit = errors.New("quit")

// Client connects to a battle server and provides a terminal REPL.
type Client struct {
	conn net.Conn
	in   *bufio.Reader
	out  io.Writer
	last *StateView
}

// NewClient wraps an established connection. Input is read from in and the
// table is drawn to out.
func NewClient(conn net.Conn, in io.Reader, out io.Writer) *Client {
	return &Client{conn: conn, in: bufio.NewReader(in), out: out}
}

// Connect connects to a server, starts a battle with the named loadout, and
// runs the REPL on the terminal.
func Connect(ctx context.Context, addr, loadout string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	fmt.Println("Connected! Starting battle...")
	return NewClient(conn, os.Stdin, os.Stdout).Play(ctx, loadout)
}

// Play sends the start message and runs the REPL until the battle ends or
// the player quits.
func (c *Client) Play(ctx context.Context, loadout string) error {
	enc := json.NewEncoder(c.conn)
	if err := enc.Encode(ClientMessage{Type: MsgStart, Loadout: loadout}); err != nil {
		return fmt.Errorf("send start: %w", err)
	}
	return c.RunREPL(ctx)
}

// RunREPL reads server messages and handles them interactively.
func (c *Client) RunREPL(ctx context.Context) error {
	dec := json.NewDecoder(c.conn)
	enc := json.NewEncoder(c.conn)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var msg ServerMessage
		if err := dec.Decode(&msg); err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		var reply *ClientMessage
		switch msg.Type {
		case MsgLog:
			if msg.Log != nil {
				fmt.Fprintln(c.out, log.FormatEvent(*msg.Log))
			}

		case MsgPrompt:
			if msg.Prompt == nil {
				continue
			}
			c.renderPrompt(*msg.Prompt)
			choice := c.readChoice(len(msg.Prompt.Options))
			reply = &ClientMessage{Type: MsgDecide, Node: uint64(msg.Prompt.Node), Choice: msg.Prompt.Options[choice].ID}

		case MsgResult, MsgState:
			if msg.Error != "" {
				fmt.Fprintf(c.out, "! %s\n", msg.Error)
			}
			if msg.State != nil {
				c.last = msg.State
			}
			if c.last == nil || c.last.Over {
				continue
			}
			c.renderState(c.last)
			cmd, err := c.readCommand()
			if err != nil {
				return nil
			}
			reply = &cmd

		case MsgError:
			fmt.Fprintf(c.out, "! %s\n", msg.Error)
			if c.last == nil {
				return fmt.Errorf("server: %s", msg.Error)
			}
			cmd, err := c.readCommand()
			if err != nil {
				return nil
			}
			reply = &cmd

		case MsgOver:
			fmt.Fprintln(c.out)
			fmt.Fprintln(c.out, "═══════════════════════════════════")
			fmt.Fprintln(c.out, "          BATTLE OVER")
			fmt.Fprintln(c.out, "═══════════════════════════════════")
			fmt.Fprintln(c.out, strings.ToUpper(msg.Outcome))
			fmt.Fprintln(c.out, "═══════════════════════════════════")
			return nil
		}

		if reply != nil {
			if err := enc.Encode(reply); err != nil {
				return fmt.Errorf("send %s: %w", reply.Type, err)
			}
		}
	}
}

func (c *Client) renderState(sv *StateView) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "╔══════════════════════════════════════════════════════╗")
	for i, e := range sv.Enemies {
		if e.Defeated {
			fmt.Fprintf(c.out, "║  [%d] %s  defeated\n", i+1, e.Name)
			continue
		}
		fmt.Fprintf(c.out, "║  [%d] %s  HP %d/%d  Shield %d  %s  intends: %s\n",
			i+1, e.Name, e.Health, e.MaxHealth, e.Shield, formatStatuses(e.Statuses), e.Intent)
	}
	fmt.Fprintln(c.out, "║──────────────────────────────────────────────────────")
	h := sv.Hero
	fmt.Fprintf(c.out, "║  %s  HP %d/%d  Shield %d  %s\n", h.Name, h.Health, h.MaxHealth, h.Shield, formatStatuses(h.Statuses))
	fmt.Fprintf(c.out, "║  Energy %d/%d  Draw %d  Discard %d  Exhaust %d\n",
		sv.Energy, sv.MaxEnergy, sv.DrawCount, sv.Discarded, sv.Exhausted)
	fmt.Fprintln(c.out, "╚══════════════════════════════════════════════════════╝")
	fmt.Fprintf(c.out, "Turn %d\n", sv.Turn)

	if len(sv.Hand) > 0 {
		fmt.Fprintln(c.out, "\nHand:")
		for _, cv := range sv.Hand {
			mark := " "
			if !cv.Playable {
				mark = "x"
			}
			fmt.Fprintf(c.out, " %s %d) %s [%d] %s\n", mark, cv.Index+1, cv.Name, cv.Cost, cv.Text)
		}
	}
	fmt.Fprintln(c.out, "\nPlay a card with `<n> [enemy]`, `e` to end the turn, `s` for state, `q` to quit.")
}

func formatStatuses(st map[string]int) string {
	if len(st) == 0 {
		return ""
	}
	var parts []string
	for _, id := range []string{battle.StatusStrength, battle.StatusDexterity, battle.StatusWeak, battle.StatusVulnerable, battle.StatusFrail} {
		if n, ok := st[id]; ok {
			parts = append(parts, fmt.Sprintf("%s:%d", id, n))
		}
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (c *Client) renderPrompt(p battle.Prompt) {
	fmt.Fprintf(c.out, "\n%s\n", p.Text)
	for i, o := range p.Options {
		fmt.Fprintf(c.out, "  %d) %s\n", i+1, o.Label)
	}
}

func (c *Client) readChoice(count int) int {
	for {
		fmt.Fprint(c.out, "> ")
		line, err := c.in.ReadString('\n')
		n, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr == nil && n >= 1 && n <= count {
			return n - 1 // convert to 0-indexed
		}
		if err != nil {
			return 0
		}
		fmt.Fprintf(c.out, "Enter a number between 1 and %d\n", count)
	}
}

// readCommand reads until the player enters a valid command. It returns
// errQuit on `q` or end of input.
func (c *Client) readCommand() (ClientMessage, error) {
	for {
		fmt.Fprint(c.out, "> ")
		line, err := c.in.ReadString('\n')
		fields := strings.Fields(line)
		if len(fields) == 0 {
			if err != nil {
				return ClientMessage{}, errQuit
			}
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "q", "quit":
			return ClientMessage{}, errQuit
		case "e", "end":
			return ClientMessage{Type: MsgEndTurn}, nil
		case "s", "state":
			return ClientMessage{Type: MsgState}, nil
		}
		msg, perr := c.parsePlay(fields)
		if perr == nil {
			return msg, nil
		}
		fmt.Fprintln(c.out, perr)
		if err != nil {
			return ClientMessage{}, errQuit
		}
	}
}

// parsePlay turns `<n> [enemy]` into a use message. Targeted cards without an
// explicit enemy aim at the first one still standing.
func (c *Client) parsePlay(fields []string) (ClientMessage, error) {
	sv := c.last
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 1 || n > len(sv.Hand) {
		return ClientMessage{}, fmt.Errorf("enter a card number between 1 and %d", len(sv.Hand))
	}
	card := sv.Hand[n-1]
	msg := ClientMessage{Type: MsgUse, Card: card.ID}
	if !card.Targeted {
		return msg, nil
	}
	if len(fields) > 1 {
		e, err := strconv.Atoi(fields[1])
		if err != nil || e < 1 || e > len(sv.Enemies) {
			return ClientMessage{}, fmt.Errorf("enter an enemy number between 1 and %d", len(sv.Enemies))
		}
		msg.Target = sv.Enemies[e-1].ID
		return msg, nil
	}
	for _, e := range sv.Enemies {
		if !e.Defeated {
			msg.Target = e.ID
			break
		}
	}
	return msg, nil
}
