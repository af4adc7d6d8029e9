// Package cli implements the interactive operator console: live tables of
// connected players, rooms and puzzles, plus the ranking board.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"

	"github.com/chulobby-project/chulobby/internal/config"
	"github.com/chulobby-project/chulobby/internal/events"
	"github.com/chulobby-project/chulobby/internal/lobby"
)

// CLI provides an interactive command-line interface.
type CLI struct {
	cfg      *config.Config
	eventBus *events.EventBus
	state    *lobby.State
	store    lobby.Store

	startedAt time.Time
}

// NewCLI creates a new CLI handler.
func NewCLI(cfg *config.Config, eventBus *events.EventBus, state *lobby.State, store lobby.Store) *CLI {
	return &CLI{
		cfg:       cfg,
		eventBus:  eventBus,
		state:     state,
		store:     store,
		startedAt: time.Now(),
	}
}

// Start begins the interactive CLI loop.
func (c *CLI) Start(ctx context.Context) {
	fmt.Println("\nChuLobby CLI ready. Type 'help' for available commands.")
	fmt.Println("─────────────────────────────────────────────────────")

	// Simple line reader for cross-platform compatibility
	reader := newLineReader()
	if reader == nil {
		log.Warn().Msg("CLI: failed to initialize line reader, CLI disabled")
		<-ctx.Done()
		return
	}
	defer reader.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadLine("chulobby> ")
		if err != nil {
			if err == io.EOF {
				return
			}
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		if err := c.execute(ctx, cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// execute processes a single CLI command.
func (c *CLI) execute(ctx context.Context, cmd string) error {
	switch cmd {
	case "help", "h", "?":
		c.printHelp()
	case "status", "s":
		c.printStatus()
	case "players", "p":
		c.printPlayers()
	case "rooms", "r":
		c.printRooms()
	case "puzzles", "pz":
		c.printPuzzles()
	case "ranking", "top":
		return c.printRanking()
	case "quit", "exit", "q":
		fmt.Println("Shutting down ChuLobby...")
		c.eventBus.Emit(ctx, events.Event{
			Type:   events.EventShutdown,
			Source: "cli",
		})
	default:
		fmt.Printf("Unknown command: '%s'. Type 'help' for available commands.\n", cmd)
	}
	return nil
}

// printHelp displays available commands.
func (c *CLI) printHelp() {
	fmt.Println("\n╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                    ChuLobby CLI Commands                     ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	fmt.Println("║  status             Show lobby occupancy and uptime          ║")
	fmt.Println("║  players            List connected players                   ║")
	fmt.Println("║  rooms              List live game rooms                     ║")
	fmt.Println("║  puzzles            List the puzzle catalog                  ║")
	fmt.Println("║  ranking            Show the top 10 ranking board            ║")
	fmt.Println("║  quit               Shutdown ChuLobby                        ║")
	fmt.Println("║  help               Show this help message                   ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Println()
}

// printStatus displays a one-screen lobby summary.
func (c *CLI) printStatus() {
	sd := c.cfg.GetServerData()
	players, rooms := c.state.Counts()

	fmt.Printf("\n  Players:      %d / %d\n", players, sd.MaxClients)
	fmt.Printf("  Rooms:        %d / %d\n", rooms, sd.MaxRooms)
	fmt.Printf("  Puzzles:      %d\n", len(c.state.PuzzlesSnapshot()))
	fmt.Printf("  Login port:   %d\n", sd.LoginPort)
	fmt.Printf("  Lobby port:   %d\n", sd.LobbyPort)
	fmt.Printf("  Deedee mode:  %v\n", sd.Deedee)
	fmt.Printf("  Uptime:       %s\n", time.Since(c.startedAt).Round(time.Second))
	fmt.Println()
}

// printPlayers displays the connected player table.
func (c *CLI) printPlayers() {
	players := c.state.PlayersSnapshot()
	if len(players) == 0 {
		fmt.Println("No players connected")
		return
	}

	sort.Slice(players, func(i, j int) bool {
		return players[i].ClientID < players[j].ClientID
	})

	fmt.Println()

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"ID", "Name", "Menu", "Pads", "Won", "Lost", "Total"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, pl := range players {
		name := pl.Name
		if !pl.Authorized {
			name = "(connecting)"
		}
		tw.Append([]string{
			fmt.Sprintf("%d", pl.ClientID),
			name,
			pl.Menu,
			fmt.Sprintf("%d", pl.Controllers),
			fmt.Sprintf("%d", pl.Won),
			fmt.Sprintf("%d", pl.Lost),
			fmt.Sprintf("%d", pl.Total),
		})
	}

	tw.Render()
	fmt.Println()
}

// printRooms displays the live room table.
func (c *CLI) printRooms() {
	rooms := c.state.RoomsSnapshot()
	if len(rooms) == 0 {
		fmt.Println("No rooms open")
		return
	}

	fmt.Println()

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Name", "Creator", "Seats", "Locked", "Age"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, r := range rooms {
		creator := r.Creator
		age := "-"
		if r.Static {
			creator = "(static)"
		} else {
			age = time.Since(r.CreatedAt).Round(time.Minute).String()
		}
		locked := ""
		if r.Protected {
			locked = "yes"
		}
		tw.Append([]string{
			r.Name,
			creator,
			fmt.Sprintf("%d", r.Seats),
			locked,
			age,
		})
	}

	tw.Render()
	fmt.Println()
}

// printPuzzles displays the puzzle catalog.
func (c *CLI) printPuzzles() {
	puzzles := c.state.PuzzlesSnapshot()
	if len(puzzles) == 0 {
		fmt.Println("No puzzles uploaded")
		return
	}

	fmt.Println()

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"ID", "Name", "Creator", "Downloads"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, pz := range puzzles {
		tw.Append([]string{
			fmt.Sprintf("%d", pz.ID),
			pz.Name,
			pz.Creator,
			fmt.Sprintf("%d", pz.Downloads),
		})
	}

	tw.Render()
	fmt.Println()
}

// printRanking shows the same top-10 board the consoles see.
func (c *CLI) printRanking() error {
	table, err := c.store.TopRanking()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(table)
	return nil
}

// lineReader is a simple cross-platform line reader.
type lineReader struct {
	// Implementation uses bufio.Scanner for basic input
	scanner interface {
		Scan() bool
		Text() string
	}
	closer io.Closer
}

func newLineReader() *lineReader {
	return &lineReader{}
}

func (lr *lineReader) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)
	var line string
	_, err := fmt.Scanln(&line)
	return line, err
}

func (lr *lineReader) Close() error {
	if lr.closer != nil {
		return lr.closer.Close()
	}
	return nil
}
