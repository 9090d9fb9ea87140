// Package battletrace parses command configuration and starts the MCP
// runtime for one recorded battle.
package battletrace

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tabletopvod/battletrace/internal/battle/ca2025"
	"github.com/tabletopvod/battletrace/internal/battle/machine"
	"github.com/tabletopvod/battletrace/internal/battle/replay"
	"github.com/tabletopvod/battletrace/internal/battle/report"
	"github.com/tabletopvod/battletrace/internal/journal"
	journalsqlite "github.com/tabletopvod/battletrace/internal/journal/sqlite"
	"github.com/tabletopvod/battletrace/internal/mcp"
	"github.com/tabletopvod/battletrace/internal/platform/config"
	"github.com/tabletopvod/battletrace/internal/platform/id"
	"github.com/tabletopvod/battletrace/internal/platform/otel"
)

// Config holds battletrace command configuration.
type Config struct {
	// BattleID names the battle in the journal. Empty generates a fresh id.
	BattleID string `env:"BATTLETRACE_BATTLE_ID"`
	// ReportPath seeds the game from a battle report JSON file. Empty
	// starts an unseeded ca2025 game with placeholder players.
	ReportPath string `env:"BATTLETRACE_REPORT"`
	// JournalPath enables the SQLite journal. Empty keeps events in
	// memory only.
	JournalPath string `env:"BATTLETRACE_JOURNAL"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.BattleID, "battle", cfg.BattleID, "Battle id in the journal (generated when empty)")
	fs.StringVar(&cfg.ReportPath, "report", cfg.ReportPath, "Battle report JSON file to seed the game from")
	fs.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "SQLite journal path (in-memory when empty)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run seeds the machine, replays any journaled events and serves the MCP
// tools on stdio until the context is canceled.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "battletrace")
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	battleID := cfg.BattleID
	if battleID == "" {
		battleID, err = id.New()
		if err != nil {
			return fmt.Errorf("generate battle id: %w", err)
		}
	}

	store, err := openStore(cfg.JournalPath)
	if err != nil {
		return err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	m, err := buildMachine(cfg.ReportPath, store, battleID)
	if err != nil {
		return err
	}

	applied, err := replay.Replay(ctx, store, battleID, m, replay.Options{})
	if err != nil {
		return fmt.Errorf("replay battle %s: %w", battleID, err)
	}
	if applied > 0 {
		log.Printf("replayed %d events for battle %s", applied, battleID)
	}

	log.Printf("serving battle %s on stdio", battleID)
	return mcp.Run(ctx, mcp.NewService(m, battleID))
}

func openStore(path string) (journal.Store, error) {
	if path == "" {
		return journal.NewMemory(), nil
	}
	store, err := journalsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return store, nil
}

func buildMachine(reportPath string, store journal.Store, battleID string) (*machine.Machine, error) {
	recorder := machine.WithRecorder(journal.NewRecorder(store, battleID))
	if reportPath == "" {
		return machine.New(machine.InitInput{
			Players: [2]machine.PlayerSetup{
				{Name: "Player 1", WentFirst: true},
				{Name: "Player 2"},
			},
		}, machine.WithRuleset(ca2025.New(ca2025.Config{})), recorder)
	}

	file, err := os.Open(reportPath)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer file.Close()

	parsed, err := report.Parse(file)
	if err != nil {
		return nil, err
	}
	return report.InitializeGame(parsed, recorder)
}
