// Package scheduler implements background maintenance for the lobby,
// including stale room reaping and daily activity stats.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chulobby-project/chulobby/internal/config"
	"github.com/chulobby-project/chulobby/internal/lobby"
)

// reapInterval is how often abandoned rooms are swept from the table.
const reapInterval = 10 * time.Minute

// Scheduler manages periodic background tasks.
type Scheduler struct {
	cfg   *config.Config
	state *lobby.State
}

// NewScheduler creates a new task scheduler.
func NewScheduler(cfg *config.Config, state *lobby.State) *Scheduler {
	return &Scheduler{
		cfg:   cfg,
		state: state,
	}
}

// Start begins running all scheduled tasks. Blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	log.Info().Msg("scheduler started")

	go s.runRoomReaperLoop(ctx)
	go s.runStatsCollectionLoop(ctx)

	<-ctx.Done()
	log.Info().Msg("scheduler stopped")
}

// runRoomReaperLoop sweeps abandoned player rooms. Rooms are also reaped on
// every creation, this keeps the table clean during quiet hours too.
func (s *Scheduler) runRoomReaperLoop(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if reaped := s.state.ReapRooms(); reaped > 0 {
				log.Info().Int("reaped", reaped).Msg("stale rooms removed")
			}
		}
	}
}

// runStatsCollectionLoop logs daily occupancy statistics.
func (s *Scheduler) runStatsCollectionLoop(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collectStats()
		}
	}
}

// collectStats gathers and logs daily statistics.
func (s *Scheduler) collectStats() {
	players, rooms := s.state.Counts()
	puzzles := len(s.state.PuzzlesSnapshot())

	log.Info().
		Int("players", players).
		Int("rooms", rooms).
		Int("puzzles", puzzles).
		Msg("daily stats collected")
}
