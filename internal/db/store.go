package db

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/chulobby-project/chulobby/internal/lobby"
)

// GameStore persists accounts, rankings and puzzles. The original Dreamcast
// service kept these in two flat tables and this keeps the same shape so old
// databases can be carried over.
type GameStore struct {
	db *sql.DB
}

// NewGameStore opens the database and runs the schema migration.
func NewGameStore(dbPath string) (*GameStore, error) {
	database, err := openDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	gs := &GameStore{db: database}
	if err := gs.migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate game database: %w", err)
	}
	return gs, nil
}

// migrate creates the database schema.
func (gs *GameStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS PLAYER_DATA (
			ID INTEGER PRIMARY KEY AUTOINCREMENT,
			DC_ID TEXT NOT NULL,
			USERNAME TEXT NOT NULL,
			PASSWORD TEXT NOT NULL,
			WON_RNDS INTEGER NOT NULL DEFAULT 0,
			LOST_RNDS INTEGER NOT NULL DEFAULT 0,
			TOTAL_RNDS INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS PUZZLE_DATA (
			ID INTEGER PRIMARY KEY AUTOINCREMENT,
			PUZZLE_NAME TEXT NOT NULL,
			CREATOR TEXT NOT NULL,
			PUZZLE_FILE BLOB NOT NULL,
			DOWNLOADED INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_player_dc_id ON PLAYER_DATA(DC_ID);
		CREATE INDEX IF NOT EXISTS idx_player_username ON PLAYER_DATA(USERNAME);
	`

	if _, err := gs.db.Exec(schema); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	log.Debug().Msg("game database schema migrated")
	return nil
}

// deviceKey is the canonical text form of a console serial: uppercase hex.
func deviceKey(deviceID []byte) string {
	return strings.ToUpper(hex.EncodeToString(deviceID))
}

// DeviceRegistered reports whether any account exists for the console.
func (gs *GameStore) DeviceRegistered(deviceID []byte) (bool, error) {
	var count int
	err := gs.db.QueryRow(
		"SELECT COUNT(*) FROM PLAYER_DATA WHERE DC_ID = ?",
		deviceKey(deviceID)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("device lookup failed: %w", err)
	}
	return count > 0, nil
}

// UsernameTaken reports whether the username is already registered.
func (gs *GameStore) UsernameTaken(username string) (bool, error) {
	var count int
	err := gs.db.QueryRow(
		"SELECT COUNT(*) FROM PLAYER_DATA WHERE USERNAME = ?",
		strings.TrimSpace(username)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("username lookup failed: %w", err)
	}
	return count > 0, nil
}

// CreateAccount registers a new player with zeroed round counters.
func (gs *GameStore) CreateAccount(deviceID []byte, username, password string) error {
	_, err := gs.db.Exec(
		`INSERT INTO PLAYER_DATA (DC_ID, USERNAME, PASSWORD, WON_RNDS, LOST_RNDS, TOTAL_RNDS)
		 VALUES (?, ?, ?, 0, 0, 0)`,
		deviceKey(deviceID), strings.TrimSpace(username), strings.TrimSpace(password))
	if err != nil {
		return fmt.Errorf("account insert failed: %w", err)
	}
	log.Info().Str("username", username).Msg("account created")
	return nil
}

// ValidateLogin checks the credentials against the console that registered
// them.
func (gs *GameStore) ValidateLogin(username, password string, deviceID []byte) (bool, error) {
	var count int
	err := gs.db.QueryRow(
		"SELECT COUNT(*) FROM PLAYER_DATA WHERE USERNAME = ? AND PASSWORD = ? AND DC_ID = ?",
		strings.TrimSpace(username), strings.TrimSpace(password), deviceKey(deviceID)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("login validation failed: %w", err)
	}
	return count > 0, nil
}

// Ranking loads the stored round counters for one account. A missing row is
// an error; lobby logins require a registered account.
func (gs *GameStore) Ranking(deviceID []byte, username string) (lobby.RoundStats, error) {
	var st lobby.RoundStats
	err := gs.db.QueryRow(
		"SELECT WON_RNDS, LOST_RNDS, TOTAL_RNDS FROM PLAYER_DATA WHERE DC_ID = ? AND USERNAME = ?",
		deviceKey(deviceID), strings.TrimSpace(username)).Scan(&st.Won, &st.Lost, &st.Total)
	if err != nil {
		return lobby.RoundStats{}, fmt.Errorf("ranking lookup failed: %w", err)
	}
	return st, nil
}

// UpdateRanking stores the account's round counters. The values are absolute
// totals, not deltas.
func (gs *GameStore) UpdateRanking(deviceID []byte, username string, stats lobby.RoundStats) error {
	_, err := gs.db.Exec(
		"UPDATE PLAYER_DATA SET WON_RNDS = ?, LOST_RNDS = ?, TOTAL_RNDS = ? WHERE DC_ID = ? AND USERNAME = ?",
		stats.Won, stats.Lost, stats.Total, deviceKey(deviceID), strings.TrimSpace(username))
	if err != nil {
		return fmt.Errorf("ranking update failed: %w", err)
	}
	return nil
}

// TopRanking renders the ten best players as the plain-text panel the
// console shows under Top Ranking.
func (gs *GameStore) TopRanking() (string, error) {
	rows, err := gs.db.Query(
		"SELECT USERNAME, WON_RNDS, LOST_RNDS, TOTAL_RNDS FROM PLAYER_DATA ORDER BY WON_RNDS DESC LIMIT 10")
	if err != nil {
		return "", fmt.Errorf("ranking query failed: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString("================ TOP 10 RANKING ================\n")
	fmt.Fprintf(&b, "%33s\n", "ROUNDS")
	fmt.Fprintf(&b, "%-16s%8s%8s%8s\n", "Username", "Won", "Lost", "Total")
	for rows.Next() {
		var name string
		var won, lost, total uint32
		if err := rows.Scan(&name, &won, &lost, &total); err != nil {
			return "", fmt.Errorf("ranking scan failed: %w", err)
		}
		fmt.Fprintf(&b, "%-16s%8d%8d%8d\n", name, won, lost, total)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("ranking iteration failed: %w", err)
	}
	return b.String(), nil
}

// Puzzles loads the catalog rows without their blobs.
func (gs *GameStore) Puzzles() ([]lobby.Puzzle, error) {
	rows, err := gs.db.Query("SELECT ID, PUZZLE_NAME, CREATOR, DOWNLOADED FROM PUZZLE_DATA")
	if err != nil {
		return nil, fmt.Errorf("puzzle query failed: %w", err)
	}
	defer rows.Close()

	var out []lobby.Puzzle
	for rows.Next() {
		var p lobby.Puzzle
		if err := rows.Scan(&p.ID, &p.Name, &p.Creator, &p.Downloads); err != nil {
			return nil, fmt.Errorf("puzzle scan failed: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PuzzleExists reports whether a puzzle with that name is already stored.
func (gs *GameStore) PuzzleExists(name string) (bool, error) {
	var count int
	err := gs.db.QueryRow(
		"SELECT COUNT(*) FROM PUZZLE_DATA WHERE PUZZLE_NAME = ?", name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("puzzle lookup failed: %w", err)
	}
	return count > 0, nil
}

// InsertPuzzle stores an uploaded puzzle and returns its row id.
func (gs *GameStore) InsertPuzzle(name, creator string, data []byte) (uint32, error) {
	res, err := gs.db.Exec(
		"INSERT INTO PUZZLE_DATA (PUZZLE_NAME, CREATOR, PUZZLE_FILE, DOWNLOADED) VALUES (?, ?, ?, 0)",
		name, creator, data)
	if err != nil {
		return 0, fmt.Errorf("puzzle insert failed: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("puzzle insert id: %w", err)
	}
	log.Info().Str("puzzle", name).Str("creator", creator).Msg("puzzle stored")
	return uint32(id), nil
}

// PuzzleBlob loads one puzzle's name and file contents.
func (gs *GameStore) PuzzleBlob(id uint32) (string, []byte, error) {
	var name string
	var blob []byte
	err := gs.db.QueryRow(
		"SELECT PUZZLE_NAME, PUZZLE_FILE FROM PUZZLE_DATA WHERE ID = ?", id).Scan(&name, &blob)
	if err == sql.ErrNoRows {
		return "", nil, fmt.Errorf("puzzle %d not found", id)
	}
	if err != nil {
		return "", nil, fmt.Errorf("puzzle load failed: %w", err)
	}
	return name, blob, nil
}

// IncrementDownloads bumps a puzzle's download counter.
func (gs *GameStore) IncrementDownloads(id uint32) error {
	_, err := gs.db.Exec(
		"UPDATE PUZZLE_DATA SET DOWNLOADED = DOWNLOADED + 1 WHERE ID = ?", id)
	return err
}

// Close closes the database.
func (gs *GameStore) Close() error {
	return gs.db.Close()
}
