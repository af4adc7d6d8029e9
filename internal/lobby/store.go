package lobby

// Store is the persistence boundary for accounts, rankings and puzzles.
// Implemented by the sqlite store in internal/db.
type Store interface {
	// Accounts
	DeviceRegistered(deviceID []byte) (bool, error)
	UsernameTaken(username string) (bool, error)
	CreateAccount(deviceID []byte, username, password string) error
	ValidateLogin(username, password string, deviceID []byte) (bool, error)

	// Rankings
	Ranking(deviceID []byte, username string) (RoundStats, error)
	UpdateRanking(deviceID []byte, username string, stats RoundStats) error
	TopRanking() (string, error)

	// Puzzles
	Puzzles() ([]Puzzle, error)
	PuzzleExists(name string) (bool, error)
	InsertPuzzle(name, creator string, data []byte) (uint32, error)
	PuzzleBlob(id uint32) (string, []byte, error)
	IncrementDownloads(id uint32) error
}
