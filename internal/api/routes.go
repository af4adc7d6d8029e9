package api

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chulobby-project/chulobby/internal/util"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "chulobby",
		"version": "1.0.0",
	})
}

// handleStatus returns lobby occupancy and host information.
func (s *Server) handleStatus(c *gin.Context) {
	sd := s.cfg.GetServerData()
	sysInfo := util.GetSystemInfo()
	players, rooms := s.state.Counts()

	c.JSON(http.StatusOK, gin.H{
		"players":         players,
		"rooms":           rooms,
		"max_clients":     sd.MaxClients,
		"deedee_mode":     sd.Deedee,
		"lobby_port":      sd.LobbyPort,
		"login_port":      sd.LoginPort,
		"uptime_sec":      int(time.Since(s.startedAt).Seconds()),
		"platform":        sysInfo.Platform,
		"cpu_model":       sysInfo.CPUModel,
		"cpu_cores":       sysInfo.CPUCores,
		"total_memory_mb": sysInfo.TotalMemory,
	})
}

// handlePlayers returns the connected player table.
func (s *Server) handlePlayers(c *gin.Context) {
	players := s.state.PlayersSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"players": players,
		"total":   len(players),
	})
}

// handleRooms returns the live room table.
func (s *Server) handleRooms(c *gin.Context) {
	rooms := s.state.RoomsSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"rooms": rooms,
		"total": len(rooms),
	})
}

// handlePuzzles returns the puzzle catalog.
func (s *Server) handlePuzzles(c *gin.Context) {
	puzzles := s.state.PuzzlesSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"puzzles": puzzles,
		"total":   len(puzzles),
	})
}

// handleRanking returns the same top-10 table the consoles see.
func (s *Server) handleRanking(c *gin.Context) {
	table, err := s.store.TopRanking()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.String(http.StatusOK, table)
}

// handleDiskUsage returns disk usage for the volume holding the database.
func (s *Server) handleDiskUsage(c *gin.Context) {
	dir := filepath.Dir(s.cfg.GetServerData().DatabasePath)
	usage, err := util.GetDiskUsage(dir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"path":         dir,
		"total_gb":     usage.Total,
		"used_gb":      usage.Used,
		"free_gb":      usage.Free,
		"used_percent": usage.UsedPercent,
	})
}

// handleCPUUsage returns current system CPU usage.
func (s *Server) handleCPUUsage(c *gin.Context) {
	usage, err := util.GetCPUUsage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cpu_percent": usage,
	})
}

// handleMemoryUsage returns current system memory usage.
func (s *Server) handleMemoryUsage(c *gin.Context) {
	mem, err := util.GetMemoryUsage()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_mb":     mem.Total,
		"used_mb":      mem.Used,
		"available_mb": mem.Available,
		"used_percent": mem.UsedPercent,
	})
}
