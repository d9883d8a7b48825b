// Package dashboard provides event handling and message formatting for the dashboard.
package dashboard

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/BartoszJatczyszyn/journai/internal/engine"
	"github.com/BartoszJatczyszyn/journai/internal/journal"
)

// Handler bridges sync engine events and the WebSocket server. It
// tracks per-day state to compute aggregate statistics.
type Handler struct {
	server *Server
	logger *log.Logger

	mu      sync.Mutex
	days    map[journal.DayKey]engine.Snapshot
	offline bool
}

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		server: server,
		logger: logger,
		days:   make(map[journal.DayKey]engine.Snapshot),
	}
}

// OnSnapshot handles a status change from any day's engine. Wire this
// to daemon.OnStatus.
func (h *Handler) OnSnapshot(snap engine.Snapshot) {
	h.mu.Lock()
	h.days[snap.Day] = snap
	h.mu.Unlock()

	data := EntryStatusData{
		Day:         snap.Day.String(),
		Status:      snap.Status.String(),
		Label:       snap.Label,
		QueuedCount: snap.QueuedCount,
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal entry status: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeEntryStatus,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})

	h.broadcastStats()
}

// OnConnectivityChange handles connectivity transitions. Wire this to
// connectivity.Monitor.OnChange.
func (h *Handler) OnConnectivityChange(online bool) {
	h.mu.Lock()
	h.offline = !online
	h.mu.Unlock()

	h.logger.Printf("Connectivity changed: online=%v", online)

	dataJSON, err := json.Marshal(ConnectivityData{Online: online})
	if err != nil {
		h.logger.Printf("Failed to marshal connectivity data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeConnectivity,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})

	h.broadcastStats()
}

// broadcastStats sends current aggregate statistics to all clients
func (h *Handler) broadcastStats() {
	stats := h.GetStats()

	dataJSON, err := json.Marshal(stats)
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// GetStats returns the current aggregate statistics
func (h *Handler) GetStats() StatsData {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := StatsData{
		ActiveDays: len(h.days),
		ByStatus:   make(map[string]int),
		Offline:    h.offline,
	}
	for _, snap := range h.days {
		stats.QueuedTotal += snap.QueuedCount
		stats.ByStatus[snap.Status.String()]++
	}
	return stats
}
