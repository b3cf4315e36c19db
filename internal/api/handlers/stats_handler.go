package handlers

import (
	"math"
	"net/http"
	"time"

	"github.com/isdelr/ender-tasks/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/mem"
)

// StatsHandler serves the dashboard counters.
type StatsHandler struct {
	service services.TaskServiceProvider
	health  func() float64
	now     func() time.Time
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(service services.TaskServiceProvider) *StatsHandler {
	return &StatsHandler{service: service, health: SystemHealth, now: time.Now}
}

// Get returns the caller's task counters and the host health score.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	stats := h.service.Stats(ownerID, h.now())
	stats.SystemHealth = h.health()
	WriteJSON(w, http.StatusOK, stats)
}

// SystemHealth scores the host from 0 to 100 by free memory. It returns 0
// when memory statistics are unavailable.
func SystemHealth() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Warn().Err(err).Msg("Could not read host memory stats")
		return 0
	}
	return math.Round((100-vm.UsedPercent)*10) / 10
}
