package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bioscan/internal/models"
)

// StatsHandler serves the doctor-facing aggregate views.
type StatsHandler struct {
	db *gorm.DB
}

func NewStatsHandler(db *gorm.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

// Summary counts reports by verdict prefix.
func (h *StatsHandler) Summary(c *gin.Context) {
	var normal, pneumonia int64

	h.db.Model(&models.Report{}).Where("analysis LIKE ?", "Normal%").Count(&normal)
	h.db.Model(&models.Report{}).Where("analysis LIKE ?", "Pneumonia%").Count(&pneumonia)

	c.JSON(http.StatusOK, gin.H{
		"Normal":    normal,
		"Pneumonia": pneumonia,
	})
}

// weeklyWindow is how far back WeeklySubmissions looks.
const weeklyWindow = 8 * 7 * 24 * time.Hour

// WeeklySubmissions groups recent report submissions by ISO calendar week.
// Grouping happens in Go so the same query works on sqlite and postgres.
func (h *StatsHandler) WeeklySubmissions(c *gin.Context) {
	cutoff := time.Now().Add(-weeklyWindow)

	var stamps []time.Time
	result := h.db.Model(&models.Report{}).
		Where("created_at >= ?", cutoff).
		Order("created_at ASC").
		Pluck("created_at", &stamps)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	counts := make(map[string]int)
	for _, ts := range stamps {
		year, week := ts.ISOWeek()
		counts[fmt.Sprintf("%d-W%02d", year, week)]++
	}

	weeks := make([]string, 0, len(counts))
	for w := range counts {
		weeks = append(weeks, w)
	}
	sort.Strings(weeks)

	type weekCount struct {
		Week  string `json:"week"`
		Count int    `json:"count"`
	}
	out := make([]weekCount, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, weekCount{Week: w, Count: counts[w]})
	}

	c.JSON(http.StatusOK, out)
}
