package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeRankingCalculated = "ranking.calculated"
	EventTypeHoursCalculated   = "hours.calculated"
)

type RankingCalculatedEvent struct {
	BaseEvent
	RunID      string    `json:"run_id"`
	WeekStart  time.Time `json:"week_start"`
	Rows       int       `json:"rows"`
	Discovered int       `json:"discovered"`
	UnitErrors int       `json:"unit_errors"`
	TotalGM    float64   `json:"total_gm_dollars"`
}

func NewRankingCalculatedEvent(runID string, weekStart time.Time, rows, discovered, unitErrors int, totalGM float64) *RankingCalculatedEvent {
	return &RankingCalculatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRankingCalculated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"run_id":           runID,
				"week_start":       weekStart.Format("2006-01-02"),
				"rows":             rows,
				"discovered":       discovered,
				"unit_errors":      unitErrors,
				"total_gm_dollars": totalGM,
			},
		},
		RunID:      runID,
		WeekStart:  weekStart,
		Rows:       rows,
		Discovered: discovered,
		UnitErrors: unitErrors,
		TotalGM:    totalGM,
	}
}

type HoursCalculatedEvent struct {
	BaseEvent
	RunID      string `json:"run_id"`
	Processed  int    `json:"processed"`
	UnitErrors int    `json:"unit_errors"`
	Reason     string `json:"reason,omitempty"`
}

func NewHoursCalculatedEvent(runID string, processed, unitErrors int, reason string) *HoursCalculatedEvent {
	return &HoursCalculatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeHoursCalculated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"run_id":      runID,
				"processed":   processed,
				"unit_errors": unitErrors,
				"reason":      reason,
			},
		},
		RunID:      runID,
		Processed:  processed,
		UnitErrors: unitErrors,
		Reason:     reason,
	}
}
