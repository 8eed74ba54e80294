/*
projection.go - Chart projection over a computed timeline

PURPOSE:
  Maps a balance timeline into plot-ready points keyed by seconds elapsed
  since session start. Purely derived: recomputed whenever the timeline
  changes, never stored.

SEE ALSO:
  - ledger.go: ComputeTimeline produces the input
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CHART PROJECTION
// =============================================================================

// ChartPoint is one plot-ready point: balance at a whole-second offset
// from session start, plus the event metadata for tooltips.
type ChartPoint struct {
	ElapsedSeconds int64
	Balance        decimal.Decimal
	Type           EventType
	Amount         decimal.Decimal
	Description    string
}

// ProjectChart maps a timeline into chart points. ElapsedSeconds is
// floor((point.Timestamp - startTime) / 1s); the start anchor lands at 0.
// Points from events recorded before startTime (possible when a balance
// correction is backdated) are clamped to 0 rather than plotted negative.
func ProjectChart(startTime time.Time, timeline []TimelinePoint) []ChartPoint {
	points := make([]ChartPoint, len(timeline))
	for i, p := range timeline {
		elapsed := int64(p.Timestamp.Sub(startTime) / time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		points[i] = ChartPoint{
			ElapsedSeconds: elapsed,
			Balance:        p.Balance,
			Type:           p.Type,
			Amount:         p.Amount,
			Description:    p.Description,
		}
	}
	return points
}
