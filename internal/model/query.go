package model

import "time"

// Query selects readings for one sensor of one cell. Start and End are only
// sent when both are set.
type Query struct {
	Name        string
	Measurement string
	CellID      int
	Start       time.Time
	End         time.Time
}

func (q Query) HasWindow() bool {
	return !q.Start.IsZero() && !q.End.IsZero()
}
