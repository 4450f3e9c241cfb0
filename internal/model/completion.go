package model

// CompletionRecord marks whether a routine was done on a calendar day.
// There is at most one record per (Date, RoutineID) for a user.
type CompletionRecord struct {
	Date      string `json:"date"` // YYYY-MM-DD
	RoutineID string `json:"routine_id"`
	Completed bool   `json:"completed"`
	Timestamp int64  `json:"timestamp"` // epoch ms of the last toggle
}
