package models

// RankEntry is the cumulative score record for one participant.
type RankEntry struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Side     Side   `json:"side"`
	Points   int    `json:"points"`
}
