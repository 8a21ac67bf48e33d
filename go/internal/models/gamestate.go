package models

// SharedGameState is the singleton document every client observes.
// Timestamps are unix milliseconds.
type SharedGameState struct {
	HomeScore           int      `json:"homeScore"`
	AwayScore           int      `json:"awayScore"`
	IsHalftime          bool     `json:"isHalftime"`
	LastFactBroadcastAt int64    `json:"lastFactBroadcastAt"`
	LastScoreCheckAt    int64    `json:"lastScoreCheckAt"`
	VerificationSources []string `json:"verificationSources"`
}

// Recap is the latest AI-written summary of the game so far.
type Recap struct {
	Text      string `json:"text"`
	AuthorID  string `json:"authorId"`
	CreatedAt int64  `json:"createdAt"`
}
