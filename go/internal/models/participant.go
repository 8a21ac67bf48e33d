package models

// Side is the team a participant is cheering for.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// Valid reports whether the side is one of the two teams.
func (s Side) Valid() bool {
	return s == SideHome || s == SideAway
}

// Participant represents a guest that joined the hub from a device.
type Participant struct {
	ID               string `json:"id" yaml:"id"`
	DisplayName      string `json:"displayName" yaml:"displayName"`
	Side             Side   `json:"side" yaml:"side"`
	CumulativePoints int    `json:"cumulativePoints" yaml:"cumulativePoints"`
}
