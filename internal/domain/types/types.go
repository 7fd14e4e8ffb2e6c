// Package types contains the result rows shared by the engines, the API and
// the export.
package types

// RankedParticipant is one row of an event ranking.
type RankedParticipant struct {
	Position      int     `json:"position"`
	ParticipantID string  `json:"participantId"`
	Name          string  `json:"name"`
	District      string  `json:"district"`
	Aggregate     float64 `json:"aggregateScore"`
	TieBreakValue float64 `json:"tieBreakValue"`
	TieBreakFlag  bool    `json:"tieBreakFlag"`
	ScoreCount    int     `json:"scoreCount"`
}

// EventRanking is the ranking of one event.
type EventRanking struct {
	EventID   string              `json:"eventId"`
	EventName string              `json:"eventName"`
	Kind      string              `json:"type"`
	Criterion string              `json:"tieBreakCriterion,omitempty"`
	Rows      []RankedParticipant `json:"rows"`
}

// DistrictStanding is one row of the regional standings.
type DistrictStanding struct {
	Position   int            `json:"position"`
	District   string         `json:"district"`
	EventRanks map[string]int `json:"perEventRank"`
	MeanRank   float64        `json:"meanRank"`
}

// Standings is the regional ordering with the events it was computed over.
type Standings struct {
	Events []EventRef         `json:"events"`
	Rows   []DistrictStanding `json:"rows"`
}

// EventRef names an event in a standings table.
type EventRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
