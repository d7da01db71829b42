package models

import (
	"fmt"
	"strings"
	"time"
)

// RoadSide identifies which part of the carriageway a pothole is on
type RoadSide string

const (
	RoadSideLeft   RoadSide = "Left"
	RoadSideMiddle RoadSide = "Middle"
	RoadSideRight  RoadSide = "Right"
)

// ParseRoadSide accepts the canonical names case-insensitively
func ParseRoadSide(s string) (RoadSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return RoadSideLeft, nil
	case "middle":
		return RoadSideMiddle, nil
	case "right":
		return RoadSideRight, nil
	default:
		return "", fmt.Errorf("invalid road side %q", s)
	}
}

// Severity bounds for a report's intensity
const (
	MinIntensity     = 1
	MaxIntensity     = 5
	DefaultIntensity = 3
)

// Position is a WGS-84 coordinate in decimal degrees
type Position struct {
	Lat float64 `json:"lat" db:"lat"`
	Lng float64 `json:"lng" db:"lng"`
}

// VoteAggregates are the server-derived vote counters of a report
type VoteAggregates struct {
	Upvotes   int `json:"upvotes" db:"upvotes"`
	Downvotes int `json:"downvotes" db:"downvotes"`
	Score     int `json:"score" db:"score"`
}

// Report represents a persisted pothole observation
type Report struct {
	ID         int64     `json:"id" db:"id"`
	Position   Position  `json:"position"`
	RoadSide   RoadSide  `json:"road_side" db:"road_side"`
	Descriptor string    `json:"descriptor" db:"descriptor"`
	Intensity  int       `json:"intensity" db:"intensity"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	VoteAggregates
}

// Vote is one voter's current opinion on one report
type Vote struct {
	ReportID  int64     `json:"report_id" db:"report_id"`
	VoterID   string    `json:"voter_id" db:"voter_id"`
	Value     int       `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Draft is a candidate report that has not been persisted yet
type Draft struct {
	Token      string   `json:"token"`
	Position   Position `json:"position"`
	RoadSide   RoadSide `json:"road_side"`
	Descriptor string   `json:"descriptor"`
	Intensity  int      `json:"intensity"`
}

// NewDraft returns a draft at the given position with default attributes
func NewDraft(token string, pos Position) Draft {
	return Draft{
		Token:     token,
		Position:  pos,
		RoadSide:  RoadSideMiddle,
		Intensity: DefaultIntensity,
	}
}

// Report converts the draft into an unsaved report with zero aggregates
func (d Draft) Report() Report {
	return Report{
		Position:   d.Position,
		RoadSide:   d.RoadSide,
		Descriptor: strings.TrimSpace(d.Descriptor),
		Intensity:  d.Intensity,
	}
}
