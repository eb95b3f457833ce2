// Package domain contains core domain types for the interview drill bot.
package domain

import "time"

// Agent is the persistent per-user progress record.
type Agent struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	XP          int       `json:"xp"`
	Rank        Rank      `json:"rank"`
	Mission     *string   `json:"current_mission,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewAgent returns an agent with default progress and no open mission.
func NewAgent(id int64, displayName string) *Agent {
	now := time.Now()
	return &Agent{
		ID:          id,
		DisplayName: displayName,
		XP:          0,
		Rank:        RankFor(0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// State returns the mission state of the agent.
func (a *Agent) State() MissionState {
	if a.Mission == nil || *a.Mission == "" {
		return NoMission{}
	}
	return MissionOpen{Problem: *a.Mission}
}

// HasMission returns true if the agent has an ungraded problem pending.
func (a *Agent) HasMission() bool {
	_, open := a.State().(MissionOpen)
	return open
}

// MissionState is either NoMission or MissionOpen.
type MissionState interface {
	missionState()
}

// NoMission is the state of an agent without a pending problem.
type NoMission struct{}

// MissionOpen is the state of an agent with a generated, ungraded problem.
type MissionOpen struct {
	// Problem is the exact statement shown to the user. It is echoed
	// verbatim into the grading prompt.
	Problem string
}

func (NoMission) missionState()   {}
func (MissionOpen) missionState() {}
