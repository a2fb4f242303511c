package model

import (
	"time"

	"gorm.io/datatypes"
)

// TransitionLog records one state change of an agent machine.
type TransitionLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AgentID   string    `gorm:"index:idx_transition_agent;size:36;not null" json:"agent_id"`
	Machine   string    `gorm:"size:32;not null" json:"machine"`
	FromState string    `gorm:"size:64" json:"from_state"`
	ToState   string    `gorm:"size:64;not null" json:"to_state"`
	SimTimeMs int64     `json:"sim_time_ms"`
	CreatedAt time.Time `gorm:"index:idx_transition_created;autoCreateTime:milli" json:"created_at"`
}

// CommandLog records a command that finished or was cancelled.
type CommandLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AgentID   string    `gorm:"index:idx_command_agent;size:36;not null" json:"agent_id"`
	Command   string    `gorm:"size:64;not null" json:"command"`
	Details   string    `gorm:"type:text" json:"details"`
	Phase     string    `gorm:"size:16;not null" json:"phase"`
	Progress  float64   `json:"progress"`
	SimTimeMs int64     `json:"sim_time_ms"`
	CreatedAt time.Time `gorm:"autoCreateTime:milli" json:"created_at"`
}

// AgentEventLog records agent lifecycle events and host notifications.
type AgentEventLog struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	AgentID   string         `gorm:"index:idx_event_agent;size:36;not null" json:"agent_id"`
	Event     string         `gorm:"size:32;not null" json:"event"`
	Payload   datatypes.JSON `json:"payload"`
	SimTimeMs int64          `json:"sim_time_ms"`
	CreatedAt time.Time      `gorm:"autoCreateTime:milli" json:"created_at"`
}
