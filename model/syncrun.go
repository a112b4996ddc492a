package model

import "time"

// Sync run statuses
const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// SyncStageCollect is the stage that pulls data from the active provider
const SyncStageCollect = "collect-provider-data"

// SyncRun tracks one sync of one channel
type SyncRun struct {
	ID           string     `json:"id"`
	ChannelID    string     `json:"channelId"`
	Status       string     `json:"status"`
	Stage        string     `json:"stage"`
	ProviderName string     `json:"providerName"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt"`
	VideoCount   int        `json:"videoCount"`
	ErrorCode    string     `json:"errorCode,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`

	// Warnings lists the error codes of best-effort steps that failed
	Warnings []string `json:"warnings,omitempty"`
}
