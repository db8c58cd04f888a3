package status

import (
	"time"

	"project-pulse/internals/modules/alert"
)

type HistoryQuery struct {
	Limit    int    `validate:"gte=1,lte=1000"`
	Type     string `validate:"omitempty,oneof=performance error resource data"`
	Severity string `validate:"omitempty,oneof=warning critical"`
}

type HistoryResponse struct {
	Total   int                  `json:"total"`
	Entries []alert.HistoryEntry `json:"entries"`
}

type LivenessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type RunResponse struct {
	Kind        string `json:"kind"`
	TriggeredBy string `json:"triggered_by,omitempty"`
}
