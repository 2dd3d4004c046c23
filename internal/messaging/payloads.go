package messaging

import "time"

// GenerationTaskPayload - задача генерации истории в очереди TASK_QUEUE.
type GenerationTaskPayload struct {
	JobID     string    `json:"job_id"`
	Theme     string    `json:"theme"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationStatus - итог обработки задачи.
type NotificationStatus string

const (
	NotificationStatusSuccess NotificationStatus = "success"
	NotificationStatusError   NotificationStatus = "error"
)

// NotificationPayload публикуется в UPDATES_QUEUE после завершения задачи.
type NotificationPayload struct {
	JobID        string             `json:"job_id"`
	SessionID    string             `json:"session_id"`
	Status       NotificationStatus `json:"status"`
	StoryID      int64              `json:"story_id,omitempty"`
	Title        string             `json:"title,omitempty"`
	ErrorDetails string             `json:"error_details,omitempty"`
}
