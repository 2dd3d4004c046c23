package models

import "time"

// JobStatus - статус задачи генерации.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobRecord фиксирует жизненный цикл одного запроса на генерацию.
// Движок генерации его не изменяет, этим занимается jobs.Runner.
type JobRecord struct {
	ID          int64      `json:"-" db:"id"`
	JobID       string     `json:"job_id" db:"job_id"`
	Status      JobStatus  `json:"status" db:"status"`
	Theme       string     `json:"theme" db:"theme"`
	SessionID   string     `json:"session_id" db:"session_id"`
	StoryID     *int64     `json:"story_id" db:"story_id"`
	Error       *string    `json:"error" db:"error"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}

// IsTerminal сообщает, завершена ли задача.
func (j *JobRecord) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
