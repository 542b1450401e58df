package model

import "time"

// SubmissionRecord is an immutable audit record of a user-initiated submit.
type SubmissionRecord struct {
	ID        string    `json:"id"`
	TeamCode  string    `json:"team_code"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	Language  string    `json:"language"`
	Output    string    `json:"output"`
	CreatedAt time.Time `json:"created_at"`
}
