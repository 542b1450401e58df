package model

import "time"

const (
	TeamTypeSolo = "solo"
	TeamTypeDuet = "duet"
)

type Team struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"`
	Type         string        `json:"type"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"created_at"`
}

type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HasParticipant compares against stored emails, which are kept lower-cased.
func (t *Team) HasParticipant(email string) bool {
	for _, p := range t.Participants {
		if p.Email == email {
			return true
		}
	}
	return false
}
