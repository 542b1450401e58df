package model

// Identity is the session identity of a team member. Only the session layer can mark
// it authenticated, through NewAuthenticatedIdentity.
type Identity struct {
	TeamCode string
	Email    string

	authenticated bool
}

func NewAuthenticatedIdentity(teamCode, email string) Identity {
	return Identity{TeamCode: teamCode, Email: email, authenticated: true}
}

func (i Identity) Authenticated() bool {
	return i.authenticated
}

// Complete reports whether both the team code and the email are present.
func (i Identity) Complete() bool {
	return i.TeamCode != "" && i.Email != ""
}
