package domain

// Identity is the role resolved for a verified email address.
type Identity struct {
	Email       string `json:"email"`
	IsAdmin     bool   `json:"isAdmin"`
	IsPrincipal bool   `json:"isPrincipal"`
	Department  string `json:"department"`
}
