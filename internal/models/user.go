package models

// TokenKind describes which credential the current session holds.
// Valid values: "none", "anonymous", "full".
type TokenKind string

const (
	TokenNone      TokenKind = "none"
	TokenAnonymous TokenKind = "anonymous"
	TokenFull      TokenKind = "full"
)

// UserProfile is decoded from the backend's current-user response.
// It is immutable for the lifetime of the session and discarded on
// logout or anonymous login.
type UserProfile struct {
	ID         string `json:"id"`
	FiscalCode string `json:"cfisc"`
	Name       string `json:"nome,omitempty"`
}

// DisplayIdentifier returns the identifier shown on the profile screen
// (the fiscal code, falling back to the raw id).
func (u *UserProfile) DisplayIdentifier() string {
	if u.FiscalCode != "" {
		return u.FiscalCode
	}
	return u.ID
}
