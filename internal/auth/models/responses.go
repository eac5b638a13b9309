package models

// IdentityResult is the public view of an identity.
type IdentityResult struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func NewIdentityResult(identity *Identity) *IdentityResult {
	return &IdentityResult{ID: identity.ID.String(), Email: identity.Email}
}

type TokenResult struct {
	Token string `json:"token"`
}
