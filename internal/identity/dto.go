package identity

// TokenGrant is the result of an issue-or-rotate request.
type TokenGrant struct {
	Token         string `json:"token"`
	IsNewIdentity bool   `json:"is_new_identity"`
}
