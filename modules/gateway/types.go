package gateway

// TokenRequest asks for a chat token for a user. In a full deployment
// this would be issued by the main application backend after login; the
// endpoint exists so clients can be exercised end to end.
type TokenRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// TokenResponse carries an issued chat token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}
