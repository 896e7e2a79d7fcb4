package auth

// Service names exposed by the auth module.
const (
	ServiceIssueToken    = "issue-token"
	ServiceValidateToken = "validate-token"
)

// Error codes carried in responses across the service boundary.
const (
	codeInvalidToken = "invalid_token"
	codeExpiredToken = "expired_token"
)

// IssueTokenRequest asks for a signed chat token for a user.
type IssueTokenRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// IssueTokenResponse carries the signed token.
type IssueTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	Err       string `json:"err,omitempty"`
}

// ValidateTokenRequest asks for validation of a presented token.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse carries the verified identity, or an error code.
type ValidateTokenResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Err    string `json:"err,omitempty"`
}

func codeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case err == ErrExpiredToken:
		return codeExpiredToken
	default:
		return codeInvalidToken
	}
}

func errFromCode(code string) error {
	switch code {
	case "":
		return nil
	case codeExpiredToken:
		return ErrExpiredToken
	default:
		return ErrInvalidToken
	}
}
