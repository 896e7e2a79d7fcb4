package auth

import (
	"context"
	"encoding/json"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Identity is a verified user identity extracted from a token.
type Identity struct {
	UserID string
	Name   string
}

// Token is an issued token with its lifetime.
type Token struct {
	Value     string
	ExpiresIn int64
}

// AuthPort is the interface other modules use to reach auth services.
type AuthPort interface {
	IssueToken(ctx context.Context, userID, name string) (*Token, error)
	ValidateToken(ctx context.Context, token string) (*Identity, error)
}

type authAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*authAdapter)(nil)

// NewAuthAdapter creates an AuthPort backed by the service container.
func NewAuthAdapter(container mono.ServiceContainer) AuthPort {
	if container == nil {
		panic("auth adapter requires a service container")
	}
	return &authAdapter{container: container}
}

func (a *authAdapter) IssueToken(ctx context.Context, userID, name string) (*Token, error) {
	req := IssueTokenRequest{UserID: userID, Name: name}
	var resp IssueTokenResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceIssueToken,
		json.Marshal, json.Unmarshal,
		&req, &resp,
	); err != nil {
		return nil, err
	}
	if resp.Err != "" {
		return nil, errFromCode(resp.Err)
	}
	return &Token{Value: resp.Token, ExpiresIn: resp.ExpiresIn}, nil
}

func (a *authAdapter) ValidateToken(ctx context.Context, token string) (*Identity, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceValidateToken,
		json.Marshal, json.Unmarshal,
		&req, &resp,
	); err != nil {
		return nil, err
	}
	if resp.Err != "" || !resp.Valid {
		return nil, errFromCode(resp.Err)
	}
	return &Identity{UserID: resp.UserID, Name: resp.Name}, nil
}
