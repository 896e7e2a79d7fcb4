package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Module issues and validates the JWT tokens used to authenticate
// websocket connections at the gateway.
type Module struct {
	jwtManager *JWTManager
}

var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the auth module, reading overrides from the
// environment (JWT_SECRET, JWT_ISSUER, JWT_TTL).
func NewModule() *Module {
	config := DefaultJWTConfig()
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.SecretKey = secret
	}
	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		config.Issuer = issuer
	}
	if ttl := os.Getenv("JWT_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
			config.TokenDuration = d
		} else {
			log.Printf("[auth] ignoring invalid JWT_TTL %q", ttl)
		}
	}
	return &Module{jwtManager: NewJWTManager(config)}
}

func (m *Module) Name() string { return "auth" }

// RegisterServices registers the token services on the container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceIssueToken,
		json.Unmarshal, json.Marshal,
		m.issueToken,
	); err != nil {
		return fmt.Errorf("failed to register issue-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceValidateToken,
		json.Unmarshal, json.Marshal,
		m.validateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	log.Printf("[auth] Registered services: issue-token, validate-token")
	return nil
}

func (m *Module) issueToken(_ context.Context, req IssueTokenRequest, _ *mono.Msg) (IssueTokenResponse, error) {
	if req.UserID == "" {
		return IssueTokenResponse{Err: codeInvalidToken}, nil
	}
	token, err := m.jwtManager.GenerateToken(req.UserID, req.Name)
	if err != nil {
		log.Printf("[auth] token generation failed for %s: %v", req.UserID, err)
		return IssueTokenResponse{Err: codeInvalidToken}, nil
	}
	return IssueTokenResponse{Token: token, ExpiresIn: m.jwtManager.TokenDuration()}, nil
}

func (m *Module) validateToken(_ context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.jwtManager.ValidateToken(req.Token)
	if err != nil {
		return ValidateTokenResponse{Err: codeFor(err)}, nil
	}
	return ValidateTokenResponse{Valid: true, UserID: claims.UserID, Name: claims.Name}, nil
}

func (m *Module) Start(ctx context.Context) error {
	log.Printf("[auth] module started")
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	log.Printf("[auth] module stopped")
	return nil
}

func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "auth module is healthy",
	}
}
