package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/ridechat/domain/chat"
)

// JoinResult is what a successful join hands back to the transport: the
// member record and the backlog snapshot taken at registration time.
type JoinResult struct {
	Member   domain.Member
	Backlog  []domain.Message
	Rejoined bool
}

// ChatPort defines the chat operations available to other modules.
type ChatPort interface {
	Join(ctx context.Context, rideID, userID, name string) (*JoinResult, error)
	Leave(ctx context.Context, rideID, userID string) (bool, error)
	Send(ctx context.Context, rideID, userID, content string) (*domain.Message, error)
	SetTyping(ctx context.Context, rideID, userID string, typing bool) error
	Members(ctx context.Context, rideID string) ([]domain.Member, error)
	Backlog(ctx context.Context, rideID string, limit int) ([]domain.Message, error)
}

// chatAdapter implements ChatPort over the module's service container.
type chatAdapter struct {
	container mono.ServiceContainer
}

// NewChatAdapter creates a ChatPort backed by the chat module's services.
func NewChatAdapter(container mono.ServiceContainer) ChatPort {
	if container == nil {
		panic("chat adapter requires non-nil ServiceContainer")
	}
	return &chatAdapter{container: container}
}

func (a *chatAdapter) Join(ctx context.Context, rideID, userID, name string) (*JoinResult, error) {
	req := JoinRequest{RideID: rideID, UserID: userID, Name: name}
	var resp JoinResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "join", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("join service call failed: %w", err)
	}
	if err := errFromCode(resp.Err); err != nil {
		return nil, err
	}
	if resp.Backlog == nil {
		resp.Backlog = []domain.Message{}
	}
	return &JoinResult{Member: resp.Member, Backlog: resp.Backlog, Rejoined: resp.Rejoined}, nil
}

func (a *chatAdapter) Leave(ctx context.Context, rideID, userID string) (bool, error) {
	req := LeaveRequest{RideID: rideID, UserID: userID}
	var resp LeaveResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "leave", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return false, fmt.Errorf("leave service call failed: %w", err)
	}
	return resp.Left, nil
}

func (a *chatAdapter) Send(ctx context.Context, rideID, userID, content string) (*domain.Message, error) {
	req := SendMessageRequest{RideID: rideID, UserID: userID, Content: content}
	var resp SendMessageResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "send-message", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("send-message service call failed: %w", err)
	}
	if err := errFromCode(resp.Err); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

func (a *chatAdapter) SetTyping(ctx context.Context, rideID, userID string, typing bool) error {
	req := SetTypingRequest{RideID: rideID, UserID: userID, Typing: typing}
	var resp SetTypingResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "set-typing", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return fmt.Errorf("set-typing service call failed: %w", err)
	}
	return errFromCode(resp.Err)
}

func (a *chatAdapter) Members(ctx context.Context, rideID string) ([]domain.Member, error) {
	req := MembersRequest{RideID: rideID}
	var resp MembersResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "members", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("members service call failed: %w", err)
	}
	if resp.Members == nil {
		resp.Members = []domain.Member{}
	}
	return resp.Members, nil
}

func (a *chatAdapter) Backlog(ctx context.Context, rideID string, limit int) ([]domain.Message, error) {
	req := BacklogRequest{RideID: rideID, Limit: limit}
	var resp BacklogResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, "backlog", json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("backlog service call failed: %w", err)
	}
	if resp.Messages == nil {
		resp.Messages = []domain.Message{}
	}
	return resp.Messages, nil
}
