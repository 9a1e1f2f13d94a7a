package services

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/counselbridge-backend/internal/clients/rocketchat"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

// ChatMembershipGateway is the chat-room surface the assignment workflow uses.
// Every call is a single remote request without retries.
type ChatMembershipGateway interface {
	AddMember(ctx context.Context, rcUserID, groupID string) error
	// RemoveMember fails when the room or the member is absent.
	RemoveMember(ctx context.Context, rcUserID, groupID string) error
	// RemoveMemberIgnoreMissing treats an absent room or member as success.
	RemoveMemberIgnoreMissing(ctx context.Context, rcUserID, groupID string) error
	ListMembers(ctx context.Context, groupID string) ([]types.ChatMember, error)
	StripSystemMessages(ctx context.Context, groupID string) error
}

// RoomDeleter removes whole rooms; only account deletion needs it.
type RoomDeleter interface {
	DeleteGroup(ctx context.Context, groupID string) error
}

type chatMembershipGateway struct {
	client rocketchat.Client
	log    *logger.Logger
}

func NewChatMembershipGateway(client rocketchat.Client, log *logger.Logger) ChatMembershipGateway {
	return &chatMembershipGateway{client: client, log: log.With("service", "ChatMembershipGateway")}
}

func (g *chatMembershipGateway) AddMember(ctx context.Context, rcUserID, groupID string) error {
	g.log.Debug("add member", "rc_user_id", rcUserID, "group_id", groupID)
	return g.client.AddUserToGroup(ctx, rcUserID, groupID)
}

func (g *chatMembershipGateway) RemoveMember(ctx context.Context, rcUserID, groupID string) error {
	g.log.Debug("remove member", "rc_user_id", rcUserID, "group_id", groupID)
	return g.client.RemoveUserFromGroup(ctx, rcUserID, groupID)
}

func (g *chatMembershipGateway) RemoveMemberIgnoreMissing(ctx context.Context, rcUserID, groupID string) error {
	err := g.client.RemoveUserFromGroup(ctx, rcUserID, groupID)
	if errors.Is(err, rocketchat.ErrRoomNotFound) || errors.Is(err, rocketchat.ErrMemberNotFound) {
		g.log.Debug("remove member skipped, already absent", "rc_user_id", rcUserID, "group_id", groupID, "error", err)
		return nil
	}
	return err
}

func (g *chatMembershipGateway) ListMembers(ctx context.Context, groupID string) ([]types.ChatMember, error) {
	return g.client.GetMembersOfGroup(ctx, groupID)
}

// StripSystemMessages clears the join/leave noise of the whole room history.
func (g *chatMembershipGateway) StripSystemMessages(ctx context.Context, groupID string) error {
	return g.client.RemoveSystemMessages(ctx, groupID, time.Unix(0, 0), time.Now().Add(time.Minute))
}

func (g *chatMembershipGateway) DeleteGroup(ctx context.Context, groupID string) error {
	g.log.Info("delete group", "group_id", groupID)
	return g.client.DeleteGroup(ctx, groupID)
}

// NewRoomDeleter exposes group deletion from the same Rocket.Chat client.
func NewRoomDeleter(client rocketchat.Client, log *logger.Logger) RoomDeleter {
	return &chatMembershipGateway{client: client, log: log.With("service", "RoomDeleter")}
}
