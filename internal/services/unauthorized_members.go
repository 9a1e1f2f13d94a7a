package services

import (
	"context"
	"fmt"

	"github.com/yungbote/counselbridge-backend/internal/data/repos"
	types "github.com/yungbote/counselbridge-backend/internal/domain"
	"github.com/yungbote/counselbridge-backend/internal/platform/apierr"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
)

// ConsultantDirectory resolves chat accounts to consultants. An unknown
// account yields (nil, nil).
type ConsultantDirectory interface {
	FindByRocketChatID(ctx context.Context, rcUserID string) (*types.Consultant, error)
}

type repoConsultantDirectory struct {
	repo repos.ConsultantRepo
}

func NewConsultantDirectory(repo repos.ConsultantRepo) ConsultantDirectory {
	return &repoConsultantDirectory{repo: repo}
}

func (d *repoConsultantDirectory) FindByRocketChatID(ctx context.Context, rcUserID string) (*types.Consultant, error) {
	return d.repo.FindByRocketChatID(ctx, nil, rcUserID)
}

// UnauthorizedMembersResolver decides which room members lost their right to
// stay after an assignment.
type UnauthorizedMembersResolver interface {
	ObtainConsultantsToRemove(
		ctx context.Context,
		groupID string,
		session *types.Session,
		newConsultant *types.Consultant,
		members []types.ChatMember,
		consultantToKeep *types.Consultant,
	) ([]*types.Consultant, error)
}

type unauthorizedMembersResolver struct {
	log           *logger.Logger
	directory     ConsultantDirectory
	systemUserIDs map[string]struct{}
}

// NewUnauthorizedMembersResolver keeps systemUserIDs (technical and bot
// accounts) in every room.
func NewUnauthorizedMembersResolver(log *logger.Logger, directory ConsultantDirectory, systemUserIDs []string) UnauthorizedMembersResolver {
	ids := make(map[string]struct{}, len(systemUserIDs))
	for _, id := range systemUserIDs {
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	return &unauthorizedMembersResolver{
		log:           log.With("service", "UnauthorizedMembersResolver"),
		directory:     directory,
		systemUserIDs: ids,
	}
}

func (r *unauthorizedMembersResolver) ObtainConsultantsToRemove(
	ctx context.Context,
	groupID string,
	session *types.Session,
	newConsultant *types.Consultant,
	members []types.ChatMember,
	consultantToKeep *types.Consultant,
) ([]*types.Consultant, error) {
	if session == nil || len(members) == 0 {
		return nil, nil
	}

	keep := make(map[string]struct{}, len(r.systemUserIDs)+3)
	for id := range r.systemUserIDs {
		keep[id] = struct{}{}
	}
	if session.User != nil && session.User.RcUserID != "" {
		keep[session.User.RcUserID] = struct{}{}
	}
	if newConsultant != nil && newConsultant.RocketChatID != "" {
		keep[newConsultant.RocketChatID] = struct{}{}
	}
	if consultantToKeep != nil && consultantToKeep.RocketChatID != "" {
		keep[consultantToKeep.RocketChatID] = struct{}{}
	}

	var out []*types.Consultant
	seen := map[string]struct{}{}
	for _, member := range members {
		if member.ID == "" {
			continue
		}
		if _, ok := keep[member.ID]; ok {
			continue
		}
		consultant, err := r.directory.FindByRocketChatID(ctx, member.ID)
		if err != nil {
			return nil, apierr.Internal("consultant_lookup_failed",
				fmt.Errorf("resolve member %s of group %s: %w", member.ID, groupID, err))
		}
		if consultant == nil || sameConsultant(consultant, newConsultant) || sameConsultant(consultant, consultantToKeep) {
			continue
		}
		if session.IsTeamSession && session.AgencyID != nil && consultant.HasAgency(*session.AgencyID) {
			continue
		}
		if _, dup := seen[consultant.ID]; dup {
			continue
		}
		seen[consultant.ID] = struct{}{}
		out = append(out, consultant)
	}

	if len(out) > 0 {
		r.log.Debug("members to remove resolved", "group_id", groupID, "session_id", session.ID, "count", len(out))
	}
	return out, nil
}

func sameConsultant(a, b *types.Consultant) bool {
	return a != nil && b != nil && a.ID != "" && a.ID == b.ID
}
