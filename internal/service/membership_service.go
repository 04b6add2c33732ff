package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/glebk/study-bot/internal/apperror"
	"github.com/glebk/study-bot/internal/domain"
)

// MembershipService handles onboarding and the declaration gate
type MembershipService struct {
	users     domain.UserRepository
	moderator Moderator
	log       zerolog.Logger
}

// NewMembershipService creates a new MembershipService
func NewMembershipService(users domain.UserRepository, moderator Moderator, log zerolog.Logger) *MembershipService {
	return &MembershipService{
		users:     users,
		moderator: moderator,
		log:       log.With().Str("component", "membership").Logger(),
	}
}

// EnsureMember creates the profile on first contact or refreshes the
// Telegram names of an existing one.
func (s *MembershipService) EnsureMember(ctx context.Context, m Member) (*domain.User, bool, error) {
	existing, err := s.users.GetByID(ctx, m.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check user: %w", err)
	}

	if existing != nil {
		if existing.Username != m.Username || existing.FirstName != m.FirstName {
			if err := s.users.UpdateInfo(ctx, m.ID, m.Username, m.FirstName); err != nil {
				return nil, false, err
			}
			existing.Username = m.Username
			existing.FirstName = m.FirstName
		}
		return existing, false, nil
	}

	user := &domain.User{
		ID:         m.ID,
		Username:   m.Username,
		FirstName:  m.FirstName,
		GroupID:    m.GroupID,
		Restricted: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, err
	}

	s.log.Info().Int64("user_id", m.ID).Msg("member created")

	return user, true, nil
}

// OnJoin registers a joining member and mutes them until the declaration
// is accepted. Returning members who are still registered stay unmuted.
func (s *MembershipService) OnJoin(ctx context.Context, m Member) (*domain.User, error) {
	user, _, err := s.EnsureMember(ctx, m)
	if err != nil {
		return nil, err
	}
	if user.Registered {
		return user, nil
	}

	if err := s.moderator.Restrict(ctx, user.GroupID, user.ID, true); err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to restrict new member")
	}
	if err := s.users.SetRestricted(ctx, user.ID, true); err != nil {
		return nil, err
	}
	user.Restricted = true

	return user, nil
}

// AcceptDeclaration registers the member and lifts the restriction.
// It reports true when the member had already accepted.
func (s *MembershipService) AcceptDeclaration(ctx context.Context, userID int64) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return false, apperror.NotFound("user", userID)
	}
	if user.Registered {
		return true, nil
	}

	if err := s.users.SetRegistered(ctx, userID, true); err != nil {
		return false, err
	}
	if err := s.users.ResetAbsence(ctx, userID); err != nil {
		return false, err
	}

	if err := s.moderator.Restrict(ctx, user.GroupID, userID, false); err != nil {
		// still registered; an admin can unmute by hand
		s.log.Error().Err(err).Int64("user_id", userID).Msg("failed to lift restriction")
		return false, nil
	}
	if err := s.users.SetRestricted(ctx, userID, false); err != nil {
		return false, err
	}

	s.log.Info().Int64("user_id", userID).Msg("declaration accepted")

	return false, nil
}

// DeclineDeclaration keeps the member restricted
func (s *MembershipService) DeclineDeclaration(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return apperror.NotFound("user", userID)
	}
	if user.Registered {
		return apperror.Policy("You have already accepted the declaration.")
	}

	s.log.Info().Int64("user_id", userID).Msg("declaration declined")

	return nil
}

// GetUser returns the member's profile, nil when unknown
func (s *MembershipService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ListMembers lists every known member of the group
func (s *MembershipService) ListMembers(ctx context.Context, groupID int64) ([]*domain.User, error) {
	return s.users.ListByGroup(ctx, groupID)
}
