package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"cuotas/internal/core"
)

// ListMembers returns every member sorted by name.
func (s *Service) ListMembers(ctx context.Context, sess core.Session) ([]core.Member, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, core.Remote("list members", err)
	}
	sort.SliceStable(members, func(i, j int) bool {
		return strings.ToLower(members[i].Name) < strings.ToLower(members[j].Name)
	})
	return members, nil
}

func (s *Service) GetMember(ctx context.Context, sess core.Session, id string) (core.Member, error) {
	if err := requireSession(sess); err != nil {
		return core.Member{}, err
	}
	m, err := s.store.GetMember(ctx, id)
	if err != nil {
		return core.Member{}, core.Remote("get member", err)
	}
	return m, nil
}

// CreateMember stores a new member and generates its calendar.
func (s *Service) CreateMember(ctx context.Context, sess core.Session, m core.Member) (core.Member, error) {
	if err := sess.RequireAdmin(); err != nil {
		return core.Member{}, err
	}
	m = normalizeMember(m)
	if err := m.Validate(); err != nil {
		return core.Member{}, err
	}
	created, err := s.store.CreateMember(ctx, m)
	if err != nil {
		return core.Member{}, core.Remote("create member", err)
	}

	slog.InfoContext(ctx, "Member created",
		"member_id", created.ID,
		"enrollment_date", created.EnrollmentDate.String())

	if _, err := s.ensureMember(ctx, created, s.today()); err != nil {
		// The member exists; periods are generated again on next read.
		slog.ErrorContext(ctx, "Failed to generate periods for new member",
			"member_id", created.ID,
			"error", err)
	}
	return created, nil
}

// UpdateMember replaces the member's fields. Existing periods are kept.
func (s *Service) UpdateMember(ctx context.Context, sess core.Session, m core.Member) (core.Member, error) {
	if err := sess.RequireAdmin(); err != nil {
		return core.Member{}, err
	}
	if _, err := s.store.GetMember(ctx, m.ID); err != nil {
		return core.Member{}, core.Remote("get member", err)
	}
	m = normalizeMember(m)
	if err := m.Validate(); err != nil {
		return core.Member{}, err
	}
	if err := s.store.UpdateMember(ctx, m); err != nil {
		return core.Member{}, core.Remote("update member", err)
	}
	if _, err := s.ensureMember(ctx, m, s.today()); err != nil {
		slog.ErrorContext(ctx, "Failed to generate periods for updated member",
			"member_id", m.ID,
			"error", err)
	}
	return m, nil
}

// DeleteMember removes the member together with its periods and contributions.
func (s *Service) DeleteMember(ctx context.Context, sess core.Session, id string) error {
	if err := sess.RequireAdmin(); err != nil {
		return err
	}
	if _, err := s.store.GetMember(ctx, id); err != nil {
		return core.Remote("get member", err)
	}
	removed, err := s.store.ListContributions(ctx, id)
	if err != nil {
		return core.Remote("list contributions", err)
	}
	if err := s.store.DeleteMember(ctx, id); err != nil {
		return core.Remote("delete member", err)
	}
	slog.InfoContext(ctx, "Member deleted", "member_id", id, "contributions_removed", len(removed))

	s.publishContributions(ctx, core.ActionDeleted, removed)
	return nil
}

func normalizeMember(m core.Member) core.Member {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))
	if m.Role == "" {
		m.Role = core.RoleViewer
	}
	return m
}
