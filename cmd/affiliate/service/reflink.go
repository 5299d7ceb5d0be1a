package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/finvault/affiliate/common/apperr"
	"github.com/finvault/affiliate/common/cache"
	"github.com/finvault/affiliate/common/logger"
	"github.com/finvault/affiliate/common/models"
	"github.com/finvault/affiliate/common/pagination"
)

// ReflinkStore is the persistence surface the reflink service needs
type ReflinkStore interface {
	Create(ctx context.Context, ownerUID int64, description string) (int64, error)
	Edit(ctx context.Context, refid int64, description string) error
	SoftDelete(ctx context.Context, refid int64) error
	Get(ctx context.Context, refid int64) (*models.Reflink, error)
	List(ctx context.Context, filter models.ReflinkFilter, page *pagination.Offset) ([]models.Reflink, error)
}

// MemberCounter exposes the per-level member counts of one pyramid
type MemberCounter interface {
	CountMembers(ctx context.Context, refid int64) (models.MemberCounts, error)
}

// ReflinkService handles reflink lifecycle operations
type ReflinkService struct {
	reflinks   ReflinkStore
	members    MemberCounter
	cache      cache.Cache
	membersTTL time.Duration
	log        *logger.Logger
}

// NewReflinkService creates a new reflink service. cache may be nil, in
// which case member counts are always read from storage.
func NewReflinkService(reflinks ReflinkStore, members MemberCounter, memberCache cache.Cache, membersTTL time.Duration, log *logger.Logger) *ReflinkService {
	return &ReflinkService{
		reflinks:   reflinks,
		members:    members,
		cache:      memberCache,
		membersTTL: membersTTL,
		log:        log,
	}
}

// Create validates and creates a new reflink for ownerUID
func (s *ReflinkService) Create(ctx context.Context, ownerUID int64, description string) (*models.Reflink, error) {
	if !models.ValidDescription(description) {
		return nil, apperr.Validation("description")
	}

	refid, err := s.reflinks.Create(ctx, ownerUID, description)
	if err != nil {
		return nil, err
	}

	s.log.WithUID(ownerUID).Info("created reflink", "refid", refid)

	return &models.Reflink{
		Refid:       refid,
		OwnerUID:    ownerUID,
		Description: description,
		Active:      true,
	}, nil
}

// Edit changes the description of an active reflink owned by callerUID
func (s *ReflinkService) Edit(ctx context.Context, callerUID, refid int64, description string) error {
	if !models.ValidDescription(description) {
		return apperr.Validation("description")
	}

	reflink, err := s.reflinks.Get(ctx, refid)
	if err != nil {
		return err
	}
	if reflink.OwnerUID != callerUID {
		return apperr.Forbidden("reflink belongs to another user")
	}
	if !reflink.Active {
		return apperr.NotFound("reflink %d not found", refid)
	}

	if err := s.reflinks.Edit(ctx, refid, description); err != nil {
		return err
	}

	s.log.WithUID(callerUID).Info("edited reflink", "refid", refid)
	return nil
}

// Delete deactivates a reflink owned by callerUID. The row survives so the
// affiliation history keyed by its refid stays resolvable.
func (s *ReflinkService) Delete(ctx context.Context, callerUID, refid int64) error {
	reflink, err := s.reflinks.Get(ctx, refid)
	if err != nil {
		return err
	}
	if reflink.OwnerUID != callerUID {
		return apperr.Forbidden("reflink belongs to another user")
	}

	if err := s.reflinks.SoftDelete(ctx, refid); err != nil {
		return err
	}

	s.log.WithUID(callerUID).Info("deleted reflink", "refid", refid)
	return nil
}

// Get returns one reflink owned by callerUID, with its member counts
func (s *ReflinkService) Get(ctx context.Context, callerUID, refid int64) (*models.ReflinkWithMembers, error) {
	reflink, err := s.reflinks.Get(ctx, refid)
	if err != nil {
		return nil, err
	}
	if reflink.OwnerUID != callerUID {
		return nil, apperr.Forbidden("reflink belongs to another user")
	}

	counts, err := s.MemberCounts(ctx, refid)
	if err != nil {
		return nil, err
	}

	return &models.ReflinkWithMembers{Reflink: *reflink, Members: counts}, nil
}

// List returns the caller's reflinks with member counts. active narrows to
// active or inactive reflinks when set; nil returns both.
func (s *ReflinkService) List(ctx context.Context, callerUID int64, active *bool, page *pagination.Offset) ([]models.ReflinkWithMembers, error) {
	filter := models.ReflinkFilter{
		OwnerUID: &callerUID,
		Active:   active,
	}

	reflinks, err := s.reflinks.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}

	result := make([]models.ReflinkWithMembers, 0, len(reflinks))
	for _, reflink := range reflinks {
		counts, err := s.MemberCounts(ctx, reflink.Refid)
		if err != nil {
			return nil, err
		}
		result = append(result, models.ReflinkWithMembers{Reflink: reflink, Members: counts})
	}

	return result, nil
}

// MemberCounts returns the per-level member counts of one pyramid. Counts
// only ever grow, so serving a slightly stale cached value is harmless.
func (s *ReflinkService) MemberCounts(ctx context.Context, refid int64) (models.MemberCounts, error) {
	key := fmt.Sprintf("members:%d", refid)

	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var counts models.MemberCounts
			if err := json.Unmarshal(data, &counts); err == nil {
				return counts, nil
			}
		}
	}

	counts, err := s.members.CountMembers(ctx, refid)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(counts); err == nil {
			if err := s.cache.Set(ctx, key, data, s.membersTTL); err != nil {
				s.log.Warn("failed to cache member counts", "refid", refid, "error", err)
			}
		}
	}

	return counts, nil
}
