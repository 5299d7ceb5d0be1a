package service

import (
	"context"
	"time"

	"github.com/finvault/affiliate/common/apperr"
	"github.com/finvault/affiliate/common/logger"
	"github.com/finvault/affiliate/common/models"
	"github.com/finvault/affiliate/common/pagination"
)

// SettlementStore is the read surface over the settlement rollups
type SettlementStore interface {
	AggByOwner(ctx context.Context, ownerUID int64, page *pagination.Offset) ([]models.AggSettlement, error)
	AggByOwnerMonth(ctx context.Context, ownerUID int64, year, month int) (*models.AggSettlement, error)
	List(ctx context.Context, filter models.SettlementFilter, page *pagination.Offset) ([]models.Settlement, error)
	Get(ctx context.Context, afseid int64, filter models.SettlementFilter) (*models.Settlement, error)
	Acquisition(ctx context.Context, afseid int64) (models.MemberCounts, error)
	AggAcquisition(ctx context.Context, ownerUID int64, month time.Time) (models.MemberCounts, error)
}

// SettlementService exposes the settlement read model. Settlement rows are
// produced by an external monthly job; this service only renders them,
// scoped to the requesting owner.
type SettlementService struct {
	settlements SettlementStore
	reflinks    ReflinkStore
	log         *logger.Logger
}

// NewSettlementService creates a new settlement service
func NewSettlementService(settlements SettlementStore, reflinks ReflinkStore, log *logger.Logger) *SettlementService {
	return &SettlementService{
		settlements: settlements,
		reflinks:    reflinks,
		log:         log,
	}
}

// AggSettlements returns the caller's per-month totals across all their
// reflinks, newest first, each with its aggregated acquisition counts
func (s *SettlementService) AggSettlements(ctx context.Context, callerUID int64, page *pagination.Offset) ([]models.AggSettlement, error) {
	settlements, err := s.settlements.AggByOwner(ctx, callerUID, page)
	if err != nil {
		return nil, err
	}

	for i := range settlements {
		counts, err := s.settlements.AggAcquisition(ctx, callerUID, settlements[i].MonthDate)
		if err != nil {
			return nil, err
		}
		settlements[i].Acquisition = counts
	}

	return settlements, nil
}

// AggSettlement returns the caller's total for one month
func (s *SettlementService) AggSettlement(ctx context.Context, callerUID int64, year, month int) (*models.AggSettlement, error) {
	if !models.ValidYear(year) {
		return nil, apperr.Validation("year")
	}
	if !models.ValidMonth(month) {
		return nil, apperr.Validation("month")
	}

	settlement, err := s.settlements.AggByOwnerMonth(ctx, callerUID, year, month)
	if err != nil {
		return nil, err
	}

	counts, err := s.settlements.AggAcquisition(ctx, callerUID, settlement.MonthDate)
	if err != nil {
		return nil, err
	}
	settlement.Acquisition = counts

	return settlement, nil
}

// Settlements returns the settlement rows of one reflink owned by the
// caller, newest first. Deactivated reflinks keep their history visible.
func (s *SettlementService) Settlements(ctx context.Context, callerUID, refid int64, page *pagination.Offset) ([]models.Settlement, error) {
	if err := s.authorizeReflink(ctx, callerUID, refid); err != nil {
		return nil, err
	}

	settlements, err := s.settlements.List(ctx, models.SettlementFilter{Refid: &refid}, page)
	if err != nil {
		return nil, err
	}

	for i := range settlements {
		counts, err := s.settlements.Acquisition(ctx, settlements[i].Afseid)
		if err != nil {
			return nil, err
		}
		settlements[i].Acquisition = counts
	}

	return settlements, nil
}

// Settlement returns one settlement row of a reflink owned by the caller
func (s *SettlementService) Settlement(ctx context.Context, callerUID, refid, afseid int64) (*models.Settlement, error) {
	if !models.ValidAfseid(afseid) {
		return nil, apperr.Validation("afseid")
	}

	if err := s.authorizeReflink(ctx, callerUID, refid); err != nil {
		return nil, err
	}

	settlement, err := s.settlements.Get(ctx, afseid, models.SettlementFilter{Refid: &refid})
	if err != nil {
		return nil, err
	}

	counts, err := s.settlements.Acquisition(ctx, afseid)
	if err != nil {
		return nil, err
	}
	settlement.Acquisition = counts

	return settlement, nil
}

// authorizeReflink checks that refid exists and belongs to callerUID
func (s *SettlementService) authorizeReflink(ctx context.Context, callerUID, refid int64) error {
	reflink, err := s.reflinks.Get(ctx, refid)
	if err != nil {
		return err
	}
	if reflink.OwnerUID != callerUID {
		return apperr.Forbidden("reflink belongs to another user")
	}
	return nil
}
