package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/finvault/affiliate/common/apperr"
	"github.com/finvault/affiliate/common/logger"
	"github.com/finvault/affiliate/common/models"
	"github.com/finvault/affiliate/common/pagination"
)

// fakeSettlementStore serves canned settlement rows keyed by afseid
type fakeSettlementStore struct {
	settlements map[int64]models.Settlement   // afseid -> row
	acquisition map[int64]models.MemberCounts // afseid -> counts
	owners      map[int64]int64               // refid -> owner uid
}

func newFakeSettlementStore() *fakeSettlementStore {
	return &fakeSettlementStore{
		settlements: make(map[int64]models.Settlement),
		acquisition: make(map[int64]models.MemberCounts),
		owners:      make(map[int64]int64),
	}
}

func (f *fakeSettlementStore) add(afseid, refid int64, year, month int, equiv string, counts models.MemberCounts) {
	f.settlements[afseid] = models.Settlement{
		Afseid:       afseid,
		Refid:        refid,
		Month:        month,
		Year:         year,
		MonthDate:    time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
		RefCoinEquiv: decimal.RequireFromString(equiv),
	}
	f.acquisition[afseid] = counts
}

func (f *fakeSettlementStore) AggByOwner(ctx context.Context, ownerUID int64, page *pagination.Offset) ([]models.AggSettlement, error) {
	byMonth := make(map[time.Time]*models.AggSettlement)
	for _, s := range f.settlements {
		if f.owners[s.Refid] != ownerUID {
			continue
		}
		agg, ok := byMonth[s.MonthDate]
		if !ok {
			agg = &models.AggSettlement{Month: s.Month, Year: s.Year, MonthDate: s.MonthDate}
			byMonth[s.MonthDate] = agg
		}
		agg.RefCoinEquiv = agg.RefCoinEquiv.Add(s.RefCoinEquiv)
	}

	var result []models.AggSettlement
	for _, agg := range byMonth {
		result = append(result, *agg)
	}
	return result[:page.TrimCount(len(result))], nil
}

func (f *fakeSettlementStore) AggByOwnerMonth(ctx context.Context, ownerUID int64, year, month int) (*models.AggSettlement, error) {
	page := pagination.NewOffset(500, 500, "", "")
	all, _ := f.AggByOwner(ctx, ownerUID, page)
	for _, agg := range all {
		if agg.Year == year && agg.Month == month {
			return &agg, nil
		}
	}
	return nil, apperr.NotFound("no settlement for %d/%d", month, year)
}

func (f *fakeSettlementStore) List(ctx context.Context, filter models.SettlementFilter, page *pagination.Offset) ([]models.Settlement, error) {
	var result []models.Settlement
	for _, s := range f.settlements {
		if filter.Refid != nil && s.Refid != *filter.Refid {
			continue
		}
		result = append(result, s)
	}
	return result[:page.TrimCount(len(result))], nil
}

func (f *fakeSettlementStore) Get(ctx context.Context, afseid int64, filter models.SettlementFilter) (*models.Settlement, error) {
	s, ok := f.settlements[afseid]
	if !ok || (filter.Refid != nil && s.Refid != *filter.Refid) {
		return nil, apperr.NotFound("settlement %d not found", afseid)
	}
	return &s, nil
}

func (f *fakeSettlementStore) Acquisition(ctx context.Context, afseid int64) (models.MemberCounts, error) {
	if counts, ok := f.acquisition[afseid]; ok {
		return counts, nil
	}
	return models.NewMemberCounts(), nil
}

func (f *fakeSettlementStore) AggAcquisition(ctx context.Context, ownerUID int64, month time.Time) (models.MemberCounts, error) {
	counts := models.NewMemberCounts()
	for afseid, s := range f.settlements {
		if f.owners[s.Refid] != ownerUID || !s.MonthDate.Equal(month) {
			continue
		}
		for level, count := range f.acquisition[afseid] {
			counts[level] += count
		}
	}
	return counts, nil
}

func newTestSettlementService(t *testing.T) (*SettlementService, *fakeSettlementStore, *fakeReflinkStore) {
	t.Helper()
	settlements := newFakeSettlementStore()
	reflinks := newFakeReflinkStore()
	svc := NewSettlementService(settlements, reflinks, logger.New("error", "text"))
	return svc, settlements, reflinks
}

func TestAggSettlement_Validation(t *testing.T) {
	svc, _, _ := newTestSettlementService(t)
	ctx := context.Background()

	_, err := svc.AggSettlement(ctx, 1, 2019, 6)
	require.True(t, apperr.IsValidation(err))

	_, err = svc.AggSettlement(ctx, 1, 2026, 13)
	require.True(t, apperr.IsValidation(err))

	_, err = svc.AggSettlement(ctx, 1, 2026, 0)
	require.True(t, apperr.IsValidation(err))
}

func TestAggSettlement_SumsAcrossReflinks(t *testing.T) {
	svc, settlements, reflinks := newTestSettlementService(t)
	ctx := context.Background()

	refA, err := reflinks.Create(ctx, 1, "link a")
	require.NoError(t, err)
	refB, err := reflinks.Create(ctx, 1, "link b")
	require.NoError(t, err)
	settlements.owners[refA] = 1
	settlements.owners[refB] = 1

	settlements.add(100, refA, 2026, 7, "0.5", models.MemberCounts{1: 2, 2: 0, 3: 0, 4: 0})
	settlements.add(101, refB, 2026, 7, "0.25", models.MemberCounts{1: 1, 2: 3, 3: 0, 4: 0})

	agg, err := svc.AggSettlement(ctx, 1, 2026, 7)
	require.NoError(t, err)
	require.True(t, agg.RefCoinEquiv.Equal(decimal.RequireFromString("0.75")))
	require.Equal(t, models.MemberCounts{1: 3, 2: 3, 3: 0, 4: 0}, agg.Acquisition)
}

func TestAggSettlement_MissingMonth(t *testing.T) {
	svc, _, _ := newTestSettlementService(t)

	_, err := svc.AggSettlement(context.Background(), 1, 2026, 6)
	require.True(t, apperr.IsNotFound(err))
}

func TestSettlements_OwnershipRequired(t *testing.T) {
	svc, settlements, reflinks := newTestSettlementService(t)
	ctx := context.Background()

	refid, err := reflinks.Create(ctx, 1, "mine")
	require.NoError(t, err)
	settlements.owners[refid] = 1
	settlements.add(100, refid, 2026, 7, "1", models.MemberCounts{1: 1, 2: 0, 3: 0, 4: 0})

	_, err = svc.Settlements(ctx, 2, refid, defaultPage())
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	rows, err := svc.Settlements(ctx, 1, refid, defaultPage())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, models.MemberCounts{1: 1, 2: 0, 3: 0, 4: 0}, rows[0].Acquisition)
}

func TestSettlements_DeactivatedReflinkKeepsHistory(t *testing.T) {
	svc, settlements, reflinks := newTestSettlementService(t)
	ctx := context.Background()

	refid, err := reflinks.Create(ctx, 1, "retired link")
	require.NoError(t, err)
	settlements.owners[refid] = 1
	settlements.add(100, refid, 2026, 7, "1", models.NewMemberCounts())

	require.NoError(t, reflinks.SoftDelete(ctx, refid))

	rows, err := svc.Settlements(ctx, 1, refid, defaultPage())
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestSettlement_ScopedToReflink(t *testing.T) {
	svc, settlements, reflinks := newTestSettlementService(t)
	ctx := context.Background()

	refA, err := reflinks.Create(ctx, 1, "link a")
	require.NoError(t, err)
	refB, err := reflinks.Create(ctx, 1, "link b")
	require.NoError(t, err)
	settlements.owners[refA] = 1
	settlements.owners[refB] = 1
	settlements.add(100, refA, 2026, 7, "1", models.NewMemberCounts())

	// The row exists but belongs to another reflink
	_, err = svc.Settlement(ctx, 1, refB, 100)
	require.True(t, apperr.IsNotFound(err))

	row, err := svc.Settlement(ctx, 1, refA, 100)
	require.NoError(t, err)
	require.Equal(t, int64(100), row.Afseid)
}

func TestSettlement_InvalidAfseid(t *testing.T) {
	svc, _, _ := newTestSettlementService(t)

	_, err := svc.Settlement(context.Background(), 1, 1, 0)
	require.True(t, apperr.IsValidation(err))
}
