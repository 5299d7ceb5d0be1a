package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/finvault/affiliate/common/apperr"
	"github.com/finvault/affiliate/common/db"
	"github.com/finvault/affiliate/common/models"
	"github.com/finvault/affiliate/common/pagination"
)

// SettlementRepository reads the monthly settlement rollups produced by
// the external settlement job. Strictly read-only.
type SettlementRepository struct {
	db *db.DB
}

// NewSettlementRepository creates a new settlement repository
func NewSettlementRepository(database *db.DB) *SettlementRepository {
	return &SettlementRepository{db: database}
}

// AggByOwner returns per-month totals across all of an owner's reflinks,
// newest month first
func (r *SettlementRepository) AggByOwner(ctx context.Context, ownerUID int64, page *pagination.Offset) ([]models.AggSettlement, error) {
	query := `
		SELECT EXTRACT(MONTH FROM affiliate_settlements.month)::int,
		       EXTRACT(YEAR FROM affiliate_settlements.month)::int,
		       affiliate_settlements.month,
		       SUM(affiliate_settlements.mastercoin_equiv)::text
		FROM affiliate_settlements
		JOIN reflinks ON reflinks.refid = affiliate_settlements.refid
		WHERE reflinks.uid = $1
		GROUP BY affiliate_settlements.month
		ORDER BY affiliate_settlements.month DESC
	` + page.SQL()

	rows, err := r.db.Query(ctx, query, ownerUID)
	if err != nil {
		return nil, apperr.Transient("query agg settlements", err)
	}
	defer rows.Close()

	var settlements []models.AggSettlement
	for rows.Next() {
		agg, err := scanAggSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, agg)
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("iterate agg settlements", err)
	}

	return settlements[:page.TrimCount(len(settlements))], nil
}

// AggByOwnerMonth returns one month's total across all of an owner's
// reflinks, or NotFound when the owner has no settlement that month
func (r *SettlementRepository) AggByOwnerMonth(ctx context.Context, ownerUID int64, year, month int) (*models.AggSettlement, error) {
	query := `
		SELECT EXTRACT(MONTH FROM affiliate_settlements.month)::int,
		       EXTRACT(YEAR FROM affiliate_settlements.month)::int,
		       affiliate_settlements.month,
		       SUM(affiliate_settlements.mastercoin_equiv)::text
		FROM affiliate_settlements
		JOIN reflinks ON reflinks.refid = affiliate_settlements.refid
		WHERE reflinks.uid = $1
		AND EXTRACT(MONTH FROM affiliate_settlements.month) = $2
		AND EXTRACT(YEAR FROM affiliate_settlements.month) = $3
		GROUP BY affiliate_settlements.month
	`

	agg, err := scanAggSettlement(r.db.QueryRow(ctx, query, ownerUID, month, year))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("no settlement for %d/%d", month, year)
	}
	if err != nil {
		return nil, err
	}

	return &agg, nil
}

// List returns settlement rows for one reflink or one owner, newest first
func (r *SettlementRepository) List(ctx context.Context, filter models.SettlementFilter, page *pagination.Offset) ([]models.Settlement, error) {
	query := `
		SELECT affiliate_settlements.afseid,
		       affiliate_settlements.refid,
		       EXTRACT(MONTH FROM affiliate_settlements.month)::int,
		       EXTRACT(YEAR FROM affiliate_settlements.month)::int,
		       affiliate_settlements.month,
		       affiliate_settlements.mastercoin_equiv::text
		FROM affiliate_settlements
	`
	args := []any{}

	if filter.Refid != nil {
		args = append(args, *filter.Refid)
		query += fmt.Sprintf(" WHERE affiliate_settlements.refid = $%d", len(args))
	} else if filter.OwnerUID != nil {
		args = append(args, *filter.OwnerUID)
		query += fmt.Sprintf(`
			JOIN reflinks ON reflinks.refid = affiliate_settlements.refid
			WHERE reflinks.uid = $%d`, len(args))
		if filter.Active != nil {
			args = append(args, *filter.Active)
			query += fmt.Sprintf(" AND reflinks.active = $%d", len(args))
		}
	}

	query += " ORDER BY affiliate_settlements.afseid DESC" + page.SQL()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient("query settlements", err)
	}
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, settlement)
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("iterate settlements", err)
	}

	return settlements[:page.TrimCount(len(settlements))], nil
}

// Get returns one settlement row, optionally scoped to an owner and the
// reflink's active flag
func (r *SettlementRepository) Get(ctx context.Context, afseid int64, filter models.SettlementFilter) (*models.Settlement, error) {
	query := `
		SELECT affiliate_settlements.afseid,
		       affiliate_settlements.refid,
		       EXTRACT(MONTH FROM affiliate_settlements.month)::int,
		       EXTRACT(YEAR FROM affiliate_settlements.month)::int,
		       affiliate_settlements.month,
		       affiliate_settlements.mastercoin_equiv::text
		FROM affiliate_settlements
	`
	args := []any{afseid}

	if filter.OwnerUID != nil || filter.Active != nil {
		query += " JOIN reflinks ON reflinks.refid = affiliate_settlements.refid"
	}
	query += " WHERE affiliate_settlements.afseid = $1"

	if filter.Refid != nil {
		args = append(args, *filter.Refid)
		query += fmt.Sprintf(" AND affiliate_settlements.refid = $%d", len(args))
	}

	if filter.OwnerUID != nil {
		args = append(args, *filter.OwnerUID)
		query += fmt.Sprintf(" AND reflinks.uid = $%d", len(args))
	}

	if filter.Active != nil {
		args = append(args, *filter.Active)
		query += fmt.Sprintf(" AND reflinks.active = $%d", len(args))
	}

	settlement, err := scanSettlement(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("settlement %d not found", afseid)
	}
	if err != nil {
		return nil, err
	}

	return &settlement, nil
}

// Acquisition returns the per-level membership counts snapshotted for one
// settlement
func (r *SettlementRepository) Acquisition(ctx context.Context, afseid int64) (models.MemberCounts, error) {
	query := `
		SELECT slave_level, slaves_count
		FROM affiliate_slaves_snap
		WHERE afseid = $1
		ORDER BY slave_level ASC
	`

	return r.scanAcquisition(ctx, query, afseid)
}

// AggAcquisition returns the per-level counts summed across all of an
// owner's settlements for one month
func (r *SettlementRepository) AggAcquisition(ctx context.Context, ownerUID int64, month time.Time) (models.MemberCounts, error) {
	query := `
		SELECT affiliate_slaves_snap.slave_level,
		       SUM(affiliate_slaves_snap.slaves_count)
		FROM affiliate_slaves_snap
		JOIN affiliate_settlements ON affiliate_settlements.afseid = affiliate_slaves_snap.afseid
		JOIN reflinks ON reflinks.refid = affiliate_settlements.refid
		WHERE affiliate_settlements.month = $2
		AND reflinks.uid = $1
		GROUP BY affiliate_slaves_snap.slave_level
		ORDER BY affiliate_slaves_snap.slave_level ASC
	`

	return r.scanAcquisition(ctx, query, ownerUID, month)
}

func (r *SettlementRepository) scanAcquisition(ctx context.Context, query string, args ...any) (models.MemberCounts, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient("query acquisition", err)
	}
	defer rows.Close()

	counts := models.NewMemberCounts()
	for rows.Next() {
		var level int16
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			return nil, apperr.Transient("scan acquisition", err)
		}
		counts[level] = count
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("iterate acquisition", err)
	}

	return counts, nil
}

func scanAggSettlement(row pgx.Row) (models.AggSettlement, error) {
	var agg models.AggSettlement
	var equiv string

	err := row.Scan(&agg.Month, &agg.Year, &agg.MonthDate, &equiv)
	if errors.Is(err, pgx.ErrNoRows) {
		return agg, err
	}
	if err != nil {
		return agg, apperr.Transient("scan agg settlement", err)
	}

	agg.RefCoinEquiv, err = decimal.NewFromString(equiv)
	if err != nil {
		return agg, apperr.Transient("parse settlement amount", err)
	}

	return agg, nil
}

func scanSettlement(row pgx.Row) (models.Settlement, error) {
	var settlement models.Settlement
	var equiv string

	err := row.Scan(
		&settlement.Afseid,
		&settlement.Refid,
		&settlement.Month,
		&settlement.Year,
		&settlement.MonthDate,
		&equiv,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return settlement, err
	}
	if err != nil {
		return settlement, apperr.Transient("scan settlement", err)
	}

	settlement.RefCoinEquiv, err = decimal.NewFromString(equiv)
	if err != nil {
		return settlement, apperr.Transient("parse settlement amount", err)
	}

	return settlement, nil
}
