package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/finvault/affiliate/common/apperr"
	"github.com/finvault/affiliate/common/db"
	"github.com/finvault/affiliate/common/models"
	"github.com/finvault/affiliate/common/pagination"
)

// ReflinkRepository handles database operations for reflinks
type ReflinkRepository struct {
	db *db.DB
}

// NewReflinkRepository creates a new reflink repository
func NewReflinkRepository(database *db.DB) *ReflinkRepository {
	return &ReflinkRepository{db: database}
}

// Create inserts a new reflink for ownerUID and returns its refid.
// The uniqueness probe and the insert run in one transaction with the
// probed rows locked, so two concurrent creates with the same
// (owner, description) cannot both pass the check.
func (r *ReflinkRepository) Create(ctx context.Context, ownerUID int64, description string) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, apperr.Transient("begin create reflink", err)
	}
	defer tx.Rollback(ctx)

	probe := `
		SELECT 1
		FROM reflinks
		WHERE uid = $1
		AND description = $2
		AND active = TRUE
		FOR UPDATE
	`

	var one int
	err = tx.QueryRow(ctx, probe, ownerUID, description).Scan(&one)
	if err == nil {
		return 0, apperr.Conflict("reflink with this description already exists")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.Transient("probe reflink description", err)
	}

	insert := `
		INSERT INTO reflinks(uid, description)
		VALUES ($1, $2)
		RETURNING refid
	`

	var refid int64
	if err := tx.QueryRow(ctx, insert, ownerUID, description).Scan(&refid); err != nil {
		return 0, apperr.Transient("insert reflink", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, apperr.Transient("commit create reflink", err)
	}

	return refid, nil
}

// Edit changes the description of an active reflink. The target row is
// locked first, then same-owner rows with the new description (excluding
// the target), under the same transaction as the update.
func (r *ReflinkRepository) Edit(ctx context.Context, refid int64, description string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperr.Transient("begin edit reflink", err)
	}
	defer tx.Rollback(ctx)

	lock := `
		SELECT uid
		FROM reflinks
		WHERE refid = $1
		AND active = TRUE
		FOR UPDATE
	`

	var ownerUID int64
	err = tx.QueryRow(ctx, lock, refid).Scan(&ownerUID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("reflink %d not found", refid)
	}
	if err != nil {
		return apperr.Transient("lock reflink", err)
	}

	probe := `
		SELECT 1
		FROM reflinks
		WHERE uid = $1
		AND description = $2
		AND refid != $3
		AND active = TRUE
		FOR UPDATE
	`

	var one int
	err = tx.QueryRow(ctx, probe, ownerUID, description, refid).Scan(&one)
	if err == nil {
		return apperr.Conflict("reflink with this description already exists")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return apperr.Transient("probe reflink description", err)
	}

	update := `
		UPDATE reflinks
		SET description = $2
		WHERE refid = $1
	`

	if _, err := tx.Exec(ctx, update, refid, description); err != nil {
		return apperr.Transient("update reflink", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Transient("commit edit reflink", err)
	}

	return nil
}

// SoftDelete deactivates an active reflink. An already-inactive or unknown
// refid reports NotFound; the two cases are indistinguishable to callers.
func (r *ReflinkRepository) SoftDelete(ctx context.Context, refid int64) error {
	query := `
		UPDATE reflinks
		SET active = FALSE
		WHERE refid = $1
		AND active = TRUE
		RETURNING 1
	`

	var one int
	err := r.db.QueryRow(ctx, query, refid).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("reflink %d not found", refid)
	}
	if err != nil {
		return apperr.Transient("soft delete reflink", err)
	}

	return nil
}

// Get retrieves a reflink by id, active or not. The affiliate graph needs
// deactivated reflinks too, so no active filter here.
func (r *ReflinkRepository) Get(ctx context.Context, refid int64) (*models.Reflink, error) {
	query := `
		SELECT refid, uid, description, active
		FROM reflinks
		WHERE refid = $1
	`

	reflink := &models.Reflink{}
	err := r.db.QueryRow(ctx, query, refid).Scan(
		&reflink.Refid,
		&reflink.OwnerUID,
		&reflink.Description,
		&reflink.Active,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("reflink %d not found", refid)
	}
	if err != nil {
		return nil, apperr.Transient("get reflink", err)
	}

	return reflink, nil
}

// List retrieves reflinks matching the filter, ascending by refid
func (r *ReflinkRepository) List(ctx context.Context, filter models.ReflinkFilter, page *pagination.Offset) ([]models.Reflink, error) {
	query := `
		SELECT refid, uid, description, active
		FROM reflinks
		WHERE 1=1
	`
	args := []any{}

	if filter.OwnerUID != nil {
		args = append(args, *filter.OwnerUID)
		query += fmt.Sprintf(" AND uid = $%d", len(args))
	}

	if filter.Active != nil {
		args = append(args, *filter.Active)
		query += fmt.Sprintf(" AND active = $%d", len(args))
	}

	query += " ORDER BY refid ASC" + page.SQL()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient("list reflinks", err)
	}
	defer rows.Close()

	var reflinks []models.Reflink
	for rows.Next() {
		var reflink models.Reflink
		err := rows.Scan(
			&reflink.Refid,
			&reflink.OwnerUID,
			&reflink.Description,
			&reflink.Active,
		)
		if err != nil {
			return nil, apperr.Transient("scan reflink", err)
		}
		reflinks = append(reflinks, reflink)
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("iterate reflinks", err)
	}

	return reflinks[:page.TrimCount(len(reflinks))], nil
}
