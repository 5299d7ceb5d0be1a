package repository

import (
	"context"

	"github.com/finvault/affiliate/common/apperr"
	"github.com/finvault/affiliate/common/db"
	"github.com/finvault/affiliate/common/models"
)

// AffiliationRepository handles database operations for affiliation edges
type AffiliationRepository struct {
	db *db.DB
}

// NewAffiliationRepository creates a new affiliation repository
func NewAffiliationRepository(database *db.DB) *AffiliationRepository {
	return &AffiliationRepository{db: database}
}

// ActiveMemberships returns a user's edges up to maxLevel whose owning
// reflink is currently active. These are the pyramids a signup referred by
// that user is propagated into.
func (r *AffiliationRepository) ActiveMemberships(ctx context.Context, uid int64, maxLevel int16) ([]models.Affiliation, error) {
	query := `
		SELECT affiliations.refid, affiliations.slave_uid, affiliations.slave_level
		FROM affiliations
		JOIN reflinks ON reflinks.refid = affiliations.refid
		WHERE affiliations.slave_uid = $1
		AND affiliations.slave_level <= $2
		AND reflinks.active = TRUE
	`

	rows, err := r.db.Query(ctx, query, uid, maxLevel)
	if err != nil {
		return nil, apperr.Transient("query memberships", err)
	}
	defer rows.Close()

	var memberships []models.Affiliation
	for rows.Next() {
		var edge models.Affiliation
		if err := rows.Scan(&edge.Refid, &edge.SlaveUID, &edge.SlaveLevel); err != nil {
			return nil, apperr.Transient("scan membership", err)
		}
		memberships = append(memberships, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("iterate memberships", err)
	}

	return memberships, nil
}

// InsertEdges inserts all edges in a single transaction and returns the
// ones actually written. An edge whose (refid, slave_uid) pair already
// exists is skipped via ON CONFLICT DO NOTHING, which makes duplicate
// signup-event delivery a conflict-free no-op instead of an error.
func (r *AffiliationRepository) InsertEdges(ctx context.Context, edges []models.Affiliation) ([]models.Affiliation, error) {
	if len(edges) == 0 {
		return nil, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, apperr.Transient("begin insert edges", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO affiliations(refid, slave_uid, slave_level)
		VALUES ($1, $2, $3)
		ON CONFLICT (refid, slave_uid) DO NOTHING
		RETURNING refid, slave_uid, slave_level
	`

	var inserted []models.Affiliation
	for _, edge := range edges {
		rows, err := tx.Query(ctx, insert, edge.Refid, edge.SlaveUID, edge.SlaveLevel)
		if err != nil {
			return nil, apperr.Transient("insert edge", err)
		}

		for rows.Next() {
			var written models.Affiliation
			if err := rows.Scan(&written.Refid, &written.SlaveUID, &written.SlaveLevel); err != nil {
				rows.Close()
				return nil, apperr.Transient("scan inserted edge", err)
			}
			inserted = append(inserted, written)
		}
		rows.Close()

		if err := rows.Err(); err != nil {
			return nil, apperr.Transient("iterate inserted edges", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Transient("commit insert edges", err)
	}

	return inserted, nil
}

// CountMembers returns per-level member counts for a reflink. Every level
// up to MaxLevel is present, absent ones as zero.
func (r *AffiliationRepository) CountMembers(ctx context.Context, refid int64) (models.MemberCounts, error) {
	query := `
		SELECT slave_level, COUNT(slave_uid)
		FROM affiliations
		WHERE refid = $1
		GROUP BY slave_level
	`

	rows, err := r.db.Query(ctx, query, refid)
	if err != nil {
		return nil, apperr.Transient("count members", err)
	}
	defer rows.Close()

	counts := models.NewMemberCounts()
	for rows.Next() {
		var level int16
		var count int64
		if err := rows.Scan(&level, &count); err != nil {
			return nil, apperr.Transient("scan member count", err)
		}
		counts[level] = count
	}

	if err := rows.Err(); err != nil {
		return nil, apperr.Transient("iterate member counts", err)
	}

	return counts, nil
}
