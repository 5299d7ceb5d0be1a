package registrar

import (
	"context"

	"github.com/finvault/affiliate/common/apperr"
	"github.com/finvault/affiliate/common/logger"
	"github.com/finvault/affiliate/common/models"
)

// ReflinkStore resolves reflinks, active or deactivated
type ReflinkStore interface {
	Get(ctx context.Context, refid int64) (*models.Reflink, error)
}

// AffiliationStore reads and extends the affiliate graph
type AffiliationStore interface {
	ActiveMemberships(ctx context.Context, uid int64, maxLevel int16) ([]models.Affiliation, error)
	InsertEdges(ctx context.Context, edges []models.Affiliation) ([]models.Affiliation, error)
}

// Registrar turns one signup event into affiliation edges.
//
// A signup through reflink R makes the new user a level-1 member of R's
// pyramid, and a level-(n+1) member of every pyramid R's owner sits in at
// level n, up to the depth cap. The direct edge requires R to still be
// active; propagation through the owner's own memberships does not depend
// on R, only on the owning reflinks of those memberships.
type Registrar struct {
	reflinks     ReflinkStore
	affiliations AffiliationStore
	log          *logger.Logger
}

// New creates a registrar over the given stores
func New(reflinks ReflinkStore, affiliations AffiliationStore, log *logger.Logger) *Registrar {
	return &Registrar{
		reflinks:     reflinks,
		affiliations: affiliations,
		log:          log,
	}
}

// Register processes one signup event. A nil return means the event is
// finished with (registered, duplicate, or unusable) and may be acked; an
// error means storage failed and the event must be redelivered.
func (r *Registrar) Register(ctx context.Context, event models.SignupEvent) error {
	log := r.log.WithUID(event.UID).WithRefid(event.Refid)

	if event.UID < 1 || event.Refid < 1 {
		log.Warn("malformed signup event, discarding")
		return nil
	}

	reflink, err := r.reflinks.Get(ctx, event.Refid)
	if apperr.IsNotFound(err) {
		log.Warn("signup references unknown reflink, discarding")
		return nil
	}
	if err != nil {
		return err
	}

	// All candidate edges are collected first and applied in one atomic
	// insert, so a half-registered signup cannot be observed.
	var edges []models.Affiliation

	if reflink.Active {
		edges = append(edges, models.Affiliation{
			Refid:      event.Refid,
			SlaveUID:   event.UID,
			SlaveLevel: 1,
		})
	} else {
		log.Info("signup via deactivated reflink, no direct edge")
	}

	memberships, err := r.affiliations.ActiveMemberships(ctx, reflink.OwnerUID, models.MaxLevel-1)
	if err != nil {
		return err
	}

	for _, membership := range memberships {
		edges = append(edges, models.Affiliation{
			Refid:      membership.Refid,
			SlaveUID:   event.UID,
			SlaveLevel: membership.SlaveLevel + 1,
		})
	}

	if len(edges) == 0 {
		log.Info("signup produced no edges")
		return nil
	}

	inserted, err := r.affiliations.InsertEdges(ctx, edges)
	if err != nil {
		return err
	}

	log.Info("registered signup",
		"candidate_edges", len(edges),
		"inserted_edges", len(inserted))

	return nil
}
