// Package ownership implements the single predicate that stands between a
// worker's claimed identity and a mutation of a datum it does not hold:
// pod_name is the only proof of ownership the coordination core trusts.
package ownership

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"falconeri/internal/falconeri/apperror"
	"falconeri/internal/falconeri/models"
	"falconeri/internal/falconeri/store"
)

// VerifyOwner locks the datum row within tx and checks that its pod_name
// matches claimedPodName exactly. A nil pod_name never matches any claim.
// Callers must hold the lock for the remainder of the transaction before
// mutating the datum, so the check and the mutation it guards are
// atomic.
func VerifyOwner(ctx context.Context, datums store.DatumStore, tx store.DBTransaction, datumID uuid.UUID, claimedPodName string) (*models.Datum, error) {
	datum, err := datums.LockDatumForUpdate(ctx, tx, datumID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("datum %s not found", datumID)
		}
		return nil, apperror.Transient(err, "could not lock datum %s", datumID)
	}

	if datum.PodName == nil || *datum.PodName != claimedPodName {
		slog.Error("pod ownership mismatch, possible zombie worker",
			"datum", datumID,
			"claimed_pod_name", claimedPodName,
			"actual_pod_name", datum.PodName,
		)
		return nil, apperror.OwnershipMismatch(datumID.String(), claimedPodName, datum.PodName)
	}

	return datum, nil
}
