package repository

import (
	"context"
	"errors"

	"github.com/signalhunt/market/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

// Store-level sentinels. Implementations must return these (possibly wrapped)
// so callers can classify failures with errors.Is.
var (
	// ErrNotFound means the referenced entity id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConditionFailed means a conditional update matched no row: another
	// actor already moved the entity out of the expected state. Callers must
	// treat this as "already resolved", never as a transient fault to retry.
	ErrConditionFailed = errors.New("condition failed")
	// ErrConstraintViolation covers uniqueness and foreign-key failures.
	ErrConstraintViolation = errors.New("constraint violation")
)

type ProfileRepo interface {
	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	// UpdateProfile persists mutable fields only. Role is immutable after
	// creation and is never written by this method.
	UpdateProfile(ctx context.Context, p *models.Profile) error
}

type ListingRepo interface {
	CreateListing(ctx context.Context, l *models.Listing) error
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	// GetActiveListingByOwner returns the owner's single non-deleted listing,
	// or nil when none exists.
	GetActiveListingByOwner(ctx context.Context, ownerID string) (*models.Listing, error)
	ListListings(ctx context.Context, status string, limit, offset int) ([]models.Listing, error)
	UpdateListing(ctx context.Context, l *models.Listing) error
	// SetListingStatus moves the listing from one status to another using a
	// conditional update; returns ErrConditionFailed when the listing was not
	// in fromStatus.
	SetListingStatus(ctx context.Context, id, fromStatus, toStatus string) error
}

type BidRepo interface {
	CreateBid(ctx context.Context, b *models.Bid) error
	GetBid(ctx context.Context, id string) (*models.Bid, error)
	ListBidsByOwner(ctx context.Context, ownerID, status string, limit, offset int) ([]models.Bid, error)
	ListBidsByBidder(ctx context.Context, bidderID string, limit, offset int) ([]models.Bid, error)
	// AcceptBid atomically moves the bid pending->accepted and inserts the
	// meeting in one transaction. The status change is a compare-and-swap on
	// status=pending; a lost race returns ErrConditionFailed and the meeting
	// insert rolls back with it.
	AcceptBid(ctx context.Context, bidID string, m *models.Meeting) error
	// RejectBid moves the bid pending->rejected via the same compare-and-swap.
	RejectBid(ctx context.Context, bidID string) error
	CountBidsByOwner(ctx context.Context, ownerID, status string) (int64, error)
	// SumAcceptedAmountByOwner sums accepted bid amounts created at or after
	// the given unix-ms timestamp.
	SumAcceptedAmountByOwner(ctx context.Context, ownerID string, since int64) (int64, error)
}

type MeetingRepo interface {
	GetMeeting(ctx context.Context, id string) (*models.Meeting, error)
	GetMeetingByBid(ctx context.Context, bidID string) (*models.Meeting, error)
	ListMeetingsByHost(ctx context.Context, hostID string, limit, offset int) ([]models.Meeting, error)
	ListMeetingsByGuest(ctx context.Context, guestID string, limit, offset int) ([]models.Meeting, error)
	// SetMeetingStatus is a conditional status transition; scheduledAt and
	// meetingLink are written only when non-nil.
	SetMeetingStatus(ctx context.Context, id, fromStatus, toStatus string, scheduledAt *int64, meetingLink *string) error
	CountMeetingsByHost(ctx context.Context, hostID, status string) (int64, error)
}

type SchemaRepo interface {
	CreateSchema(ctx context.Context, version, description, schemaJSON string) (int64, error)
	GetSchemaByVersion(ctx context.Context, version string) (*models.Schema, error)
	ListSchemas(ctx context.Context) ([]models.Schema, error)
}

type TemplateRepo interface {
	GetTemplate(ctx context.Context, name, version string) (*models.Template, error)
}
