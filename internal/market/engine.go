package market

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/repository"
)

// Decision is the owner's resolution of a pending bid.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Engine owns the listing/bid/meeting state machines. All multi-entity
// consistency lives here: handlers validate transport concerns only and
// delegate every transition to the engine.
type Engine struct {
	profiles repository.ProfileRepo
	listings repository.ListingRepo
	bids     repository.BidRepo
	meetings repository.MeetingRepo
	escrow   Escrow
	logger   *slog.Logger
}

func NewEngine(profiles repository.ProfileRepo, listings repository.ListingRepo, bids repository.BidRepo, meetings repository.MeetingRepo, escrow Escrow, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if escrow == nil {
		escrow = &NopEscrow{Logger: logger}
	}
	return &Engine{
		profiles: profiles,
		listings: listings,
		bids:     bids,
		meetings: meetings,
		escrow:   escrow,
		logger:   logger,
	}
}

// ListingInput carries the owner-editable listing fields.
type ListingInput struct {
	Type        string
	Title       string
	Description string
	Price       int
	Tags        []string
}

// CreateListing publishes a Signal's listing. An owner may hold at most one
// non-deleted listing at a time.
func (e *Engine) CreateListing(ctx context.Context, owner *models.Profile, in ListingInput) (*models.Listing, error) {
	if owner == nil || owner.Role != models.RoleSignal {
		return nil, fmt.Errorf("create listing: %w", ErrUnauthorized)
	}
	if in.Type != models.ListingTypeAccess && in.Type != models.ListingTypePitch {
		return nil, fmt.Errorf("create listing: unknown type %q", in.Type)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("create listing: title is required")
	}
	if in.Price < models.MinListingPrice {
		return nil, fmt.Errorf("create listing: price %d below floor %d: %w", in.Price, models.MinListingPrice, ErrInvalidAmount)
	}

	existing, err := e.listings.GetActiveListingByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing listing: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("owner %s: %w", owner.ID, ErrListingExists)
	}

	l := &models.Listing{
		ID:          uuid.NewString(),
		UserID:      owner.ID,
		Type:        in.Type,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Price:       in.Price,
		Tags:        in.Tags,
		Status:      models.ListingActive,
	}
	if err := e.listings.CreateListing(ctx, l); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	e.logger.Info("listing created", "listing_id", l.ID, "owner_id", owner.ID, "price", l.Price)
	return l, nil
}

// UpdateListing edits price/tags/description/title. Owner only. Price changes
// never invalidate bids already placed against the old price.
func (e *Engine) UpdateListing(ctx context.Context, actorID, listingID string, in ListingInput) (*models.Listing, error) {
	l, err := e.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if l == nil {
		return nil, fmt.Errorf("listing %s: %w", listingID, repository.ErrNotFound)
	}
	if l.UserID != actorID {
		return nil, fmt.Errorf("update listing: %w", ErrUnauthorized)
	}
	if l.Status == models.ListingDeleted {
		return nil, fmt.Errorf("update deleted listing: %w", ErrInvalidTransition)
	}
	if in.Price < models.MinListingPrice {
		return nil, fmt.Errorf("update listing: price %d below floor %d: %w", in.Price, models.MinListingPrice, ErrInvalidAmount)
	}

	if strings.TrimSpace(in.Title) != "" {
		l.Title = strings.TrimSpace(in.Title)
	}
	l.Description = in.Description
	l.Price = in.Price
	l.Tags = in.Tags
	if err := e.listings.UpdateListing(ctx, l); err != nil {
		return nil, fmt.Errorf("update listing: %w", err)
	}

	return l, nil
}

// SetListingStatus drives the listing state machine: active<->paused by the
// owner, and active|paused->deleted (soft). Deleted is terminal.
func (e *Engine) SetListingStatus(ctx context.Context, actorID, listingID, toStatus string) (*models.Listing, error) {
	l, err := e.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if l == nil {
		return nil, fmt.Errorf("listing %s: %w", listingID, repository.ErrNotFound)
	}
	if l.UserID != actorID {
		return nil, fmt.Errorf("set listing status: %w", ErrUnauthorized)
	}

	if !legalListingTransition(l.Status, toStatus) {
		return nil, fmt.Errorf("listing %s -> %s: %w", l.Status, toStatus, ErrInvalidTransition)
	}

	if err := e.listings.SetListingStatus(ctx, listingID, l.Status, toStatus); err != nil {
		return nil, fmt.Errorf("set listing status: %w", err)
	}

	l.Status = toStatus
	return l, nil
}

func legalListingTransition(from, to string) bool {
	switch from {
	case models.ListingActive:
		return to == models.ListingPaused || to == models.ListingDeleted
	case models.ListingPaused:
		return to == models.ListingActive || to == models.ListingDeleted
	default:
		return false
	}
}

// PlaceBid stakes a Hunter's request against an active listing. The amount
// floor is the listing price at bid-creation time.
func (e *Engine) PlaceBid(ctx context.Context, bidder *models.Profile, listingID string, amount int, message, preferredTime string) (*models.Bid, error) {
	if bidder == nil || bidder.Role != models.RoleHunter {
		return nil, fmt.Errorf("place bid: %w", ErrUnauthorized)
	}

	l, err := e.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if l == nil {
		return nil, fmt.Errorf("listing %s: %w", listingID, repository.ErrNotFound)
	}
	if l.Status != models.ListingActive {
		return nil, fmt.Errorf("listing %s is %s: %w", listingID, l.Status, ErrListingUnavailable)
	}
	if amount < l.Price {
		return nil, fmt.Errorf("amount %d below listing price %d: %w", amount, l.Price, ErrInvalidAmount)
	}

	b := &models.Bid{
		ID:            uuid.NewString(),
		ListingID:     l.ID,
		BidderID:      bidder.ID,
		OwnerID:       l.UserID,
		Amount:        amount,
		Message:       message,
		PreferredTime: preferredTime,
		Status:        models.BidPending,
	}
	if err := e.bids.CreateBid(ctx, b); err != nil {
		return nil, fmt.Errorf("create bid: %w", err)
	}

	if err := e.escrow.Capture(ctx, b); err != nil {
		e.logger.Error("escrow capture failed", "bid_id", b.ID, "err", err)
	}

	e.logger.Info("bid placed", "bid_id", b.ID, "listing_id", l.ID, "amount", amount)
	return b, nil
}

// RespondToBid resolves a pending bid exactly once. Accepting creates the
// meeting atomically with the status change; rejecting creates nothing. A
// second call on the same bid fails with ErrInvalidTransition, or with
// ErrConditionFailed when it loses the race against a concurrent resolver.
func (e *Engine) RespondToBid(ctx context.Context, actorID, bidID string, decision Decision) (*models.Bid, *models.Meeting, error) {
	b, err := e.bids.GetBid(ctx, bidID)
	if err != nil {
		return nil, nil, fmt.Errorf("get bid: %w", err)
	}
	if b == nil {
		return nil, nil, fmt.Errorf("bid %s: %w", bidID, repository.ErrNotFound)
	}
	if b.OwnerID != actorID {
		return nil, nil, fmt.Errorf("respond to bid: %w", ErrUnauthorized)
	}
	if b.Status != models.BidPending {
		return nil, nil, fmt.Errorf("bid is %s: %w", b.Status, ErrInvalidTransition)
	}

	switch decision {
	case DecisionAccept:
		m := &models.Meeting{
			ID:      uuid.NewString(),
			BidID:   b.ID,
			HostID:  b.OwnerID,
			GuestID: b.BidderID,
			Status:  models.MeetingPending,
		}
		if err := e.bids.AcceptBid(ctx, b.ID, m); err != nil {
			return nil, nil, fmt.Errorf("accept bid: %w", err)
		}
		b.Status = models.BidAccepted

		if err := e.escrow.Release(ctx, b); err != nil {
			e.logger.Error("escrow release failed", "bid_id", b.ID, "err", err)
		}

		e.logger.Info("bid accepted", "bid_id", b.ID, "meeting_id", m.ID)
		return b, m, nil

	case DecisionReject:
		if err := e.bids.RejectBid(ctx, b.ID); err != nil {
			return nil, nil, fmt.Errorf("reject bid: %w", err)
		}
		b.Status = models.BidRejected

		if err := e.escrow.Refund(ctx, b); err != nil {
			e.logger.Error("escrow refund failed", "bid_id", b.ID, "err", err)
		}

		e.logger.Info("bid rejected", "bid_id", b.ID)
		return b, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown decision %q: %w", decision, ErrInvalidTransition)
	}
}

// ScheduleMeeting moves a meeting pending->scheduled, recording the time and
// link. Host only.
func (e *Engine) ScheduleMeeting(ctx context.Context, actorID, meetingID string, scheduledAt int64, meetingLink string) (*models.Meeting, error) {
	m, err := e.hostMeeting(ctx, actorID, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MeetingPending {
		return nil, fmt.Errorf("meeting is %s: %w", m.Status, ErrInvalidTransition)
	}

	if err := e.meetings.SetMeetingStatus(ctx, meetingID, models.MeetingPending, models.MeetingScheduled, &scheduledAt, &meetingLink); err != nil {
		return nil, fmt.Errorf("schedule meeting: %w", err)
	}

	m.Status = models.MeetingScheduled
	m.ScheduledAt = &scheduledAt
	m.MeetingLink = &meetingLink
	return m, nil
}

// CompleteMeeting moves a meeting scheduled->completed. Host only.
func (e *Engine) CompleteMeeting(ctx context.Context, actorID, meetingID string) (*models.Meeting, error) {
	m, err := e.hostMeeting(ctx, actorID, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MeetingScheduled {
		return nil, fmt.Errorf("meeting is %s: %w", m.Status, ErrInvalidTransition)
	}

	if err := e.meetings.SetMeetingStatus(ctx, meetingID, models.MeetingScheduled, models.MeetingCompleted, nil, nil); err != nil {
		return nil, fmt.Errorf("complete meeting: %w", err)
	}

	m.Status = models.MeetingCompleted
	return m, nil
}

// CancelMeeting moves a meeting pending|scheduled->cancelled. Host only.
func (e *Engine) CancelMeeting(ctx context.Context, actorID, meetingID string) (*models.Meeting, error) {
	m, err := e.hostMeeting(ctx, actorID, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MeetingPending && m.Status != models.MeetingScheduled {
		return nil, fmt.Errorf("meeting is %s: %w", m.Status, ErrInvalidTransition)
	}

	if err := e.meetings.SetMeetingStatus(ctx, meetingID, m.Status, models.MeetingCancelled, nil, nil); err != nil {
		return nil, fmt.Errorf("cancel meeting: %w", err)
	}

	m.Status = models.MeetingCancelled
	return m, nil
}

func (e *Engine) hostMeeting(ctx context.Context, actorID, meetingID string) (*models.Meeting, error) {
	m, err := e.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, repository.ErrNotFound)
	}
	if m.HostID != actorID {
		return nil, fmt.Errorf("mutate meeting: %w", ErrUnauthorized)
	}
	return m, nil
}
