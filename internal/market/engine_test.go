package market_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/signalhunt/market/internal/market"
	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/repository"
	"github.com/signalhunt/market/pkg/repository/mock"
)

func newTestEngine(t *testing.T) (*market.Engine, *mock.Mocks) {
	t.Helper()
	m := mock.NewMocks()
	e := market.NewEngine(m.Profiles, m.Listings, m.Bids, m.Meetings, nil, nil)
	return e, m
}

func seedProfile(t *testing.T, m *mock.Mocks, id, role string) *models.Profile {
	t.Helper()
	p := &models.Profile{ID: id, Role: role, FullName: id, Email: id + "@example.com"}
	if err := m.Profiles.CreateProfile(context.Background(), p); err != nil {
		t.Fatalf("seed profile %s: %v", id, err)
	}
	return p
}

func seedListing(t *testing.T, e *market.Engine, owner *models.Profile, price int) *models.Listing {
	t.Helper()
	l, err := e.CreateListing(context.Background(), owner, market.ListingInput{
		Type:  models.ListingTypeAccess,
		Title: "Intro call",
		Price: price,
	})
	if err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return l
}

func TestCreateListing(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		role    string
		in      market.ListingInput
		wantErr error
	}{
		{
			name: "Valid",
			role: models.RoleSignal,
			in:   market.ListingInput{Type: models.ListingTypePitch, Title: "Pitch me", Price: 400},
		},
		{
			name:    "HunterCannotList",
			role:    models.RoleHunter,
			in:      market.ListingInput{Type: models.ListingTypeAccess, Title: "x", Price: 400},
			wantErr: market.ErrUnauthorized,
		},
		{
			name:    "PriceBelowFloor",
			role:    models.RoleSignal,
			in:      market.ListingInput{Type: models.ListingTypeAccess, Title: "x", Price: models.MinListingPrice - 1},
			wantErr: market.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, m := newTestEngine(t)
			owner := seedProfile(t, m, "owner-1", tt.role)

			l, err := e.CreateListing(ctx, owner, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got err %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if l.Status != models.ListingActive {
				t.Fatalf("new listing status = %s, want %s", l.Status, models.ListingActive)
			}
			if l.UserID != owner.ID {
				t.Fatalf("listing owner = %s, want %s", l.UserID, owner.ID)
			}
		})
	}
}

func TestCreateListingSecondActiveRejected(t *testing.T) {
	ctx := context.Background()
	e, m := newTestEngine(t)
	owner := seedProfile(t, m, "owner-1", models.RoleSignal)
	seedListing(t, e, owner, 300)

	_, err := e.CreateListing(ctx, owner, market.ListingInput{
		Type: models.ListingTypeAccess, Title: "another", Price: 300,
	})
	if !errors.Is(err, market.ErrListingExists) {
		t.Fatalf("got err %v, want ErrListingExists", err)
	}

	// Deleting the first listing frees the slot.
	l, _ := m.Listings.GetActiveListingByOwner(ctx, owner.ID)
	if _, err := e.SetListingStatus(ctx, owner.ID, l.ID, models.ListingDeleted); err != nil {
		t.Fatalf("delete listing: %v", err)
	}
	if _, err := e.CreateListing(ctx, owner, market.ListingInput{
		Type: models.ListingTypeAccess, Title: "another", Price: 300,
	}); err != nil {
		t.Fatalf("create after delete: %v", err)
	}
}

func TestListingStatusTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		from    string
		to      string
		wantErr error
	}{
		{name: "ActiveToPaused", from: models.ListingActive, to: models.ListingPaused},
		{name: "PausedToActive", from: models.ListingPaused, to: models.ListingActive},
		{name: "ActiveToDeleted", from: models.ListingActive, to: models.ListingDeleted},
		{name: "PausedToDeleted", from: models.ListingPaused, to: models.ListingDeleted},
		{name: "DeletedIsTerminal", from: models.ListingDeleted, to: models.ListingActive, wantErr: market.ErrInvalidTransition},
		{name: "ActiveToActive", from: models.ListingActive, to: models.ListingActive, wantErr: market.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, m := newTestEngine(t)
			owner := seedProfile(t, m, "owner-1", models.RoleSignal)
			l := seedListing(t, e, owner, 300)
			if tt.from != models.ListingActive {
				if err := m.Listings.SetListingStatus(ctx, l.ID, models.ListingActive, tt.from); err != nil {
					t.Fatalf("seed status: %v", err)
				}
			}

			_, err := e.SetListingStatus(ctx, owner.ID, l.ID, tt.to)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got err %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetListingStatusOwnerOnly(t *testing.T) {
	ctx := context.Background()
	e, m := newTestEngine(t)
	owner := seedProfile(t, m, "owner-1", models.RoleSignal)
	seedProfile(t, m, "other", models.RoleSignal)
	l := seedListing(t, e, owner, 300)

	_, err := e.SetListingStatus(ctx, "other", l.ID, models.ListingPaused)
	if !errors.Is(err, market.ErrUnauthorized) {
		t.Fatalf("got err %v, want ErrUnauthorized", err)
	}
}

func TestPlaceBid(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		bidderRole string
		listingSet func(ctx context.Context, m *mock.Mocks, l *models.Listing)
		amount     int
		wantErr    error
	}{
		{
			name:       "Valid",
			bidderRole: models.RoleHunter,
			amount:     300,
		},
		{
			name:       "AmountAboveFloor",
			bidderRole: models.RoleHunter,
			amount:     450,
		},
		{
			name:       "SignalCannotBid",
			bidderRole: models.RoleSignal,
			amount:     300,
			wantErr:    market.ErrUnauthorized,
		},
		{
			name:       "AmountBelowPrice",
			bidderRole: models.RoleHunter,
			amount:     299,
			wantErr:    market.ErrInvalidAmount,
		},
		{
			name:       "PausedListing",
			bidderRole: models.RoleHunter,
			amount:     300,
			listingSet: func(ctx context.Context, m *mock.Mocks, l *models.Listing) {
				m.Listings.SetListingStatus(ctx, l.ID, models.ListingActive, models.ListingPaused)
			},
			wantErr: market.ErrListingUnavailable,
		},
		{
			name:       "DeletedListing",
			bidderRole: models.RoleHunter,
			amount:     300,
			listingSet: func(ctx context.Context, m *mock.Mocks, l *models.Listing) {
				m.Listings.SetListingStatus(ctx, l.ID, models.ListingActive, models.ListingDeleted)
			},
			wantErr: market.ErrListingUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, m := newTestEngine(t)
			owner := seedProfile(t, m, "owner-1", models.RoleSignal)
			bidder := seedProfile(t, m, "bidder-1", tt.bidderRole)
			l := seedListing(t, e, owner, 300)
			if tt.listingSet != nil {
				tt.listingSet(ctx, m, l)
			}

			b, err := e.PlaceBid(ctx, bidder, l.ID, tt.amount, "hello", "tomorrow 10am")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got err %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if b.Status != models.BidPending {
				t.Fatalf("new bid status = %s, want %s", b.Status, models.BidPending)
			}
			if b.OwnerID != owner.ID || b.BidderID != bidder.ID {
				t.Fatalf("bid parties = %s/%s, want %s/%s", b.OwnerID, b.BidderID, owner.ID, bidder.ID)
			}
		})
	}
}

func TestPlaceBidMissingListing(t *testing.T) {
	e, m := newTestEngine(t)
	bidder := seedProfile(t, m, "bidder-1", models.RoleHunter)

	_, err := e.PlaceBid(context.Background(), bidder, "no-such-listing", 300, "", "")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("got err %v, want ErrNotFound", err)
	}
}

func TestRespondToBidAccept(t *testing.T) {
	ctx := context.Background()
	e, m := newTestEngine(t)
	owner := seedProfile(t, m, "owner-1", models.RoleSignal)
	bidder := seedProfile(t, m, "bidder-1", models.RoleHunter)
	l := seedListing(t, e, owner, 300)
	b, err := e.PlaceBid(ctx, bidder, l.ID, 350, "", "")
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}

	got, meeting, err := e.RespondToBid(ctx, owner.ID, b.ID, market.DecisionAccept)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != models.BidAccepted {
		t.Fatalf("bid status = %s, want %s", got.Status, models.BidAccepted)
	}
	if meeting == nil {
		t.Fatal("accept returned nil meeting")
	}
	if meeting.Status != models.MeetingPending {
		t.Fatalf("meeting status = %s, want %s", meeting.Status, models.MeetingPending)
	}
	if meeting.HostID != owner.ID || meeting.GuestID != bidder.ID {
		t.Fatalf("meeting parties = %s/%s, want %s/%s", meeting.HostID, meeting.GuestID, owner.ID, bidder.ID)
	}

	stored, err := m.Meetings.GetMeetingByBid(ctx, b.ID)
	if err != nil || stored == nil {
		t.Fatalf("meeting not persisted: %v", err)
	}
}

func TestRespondToBidReject(t *testing.T) {
	ctx := context.Background()
	e, m := newTestEngine(t)
	owner := seedProfile(t, m, "owner-1", models.RoleSignal)
	bidder := seedProfile(t, m, "bidder-1", models.RoleHunter)
	l := seedListing(t, e, owner, 300)
	b, _ := e.PlaceBid(ctx, bidder, l.ID, 350, "", "")

	got, meeting, err := e.RespondToBid(ctx, owner.ID, b.ID, market.DecisionReject)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != models.BidRejected {
		t.Fatalf("bid status = %s, want %s", got.Status, models.BidRejected)
	}
	if meeting != nil {
		t.Fatalf("reject created a meeting: %+v", meeting)
	}
	if m2, _ := m.Meetings.GetMeetingByBid(ctx, b.ID); m2 != nil {
		t.Fatalf("reject persisted a meeting: %+v", m2)
	}
}

func TestRespondToBidTerminalStates(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		first market.Decision
		then  market.Decision
	}{
		{name: "AcceptThenAccept", first: market.DecisionAccept, then: market.DecisionAccept},
		{name: "AcceptThenReject", first: market.DecisionAccept, then: market.DecisionReject},
		{name: "RejectThenAccept", first: market.DecisionReject, then: market.DecisionAccept},
		{name: "RejectThenReject", first: market.DecisionReject, then: market.DecisionReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, m := newTestEngine(t)
			owner := seedProfile(t, m, "owner-1", models.RoleSignal)
			bidder := seedProfile(t, m, "bidder-1", models.RoleHunter)
			l := seedListing(t, e, owner, 300)
			b, _ := e.PlaceBid(ctx, bidder, l.ID, 300, "", "")

			if _, _, err := e.RespondToBid(ctx, owner.ID, b.ID, tt.first); err != nil {
				t.Fatalf("first resolve: %v", err)
			}
			_, _, err := e.RespondToBid(ctx, owner.ID, b.ID, tt.then)
			if !errors.Is(err, market.ErrInvalidTransition) {
				t.Fatalf("second resolve err = %v, want ErrInvalidTransition", err)
			}
		})
	}
}

func TestRespondToBidAuthorization(t *testing.T) {
	ctx := context.Background()
	e, m := newTestEngine(t)
	owner := seedProfile(t, m, "owner-1", models.RoleSignal)
	bidder := seedProfile(t, m, "bidder-1", models.RoleHunter)
	stranger := seedProfile(t, m, "stranger", models.RoleSignal)
	l := seedListing(t, e, owner, 300)
	b, _ := e.PlaceBid(ctx, bidder, l.ID, 300, "", "")

	for _, actor := range []string{bidder.ID, stranger.ID} {
		if _, _, err := e.RespondToBid(ctx, actor, b.ID, market.DecisionAccept); !errors.Is(err, market.ErrUnauthorized) {
			t.Fatalf("actor %s: err = %v, want ErrUnauthorized", actor, err)
		}
	}

	// the failed attempts changed nothing
	got, _ := m.Bids.GetBid(ctx, b.ID)
	if got.Status != models.BidPending {
		t.Fatalf("bid status = %s, want %s", got.Status, models.BidPending)
	}
}

func TestRespondToBidUnknownDecision(t *testing.T) {
	ctx := context.Background()
	e, m := newTestEngine(t)
	owner := seedProfile(t, m, "owner-1", models.RoleSignal)
	bidder := seedProfile(t, m, "bidder-1", models.RoleHunter)
	l := seedListing(t, e, owner, 300)
	b, _ := e.PlaceBid(ctx, bidder, l.ID, 300, "", "")

	_, _, err := e.RespondToBid(ctx, owner.ID, b.ID, market.Decision("maybe"))
	if !errors.Is(err, market.ErrInvalidTransition) {
		t.Fatalf("got err %v, want ErrInvalidTransition", err)
	}
}

// A failed accept must leave the bid pending and create no meeting. The mock
// fails inside the same critical section the SQLite transaction covers.
func TestAcceptBidAtomicity(t *testing.T) {
	ctx := context.Background()
	e, m := newTestEngine(t)
	owner := seedProfile(t, m, "owner-1", models.RoleSignal)
	bidder := seedProfile(t, m, "bidder-1", models.RoleHunter)
	l := seedListing(t, e, owner, 300)
	b, _ := e.PlaceBid(ctx, bidder, l.ID, 300, "", "")

	m.Bids.AcceptErr = errors.New("disk full")
	if _, _, err := e.RespondToBid(ctx, owner.ID, b.ID, market.DecisionAccept); err == nil {
		t.Fatal("expected accept to fail")
	}

	got, _ := m.Bids.GetBid(ctx, b.ID)
	if got.Status != models.BidPending {
		t.Fatalf("bid status after failed accept = %s, want %s", got.Status, models.BidPending)
	}
	if mt, _ := m.Meetings.GetMeetingByBid(ctx, b.ID); mt != nil {
		t.Fatalf("failed accept persisted a meeting: %+v", mt)
	}

	// and the bid is still resolvable afterwards
	m.Bids.AcceptErr = nil
	if _, _, err := e.RespondToBid(ctx, owner.ID, b.ID, market.DecisionAccept); err != nil {
		t.Fatalf("retry accept: %v", err)
	}
}

// Concurrent resolvers race on the same pending bid: exactly one wins, the
// rest fail, and at most one meeting exists afterwards.
func TestRespondToBidConcurrent(t *testing.T) {
	ctx := context.Background()
	e, m := newTestEngine(t)
	owner := seedProfile(t, m, "owner-1", models.RoleSignal)
	bidder := seedProfile(t, m, "bidder-1", models.RoleHunter)
	l := seedListing(t, e, owner, 300)
	b, _ := e.PlaceBid(ctx, bidder, l.ID, 300, "", "")

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision := market.DecisionAccept
			if i%2 == 1 {
				decision = market.DecisionReject
			}
			_, _, errs[i] = e.RespondToBid(ctx, owner.ID, b.ID, decision)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, market.ErrInvalidTransition) && !errors.Is(err, repository.ErrConditionFailed) {
			t.Fatalf("unexpected race error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want 1", wins)
	}

	got, _ := m.Bids.GetBid(ctx, b.ID)
	if got.Status == models.BidPending {
		t.Fatal("bid still pending after race")
	}
	if got.Status == models.BidRejected {
		if mt, _ := m.Meetings.GetMeetingByBid(ctx, b.ID); mt != nil {
			t.Fatalf("rejected bid has a meeting: %+v", mt)
		}
	}
}

func TestMeetingLifecycle(t *testing.T) {
	ctx := context.Background()
	e, m := newTestEngine(t)
	owner := seedProfile(t, m, "owner-1", models.RoleSignal)
	bidder := seedProfile(t, m, "bidder-1", models.RoleHunter)
	l := seedListing(t, e, owner, 300)
	b, _ := e.PlaceBid(ctx, bidder, l.ID, 300, "", "")
	_, meeting, err := e.RespondToBid(ctx, owner.ID, b.ID, market.DecisionAccept)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	// guest cannot drive the meeting
	if _, err := e.ScheduleMeeting(ctx, bidder.ID, meeting.ID, 1700000000000, "https://meet.example/x"); !errors.Is(err, market.ErrUnauthorized) {
		t.Fatalf("guest schedule err = %v, want ErrUnauthorized", err)
	}

	// cannot complete before scheduling
	if _, err := e.CompleteMeeting(ctx, owner.ID, meeting.ID); !errors.Is(err, market.ErrInvalidTransition) {
		t.Fatalf("complete pending err = %v, want ErrInvalidTransition", err)
	}

	scheduled, err := e.ScheduleMeeting(ctx, owner.ID, meeting.ID, 1700000000000, "https://meet.example/x")
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if scheduled.ScheduledAt == nil || *scheduled.ScheduledAt != 1700000000000 {
		t.Fatalf("scheduled_at = %v, want 1700000000000", scheduled.ScheduledAt)
	}
	if scheduled.MeetingLink == nil || *scheduled.MeetingLink != "https://meet.example/x" {
		t.Fatalf("meeting_link = %v", scheduled.MeetingLink)
	}

	done, err := e.CompleteMeeting(ctx, owner.ID, meeting.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != models.MeetingCompleted {
		t.Fatalf("status = %s, want %s", done.Status, models.MeetingCompleted)
	}

	// completed is terminal
	if _, err := e.CancelMeeting(ctx, owner.ID, meeting.ID); !errors.Is(err, market.ErrInvalidTransition) {
		t.Fatalf("cancel completed err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelMeeting(t *testing.T) {
	ctx := context.Background()

	for _, schedule := range []bool{false, true} {
		name := "FromPending"
		if schedule {
			name = "FromScheduled"
		}
		t.Run(name, func(t *testing.T) {
			e, m := newTestEngine(t)
			owner := seedProfile(t, m, "owner-1", models.RoleSignal)
			bidder := seedProfile(t, m, "bidder-1", models.RoleHunter)
			l := seedListing(t, e, owner, 300)
			b, _ := e.PlaceBid(ctx, bidder, l.ID, 300, "", "")
			_, meeting, _ := e.RespondToBid(ctx, owner.ID, b.ID, market.DecisionAccept)

			if schedule {
				if _, err := e.ScheduleMeeting(ctx, owner.ID, meeting.ID, 1700000000000, ""); err != nil {
					t.Fatalf("schedule: %v", err)
				}
			}

			got, err := e.CancelMeeting(ctx, owner.ID, meeting.ID)
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}
			if got.Status != models.MeetingCancelled {
				t.Fatalf("status = %s, want %s", got.Status, models.MeetingCancelled)
			}
		})
	}
}

// recordingEscrow captures which hooks fired for which bids.
type recordingEscrow struct {
	mu       sync.Mutex
	captured []string
	released []string
	refunded []string
}

func (r *recordingEscrow) Capture(ctx context.Context, b *models.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captured = append(r.captured, b.ID)
	return nil
}

func (r *recordingEscrow) Release(ctx context.Context, b *models.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, b.ID)
	return nil
}

func (r *recordingEscrow) Refund(ctx context.Context, b *models.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refunded = append(r.refunded, b.ID)
	return nil
}

func TestEscrowHooks(t *testing.T) {
	ctx := context.Background()
	m := mock.NewMocks()
	esc := &recordingEscrow{}
	e := market.NewEngine(m.Profiles, m.Listings, m.Bids, m.Meetings, esc, nil)

	owner := seedProfile(t, m, "owner-1", models.RoleSignal)
	bidder := seedProfile(t, m, "bidder-1", models.RoleHunter)
	l := seedListing(t, e, owner, 300)

	accepted, _ := e.PlaceBid(ctx, bidder, l.ID, 300, "", "")
	rejected, _ := e.PlaceBid(ctx, bidder, l.ID, 300, "", "")

	if _, _, err := e.RespondToBid(ctx, owner.ID, accepted.ID, market.DecisionAccept); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, _, err := e.RespondToBid(ctx, owner.ID, rejected.ID, market.DecisionReject); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if len(esc.captured) != 2 {
		t.Fatalf("captured = %v, want both bids", esc.captured)
	}
	if len(esc.released) != 1 || esc.released[0] != accepted.ID {
		t.Fatalf("released = %v, want [%s]", esc.released, accepted.ID)
	}
	if len(esc.refunded) != 1 || esc.refunded[0] != rejected.ID {
		t.Fatalf("refunded = %v, want [%s]", esc.refunded, rejected.ID)
	}
}

func TestUpdateListing(t *testing.T) {
	ctx := context.Background()
	e, m := newTestEngine(t)
	owner := seedProfile(t, m, "owner-1", models.RoleSignal)
	bidder := seedProfile(t, m, "bidder-1", models.RoleHunter)
	l := seedListing(t, e, owner, 300)

	// a bid against the old price
	b, _ := e.PlaceBid(ctx, bidder, l.ID, 300, "", "")

	updated, err := e.UpdateListing(ctx, owner.ID, l.ID, market.ListingInput{
		Title: "Intro call v2", Price: 500, Tags: []string{"saas"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 500 {
		t.Fatalf("price = %d, want 500", updated.Price)
	}

	// the raised price does not invalidate the existing bid
	got, _ := m.Bids.GetBid(ctx, b.ID)
	if got.Status != models.BidPending || got.Amount != 300 {
		t.Fatalf("existing bid changed: %+v", got)
	}

	if _, err := e.UpdateListing(ctx, bidder.ID, l.ID, market.ListingInput{Price: 500}); !errors.Is(err, market.ErrUnauthorized) {
		t.Fatalf("non-owner update err = %v, want ErrUnauthorized", err)
	}
	if _, err := e.UpdateListing(ctx, owner.ID, l.ID, market.ListingInput{Price: 10}); !errors.Is(err, market.ErrInvalidAmount) {
		t.Fatalf("low price err = %v, want ErrInvalidAmount", err)
	}
}
