// Package mock provides in-memory repository implementations for tests. The
// bid store mirrors the production compare-and-swap semantics so lifecycle
// races behave the same as against SQLite.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/repository"
)

type Mocks struct {
	Profiles *ProfileStore
	Listings *ListingStore
	Bids     *BidStore
	Meetings *MeetingStore
}

func NewMocks() *Mocks {
	meetings := &MeetingStore{byID: map[string]*models.Meeting{}}
	return &Mocks{
		Profiles: &ProfileStore{byID: map[string]*models.Profile{}},
		Listings: &ListingStore{byID: map[string]*models.Listing{}},
		Bids:     &BidStore{byID: map[string]*models.Bid{}, meetings: meetings},
		Meetings: meetings,
	}
}

// ProfileStore

type ProfileStore struct {
	mu        sync.Mutex
	byID      map[string]*models.Profile
	CreateErr error
	UpdateErr error
}

var _ repository.ProfileRepo = (*ProfileStore)(nil)

func (s *ProfileStore) CreateProfile(ctx context.Context, p *models.Profile) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Email == p.Email {
			return repository.ErrConstraintViolation
		}
	}
	cp := *p
	s.byID[p.ID] = &cp
	return nil
}

func (s *ProfileStore) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *ProfileStore) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byID {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *ProfileStore) UpdateProfile(ctx context.Context, p *models.Profile) error {
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *p
	// role is immutable
	cp.Role = existing.Role
	s.byID[p.ID] = &cp
	return nil
}

// ListingStore

type ListingStore struct {
	mu        sync.Mutex
	byID      map[string]*models.Listing
	CreateErr error
}

var _ repository.ListingRepo = (*ListingStore)(nil)

func (s *ListingStore) CreateListing(ctx context.Context, l *models.Listing) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.byID[l.ID] = &cp
	return nil
}

func (s *ListingStore) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.byID[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (s *ListingStore) GetActiveListingByOwner(ctx context.Context, ownerID string) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.byID {
		if l.UserID == ownerID && l.Status != models.ListingDeleted {
			cp := *l
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *ListingStore) ListListings(ctx context.Context, status string, limit, offset int) ([]models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Listing
	for _, l := range s.byID {
		if l.Status == status {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created > out[j].Created })
	return out, nil
}

func (s *ListingStore) UpdateListing(ctx context.Context, l *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[l.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *l
	s.byID[l.ID] = &cp
	return nil
}

func (s *ListingStore) SetListingStatus(ctx context.Context, id, fromStatus, toStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byID[id]
	if !ok || l.Status != fromStatus {
		return repository.ErrConditionFailed
	}
	l.Status = toStatus
	return nil
}

// BidStore

type BidStore struct {
	mu        sync.Mutex
	byID      map[string]*models.Bid
	meetings  *MeetingStore
	CreateErr error
	// AcceptErr forces the accept transaction to fail after the point where a
	// non-atomic implementation would already have flipped the bid status.
	AcceptErr error
}

var _ repository.BidRepo = (*BidStore)(nil)

func (s *BidStore) CreateBid(ctx context.Context, b *models.Bid) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.byID[b.ID] = &cp
	return nil
}

func (s *BidStore) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.byID[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (s *BidStore) ListBidsByOwner(ctx context.Context, ownerID, status string, limit, offset int) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bid
	for _, b := range s.byID {
		if b.OwnerID == ownerID && (status == "" || b.Status == status) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (s *BidStore) ListBidsByBidder(ctx context.Context, bidderID string, limit, offset int) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Bid
	for _, b := range s.byID {
		if b.BidderID == bidderID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (s *BidStore) AcceptBid(ctx context.Context, bidID string, m *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[bidID]
	if !ok || b.Status != models.BidPending {
		return repository.ErrConditionFailed
	}
	if s.AcceptErr != nil {
		// both writes roll back together
		return s.AcceptErr
	}
	b.Status = models.BidAccepted
	cp := *m
	s.meetings.mu.Lock()
	s.meetings.byID[m.ID] = &cp
	s.meetings.mu.Unlock()
	return nil
}

func (s *BidStore) RejectBid(ctx context.Context, bidID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[bidID]
	if !ok || b.Status != models.BidPending {
		return repository.ErrConditionFailed
	}
	b.Status = models.BidRejected
	return nil
}

func (s *BidStore) CountBidsByOwner(ctx context.Context, ownerID, status string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, b := range s.byID {
		if b.OwnerID == ownerID && b.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *BidStore) SumAcceptedAmountByOwner(ctx context.Context, ownerID string, since int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, b := range s.byID {
		if b.OwnerID == ownerID && b.Status == models.BidAccepted && b.CreatedAt >= since {
			sum += int64(b.Amount)
		}
	}
	return sum, nil
}

// MeetingStore

type MeetingStore struct {
	mu   sync.Mutex
	byID map[string]*models.Meeting
}

var _ repository.MeetingRepo = (*MeetingStore)(nil)

func (s *MeetingStore) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.byID[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (s *MeetingStore) GetMeetingByBid(ctx context.Context, bidID string) (*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.byID {
		if m.BidID == bidID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MeetingStore) ListMeetingsByHost(ctx context.Context, hostID string, limit, offset int) ([]models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Meeting
	for _, m := range s.byID {
		if m.HostID == hostID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (s *MeetingStore) ListMeetingsByGuest(ctx context.Context, guestID string, limit, offset int) ([]models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Meeting
	for _, m := range s.byID {
		if m.GuestID == guestID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (s *MeetingStore) SetMeetingStatus(ctx context.Context, id, fromStatus, toStatus string, scheduledAt *int64, meetingLink *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok || m.Status != fromStatus {
		return repository.ErrConditionFailed
	}
	m.Status = toStatus
	if scheduledAt != nil {
		v := *scheduledAt
		m.ScheduledAt = &v
	}
	if meetingLink != nil {
		v := *meetingLink
		m.MeetingLink = &v
	}
	return nil
}

func (s *MeetingStore) CountMeetingsByHost(ctx context.Context, hostID, status string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.byID {
		if m.HostID == hostID && m.Status == status {
			n++
		}
	}
	return n, nil
}
