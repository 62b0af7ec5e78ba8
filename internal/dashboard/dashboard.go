// Package dashboard computes read-time projections over bids and meetings.
// The values are advisory display numbers recomputed on each fetch; they are
// never a source of truth for billing.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/signalhunt/market/pkg/models"
	"github.com/signalhunt/market/pkg/repository"
)

// Stats is one user's dashboard snapshot.
type Stats struct {
	PendingOffers    int64 `json:"pending_offers"`
	MonthlyEarnings  int64 `json:"monthly_earnings"`
	UpcomingMeetings int64 `json:"upcoming_meetings"`
}

type Aggregator struct {
	bids     repository.BidRepo
	meetings repository.MeetingRepo
	cache    *Cache[Stats]
}

// NewAggregator builds the projections component. maxStaleness bounds how old
// a served snapshot may be; zero disables caching entirely.
func NewAggregator(bids repository.BidRepo, meetings repository.MeetingRepo, maxStaleness time.Duration) *Aggregator {
	a := &Aggregator{bids: bids, meetings: meetings}
	if maxStaleness > 0 {
		a.cache = NewCache[Stats](maxStaleness)
	}
	return a
}

// StatsFor computes (or serves within the staleness bound) the user's
// dashboard numbers.
func (a *Aggregator) StatsFor(ctx context.Context, userID string) (Stats, error) {
	if a.cache != nil {
		if s, ok := a.cache.Get(userID); ok {
			return s, nil
		}
	}

	s, err := a.compute(ctx, userID)
	if err != nil {
		return Stats{}, err
	}

	if a.cache != nil {
		a.cache.Put(userID, s)
	}
	return s, nil
}

func (a *Aggregator) compute(ctx context.Context, userID string) (Stats, error) {
	var s Stats
	var err error

	s.PendingOffers, err = a.bids.CountBidsByOwner(ctx, userID, models.BidPending)
	if err != nil {
		return Stats{}, fmt.Errorf("count pending bids: %w", err)
	}

	s.MonthlyEarnings, err = a.bids.SumAcceptedAmountByOwner(ctx, userID, startOfMonth(time.Now().UTC()))
	if err != nil {
		return Stats{}, fmt.Errorf("sum accepted bids: %w", err)
	}

	s.UpcomingMeetings, err = a.meetings.CountMeetingsByHost(ctx, userID, models.MeetingPending)
	if err != nil {
		return Stats{}, fmt.Errorf("count pending meetings: %w", err)
	}

	return s, nil
}

// startOfMonth returns the first instant of t's calendar month in unix ms.
func startOfMonth(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).UnixMilli()
}
