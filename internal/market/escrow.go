package market

import (
	"context"
	"log/slog"

	"github.com/signalhunt/market/pkg/models"
)

// Escrow is the payment-rail hook. Capture fires when a bid is placed,
// Release when the owner accepts, Refund when the owner rejects. No real
// payment integration ships with this service; the interface pins down the
// exact hook points for one.
type Escrow interface {
	Capture(ctx context.Context, b *models.Bid) error
	Release(ctx context.Context, b *models.Bid) error
	Refund(ctx context.Context, b *models.Bid) error
}

// NopEscrow simulates escrow with status fields only. Funds are never moved.
type NopEscrow struct {
	Logger *slog.Logger
}

func (e *NopEscrow) Capture(ctx context.Context, b *models.Bid) error {
	e.log("escrow capture (noop)", b)
	return nil
}

func (e *NopEscrow) Release(ctx context.Context, b *models.Bid) error {
	e.log("escrow release (noop)", b)
	return nil
}

func (e *NopEscrow) Refund(ctx context.Context, b *models.Bid) error {
	e.log("escrow refund (noop)", b)
	return nil
}

func (e *NopEscrow) log(msg string, b *models.Bid) {
	if e.Logger == nil {
		return
	}
	e.Logger.Debug(msg, "bid_id", b.ID, "amount", b.Amount)
}
