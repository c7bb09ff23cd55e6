package execution

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
)

// Fill is the broker's answer to an order: the price and quantity that
// actually executed.
type Fill struct {
	Symbol   string
	Side     string
	Qty      int
	Price    float64
	FilledAt time.Time
}

// Broker simulates or routes order execution. The trading pipeline only
// ever sees fills; where they come from is the broker's business.
type Broker interface {
	Buy(ctx context.Context, symbol string, qty int, price float64) (*Fill, error)
	Sell(ctx context.Context, symbol string, qty int, price float64) (*Fill, error)
}

// PaperBroker fills every order in full at the reference price.
type PaperBroker struct {
	now func() time.Time
}

func NewPaperBroker() *PaperBroker {
	return &PaperBroker{now: time.Now}
}

func (b *PaperBroker) fill(symbol, side string, qty int, price float64) (*Fill, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("paper broker: non-positive quantity %d for %s", qty, symbol)
	}
	if price <= 0 {
		return nil, fmt.Errorf("paper broker: non-positive price %.4f for %s", price, symbol)
	}

	logger.WithFields(map[string]interface{}{
		"component": "PaperBroker",
		"symbol":    symbol,
		"side":      side,
		"qty":       qty,
		"price":     price,
	}).Debug("Simulating fill")

	return &Fill{Symbol: symbol, Side: side, Qty: qty, Price: price, FilledAt: b.now()}, nil
}

func (b *PaperBroker) Buy(ctx context.Context, symbol string, qty int, price float64) (*Fill, error) {
	return b.fill(symbol, "BUY", qty, price)
}

func (b *PaperBroker) Sell(ctx context.Context, symbol string, qty int, price float64) (*Fill, error) {
	return b.fill(symbol, "SELL", qty, price)
}

// NewBroker selects a broker backend by name. Only the paper backend
// exists today; live connectivity stays behind this seam.
func NewBroker(name string) (Broker, error) {
	switch name {
	case "", "paper":
		return NewPaperBroker(), nil
	default:
		return nil, fmt.Errorf("unknown broker backend %q", name)
	}
}
