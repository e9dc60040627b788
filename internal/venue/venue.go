// Package venue owns one order book per listed symbol and assigns
// venue-wide order ids.
package venue

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"gleipnir/internal/book"
	"gleipnir/internal/common"
)

var ErrUnknownSymbol = errors.New("unknown symbol")

type Venue struct {
	// Immutable after New; per-book locking handles everything else.
	books map[string]*book.Book

	nextID atomic.Uint64
}

func New(symbols ...string) *Venue {
	v := &Venue{
		books: make(map[string]*book.Book, len(symbols)),
	}
	for _, symbol := range symbols {
		v.books[symbol] = book.New()
	}
	return v
}

// Book exposes the order book for a listed symbol.
func (v *Venue) Book(symbol string) (*book.Book, bool) {
	b, ok := v.books[symbol]
	return b, ok
}

// SetObserver installs the timing hook on every listed book.
func (v *Venue) SetObserver(observer book.Observer) {
	for _, b := range v.books {
		b.SetObserver(observer)
	}
}

// PlaceOrder mints a venue order id, builds the order and submits it.
// The returned id is valid even when the order was rejected or fully
// executed; callers correlate it with the returned trades.
func (v *Venue) PlaceOrder(symbol string, side common.Side, orderType common.OrderType, price common.Price, quantity common.Quantity) (common.OrderID, []common.Trade, error) {
	b, ok := v.books[symbol]
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	id := v.nextID.Add(1)
	order, err := common.NewOrder(id, side, orderType, price, quantity)
	if err != nil {
		return 0, nil, err
	}

	trades, err := b.AddOrder(order)
	if err != nil {
		return id, nil, err
	}
	return id, trades, nil
}

// CancelOrder cancels an order on the symbol's book. Unknown ids are a
// silent no-op, matching the book's contract.
func (v *Venue) CancelOrder(symbol string, id common.OrderID) error {
	b, ok := v.books[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	b.CancelOrder(id)
	return nil
}

// ModifyOrder amends an order on the symbol's book (cancel-then-replace).
func (v *Venue) ModifyOrder(symbol string, modify common.OrderModify) ([]common.Trade, error) {
	b, ok := v.books[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return b.ModifyOrder(modify)
}

// Depth returns the aggregated depth snapshot for a symbol.
func (v *Venue) Depth(symbol string) (book.LevelSnapshot, error) {
	b, ok := v.books[symbol]
	if !ok {
		return book.LevelSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return b.Snapshot(), nil
}

// LogBook logs the current depth of every listed book.
func (v *Venue) LogBook() {
	for symbol, b := range v.books {
		snap := b.Snapshot()
		bids := make([]string, 0, len(snap.Bids))
		for _, lvl := range snap.Bids {
			bids = append(bids, fmt.Sprintf("%dx%d", lvl.Price, lvl.Quantity))
		}
		asks := make([]string, 0, len(snap.Asks))
		for _, lvl := range snap.Asks {
			asks = append(asks, fmt.Sprintf("%dx%d", lvl.Price, lvl.Quantity))
		}
		log.Info().
			Str("symbol", symbol).
			Int("restingOrders", b.Size()).
			Strs("bids", bids).
			Strs("asks", asks).
			Msg("book depth")
	}
}
