// Package book implements a single-instrument limit order book with
// price-time priority matching, O(1) cancellation and an aggregated depth
// view. All state is guarded by one reader-writer lock; mutating calls are
// linearizable and readers never observe a crossed or half-updated book.
package book

import (
	"sync"
	"time"

	"github.com/tidwall/btree"

	"gleipnir/internal/common"
)

// levels is one side's price ladder. Both sides sort best price first, so
// Min always yields top of book.
type levels = btree.BTreeG[*level]

func newBidLevels() *levels {
	// Sorted greatest first.
	return btree.NewBTreeG(func(a, b *level) bool {
		return a.price > b.price
	})
}

func newAskLevels() *levels {
	// Sorted least first.
	return btree.NewBTreeG(func(a, b *level) bool {
		return a.price < b.price
	})
}

// bookEntry ties an order id to its handle, its level and its queue slot,
// so cancellation never scans a queue.
type bookEntry struct {
	order *common.Order
	level *level
	node  *orderNode
}

type Book struct {
	mu sync.RWMutex

	// Price levels to orders sat on the price level, sorted by time added
	// as they will be push-back'd.
	bids *levels
	asks *levels

	// Order id to ladder position, for O(1) cancel and duplicate checks.
	index map[common.OrderID]*bookEntry

	observer Observer
}

func New() *Book {
	return &Book{
		bids:  newBidLevels(),
		asks:  newAskLevels(),
		index: make(map[common.OrderID]*bookEntry),
	}
}

// SetObserver installs (or with nil removes) the per-operation timing
// hook. See Observer for the contract the hook must honour.
func (b *Book) SetObserver(observer Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observer = observer
}

// AddOrder admits an order, rests it at the tail of its price level and
// runs the matcher. Inadmissible orders (nil, spent, zero or duplicate id,
// an immediate-or-cancel with nothing to cross, a fill-or-kill that cannot
// fully execute) are dropped silently with no trades and no state change.
// A non-nil error means the matcher itself faulted and is fatal.
func (b *Book) AddOrder(order *common.Order) ([]common.Trade, error) {
	start := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.admit(order) {
		b.observe(OpAddOrderRejected, start, 0)
		return nil, nil
	}

	trades, err := b.placeAndMatch(order)
	if err != nil {
		return nil, err
	}
	b.observe(OpAddOrderSuccess, start, 1)
	return trades, nil
}

// CancelOrder removes the order with the given id. Unknown ids are a
// no-op; cancelling twice is therefore safe.
func (b *Book) CancelOrder(id common.OrderID) {
	start := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.index[id]
	if !ok {
		b.observe(OpCancelOrderNotFound, start, 0)
		return
	}
	b.remove(entry)
	b.observe(OpCancelOrderSuccess, start, 1)
}

// ModifyOrder cancels the order named by the amendment and re-admits it
// with the amended side, price and quantity, preserving the original order
// type. The replacement joins the tail of its destination level, so time
// priority is lost. Both steps run under one lock acquisition; no
// intermediate state is observable. An unknown id returns no trades and
// leaves the book untouched.
func (b *Book) ModifyOrder(modify common.OrderModify) ([]common.Trade, error) {
	start := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.index[modify.ID()]
	if !ok {
		b.observe(OpModifyOrderNotFound, start, 0)
		return nil, nil
	}
	orderType := entry.order.Type()
	b.remove(entry)

	replacement, err := modify.ToOrder(orderType)
	if err != nil {
		// A zero-quantity amendment cancels without re-adding.
		b.observe(OpModifyOrderSuccess, start, 1)
		return nil, nil
	}

	var trades []common.Trade
	if b.admit(replacement) {
		trades, err = b.placeAndMatch(replacement)
		if err != nil {
			return nil, err
		}
	}
	b.observe(OpModifyOrderSuccess, start, 1)
	return trades, nil
}

// Size reports the number of resting orders.
func (b *Book) Size() int {
	start := time.Now()
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.index)
	b.observe(OpSize, start, n)
	return n
}

// Clear drops every resting order and both ladders.
func (b *Book) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = newBidLevels()
	b.asks = newAskLevels()
	b.index = make(map[common.OrderID]*bookEntry)
}

// --- internals, lock held exclusively ---------------------------------

func (b *Book) ladder(side common.Side) *levels {
	if side == common.Buy {
		return b.bids
	}
	return b.asks
}

// admit evaluates the admission predicate without mutating anything.
func (b *Book) admit(order *common.Order) bool {
	if order == nil || order.RemainingQty() == 0 || order.ID() == 0 {
		return false
	}
	if _, exists := b.index[order.ID()]; exists {
		return false
	}
	switch order.Type() {
	case common.ImmediateOrCancel:
		return b.canMatch(order.Side(), order.Price())
	case common.FillOrKill:
		return b.canFillCompletely(order.Side(), order.Price(), order.RemainingQty())
	}
	return true
}

// placeAndMatch rests an admitted order, runs the matcher to fixpoint and
// sweeps out any immediate-or-cancel / fill-or-kill residue.
func (b *Book) placeAndMatch(order *common.Order) ([]common.Trade, error) {
	b.place(order)
	trades, err := b.matchOrders()
	if err != nil {
		return nil, err
	}
	b.sweepTransient()
	return trades, nil
}

// place appends the order at the tail of its price level, creating the
// level if this is the first order at that price.
func (b *Book) place(order *common.Order) {
	ladder := b.ladder(order.Side())

	// The comparator only looks at price, so a dummy level works as the
	// search key.
	lvl, ok := ladder.GetMut(&level{price: order.Price()})
	if !ok {
		lvl = newLevel(order.Price())
		ladder.Set(lvl)
	}
	node := lvl.push(order)
	b.index[order.ID()] = &bookEntry{order: order, level: lvl, node: node}
}

// remove takes the order out of its queue and the index, erasing the level
// if it drained. Levels never persist empty.
func (b *Book) remove(entry *bookEntry) {
	entry.level.remove(entry.node)
	if entry.level.empty() {
		b.ladder(entry.order.Side()).Delete(entry.level)
	}
	delete(b.index, entry.order.ID())
}

// sweepTransient cancels any resting immediate-or-cancel or fill-or-kill
// orders left behind by the matcher. Ids are collected first so the map is
// not mutated mid-iteration. Under the admission rules the only candidate
// is the order just added.
func (b *Book) sweepTransient() {
	var ids []common.OrderID
	for id, entry := range b.index {
		switch entry.order.Type() {
		case common.ImmediateOrCancel, common.FillOrKill:
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		b.remove(b.index[id])
	}
}
