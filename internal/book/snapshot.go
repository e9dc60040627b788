package book

import (
	"time"

	"gleipnir/internal/common"
)

// LevelInfo is one price level's aggregated depth. Quantity is 64-bit:
// individual orders are 32-bit but a dense level can sum past that.
type LevelInfo struct {
	Price    common.Price
	Quantity uint64
}

// LevelSnapshot is a point-in-time depth view of both sides. Bids are
// ordered best (highest) price first, asks best (lowest) first.
type LevelSnapshot struct {
	Bids []LevelInfo
	Asks []LevelInfo
}

// Snapshot aggregates the remaining quantity per level under a shared
// lock, so the result reflects one consistent moment of the book.
func (b *Book) Snapshot() LevelSnapshot {
	start := time.Now()
	b.mu.RLock()
	defer b.mu.RUnlock()

	var snap LevelSnapshot
	b.bids.Scan(func(lvl *level) bool {
		snap.Bids = append(snap.Bids, LevelInfo{Price: lvl.price, Quantity: lvl.totalQty()})
		return true
	})
	b.asks.Scan(func(lvl *level) bool {
		snap.Asks = append(snap.Asks, LevelInfo{Price: lvl.price, Quantity: lvl.totalQty()})
		return true
	})
	b.observe(OpSnapshot, start, len(b.index))
	return snap
}
