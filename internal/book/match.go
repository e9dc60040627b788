package book

import (
	"time"

	"gleipnir/internal/common"
)

// crossable reports whether an aggressive order priced at price crosses a
// resting opposite order priced at resting.
func crossable(side common.Side, price, resting common.Price) bool {
	if side == common.Buy {
		return price >= resting
	}
	return price <= resting
}

// canMatch reports whether at least one opposite resting order is
// crossable at the given price. Constant time: only top of book matters.
func (b *Book) canMatch(side common.Side, price common.Price) bool {
	best, ok := b.ladder(side.Opposite()).Min()
	return ok && crossable(side, price, best.price)
}

// canFillCompletely reports whether the crossable opposite liquidity sums
// to at least quantity. Walks the opposite ladder best price first and
// short-circuits as soon as the running total suffices.
func (b *Book) canFillCompletely(side common.Side, price common.Price, quantity common.Quantity) bool {
	need := uint64(quantity)
	b.ladder(side.Opposite()).Scan(func(lvl *level) bool {
		if !crossable(side, price, lvl.price) {
			return false
		}
		for node := lvl.head; node != nil && need > 0; node = node.next {
			available := uint64(node.order.RemainingQty())
			if available >= need {
				need = 0
			} else {
				need -= available
			}
		}
		return need > 0
	})
	return need == 0
}

// matchOrders consumes the top of book price levels while they cross
// (i.e., best bid >= best ask), pairing head orders in price-time
// priority. Each fill takes min(bid remaining, ask remaining), so at least
// one head order completes per iteration and the loop is bounded. Filled
// orders leave queue and index in the same step; drained levels are erased
// before the next top-of-book probe, so the book is never left crossed.
func (b *Book) matchOrders() ([]common.Trade, error) {
	start := time.Now()
	var trades []common.Trade
	for {
		bestBid, bidOk := b.bids.MinMut()
		bestAsk, askOk := b.asks.MinMut()

		// If either side is empty, or prices don't cross, we are done.
		if !bidOk || !askOk || bestBid.price < bestAsk.price {
			break
		}

		for !bestBid.empty() && !bestAsk.empty() {
			bid := bestBid.head.order
			ask := bestAsk.head.order

			matchQty := min(bid.RemainingQty(), ask.RemainingQty())
			if err := bid.Fill(matchQty); err != nil {
				return nil, err
			}
			if err := ask.Fill(matchQty); err != nil {
				return nil, err
			}

			// Both legs print at the resting ask's price.
			executionPrice := ask.Price()
			trades = append(trades, common.NewTrade(
				common.TradeRecord{OrderID: bid.ID(), Price: executionPrice, Quantity: matchQty},
				common.TradeRecord{OrderID: ask.ID(), Price: executionPrice, Quantity: matchQty},
			))

			if bid.IsFilled() {
				delete(b.index, bid.ID())
				bestBid.remove(bestBid.head)
			}
			if ask.IsFilled() {
				delete(b.index, ask.ID())
				bestAsk.remove(bestAsk.head)
			}
		}

		// Full consumption cases (i.e. empty levels).
		if bestBid.empty() {
			b.bids.Delete(bestBid)
		}
		if bestAsk.empty() {
			b.asks.Delete(bestAsk)
		}
	}
	b.observe(OpMatchOrders, start, len(trades))
	return trades, nil
}
