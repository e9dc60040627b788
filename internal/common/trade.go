package common

import "fmt"

// TradeRecord is one leg of an execution.
type TradeRecord struct {
	OrderID  OrderID
	Price    Price
	Quantity Quantity
}

// Trade accounts for the two orders that matched. Both legs carry the same
// quantity and the same execution price; the price is the resting ask's.
type Trade struct {
	bid TradeRecord
	ask TradeRecord
}

func NewTrade(bid, ask TradeRecord) Trade {
	return Trade{bid: bid, ask: ask}
}

func (t Trade) Bid() TradeRecord { return t.bid }
func (t Trade) Ask() TradeRecord { return t.ask }

// Price is the execution price shared by both legs.
func (t Trade) Price() Price { return t.ask.Price }

// Quantity is the matched volume shared by both legs.
func (t Trade) Quantity() Quantity { return t.ask.Quantity }

func (t Trade) String() string {
	return fmt.Sprintf(
		`Bid: [order %d]
Ask: [order %d]
MatchQty: %d
Price:    %d`,
		t.bid.OrderID,
		t.ask.OrderID,
		t.Quantity(),
		t.Price(),
	)
}
