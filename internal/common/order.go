package common

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOrderID  = errors.New("order id must be nonzero")
	ErrInvalidQuantity = errors.New("order quantity must be nonzero")
	ErrOverFill        = errors.New("fill exceeds remaining quantity")
)

// Order is a resting or incoming limit order. Identity, side, type, price
// and initial quantity are fixed at construction; only the remaining
// quantity moves, and only through Fill. Handles are shared between the
// book's ladder queues and its order index, so all mutation happens while
// the book holds its lock.
type Order struct {
	id           OrderID
	side         Side
	orderType    OrderType
	price        Price
	initialQty   Quantity
	remainingQty Quantity
}

// NewOrder validates and builds an order. A zero id or zero quantity is a
// construction failure, not a silent rejection.
func NewOrder(id OrderID, side Side, orderType OrderType, price Price, quantity Quantity) (*Order, error) {
	if id == 0 {
		return nil, ErrInvalidOrderID
	}
	if quantity == 0 {
		return nil, ErrInvalidQuantity
	}
	return &Order{
		id:           id,
		side:         side,
		orderType:    orderType,
		price:        price,
		initialQty:   quantity,
		remainingQty: quantity,
	}, nil
}

func (o *Order) ID() OrderID          { return o.id }
func (o *Order) Side() Side           { return o.side }
func (o *Order) Type() OrderType      { return o.orderType }
func (o *Order) Price() Price         { return o.price }
func (o *Order) InitialQty() Quantity { return o.initialQty }

// RemainingQty reports the unexecuted volume.
func (o *Order) RemainingQty() Quantity { return o.remainingQty }

// FilledQty reports the executed volume.
func (o *Order) FilledQty() Quantity { return o.initialQty - o.remainingQty }

// IsFilled reports whether the order has no volume left.
func (o *Order) IsFilled() bool { return o.remainingQty == 0 }

// Fill executes quantity against the order. Zero is a no-op; filling past
// the remaining quantity is a matcher fault and fails with ErrOverFill.
func (o *Order) Fill(quantity Quantity) error {
	if quantity > o.remainingQty {
		return fmt.Errorf("order %d: %w", o.id, ErrOverFill)
	}
	o.remainingQty -= quantity
	return nil
}

func (o *Order) String() string {
	return fmt.Sprintf(
		`ID:        %d
Side:      %v
Type:      %v
Price:     %d
Quantity:  %d (Total: %d)`,
		o.id,
		o.side,
		o.orderType,
		o.price,
		o.remainingQty,
		o.initialQty,
	)
}
