package common

// OrderModify is an amendment request: new side, price and quantity for an
// existing order id. It is a pure value; applying it is always
// cancel-then-replace, so the amended order loses time priority.
type OrderModify struct {
	id       OrderID
	side     Side
	price    Price
	quantity Quantity
}

func NewOrderModify(id OrderID, side Side, price Price, quantity Quantity) OrderModify {
	return OrderModify{
		id:       id,
		side:     side,
		price:    price,
		quantity: quantity,
	}
}

func (m OrderModify) ID() OrderID        { return m.id }
func (m OrderModify) Side() Side         { return m.side }
func (m OrderModify) Price() Price       { return m.price }
func (m OrderModify) Quantity() Quantity { return m.quantity }

// ToOrder builds the replacement order. The order type is not amendable,
// so it is carried over from the order being replaced; id and quantity are
// revalidated by the Order constructor.
func (m OrderModify) ToOrder(orderType OrderType) (*Order, error) {
	return NewOrder(m.id, m.side, orderType, m.price, m.quantity)
}
