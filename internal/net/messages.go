package net

import (
	"encoding/binary"
	"errors"

	"gleipnir/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrInvalidOrderType   = errors.New("invalid order type")
	ErrInvalidSide        = errors.New("invalid order side")
	ErrMessageTooShort    = errors.New("message too short")
)

type MessageType int

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	ModifyOrder
	LogBook
)

type ReportMessageType int

const (
	OrderAck ReportMessageType = iota
	ExecutionReport
	ErrorReport
)

type Message interface {
	GetType() MessageType
}

// Message format constants
const (
	BaseMessageHeaderLen        = 2
	NewOrderMessageHeaderLen    = 2 + 4 + 4 + 4 + 1 + 1
	CancelOrderMessageHeaderLen = 4 + 8
	ModifyOrderMessageHeaderLen = 4 + 8 + 1 + 4 + 4
)

// Generic message type.
type BaseMessage struct {
	TypeOf MessageType // 2 bytes
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, ErrMessageTooShort
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(msg)
	case CancelOrder:
		return parseCancelOrder(msg)
	case ModifyOrder:
		return parseModifyOrder(msg)
	case LogBook:
		return BaseMessage{TypeOf: LogBook}, nil
	case Heartbeat:
		return BaseMessage{TypeOf: Heartbeat}, nil
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

func parseSide(b byte) (common.Side, error) {
	switch common.Side(b) {
	case common.Buy, common.Sell:
		return common.Side(b), nil
	}
	return 0, ErrInvalidSide
}

func parseOrderType(v uint16) (common.OrderType, error) {
	switch common.OrderType(v) {
	case common.GoodTillCancel, common.ImmediateOrCancel, common.FillOrKill:
		return common.OrderType(v), nil
	}
	return 0, ErrInvalidOrderType
}

type NewOrderMessage struct {
	BaseMessage
	OrderType   common.OrderType // 2 bytes
	Ticker      string           // 4 bytes
	LimitPrice  common.Price     // 4 bytes
	Quantity    common.Quantity  // 4 bytes
	Side        common.Side      // 1 byte
	UsernameLen uint8            // 1 byte
	Username    string           // n bytes
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < NewOrderMessageHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}

	var err error
	if m.OrderType, err = parseOrderType(binary.BigEndian.Uint16(msg[0:2])); err != nil {
		return NewOrderMessage{}, err
	}
	m.Ticker = string(msg[2:6]) // Assuming ASCII/UTF-8 string
	m.LimitPrice = common.Price(binary.BigEndian.Uint32(msg[6:10]))
	m.Quantity = common.Quantity(binary.BigEndian.Uint32(msg[10:14]))
	if m.Side, err = parseSide(msg[14]); err != nil {
		return NewOrderMessage{}, err
	}
	m.UsernameLen = uint8(msg[15])

	// Calculate expected total length.
	expectedTotalLen := NewOrderMessageHeaderLen + int(m.UsernameLen)
	if len(msg) < expectedTotalLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Username = string(msg[16 : 16+m.UsernameLen])

	return m, nil
}

type CancelOrderMessage struct {
	BaseMessage
	Ticker  string         // 4 bytes
	OrderID common.OrderID // 8 bytes
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < CancelOrderMessageHeaderLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	m := CancelOrderMessage{BaseMessage: BaseMessage{TypeOf: CancelOrder}}
	m.Ticker = string(msg[0:4])
	m.OrderID = binary.BigEndian.Uint64(msg[4:12])

	return m, nil
}

type ModifyOrderMessage struct {
	BaseMessage
	Ticker     string          // 4 bytes
	OrderID    common.OrderID  // 8 bytes
	Side       common.Side     // 1 byte
	LimitPrice common.Price    // 4 bytes
	Quantity   common.Quantity // 4 bytes
}

// Modify converts the message into the book's amendment descriptor.
func (m ModifyOrderMessage) Modify() common.OrderModify {
	return common.NewOrderModify(m.OrderID, m.Side, m.LimitPrice, m.Quantity)
}

func parseModifyOrder(msg []byte) (ModifyOrderMessage, error) {
	if len(msg) < ModifyOrderMessageHeaderLen {
		return ModifyOrderMessage{}, ErrMessageTooShort
	}
	m := ModifyOrderMessage{BaseMessage: BaseMessage{TypeOf: ModifyOrder}}

	m.Ticker = string(msg[0:4])
	m.OrderID = binary.BigEndian.Uint64(msg[4:12])
	var err error
	if m.Side, err = parseSide(msg[12]); err != nil {
		return ModifyOrderMessage{}, err
	}
	m.LimitPrice = common.Price(binary.BigEndian.Uint32(msg[13:17]))
	m.Quantity = common.Quantity(binary.BigEndian.Uint32(msg[17:21]))

	return m, nil
}

type Report struct {
	MessageType    ReportMessageType // 1 byte
	Side           common.Side       // 1 byte
	Timestamp      uint64            // 8 bytes
	OrderID        common.OrderID    // 8 bytes
	CounterOrderID common.OrderID    // 8 bytes
	Price          common.Price      // 4 bytes
	Quantity       common.Quantity   // 4 bytes
	ErrStrLen      uint32            // 4 bytes
	Ticker         string            // 4 bytes
	Err            string            // n bytes
}

const ReportFixedHeaderLen = 1 + 1 + 8 + 8 + 8 + 4 + 4 + 4 + 4

// Serialize converts the report to be sent on the wire.
func (r *Report) Serialize() []byte {
	buf := make([]byte, ReportFixedHeaderLen+len(r.Err))
	buf[0] = byte(r.MessageType)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[2:10], r.Timestamp)
	binary.BigEndian.PutUint64(buf[10:18], r.OrderID)
	binary.BigEndian.PutUint64(buf[18:26], r.CounterOrderID)
	binary.BigEndian.PutUint32(buf[26:30], uint32(r.Price))
	binary.BigEndian.PutUint32(buf[30:34], uint32(r.Quantity))
	binary.BigEndian.PutUint32(buf[34:38], r.ErrStrLen)

	// Ticker padded or truncated into its fixed slot.
	ticker := make([]byte, 4)
	copy(ticker, r.Ticker)
	copy(buf[38:42], ticker)

	if r.ErrStrLen > 0 {
		copy(buf[ReportFixedHeaderLen:], r.Err)
	}
	return buf
}

// ParseReport is the inverse of Serialize; the buffer must contain the
// fixed header and the full error string it announces.
func ParseReport(buf []byte) (Report, error) {
	if len(buf) < ReportFixedHeaderLen {
		return Report{}, ErrMessageTooShort
	}
	r := Report{
		MessageType:    ReportMessageType(buf[0]),
		Side:           common.Side(buf[1]),
		Timestamp:      binary.BigEndian.Uint64(buf[2:10]),
		OrderID:        binary.BigEndian.Uint64(buf[10:18]),
		CounterOrderID: binary.BigEndian.Uint64(buf[18:26]),
		Price:          common.Price(binary.BigEndian.Uint32(buf[26:30])),
		Quantity:       common.Quantity(binary.BigEndian.Uint32(buf[30:34])),
		ErrStrLen:      binary.BigEndian.Uint32(buf[34:38]),
		Ticker:         string(buf[38:42]),
	}
	if len(buf) < ReportFixedHeaderLen+int(r.ErrStrLen) {
		return Report{}, ErrMessageTooShort
	}
	if r.ErrStrLen > 0 {
		r.Err = string(buf[ReportFixedHeaderLen : ReportFixedHeaderLen+int(r.ErrStrLen)])
	}
	return r, nil
}
