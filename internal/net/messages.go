package net

import (
	"encoding/binary"
	"errors"
	"fmt"

	"vesta/internal/common"
	"vesta/internal/engine"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrInvalidSide        = errors.New("invalid order side")
	ErrMessageTooShort    = errors.New("message too short for its type")
	ErrUsernameTooLong    = errors.New("username exceeds 255 bytes")
)

type MessageType int

const (
	Heartbeat MessageType = iota
	Register
	Deposit
	Grant
	NewOrder
	TaxQuery
)

type Message interface {
	GetType() MessageType
}

// Message format constants.
const (
	BaseMessageHeaderLen     = 2
	DepositMessageHeaderLen  = 8 + 1
	GrantMessageHeaderLen    = 1 + 8 + 1
	NewOrderMessageHeaderLen = 1 + 1 + 8 + 8 + 1
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
	case Heartbeat:
		return BaseMessage{TypeOf: Heartbeat}, nil
	case Register:
		return parseRegister(msg)
	case Deposit:
		return parseDeposit(msg)
	case Grant:
		return parseGrant(msg)
	case NewOrder:
		return parseNewOrder(msg)
	case TaxQuery:
		return BaseMessage{TypeOf: TaxQuery}, nil
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

// parseUsername reads a 1-byte length-prefixed username at the start of msg.
func parseUsername(msg []byte) (string, error) {
	if len(msg) < 1 {
		return "", ErrMessageTooShort
	}
	nameLen := int(msg[0])
	if len(msg) < 1+nameLen {
		return "", ErrMessageTooShort
	}
	return string(msg[1 : 1+nameLen]), nil
}

// RegisterMessage provisions a user and binds the session to it.
type RegisterMessage struct {
	BaseMessage
	Username string // 1-byte length prefix + n bytes
}

func parseRegister(msg []byte) (RegisterMessage, error) {
	username, err := parseUsername(msg)
	if err != nil {
		return RegisterMessage{}, err
	}
	return RegisterMessage{
		BaseMessage: BaseMessage{TypeOf: Register},
		Username:    username,
	}, nil
}

// DepositMessage credits free cash to a user's wallet.
type DepositMessage struct {
	BaseMessage
	Amount   int64  // 8 bytes
	Username string // 1-byte length prefix + n bytes
}

func parseDeposit(msg []byte) (DepositMessage, error) {
	if len(msg) < DepositMessageHeaderLen {
		return DepositMessage{}, ErrMessageTooShort
	}
	username, err := parseUsername(msg[8:])
	if err != nil {
		return DepositMessage{}, err
	}
	return DepositMessage{
		BaseMessage: BaseMessage{TypeOf: Deposit},
		Amount:      int64(binary.BigEndian.Uint64(msg[0:8])),
		Username:    username,
	}, nil
}

// GrantMessage credits free units of one class to a user's inventory.
type GrantMessage struct {
	BaseMessage
	Class    common.Class // 1 byte
	Units    int64        // 8 bytes
	Username string       // 1-byte length prefix + n bytes
}

func parseGrant(msg []byte) (GrantMessage, error) {
	if len(msg) < GrantMessageHeaderLen {
		return GrantMessage{}, ErrMessageTooShort
	}
	username, err := parseUsername(msg[9:])
	if err != nil {
		return GrantMessage{}, err
	}
	return GrantMessage{
		BaseMessage: BaseMessage{TypeOf: Grant},
		Class:       common.Class(msg[0]),
		Units:       int64(binary.BigEndian.Uint64(msg[1:9])),
		Username:    username,
	}, nil
}

// NewOrderMessage submits a limit order.
type NewOrderMessage struct {
	BaseMessage
	Side     common.Side  // 1 byte
	Class    common.Class // 1 byte; validated at the order boundary
	Price    int64        // 8 bytes
	Quantity int64        // 8 bytes
	Username string       // 1-byte length prefix + n bytes
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < NewOrderMessageHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	if msg[0] != byte(common.Buy) && msg[0] != byte(common.Sell) {
		return NewOrderMessage{}, ErrInvalidSide
	}
	username, err := parseUsername(msg[18:])
	if err != nil {
		return NewOrderMessage{}, err
	}
	return NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		Side:        common.Side(msg[0]),
		Class:       common.Class(msg[1]),
		Price:       int64(binary.BigEndian.Uint64(msg[2:10])),
		Quantity:    int64(binary.BigEndian.Uint64(msg[10:18])),
		Username:    username,
	}, nil
}

// Order builds the domain order, running the boundary validation.
func (m NewOrderMessage) Order() (*engine.Order, error) {
	order, err := engine.NewOrder(m.Username, m.Side, m.Class, m.Quantity, m.Price)
	if err != nil {
		return nil, fmt.Errorf("new order: %w", err)
	}
	return order, nil
}

// --- Client-side encoders ---------------------------------------------------

func appendUsername(buf []byte, username string) ([]byte, error) {
	if len(username) > 255 {
		return nil, ErrUsernameTooLong
	}
	buf = append(buf, byte(len(username)))
	return append(buf, username...), nil
}

func header(typeOf MessageType) []byte {
	buf := make([]byte, BaseMessageHeaderLen, 32)
	binary.BigEndian.PutUint16(buf, uint16(typeOf))
	return buf
}

func EncodeRegister(username string) ([]byte, error) {
	return appendUsername(header(Register), username)
}

func EncodeDeposit(username string, amount int64) ([]byte, error) {
	buf := binary.BigEndian.AppendUint64(header(Deposit), uint64(amount))
	return appendUsername(buf, username)
}

func EncodeGrant(username string, class common.Class, units int64) ([]byte, error) {
	buf := append(header(Grant), byte(class))
	buf = binary.BigEndian.AppendUint64(buf, uint64(units))
	return appendUsername(buf, username)
}

func EncodeNewOrder(username string, side common.Side, class common.Class, quantity, price int64) ([]byte, error) {
	buf := append(header(NewOrder), byte(side), byte(class))
	buf = binary.BigEndian.AppendUint64(buf, uint64(price))
	buf = binary.BigEndian.AppendUint64(buf, uint64(quantity))
	return appendUsername(buf, username)
}

func EncodeTaxQuery() []byte {
	return header(TaxQuery)
}
