package net

import (
	"encoding/binary"

	"vesta/internal/common"
)

type ReportType int

const (
	OrderAck ReportType = iota
	ExecutionReport
	ErrorReport
	TaxReport
)

// Role marks which counterparty an execution report is addressed to.
type Role byte

const (
	AsBuyer Role = iota
	AsSeller
)

const uuidLen = 36

// Report is the single server-to-client frame. Acks carry the accepted
// order's uuid and status, executions carry one side of a settled trade,
// error reports carry the failure text in Detail, and tax reports carry the
// ledger total (decimal string) in Detail.
type Report struct {
	TypeOf          ReportType    // 1 byte
	Role            Role          // 1 byte
	Class           common.Class  // 1 byte
	Status          common.Status // 1 byte
	Timestamp       uint64        // 8 bytes
	Quantity        uint64        // 8 bytes
	Price           uint64        // 8 bytes
	Tax             uint64        // 8 bytes
	Fee             uint64        // 8 bytes
	CounterpartyLen uint16        // 2 bytes
	DetailLen       uint16        // 2 bytes
	OrderUUID       string        // 36 bytes
	Counterparty    string        // n bytes
	Detail          string        // n bytes
}

const reportFixedHeaderLen = 1 + 1 + 1 + 1 + 8 + 8 + 8 + 8 + 8 + 2 + 2 + uuidLen

// Serialize converts the report to be sent on the wire.
func (r *Report) Serialize() []byte {
	r.CounterpartyLen = uint16(len(r.Counterparty))
	r.DetailLen = uint16(len(r.Detail))

	buf := make([]byte, reportFixedHeaderLen+len(r.Counterparty)+len(r.Detail))
	buf[0] = byte(r.TypeOf)
	buf[1] = byte(r.Role)
	buf[2] = byte(r.Class)
	buf[3] = byte(r.Status)
	binary.BigEndian.PutUint64(buf[4:12], r.Timestamp)
	binary.BigEndian.PutUint64(buf[12:20], r.Quantity)
	binary.BigEndian.PutUint64(buf[20:28], r.Price)
	binary.BigEndian.PutUint64(buf[28:36], r.Tax)
	binary.BigEndian.PutUint64(buf[36:44], r.Fee)
	binary.BigEndian.PutUint16(buf[44:46], r.CounterpartyLen)
	binary.BigEndian.PutUint16(buf[46:48], r.DetailLen)
	// copy() tolerates a short uuid; the remainder stays zeroed.
	copy(buf[48:48+uuidLen], r.OrderUUID)

	offset := reportFixedHeaderLen
	copy(buf[offset:], r.Counterparty)
	offset += len(r.Counterparty)
	copy(buf[offset:], r.Detail)
	return buf
}

// ParseReport decodes a report frame; the client uses this.
func ParseReport(msg []byte) (Report, error) {
	if len(msg) < reportFixedHeaderLen {
		return Report{}, ErrMessageTooShort
	}

	r := Report{
		TypeOf:          ReportType(msg[0]),
		Role:            Role(msg[1]),
		Class:           common.Class(msg[2]),
		Status:          common.Status(msg[3]),
		Timestamp:       binary.BigEndian.Uint64(msg[4:12]),
		Quantity:        binary.BigEndian.Uint64(msg[12:20]),
		Price:           binary.BigEndian.Uint64(msg[20:28]),
		Tax:             binary.BigEndian.Uint64(msg[28:36]),
		Fee:             binary.BigEndian.Uint64(msg[36:44]),
		CounterpartyLen: binary.BigEndian.Uint16(msg[44:46]),
		DetailLen:       binary.BigEndian.Uint16(msg[46:48]),
	}

	end := 48 + uuidLen
	// Trim the zero padding of short uuids.
	uuid := msg[48:end]
	for len(uuid) > 0 && uuid[len(uuid)-1] == 0 {
		uuid = uuid[:len(uuid)-1]
	}
	r.OrderUUID = string(uuid)

	if len(msg) < end+int(r.CounterpartyLen)+int(r.DetailLen) {
		return Report{}, ErrMessageTooShort
	}
	r.Counterparty = string(msg[end : end+int(r.CounterpartyLen)])
	end += int(r.CounterpartyLen)
	r.Detail = string(msg[end : end+int(r.DetailLen)])
	return r, nil
}
