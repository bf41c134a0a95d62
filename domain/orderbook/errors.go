package orderbook

import (
	"errors"
	"fmt"

	"mbobook/domain/mbo"
)

var (
	// ErrProtocolViolation marks a record that contradicts the book state.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrLookupMiss marks a reference to an order that is not resting.
	ErrLookupMiss = errors.New("order lookup miss")
	// ErrInvalidInput marks a structurally malformed record.
	ErrInvalidInput = errors.New("invalid input")
)

// ApplyError describes a rejected record. The book is left untouched.
type ApplyError struct {
	Kind         error
	Action       mbo.Action
	OrderID      uint64
	InstrumentID uint32
	VenueID      uint16
	Reason       string
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf(
		"%v: %s (action=%s order_id=%d instrument_id=%d venue_id=%d)",
		e.Kind, e.Reason, e.Action, e.OrderID, e.InstrumentID, e.VenueID,
	)
}

func (e *ApplyError) Unwrap() error { return e.Kind }

func reject(kind error, ev mbo.Event, format string, args ...any) error {
	return &ApplyError{
		Kind:         kind,
		Action:       ev.Action,
		OrderID:      ev.OrderID,
		InstrumentID: ev.InstrumentID,
		VenueID:      ev.VenueID,
		Reason:       fmt.Sprintf(format, args...),
	}
}
