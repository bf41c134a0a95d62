package mbo

import (
	"fmt"
	"math"
)

// UndefPrice marks a record that carries no price.
const UndefPrice int64 = math.MaxInt64

// PriceScale is the number of fixed-point units in one price unit (1e-9 precision).
const PriceScale int64 = 1_000_000_000

type Side uint8

const (
	SideNone Side = iota
	Bid
	Ask
)

func (s Side) Char() byte {
	switch s {
	case Bid:
		return 'B'
	case Ask:
		return 'A'
	default:
		return 'N'
	}
}

func (s Side) String() string {
	switch s {
	case Bid:
		return "Bid"
	case Ask:
		return "Ask"
	case SideNone:
		return "None"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

// ParseSide maps a wire character onto a Side.
func ParseSide(c byte) (Side, error) {
	switch c {
	case 'B':
		return Bid, nil
	case 'A':
		return Ask, nil
	case 'N':
		return SideNone, nil
	}
	return SideNone, fmt.Errorf("unknown side %q", c)
}

// Action is the closed set of MBO event kinds.
type Action uint8

const (
	ActionNone Action = iota
	Add
	Cancel
	Modify
	Clear
	Trade
	Fill
)

var actionChars = [...]byte{
	ActionNone: 'N',
	Add:        'A',
	Cancel:     'C',
	Modify:     'M',
	Clear:      'R',
	Trade:      'T',
	Fill:       'F',
}

var actionNames = [...]string{
	ActionNone: "None",
	Add:        "Add",
	Cancel:     "Cancel",
	Modify:     "Modify",
	Clear:      "Clear",
	Trade:      "Trade",
	Fill:       "Fill",
}

func (a Action) Valid() bool { return int(a) < len(actionChars) }

func (a Action) Char() byte {
	if !a.Valid() {
		return '?'
	}
	return actionChars[a]
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
	return actionNames[a]
}

// ParseAction maps a wire character onto an Action.
func ParseAction(c byte) (Action, error) {
	for a, ch := range actionChars {
		if ch == c {
			return Action(a), nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action %q", c)
}

type Flags uint8

const (
	FlagMaybeBadBook Flags = 1 << 2
	FlagBadTsRecv    Flags = 1 << 3
	FlagMBP          Flags = 1 << 4
	FlagSnapshot     Flags = 1 << 5
	FlagTOB          Flags = 1 << 6
	FlagLast         Flags = 1 << 7
)

func (f Flags) Has(v Flags) bool { return f&v != 0 }

// Event is a single market-by-order record. It is a plain value; nothing in
// the engine keeps a pointer to the caller's copy.
type Event struct {
	TsRecv       uint64
	TsEvent      uint64
	InstrumentID uint32
	VenueID      uint16
	OrderID      uint64
	Side         Side
	Action       Action
	Price        int64
	Size         uint32
	Flags        Flags
	ChannelID    uint8
	Sequence     uint32
}

// IsTOB reports whether the record replaces a side's best level.
func (e Event) IsTOB() bool { return e.Flags.Has(FlagTOB) }

// IsLast reports whether the record closes an exchange event.
func (e Event) IsLast() bool { return e.Flags.Has(FlagLast) }

func (e Event) String() string {
	return fmt.Sprintf(
		"ts_event=%d instr_id=%d venue=%d oid=%d px=%s qty=%d side=%s action=%s flags=%d",
		e.TsEvent, e.InstrumentID, e.VenueID, e.OrderID,
		FormatPrice(e.Price), e.Size, e.Side, e.Action, uint8(e.Flags),
	)
}
