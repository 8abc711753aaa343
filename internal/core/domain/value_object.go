package domain

import (
	"time"

	"github.com/google/uuid"
)

// ValueObjectState is the lifecycle state of a value object.
type ValueObjectState string

const (
	StateAlive    ValueObjectState = "alive"
	StateReserved ValueObjectState = "reserved"
	StateBurned   ValueObjectState = "burned"
)

// CanTransitionTo reports whether a value object may move from s to next.
// Burned is terminal; a reserved value object is only ever burned.
func (s ValueObjectState) CanTransitionTo(next ValueObjectState) bool {
	switch s {
	case StateAlive:
		return next == StateReserved || next == StateBurned
	case StateReserved:
		return next == StateBurned
	default:
		return false
	}
}

// ValueObject is one indivisible chunk of an asset held by an owner.
// Amount and Owner never change after creation; only State does.
type ValueObject struct {
	ID          uuid.UUID        `json:"id"`
	AssetID     uuid.UUID        `json:"assetId"`
	Owner       uuid.UUID        `json:"owner"`
	Amount      uint64           `json:"amount"`
	State       ValueObjectState `json:"state"`
	ReservedFor *uuid.UUID       `json:"reservedFor,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// CoinCursor is the keyset position after the last value object returned by a
// coin selection batch. Selection order is (Amount, ID) ascending.
type CoinCursor struct {
	Amount uint64
	ID     uuid.UUID
}

// CursorOf returns the cursor positioned on vo.
func CursorOf(vo ValueObject) CoinCursor {
	return CoinCursor{Amount: vo.Amount, ID: vo.ID}
}

// After reports whether vo sorts strictly after the cursor.
func (c CoinCursor) After(vo ValueObject) bool {
	if vo.Amount != c.Amount {
		return vo.Amount > c.Amount
	}
	return CompareIDs(vo.ID, c.ID) > 0
}

// CompareIDs orders uuids bytewise, the same order PostgreSQL uses for the uuid type.
func CompareIDs(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// LessForSelection orders value objects the way coin selection consumes them.
func LessForSelection(a, b ValueObject) bool {
	if a.Amount != b.Amount {
		return a.Amount < b.Amount
	}
	return CompareIDs(a.ID, b.ID) < 0
}

// FragmentAmount splits amount into value objects of at most unit each. The result sums
// to amount and has ceil(amount/unit) elements; amount 0 yields none. A non-nil
// reservedFor produces reserved value objects, otherwise they are alive.
func FragmentAmount(amount, unit uint64, assetID, owner uuid.UUID, reservedFor *uuid.UUID, now time.Time) []ValueObject {
	if amount == 0 || unit == 0 {
		return nil
	}
	state := StateAlive
	if reservedFor != nil {
		state = StateReserved
	}
	count := amount / unit
	if amount%unit != 0 {
		count++
	}
	fragments := make([]ValueObject, 0, count)
	for remaining := amount; remaining > 0; {
		chunk := min(remaining, unit)
		vo := ValueObject{
			ID:        NewID(),
			AssetID:   assetID,
			Owner:     owner,
			Amount:    chunk,
			State:     state,
			CreatedAt: now,
		}
		if reservedFor != nil {
			rf := *reservedFor
			vo.ReservedFor = &rf
		}
		fragments = append(fragments, vo)
		remaining -= chunk
	}
	return fragments
}
