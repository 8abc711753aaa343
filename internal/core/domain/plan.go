package domain

import (
	"github.com/google/uuid"
)

// Operation is one step of an ExecutionPlan. The concrete variants are MintOp, BurnOp,
// TransferOp, ReserveOp and RecordTransactionOp.
type Operation interface {
	isOperation()
}

// MintOp creates Amount of an asset out of nothing for To.
type MintOp struct {
	AssetID  uuid.UUID
	To       uuid.UUID
	Amount   uint64
	Metadata string
}

// BurnOp destroys Amount of From's locked collateral.
type BurnOp struct {
	AssetID  uuid.UUID
	From     uuid.UUID
	Amount   uint64
	Metadata string
}

// TransferOp moves Amount of From's locked collateral to To.
type TransferOp struct {
	AssetID  uuid.UUID
	From     uuid.UUID
	To       uuid.UUID
	Amount   uint64
	Metadata string
}

// ReserveOp moves Amount of From's locked collateral into reserved value objects held
// by Authority.
type ReserveOp struct {
	AssetID   uuid.UUID
	From      uuid.UUID
	Authority uuid.UUID
	Amount    uint64
	Metadata  string
}

// RecordTransactionOp appends Transaction to the transaction log.
type RecordTransactionOp struct {
	Transaction Transaction
}

func (MintOp) isOperation()              {}
func (BurnOp) isOperation()              {}
func (TransferOp) isOperation()          {}
func (ReserveOp) isOperation()           {}
func (RecordTransactionOp) isOperation() {}

// LockKey identifies the value objects of one owner in one asset.
type LockKey struct {
	AssetID uuid.UUID
	Owner   uuid.UUID
}

// LockRequest asks the interpreter to claim at least Amount of alive value objects.
type LockRequest struct {
	AssetID uuid.UUID
	Owner   uuid.UUID
	Amount  uint64
}

// Key returns the (asset, owner) pair the request locks.
func (r LockRequest) Key() LockKey {
	return LockKey{AssetID: r.AssetID, Owner: r.Owner}
}

// ExecutionPlan is an ordered list of operations applied atomically.
type ExecutionPlan struct {
	ops []Operation
}

// Add appends op to the plan.
func (p *ExecutionPlan) Add(op Operation) {
	p.ops = append(p.ops, op)
}

// Operations returns a copy of the plan's operations in order.
func (p *ExecutionPlan) Operations() []Operation {
	out := make([]Operation, len(p.ops))
	copy(out, p.ops)
	return out
}

// Len returns the number of operations in the plan.
func (p *ExecutionPlan) Len() int {
	return len(p.ops)
}

// RequiredCollateral sums, per (asset, owner), the value the plan spends through Burn,
// Transfer and Reserve operations, in first-spend order. A plan whose spends overflow
// a single key is reported with ok == false.
func (p *ExecutionPlan) RequiredCollateral() (locks []LockRequest, ok bool) {
	index := make(map[LockKey]int)
	add := func(asset, owner uuid.UUID, amount uint64) bool {
		key := LockKey{AssetID: asset, Owner: owner}
		i, seen := index[key]
		if !seen {
			index[key] = len(locks)
			locks = append(locks, LockRequest{AssetID: asset, Owner: owner, Amount: amount})
			return true
		}
		if locks[i].Amount > MaxAmount-amount {
			return false
		}
		locks[i].Amount += amount
		return true
	}
	for _, op := range p.ops {
		fine := true
		switch o := op.(type) {
		case BurnOp:
			fine = add(o.AssetID, o.From, o.Amount)
		case TransferOp:
			fine = add(o.AssetID, o.From, o.Amount)
		case ReserveOp:
			fine = add(o.AssetID, o.From, o.Amount)
		}
		if !fine {
			return nil, false
		}
	}
	return locks, true
}
