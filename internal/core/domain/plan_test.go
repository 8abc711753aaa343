package domain_test

import (
	"testing"

	"github.com/SscSPs/voledger/internal/core/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionPlan_RequiredCollateral(t *testing.T) {
	asset := uuid.New()
	alice := uuid.New()
	bob := uuid.New()
	authority := uuid.New()

	var plan domain.ExecutionPlan
	plan.Add(domain.MintOp{AssetID: asset, To: bob, Amount: 1_000})
	plan.Add(domain.TransferOp{AssetID: asset, From: alice, To: bob, Amount: 30})
	plan.Add(domain.BurnOp{AssetID: asset, From: bob, Amount: 5})
	plan.Add(domain.ReserveOp{AssetID: asset, From: alice, Authority: authority, Amount: 20})
	plan.Add(domain.RecordTransactionOp{})

	locks, ok := plan.RequiredCollateral()
	require.True(t, ok)
	assert.Equal(t, []domain.LockRequest{
		{AssetID: asset, Owner: alice, Amount: 50},
		{AssetID: asset, Owner: bob, Amount: 5},
	}, locks)
	assert.Equal(t, 5, plan.Len())
}

func TestExecutionPlan_RequiredCollateralOverflow(t *testing.T) {
	asset := uuid.New()
	alice := uuid.New()

	var plan domain.ExecutionPlan
	plan.Add(domain.BurnOp{AssetID: asset, From: alice, Amount: domain.MaxAmount})
	plan.Add(domain.BurnOp{AssetID: asset, From: alice, Amount: 1})
	plan.Add(domain.BurnOp{AssetID: asset, From: alice, Amount: domain.MaxAmount})

	_, ok := plan.RequiredCollateral()
	assert.False(t, ok)
}

func TestExecutionPlan_OperationsIsACopy(t *testing.T) {
	var plan domain.ExecutionPlan
	plan.Add(domain.MintOp{Amount: 1})

	ops := plan.Operations()
	ops[0] = domain.MintOp{Amount: 2}

	assert.Equal(t, domain.MintOp{Amount: 1}, plan.Operations()[0])
}

func TestHashIdempotencyKey(t *testing.T) {
	a := domain.HashIdempotencyKey("order-42")
	assert.Len(t, a, 64)
	assert.Equal(t, a, domain.HashIdempotencyKey("order-42"))
	assert.NotEqual(t, a, domain.HashIdempotencyKey("order-43"))
}
