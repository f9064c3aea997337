// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for the expected amount of a
// period. Each policy decides how the configured fee turns into what one
// member owes per quincena.

package services

import (
	"fmt"

	"cuotas/internal/core"
)

const (
	FeeFlat   = "flat"
	FeePooled = "pooled"
)

// FeePolicy is the strategy interface for the expected amount of a period.
type FeePolicy interface {
	// Expected returns the amount owed per period given the configured fee
	// and the number of active members.
	Expected(fee core.Money, activeMembers int) core.Money
}

// FlatFee charges every member the configured fee.
type FlatFee struct{}

func (FlatFee) Expected(fee core.Money, _ int) core.Money {
	return fee
}

// PooledFee multiplies the fee by the number of active members, for groups
// that treat the fee as a shared target.
type PooledFee struct{}

func (PooledFee) Expected(fee core.Money, activeMembers int) core.Money {
	if activeMembers < 1 {
		activeMembers = 1
	}
	return core.Money{Cents: fee.Cents * int64(activeMembers)}
}

var feePolicies = map[string]FeePolicy{
	FeeFlat:   FlatFee{},
	FeePooled: PooledFee{},
}

// GetFeePolicy returns the policy registered under name.
func GetFeePolicy(name string) (FeePolicy, error) {
	p, ok := feePolicies[name]
	if !ok {
		return nil, fmt.Errorf("unknown fee policy: %s", name)
	}
	return p, nil
}

// RegisterFeePolicy adds or replaces a policy.
func RegisterFeePolicy(name string, p FeePolicy) {
	feePolicies[name] = p
}
