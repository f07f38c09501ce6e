package rental

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementPolicy holds the business constants used when an application is approved
type SettlementPolicy struct {
	// RewardAmount is the fixed discount granted to each side of a referral
	RewardAmount decimal.Decimal
	// RewardValidity is how long an issued voucher stays redeemable
	RewardValidity time.Duration
	// DepositRatio is applied to the resolved monthly rent to compute the deposit
	DepositRatio decimal.Decimal
	// FallbackMonthlyPrice is used when a property carries no usable price
	FallbackMonthlyPrice decimal.Decimal
	// LeaseTerm is the length of a provisioned lease
	LeaseTerm time.Duration
}

// DefaultSettlementPolicy returns the default policy
func DefaultSettlementPolicy() SettlementPolicy {
	return SettlementPolicy{
		RewardAmount:         decimal.NewFromInt(100),
		RewardValidity:       365 * 24 * time.Hour,
		DepositRatio:         decimal.NewFromInt(1),
		FallbackMonthlyPrice: decimal.NewFromInt(1000),
		LeaseTerm:            365 * 24 * time.Hour,
	}
}

// Deposit computes the deposit for the given monthly rent
func (p SettlementPolicy) Deposit(rent decimal.Decimal) decimal.Decimal {
	return rent.Mul(p.DepositRatio).Round(2)
}
