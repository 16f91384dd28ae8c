package domain

import (
	"errors"
	"time"
)

// Setting is a single persisted configuration row. Values are stored as
// strings and interpreted through the typed registry below.
type Setting struct {
	Key       string    `gorm:"primaryKey;type:text" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Setting) TableName() string { return "settings" }

// Kind tags the expected shape of a setting value.
type Kind int

const (
	KindInt Kind = iota
	KindMoney
	KindPercent
	KindBool
)

// Definition describes one known setting: its kind, bounds, and default.
// Validation runs through a single generic validator over the definition
// instead of per-key validation closures.
type Definition struct {
	Key     string
	Kind    Kind
	Min     int64
	Max     int64
	Default string
}

const (
	KeyPaymentDueDays            = "payment_due_days"
	KeyContributionDueDays       = "contribution_due_days"
	KeyBillingRateStandard       = "billing_rate_standard"
	KeyBillingRateInstitution    = "billing_rate_institution"
	KeyContributionMonthlyAmount = "contribution_monthly_amount"
	KeyFineGraceDays             = "fine_grace_days"
	KeyFineIsPercentage          = "fine_is_percentage"
	KeyFineRatePercent           = "fine_rate_percent"
	KeyFineFixedAmount           = "fine_fixed_amount"
	KeyFineMinimumAmount         = "fine_minimum_amount"
)

// Registry lists every setting the core understands. Amounts are minor units.
var Registry = []Definition{
	{Key: KeyPaymentDueDays, Kind: KindInt, Min: 1, Max: 90, Default: "15"},
	{Key: KeyContributionDueDays, Kind: KindInt, Min: 1, Max: 90, Default: "15"},
	{Key: KeyBillingRateStandard, Kind: KindMoney, Min: 0, Max: 100_000_000, Default: "50000"},
	{Key: KeyBillingRateInstitution, Kind: KindMoney, Min: 0, Max: 1_000_000_000, Default: "150000"},
	{Key: KeyContributionMonthlyAmount, Kind: KindMoney, Min: 0, Max: 100_000_000, Default: "10000"},
	{Key: KeyFineGraceDays, Kind: KindInt, Min: 0, Max: 60, Default: "5"},
	{Key: KeyFineIsPercentage, Kind: KindBool, Default: "true"},
	{Key: KeyFineRatePercent, Kind: KindPercent, Min: 0, Max: 100, Default: "5"},
	{Key: KeyFineFixedAmount, Kind: KindMoney, Min: 0, Max: 100_000_000, Default: "5000"},
	{Key: KeyFineMinimumAmount, Kind: KindMoney, Min: 0, Max: 100_000_000, Default: "100"},
}

var (
	ErrUnknownKey   = errors.New("unknown_setting_key")
	ErrInvalidValue = errors.New("invalid_setting_value")
	ErrOutOfRange   = errors.New("setting_value_out_of_range")
)

// Lookup returns the definition for a key.
func Lookup(key string) (Definition, bool) {
	for _, def := range Registry {
		if def.Key == key {
			return def, true
		}
	}
	return Definition{}, false
}
