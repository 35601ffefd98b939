package models

import (
	"github.com/shopspring/decimal"

	dErrors "countroom/pkg/domain-errors"
)

// ValueType classifies one itemized count line.
type ValueType string

const (
	ValueBill     ValueType = "bill"
	ValueCoin     ValueType = "coin"
	ValueCheck    ValueType = "check"
	ValueDocument ValueType = "document"
)

// ValueDetail is one itemized count line inside a container: a denomination
// times a quantity for cash, or a single serialized instrument for checks
// and documents.
//
// Amount is always re-derived server-side from Quantity and the resolved
// unit value; client-submitted totals are ignored. The full detail set of a
// container is replaced atomically on every container save.
type ValueDetail struct {
	ID          int64     `json:"id"`
	ContainerID int64     `json:"container_id"`
	Type        ValueType `json:"type"`

	// DenominationID references the denomination catalog; zero for
	// checks and documents.
	DenominationID int64 `json:"denomination_id,omitempty"`

	Quantity    int64 `json:"quantity"`
	BundleCount int64 `json:"bundle_count,omitempty"`
	LooseCount  int64 `json:"loose_count,omitempty"`

	UnitValue decimal.Decimal `json:"unit_value"`
	Amount    decimal.Decimal `json:"amount"`

	HighDenomination bool `json:"high_denomination,omitempty"`

	QualityID    int64 `json:"quality_id,omitempty"`
	BankEntityID int64 `json:"bank_entity_id,omitempty"`

	AccountNumber    string `json:"account_number,omitempty"`
	InstrumentNumber string `json:"instrument_number,omitempty"`
}

// IsCash reports whether the line is a bill or coin line.
func (d *ValueDetail) IsCash() bool {
	return d.Type == ValueBill || d.Type == ValueCoin
}

// Validate checks line-level input rules before amounts are computed.
func (d *ValueDetail) Validate() error {
	switch d.Type {
	case ValueBill, ValueCoin, ValueCheck, ValueDocument:
	default:
		return dErrors.Newf(dErrors.CodeValidation, "invalid value type %q", d.Type)
	}
	if d.Quantity < 0 {
		return dErrors.New(dErrors.CodeValidation, "quantity must not be negative")
	}
	if d.UnitValue.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "unit value must not be negative")
	}
	if d.IsCash() && d.DenominationID == 0 {
		return dErrors.Newf(dErrors.CodeValidation, "%s line requires a denomination", d.Type)
	}
	if !d.IsCash() && d.InstrumentNumber == "" {
		return dErrors.Newf(dErrors.CodeValidation, "%s line requires an identifying number", d.Type)
	}
	return nil
}

// ComputeAmount derives the calculated amount.
//
// Cash lines multiply quantity by the resolved denomination face value.
// Serialized instruments (checks, documents) are single pieces: quantity is
// forced to 1 and the amount is the instrument's face value.
func (d *ValueDetail) ComputeAmount(unitValue decimal.Decimal) {
	d.UnitValue = unitValue
	if d.IsCash() {
		d.Amount = unitValue.Mul(decimal.NewFromInt(d.Quantity))
		return
	}
	d.Quantity = 1
	d.Amount = unitValue
}
