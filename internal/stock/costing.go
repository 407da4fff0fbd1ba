package stock

import (
	"backend/internal/model"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	// Display-only markup applied to landed cost when suggesting a sale
	// price. Never written to any ledger or invoice row.
	suggestedMarkup = decimal.NewFromFloat(1.25)
)

// CostInput carries everything needed to derive a batch's landed cost.
type CostInput struct {
	USDPrice     decimal.Decimal
	ExchangeRate decimal.Decimal
	DutyPercent  decimal.Decimal // always percentage of local price

	FreightAmount decimal.Decimal
	FreightType   string // model.ChargeTypePercentage or model.ChargeTypeFixed
	OtherAmount   decimal.Decimal
	OtherType     string

	ImportedQuantity int

	// Optional container overhead already allocated to this batch; divided
	// by imported quantity for display, independent of the landed cost.
	ContainerAllocatedCost decimal.Decimal
}

// CostBreakdown is the derived landed cost in local currency.
type CostBreakdown struct {
	LocalPrice       decimal.Decimal `json:"local_price"`
	Duty             decimal.Decimal `json:"duty"`
	Freight          decimal.Decimal `json:"freight"`
	Other            decimal.Decimal `json:"other"`
	LandedTotal      decimal.Decimal `json:"landed_total"`
	LandedPerUnit    decimal.Decimal `json:"landed_per_unit"`
	ContainerPerUnit decimal.Decimal `json:"container_per_unit"`
}

// ComputeLandedCost converts the USD import price to local currency and
// applies duty, freight and other charges:
//
//	local_price   = usd_price * exchange_rate
//	duty          = local_price * duty_percent / 100
//	charge(a, t)  = t == percentage ? local_price * a / 100 : a
//	landed_total  = local_price + duty + charge(freight) + charge(other)
//	landed_per_unit = landed_total / imported_quantity
func ComputeLandedCost(in CostInput) (CostBreakdown, error) {
	if in.ExchangeRate.IsZero() && !in.USDPrice.IsZero() {
		return CostBreakdown{}, &InvalidChargeConfigError{Reason: "exchange rate is zero while USD price is non-zero"}
	}
	if in.ImportedQuantity <= 0 {
		return CostBreakdown{}, &InvalidChargeConfigError{Reason: "imported quantity must be positive"}
	}

	localPrice := in.USDPrice.Mul(in.ExchangeRate)
	duty := localPrice.Mul(in.DutyPercent).Div(hundred)

	freight, err := charge(localPrice, in.FreightAmount, in.FreightType)
	if err != nil {
		return CostBreakdown{}, err
	}
	other, err := charge(localPrice, in.OtherAmount, in.OtherType)
	if err != nil {
		return CostBreakdown{}, err
	}

	qty := decimal.NewFromInt(int64(in.ImportedQuantity))
	landedTotal := localPrice.Add(duty).Add(freight).Add(other)

	breakdown := CostBreakdown{
		LocalPrice:    localPrice,
		Duty:          duty,
		Freight:       freight,
		Other:         other,
		LandedTotal:   landedTotal,
		LandedPerUnit: landedTotal.Div(qty),
	}
	if !in.ContainerAllocatedCost.IsZero() {
		breakdown.ContainerPerUnit = in.ContainerAllocatedCost.Div(qty)
	}
	return breakdown, nil
}

// charge resolves a fixed or percentage-of-local-price amount.
func charge(localPrice, amount decimal.Decimal, chargeType string) (decimal.Decimal, error) {
	switch chargeType {
	case model.ChargeTypePercentage:
		return localPrice.Mul(amount).Div(hundred), nil
	case model.ChargeTypeFixed, "":
		return amount, nil
	default:
		return decimal.Zero, &InvalidChargeConfigError{Reason: "unknown charge type " + chargeType}
	}
}

// SuggestedSalePrice returns the display-only markup price over landed cost.
func SuggestedSalePrice(landedPerUnit decimal.Decimal) decimal.Decimal {
	return landedPerUnit.Mul(suggestedMarkup)
}
