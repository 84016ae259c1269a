// Package calculator computes one deterministic, itemized quote per
// vendor (spec.md 4.7). Calculate is a pure function: same vendor and
// context in, same result out, regardless of which worker runs it
// (spec.md 8 "Price calculator purity").
package calculator

import (
	"math"

	"github.com/pinggolf/freight-quote-core/internal/quoteerr"
	"github.com/pinggolf/freight-quote-core/internal/vendor"
)

// RouteContext is the per-request input shared by every vendor in a
// batch (spec.md 4.7).
type RouteContext struct {
	FromPincode  int
	ToPincode    int
	FromZone     string
	ToZone       string
	DistanceKm   float64
	EstTime      string
	ActualWeight float64

	ShipmentDetails []vendor.ShipmentItem
	LegacyParams    vendor.LegacyDimensions

	InvoiceValue float64
	CustomerID   string
}

// Quote is the full itemized result for one vendor (spec.md 4.7 step 10,
// 6 "Quote result object"). Total is rounded to a whole unit, and so is
// InvoiceAddon; the other monetary fields (the itemized charges and
// Subtotal) are rounded to two decimal places, not to whole units. Weight
// fields keep two decimal places.
type Quote struct {
	VendorID    string
	CompanyName string
	Rating      float64
	IsTiedUp    bool
	IsHidden    bool

	UnitPrice  float64
	Volumetric float64
	Chargeable float64

	BaseFreight          float64
	EffectiveBaseFreight float64
	FuelCharges          float64
	DocketCharges        float64
	GreenTax             float64
	DaccCharges          float64
	MiscellanousCharges  float64
	ROVCharges           float64
	InsuaranceCharges    float64
	ODACharges           float64
	HandlingCharges      float64
	FMCharges            float64
	AppointmentCharges   float64
	InvoiceAddon         float64

	Subtotal float64
	Total    int
}

// Calculate computes v's quote for ctx. A nil Quote with a nil error
// means "drop this vendor silently" (no chart, or the chart can't price
// this route) - per spec.md 7, PricingMiss never fails the request.
func Calculate(v vendor.Vendor, ctx RouteContext) (*Quote, error) {
	source, ok := v.Source()
	if !ok {
		return nil, nil
	}

	originZone := v.EffectiveOriginZone
	if originZone == "" {
		originZone = ctx.FromZone
	}
	destZone := v.EffectiveDestZone
	if destZone == "" {
		destZone = ctx.ToZone
	}

	unitPrice, found := vendor.Lookup(source.Chart, originZone, destZone)
	if !found {
		return nil, nil
	}

	volumetric := vendor.VolumetricWeight(ctx.ShipmentDetails, ctx.LegacyParams, source.Rate.EffectiveKFactor())
	chargeable := vendor.ChargeableWeight(volumetric, ctx.ActualWeight)

	rate := source.Rate
	baseFreight := unitPrice * chargeable
	fuelCharges := rate.Fuel / 100 * baseFreight

	rov := componentCharge(rate.ROVCharges, baseFreight)
	insuarance := componentCharge(rate.InsuaranceCharges, baseFreight)
	fm := componentCharge(rate.FMCharges, baseFreight)
	appointment := componentCharge(rate.AppointmentCharges, baseFreight)

	var oda float64
	if v.DestIsODA {
		oda = rate.ODACharges.Fixed + chargeable*rate.ODACharges.Variable/100
	}

	handling := rate.HandlingCharges.Fixed + chargeable*rate.HandlingCharges.Variable/100

	effectiveBase := math.Max(baseFreight, rate.MinCharges)

	subtotal := effectiveBase + rate.DocketCharges + rate.GreenTax + rate.DaccCharges +
		rate.MiscellanousCharges + fuelCharges + rov + insuarance + oda + handling + fm + appointment

	invoiceAddon := invoiceAddon(source.InvoiceValueCharges, ctx.InvoiceValue)
	total := math.Round(subtotal + invoiceAddon)

	return &Quote{
		VendorID:    v.ID,
		CompanyName: v.CompanyName,
		Rating:      v.Rating,
		IsTiedUp:    v.Type == vendor.TiedUp && v.CustomerID != "" && v.CustomerID == ctx.CustomerID,
		IsHidden:    v.IsHidden,

		UnitPrice:  unitPrice,
		Volumetric: round2(volumetric),
		Chargeable: round2(chargeable),

		BaseFreight:          round2(baseFreight),
		EffectiveBaseFreight: round2(effectiveBase),
		FuelCharges:          round2(fuelCharges),
		DocketCharges:        round2(rate.DocketCharges),
		GreenTax:             round2(rate.GreenTax),
		DaccCharges:          round2(rate.DaccCharges),
		MiscellanousCharges:  round2(rate.MiscellanousCharges),
		ROVCharges:           round2(rov),
		InsuaranceCharges:    round2(insuarance),
		ODACharges:           round2(oda),
		HandlingCharges:      round2(handling),
		FMCharges:            round2(fm),
		AppointmentCharges:   round2(appointment),
		InvoiceAddon:         round2(invoiceAddon),

		Subtotal: round2(subtotal),
		Total:    int(total),
	}, nil
}

// componentCharge applies the variable-percent-or-fixed-floor rule
// shared by rov, insurance, fm and appointment (spec.md 4.7 step 6).
func componentCharge(c vendor.RateComponent, baseFreight float64) float64 {
	return math.Max(c.Variable/100*baseFreight, c.Fixed)
}

// invoiceAddon applies the ad-valorem addon, zero when disabled or the
// declared invoice value is non-positive (spec.md 4.7 step 8, edge case).
func invoiceAddon(charges vendor.InvoiceValueCharges, invoiceValue float64) float64 {
	if !charges.Enabled || invoiceValue <= 0 {
		return 0
	}
	return math.Round(math.Max(invoiceValue*charges.Percentage/100, charges.MinimumAmount))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ErrPricingMiss describes why Calculate's nil/nil return drops a vendor
// without failing the batch (spec.md 7); callers that want to log the
// reason distinctly from other drop causes can reference this sentinel.
func ErrPricingMiss() error { return quoteerr.ErrPricingMiss }
