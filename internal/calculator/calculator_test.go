package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinggolf/freight-quote-core/internal/vendor"
)

// Scenario: unitPrice=12, chargeable=25kg, fuel=10%, rov={variable:2%,
// fixed:50}, minCharges=400 -> base=300, fuel=30, rov=max(6,50)=50,
// effectiveBase=max(300,400)=400, total=round(400+30+50)=480.
func TestCalculate_BaseScenario(t *testing.T) {
	v := vendor.Vendor{
		ID:          "v1",
		CompanyName: "Acme Freight",
		Type:        vendor.TiedUp,
		Prices: vendor.Prices{
			PriceChart: vendor.PriceChart{"N1": {"S2": 12}},
			PriceRate: vendor.PriceRate{
				Fuel:       10,
				MinCharges: 400,
				ROVCharges: vendor.RateComponent{Variable: 2, Fixed: 50},
			},
		},
	}
	ctx := RouteContext{FromZone: "N1", ToZone: "S2", ActualWeight: 25}

	q, err := Calculate(v, ctx)
	require.NoError(t, err)
	require.NotNil(t, q)

	assert.Equal(t, 25.0, q.Chargeable)
	assert.Equal(t, 300.0, q.BaseFreight)
	assert.Equal(t, 30.0, q.FuelCharges)
	assert.Equal(t, 50.0, q.ROVCharges)
	assert.Equal(t, 400.0, q.EffectiveBaseFreight)
	assert.Equal(t, 480, q.Total)
}

func TestCalculate_DropsVendorOnPricingMiss(t *testing.T) {
	v := vendor.Vendor{
		ID:   "v1",
		Type: vendor.TiedUp,
		Prices: vendor.Prices{
			PriceChart: vendor.PriceChart{"N1": {"S2": 12}},
		},
	}
	ctx := RouteContext{FromZone: "N1", ToZone: "W9", ActualWeight: 10}

	q, err := Calculate(v, ctx)
	assert.NoError(t, err)
	assert.Nil(t, q)
}

func TestCalculate_DropsVendorWithEmptyChart(t *testing.T) {
	v := vendor.Vendor{ID: "v1", Type: vendor.TiedUp}
	ctx := RouteContext{FromZone: "N1", ToZone: "S2", ActualWeight: 10}

	q, err := Calculate(v, ctx)
	assert.NoError(t, err)
	assert.Nil(t, q)
}

func TestCalculate_PublicVendorUsesZoneRates(t *testing.T) {
	v := vendor.Vendor{
		ID:   "v1",
		Type: vendor.Public,
		PriceData: vendor.PriceData{
			ZoneRates: vendor.PriceChart{"N1": {"S2": 20}},
			PriceRate: vendor.PriceRate{MinCharges: 0},
		},
	}
	ctx := RouteContext{FromZone: "N1", ToZone: "S2", ActualWeight: 5}

	q, err := Calculate(v, ctx)
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, 100.0, q.BaseFreight)
}

func TestCalculate_ODAChargesOnlyWhenDestIsODA(t *testing.T) {
	base := vendor.Vendor{
		ID:   "v1",
		Type: vendor.TiedUp,
		Prices: vendor.Prices{
			PriceChart: vendor.PriceChart{"N1": {"S2": 10}},
			PriceRate:  vendor.PriceRate{ODACharges: vendor.RateComponent{Fixed: 75}},
		},
	}
	ctx := RouteContext{FromZone: "N1", ToZone: "S2", ActualWeight: 10}

	q, err := Calculate(base, ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, q.ODACharges)

	base.DestIsODA = true
	q, err = Calculate(base, ctx)
	require.NoError(t, err)
	assert.Equal(t, 75.0, q.ODACharges)
}

func TestCalculate_InvoiceAddonAppliesMinimumFloor(t *testing.T) {
	v := vendor.Vendor{
		ID:   "v1",
		Type: vendor.TiedUp,
		Prices: vendor.Prices{
			PriceChart: vendor.PriceChart{"N1": {"S2": 10}},
		},
		InvoiceValueCharges: vendor.InvoiceValueCharges{Enabled: true, Percentage: 1, MinimumAmount: 50},
	}
	ctx := RouteContext{FromZone: "N1", ToZone: "S2", ActualWeight: 10, InvoiceValue: 1000}

	q, err := Calculate(v, ctx)
	require.NoError(t, err)
	// 1000 * 1% = 10, less than the 50 floor.
	assert.Equal(t, 50.0, q.InvoiceAddon)
}

func TestCalculate_InvoiceAddonZeroWhenDisabledOrNonPositive(t *testing.T) {
	v := vendor.Vendor{
		ID:   "v1",
		Type: vendor.TiedUp,
		Prices: vendor.Prices{
			PriceChart: vendor.PriceChart{"N1": {"S2": 10}},
		},
		InvoiceValueCharges: vendor.InvoiceValueCharges{Enabled: false, Percentage: 10, MinimumAmount: 50},
	}
	ctx := RouteContext{FromZone: "N1", ToZone: "S2", ActualWeight: 10, InvoiceValue: 1000}

	q, err := Calculate(v, ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, q.InvoiceAddon)

	v.InvoiceValueCharges.Enabled = true
	ctx.InvoiceValue = 0
	q, err = Calculate(v, ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, q.InvoiceAddon)
}

func TestCalculate_EffectiveZonesOverrideContextZones(t *testing.T) {
	v := vendor.Vendor{
		ID:   "v1",
		Type: vendor.TiedUp,
		Prices: vendor.Prices{
			PriceChart: vendor.PriceChart{"N1": {"S2": 99}},
		},
		EffectiveOriginZone: "N1",
		EffectiveDestZone:   "S2",
	}
	ctx := RouteContext{FromZone: "WRONG", ToZone: "ALSO_WRONG", ActualWeight: 1}

	q, err := Calculate(v, ctx)
	require.NoError(t, err)
	assert.Equal(t, 99.0, q.UnitPrice)
}
