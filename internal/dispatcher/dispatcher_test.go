package dispatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinggolf/freight-quote-core/internal/calculator"
	"github.com/pinggolf/freight-quote-core/internal/mpc"
	"github.com/pinggolf/freight-quote-core/internal/utsf"
	"github.com/pinggolf/freight-quote-core/internal/vendor"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func buildHarness(t *testing.T) (*vendor.Catalog, *mpc.Catalog, *utsf.Service) {
	t.Helper()

	mpcPath := writeFixture(t, "mpc.json", `[
		{"pincode": 400001, "zone": "N1", "city": "Mumbai", "state": "MH"},
		{"pincode": 500001, "zone": "S2", "city": "Hyderabad", "state": "TS"}
	]`)
	catalogMPC, err := mpc.Load(mpcPath)
	require.NoError(t, err)

	vendorPath := writeFixture(t, "vendors.json", `[
		{
			"_id": "v1", "companyName": "Cheap Freight", "type": "tied-up",
			"rating": 4.2,
			"prices": {"priceChart": {"N1": {"S2": 5}}, "priceRate": {}}
		},
		{
			"_id": "v2", "companyName": "Premium Freight", "type": "tied-up",
			"rating": 4.8,
			"prices": {"priceChart": {"N1": {"S2": 20}}, "priceRate": {}}
		},
		{
			"_id": "v3", "companyName": "Hidden Freight", "type": "tied-up",
			"isHidden": true,
			"prices": {"priceChart": {"N1": {"S2": 1}}, "priceRate": {}}
		}
	]`)
	vendorCatalog, err := vendor.Load(vendorPath)
	require.NoError(t, err)

	files := map[string]*utsf.File{
		"v1": {Meta: utsf.Meta{ID: "v1"}, Serviceability: map[string]utsf.ZoneCoverage{"N1": {Variant: utsf.FullZone}, "S2": {Variant: utsf.FullZone}}},
		"v2": {Meta: utsf.Meta{ID: "v2"}, Serviceability: map[string]utsf.ZoneCoverage{"N1": {Variant: utsf.FullZone}, "S2": {Variant: utsf.FullZone}}},
		"v3": {Meta: utsf.Meta{ID: "v3"}, Serviceability: map[string]utsf.ZoneCoverage{"N1": {Variant: utsf.FullZone}, "S2": {Variant: utsf.FullZone}}},
	}
	service := utsf.NewService(catalogMPC, files, false)

	return vendorCatalog, catalogMPC, service
}

func TestDispatch_RanksByTotalAscending(t *testing.T) {
	vendorCatalog, catalogMPC, service := buildHarness(t)
	d := New(vendorCatalog, catalogMPC, service, Config{WorkerCount: 2, BatchMin: 1, RequestTimeout: 2 * time.Second})

	result, err := d.Dispatch(context.Background(), calculator.RouteContext{
		FromPincode: 400001, ToPincode: 500001, ActualWeight: 10,
	})
	require.NoError(t, err)

	require.Len(t, result.Quotes, 2) // v3 is hidden, excluded from the visible list
	assert.Equal(t, "v1", result.Quotes[0].VendorID)
	assert.Equal(t, "v2", result.Quotes[1].VendorID)
	assert.Less(t, result.Quotes[0].Total, result.Quotes[1].Total)

	require.Len(t, result.HiddenQuotes, 1)
	assert.Equal(t, "v3", result.HiddenQuotes[0].VendorID)
}

func TestDispatch_NotServiceableRouteErrors(t *testing.T) {
	vendorCatalog, catalogMPC, service := buildHarness(t)
	d := New(vendorCatalog, catalogMPC, service, Config{})

	_, err := d.Dispatch(context.Background(), calculator.RouteContext{
		FromPincode: 999999, ToPincode: 500001, ActualWeight: 10,
	})
	assert.Error(t, err)
}

func TestPartition_SplitsEvenlyAcrossWorkers(t *testing.T) {
	vendors := make([]vendor.Vendor, 10)
	batches := partition(vendors, 3, 2)

	assert.Len(t, batches, 3)
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	assert.Equal(t, 10, total)
}

func TestPartition_NeverExceedsWorkerCount(t *testing.T) {
	vendors := make([]vendor.Vendor, 100)
	batches := partition(vendors, 4, 1)
	assert.Len(t, batches, 4)
}

func TestPartition_SingleCandidateOneBatch(t *testing.T) {
	vendors := make([]vendor.Vendor, 1)
	batches := partition(vendors, 8, 10)
	assert.Len(t, batches, 1)
	assert.Len(t, batches[0], 1)
}

func TestRank_TieBreaksOnRatingThenName(t *testing.T) {
	quotes := []calculator.Quote{
		{VendorID: "a", CompanyName: "Zeta", Total: 100, Rating: 4.0},
		{VendorID: "b", CompanyName: "Alpha", Total: 100, Rating: 4.5},
		{VendorID: "c", CompanyName: "Beta", Total: 50, Rating: 1.0},
	}
	rank(quotes)

	assert.Equal(t, "c", quotes[0].VendorID) // lowest total wins regardless of rating
	assert.Equal(t, "b", quotes[1].VendorID) // same total as "a", higher rating wins
	assert.Equal(t, "a", quotes[2].VendorID)
}

func TestRank_NameBreaksFinalTie(t *testing.T) {
	quotes := []calculator.Quote{
		{VendorID: "a", CompanyName: "Zeta", Total: 100, Rating: 4.0},
		{VendorID: "b", CompanyName: "Alpha", Total: 100, Rating: 4.0},
	}
	rank(quotes)

	assert.Equal(t, "b", quotes[0].VendorID)
	assert.Equal(t, "a", quotes[1].VendorID)
}
