package utsf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinggolf/freight-quote-core/internal/mpc"
)

func writeMPC(t *testing.T, entries string) *mpc.Catalog {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mpc.json")
	require.NoError(t, os.WriteFile(path, []byte(entries), 0o644))
	catalog, err := mpc.Load(path)
	require.NoError(t, err)
	return catalog
}

func sampleCatalog(t *testing.T) *mpc.Catalog {
	return writeMPC(t, `[
		{"pincode": 400001, "zone": "N1", "city": "A", "state": "MH"},
		{"pincode": 400002, "zone": "N1", "city": "A", "state": "MH"},
		{"pincode": 400003, "zone": "N1", "city": "A", "state": "MH"},
		{"pincode": 500001, "zone": "S2", "city": "B", "state": "TS"}
	]`)
}

func TestIsServiceable_FullZone(t *testing.T) {
	catalog := sampleCatalog(t)
	files := map[string]*File{
		"v1": {
			Meta:           Meta{ID: "v1"},
			Serviceability: map[string]ZoneCoverage{"N1": {Variant: FullZone}},
		},
	}
	svc := NewService(catalog, files, false)

	assert.True(t, svc.IsServiceable("v1", 400001))
	assert.False(t, svc.IsServiceable("v1", 500001))
	assert.False(t, svc.IsServiceable("unknown", 400001))
}

func TestIsServiceable_StrictModeBlocksPhantomPincode(t *testing.T) {
	catalog := sampleCatalog(t)
	files := map[string]*File{
		"v1": {
			Meta:           Meta{ID: "v1", IntegrityMode: Strict},
			Serviceability: map[string]ZoneCoverage{"N1": {Variant: FullZone}},
		},
	}
	svc := NewService(catalog, files, false)

	// 999999 isn't in the MPC at all: Strict Mode must block it even
	// though nothing in the file explicitly excludes it.
	assert.False(t, svc.IsServiceable("v1", 999999))
}

func TestIsServiceable_SoftExclusionBlocksServedPincode(t *testing.T) {
	catalog := sampleCatalog(t)
	files := map[string]*File{
		"v1": {
			Meta: Meta{ID: "v1"},
			Serviceability: map[string]ZoneCoverage{
				"N1": {Variant: FullZone, SoftExclusions: []int{400002}},
			},
		},
	}
	svc := NewService(catalog, files, false)

	assert.True(t, svc.IsServiceable("v1", 400001))
	assert.False(t, svc.IsServiceable("v1", 400002))
}

func TestIsServiceable_ZoneOverrideUnresolvableIsNotServed(t *testing.T) {
	catalog := sampleCatalog(t)
	files := map[string]*File{
		"v1": {
			Meta:           Meta{ID: "v1"},
			Serviceability: map[string]ZoneCoverage{"N1": {Variant: FullZone}},
			ZoneOverrides:  map[string]string{"400001": "Z9"},
		},
	}
	svc := NewService(catalog, files, false)

	// Z9 isn't a zone this vendor has any coverage for: open question
	// resolved as "not served" rather than falling back to the MPC zone.
	assert.False(t, svc.IsServiceable("v1", 400001))
}

func TestIsServiceable_OnlyServedVariant(t *testing.T) {
	catalog := sampleCatalog(t)
	files := map[string]*File{
		"v1": {
			Meta: Meta{ID: "v1"},
			Serviceability: map[string]ZoneCoverage{
				"N1": {Variant: OnlyServed, ServedSingles: []int{400001}},
			},
		},
	}
	svc := NewService(catalog, files, false)

	assert.True(t, svc.IsServiceable("v1", 400001))
	assert.False(t, svc.IsServiceable("v1", 400002))
}

func TestIsServiceable_NotServedVariant(t *testing.T) {
	catalog := sampleCatalog(t)
	files := map[string]*File{
		"v1": {
			Meta:           Meta{ID: "v1"},
			Serviceability: map[string]ZoneCoverage{"N1": {Variant: NotServed}},
		},
	}
	svc := NewService(catalog, files, false)
	assert.False(t, svc.IsServiceable("v1", 400001))
}

func TestReload_IsVisibleToNewQueries(t *testing.T) {
	catalog := sampleCatalog(t)
	initial := map[string]*File{
		"v1": {Meta: Meta{ID: "v1"}, Serviceability: map[string]ZoneCoverage{"N1": {Variant: NotServed}}},
	}
	svc := NewService(catalog, initial, false)
	assert.False(t, svc.IsServiceable("v1", 400001))

	reloaded := map[string]*File{
		"v1": {Meta: Meta{ID: "v1"}, Serviceability: map[string]ZoneCoverage{"N1": {Variant: FullZone}}},
	}
	svc.Reload(catalog, reloaded)

	assert.True(t, svc.IsServiceable("v1", 400001))
}

func TestCompare_ReportsMissingPincodes(t *testing.T) {
	catalog := sampleCatalog(t)
	files := map[string]*File{
		"v1": {
			Meta: Meta{ID: "v1"},
			Serviceability: map[string]ZoneCoverage{
				"N1": {Variant: OnlyServed, ServedSingles: []int{400001}},
			},
		},
	}
	svc := NewService(catalog, files, false)

	statuses, ok := svc.Compare("v1")
	require.True(t, ok)

	var n1 ZoneStatus
	for _, s := range statuses {
		if s.Zone == "N1" {
			n1 = s
		}
	}
	assert.Equal(t, 3, n1.MasterCount)
	assert.Equal(t, 1, n1.ServedCount)
	assert.ElementsMatch(t, []int{400002, 400003}, n1.MissingPincodes)
}
