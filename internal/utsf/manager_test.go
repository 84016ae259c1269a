package utsf

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinggolf/freight-quote-core/internal/mpc"
)

func fourPincodeCatalog(t *testing.T) *mpc.Catalog {
	return writeMPC(t, `[
		{"pincode": 400001, "zone": "N1", "city": "A", "state": "MH"},
		{"pincode": 400002, "zone": "N1", "city": "A", "state": "MH"},
		{"pincode": 400003, "zone": "N1", "city": "A", "state": "MH"},
		{"pincode": 400004, "zone": "N1", "city": "A", "state": "MH"}
	]`)
}

func newManagerWithFile(t *testing.T, catalog *mpc.Catalog, f *File) *Manager {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, SaveFile(dir, f))
	return NewManager(dir, catalog, DefaultCompressThreshold)
}

// Scenario: a vendor with FULL_ZONE for a zone where the MPC shows more
// pincodes than the vendor's last recorded served count. Repair should
// promote the zone to FULL_MINUS_EXCEPT and compliance should decrease
// accordingly versus the tautological 1.0 a naive FULL_ZONE read would
// otherwise report.
func TestRepair_PromotesFullZoneWithRecordedDrift(t *testing.T) {
	catalog := fourPincodeCatalog(t)
	f := &File{
		Meta: Meta{ID: "v1", CompanyName: "Vendor One"},
		Serviceability: map[string]ZoneCoverage{
			"N1": {Variant: FullZone, ServedCount: 2},
		},
	}
	manager := newManagerWithFile(t, catalog, f)

	auditBefore, err := manager.Audit("v1")
	require.NoError(t, err)
	assert.Less(t, auditBefore.ComputedCompliance, 1.0)

	result, err := manager.Repair("v1", "editor-1")
	require.NoError(t, err)

	assert.Contains(t, result.PromotedZones, "N1")
	assert.Less(t, result.ComplianceAfter, 1.0)
	assert.Equal(t, result.ComplianceAfter, result.ComplianceBefore)

	repaired, err := LoadFile(manager.filePath("v1"))
	require.NoError(t, err)
	zc := repaired.Serviceability["N1"]
	assert.Equal(t, FullMinusExcept, zc.Variant)

	missing := Expand(zc.ExceptRanges, zc.ExceptSingles)
	assert.Len(t, missing, 2)
}

func TestRepair_BackfillsGovernanceAndBumpsVersion(t *testing.T) {
	catalog := fourPincodeCatalog(t)
	f := &File{
		Meta:           Meta{ID: "v1"},
		Serviceability: map[string]ZoneCoverage{"N1": {Variant: FullZone}},
	}
	manager := newManagerWithFile(t, catalog, f)

	result, err := manager.Repair("v1", "editor-1")
	require.NoError(t, err)

	assert.True(t, result.BackfilledGovernance)
	assert.True(t, result.VersionBumped)

	repaired, err := LoadFile(manager.filePath("v1"))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", repaired.Meta.Version)
	assert.Equal(t, Strict, repaired.Meta.IntegrityMode)
	assert.NotEmpty(t, repaired.Meta.Created.At)
	assert.Len(t, repaired.Updates, 1)
}

// Scenario: a soft-excluded pincode that the MPC and the vendor's
// current coverage both now show as served should auto-unblock.
func TestRepair_AutoUnblocksResolvedSoftExclusion(t *testing.T) {
	catalog := fourPincodeCatalog(t)
	f := &File{
		Meta: Meta{ID: "v1", CompanyName: "Vendor One", Version: "1.0.0", Created: Created{By: "x", At: "2026-01-01T00:00:00Z"}},
		Serviceability: map[string]ZoneCoverage{
			"N1": {Variant: FullZone, SoftExclusions: []int{400002, 999999}},
		},
	}
	manager := newManagerWithFile(t, catalog, f)

	result, err := manager.Repair("v1", "editor-1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.UnblockedCount)

	repaired, err := LoadFile(manager.filePath("v1"))
	require.NoError(t, err)
	assert.Equal(t, []int{999999}, repaired.Serviceability["N1"].SoftExclusions)
}

func TestRepair_IsIdempotent(t *testing.T) {
	catalog := fourPincodeCatalog(t)
	f := &File{
		Meta:           Meta{ID: "v1"},
		Serviceability: map[string]ZoneCoverage{"N1": {Variant: FullZone, ServedCount: 2}},
	}
	manager := newManagerWithFile(t, catalog, f)

	_, err := manager.Repair("v1", "editor-1")
	require.NoError(t, err)

	first, err := LoadFile(manager.filePath("v1"))
	require.NoError(t, err)

	_, err = manager.Repair("v1", "editor-1")
	require.NoError(t, err)

	second, err := LoadFile(manager.filePath("v1"))
	require.NoError(t, err)

	assert.Equal(t, first.Serviceability, second.Serviceability)
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, len(first.Updates)+1, len(second.Updates))
}

func TestRollback_RestoresPriorSnapshot(t *testing.T) {
	catalog := fourPincodeCatalog(t)
	f := &File{
		Meta:           Meta{ID: "v1"},
		Serviceability: map[string]ZoneCoverage{"N1": {Variant: FullZone, ServedCount: 2}},
	}
	manager := newManagerWithFile(t, catalog, f)

	_, err := manager.Repair("v1", "editor-1")
	require.NoError(t, err)

	repaired, err := LoadFile(manager.filePath("v1"))
	require.NoError(t, err)
	assert.Equal(t, FullMinusExcept, repaired.Serviceability["N1"].Variant)

	require.NoError(t, manager.Rollback("v1", 0, "editor-2"))

	rolledBack, err := LoadFile(manager.filePath("v1"))
	require.NoError(t, err)
	assert.Equal(t, FullZone, rolledBack.Serviceability["N1"].Variant)
	assert.Len(t, rolledBack.Updates, 2)
}

func TestRollback_OutOfBoundsIndexErrors(t *testing.T) {
	catalog := fourPincodeCatalog(t)
	f := &File{Meta: Meta{ID: "v1"}, Serviceability: map[string]ZoneCoverage{}}
	manager := newManagerWithFile(t, catalog, f)

	err := manager.Rollback("v1", 5, "editor-1")
	assert.Error(t, err)
}

func TestAudit_UnknownVendorErrors(t *testing.T) {
	catalog := fourPincodeCatalog(t)
	f := &File{Meta: Meta{ID: "v1"}, Serviceability: map[string]ZoneCoverage{}}
	manager := newManagerWithFile(t, catalog, f)

	_, err := manager.Audit("does-not-exist")
	assert.Error(t, err)
}

type recordingMirror struct {
	entries []string
}

func (r *recordingMirror) InsertAuditEntry(_ context.Context, vendorID string, _ time.Time, editorID, reason, changeSummary string) error {
	r.entries = append(r.entries, vendorID+":"+editorID+":"+reason+":"+changeSummary)
	return nil
}

func TestRepair_MirrorsAuditEntryWhenAttached(t *testing.T) {
	catalog := fourPincodeCatalog(t)
	f := &File{
		Meta:           Meta{ID: "v1"},
		Serviceability: map[string]ZoneCoverage{"N1": {Variant: FullZone, ServedCount: 2}},
	}
	manager := newManagerWithFile(t, catalog, f)
	mirror := &recordingMirror{}
	manager.SetAuditMirror(mirror)

	_, err := manager.Repair("v1", "editor-1")
	require.NoError(t, err)

	require.Len(t, mirror.entries, 1)
	assert.Contains(t, mirror.entries[0], "v1:editor-1:repair:")
}

type recordingMetrics struct {
	outcomes     []string
	softUnblocks int
}

func (r *recordingMetrics) ObserveRepair(outcome string) {
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingMetrics) AddSoftUnblocks(n int) {
	r.softUnblocks += n
}

func TestRepair_ReportsMetricsWhenAttached(t *testing.T) {
	catalog := fourPincodeCatalog(t)
	f := &File{
		Meta: Meta{ID: "v1", CompanyName: "Vendor One", Version: "1.0.0", Created: Created{By: "x", At: "2026-01-01T00:00:00Z"}},
		Serviceability: map[string]ZoneCoverage{
			"N1": {Variant: FullZone, SoftExclusions: []int{400002, 999999}},
		},
	}
	manager := newManagerWithFile(t, catalog, f)
	metrics := &recordingMetrics{}
	manager.SetMetrics(metrics)

	result, err := manager.Repair("v1", "editor-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"ok"}, metrics.outcomes)
	assert.Equal(t, result.UnblockedCount, metrics.softUnblocks)
	assert.Equal(t, 1, metrics.softUnblocks)
}
