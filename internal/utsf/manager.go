package utsf

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/pinggolf/freight-quote-core/internal/mpc"
)

// AuditMirror mirrors one append-only audit entry into an external store
// for cross-vendor querying. Manager accepts any implementation so it
// never depends on a concrete database driver (db.Queries satisfies
// this).
type AuditMirror interface {
	InsertAuditEntry(ctx context.Context, vendorID string, timestamp time.Time, editorID, reason, changeSummary string) error
}

// ManagerMetrics reports Repair outcomes and soft-unblock counts. Manager
// accepts any implementation so it never depends on the concrete
// *metrics.Metrics type.
type ManagerMetrics interface {
	ObserveRepair(outcome string)
	AddSoftUnblocks(n int)
}

// Manager is the UTSF administrative control plane: audit, compare,
// repair and rollback, operating directly on the files in dir against
// the current Master Pincode Catalog. Manager reads and writes files
// independently of Service's query-path snapshot; callers that want
// Repair/Rollback results visible to query traffic must call
// Service.Reload afterwards (spec.md 4.3: "rebuilt on explicit reload").
type Manager struct {
	dir               string
	catalog           *mpc.Catalog
	compressThreshold int
	mirror            AuditMirror
	metrics           ManagerMetrics
}

// NewManager creates a Manager rooted at dir.
func NewManager(dir string, catalog *mpc.Catalog, compressThreshold int) *Manager {
	if compressThreshold < 1 {
		compressThreshold = DefaultCompressThreshold
	}
	return &Manager{dir: dir, catalog: catalog, compressThreshold: compressThreshold}
}

// SetAuditMirror attaches an external audit mirror. Repair and Rollback
// write to it best-effort, after the UTSF file itself has already been
// saved: the file's own updates[] array remains authoritative, so a
// mirror write failure is logged and never fails the operation.
func (m *Manager) SetAuditMirror(mirror AuditMirror) {
	m.mirror = mirror
}

// SetMetrics attaches a ManagerMetrics sink. Repair reports its outcome
// and any soft-unblocks through it; a nil sink (the default) makes both
// no-ops.
func (m *Manager) SetMetrics(metrics ManagerMetrics) {
	m.metrics = metrics
}

func (m *Manager) mirrorEntry(vendorID string, entry UpdateEntry) {
	if m.mirror == nil {
		return
	}
	ts, err := time.Parse(time.RFC3339, entry.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.mirror.InsertAuditEntry(ctx, vendorID, ts, entry.EditorID, entry.Reason, entry.ChangeSummary); err != nil {
		log.Printf("utsf: audit mirror write failed for %s: %v", vendorID, err)
	}
}

// AuditReport is the result of auditing one vendor's UTSF file.
type AuditReport struct {
	VendorID           string
	HasGovernance      bool
	StoredCompliance   float64
	ComputedCompliance float64
	OverrideCount      int
	NeedsRepair        bool
}

func hasGovernance(f *File) bool {
	return f.Meta.Created.At != "" && f.Meta.Version != ""
}

// computeCompliance is 1 - (sum of missing pincodes / sum of master
// pincodes) across every MPC zone, per spec.md 4.4.
func computeCompliance(catalog *mpc.Catalog, f *File) float64 {
	var totalMaster, totalMissing int

	for _, zone := range catalog.Zones() {
		master := catalog.PincodesOfZone(zone)
		totalMaster += len(master)

		zc, ok := f.Serviceability[zone]
		var served map[int]struct{}
		if ok {
			served = materialize(catalog, zone, zc)
		} else {
			served = map[int]struct{}{}
		}

		for _, p := range master {
			if _, ok := served[p]; !ok {
				totalMissing++
			}
		}
	}

	if totalMaster == 0 {
		return 1.0
	}
	return 1.0 - float64(totalMissing)/float64(totalMaster)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Audit scans one vendor's file and reports governance and compliance
// status without modifying anything.
func (m *Manager) Audit(vendorID string) (*AuditReport, error) {
	f, err := LoadFile(m.filePath(vendorID))
	if err != nil {
		return nil, fmt.Errorf("utsf: audit %s: %w", vendorID, err)
	}
	return m.auditFile(f), nil
}

func (m *Manager) auditFile(f *File) *AuditReport {
	computed := computeCompliance(m.catalog, f)
	governed := hasGovernance(f)

	return &AuditReport{
		VendorID:           f.VendorID(),
		HasGovernance:      governed,
		StoredCompliance:   f.Stats.ComplianceScore,
		ComputedCompliance: computed,
		OverrideCount:      len(f.ZoneOverrides),
		NeedsRepair:        !governed || computed < 1.0,
	}
}

// AuditHistory returns one vendor's raw append-only update log, as
// recorded directly in its UTSF file.
func (m *Manager) AuditHistory(vendorID string) ([]UpdateEntry, error) {
	f, err := LoadFile(m.filePath(vendorID))
	if err != nil {
		return nil, fmt.Errorf("utsf: audit history %s: %w", vendorID, err)
	}
	return f.Updates, nil
}

// AuditAll audits every UTSF file in the Manager's directory.
func (m *Manager) AuditAll() ([]*AuditReport, []error) {
	files, loadErrs := LoadDir(m.dir)
	reports := make([]*AuditReport, 0, len(files))
	for _, id := range VendorIDs(files) {
		reports = append(reports, m.auditFile(files[id]))
	}
	return reports, loadErrs
}

// Compare reports per-zone master/served/missing detail for one vendor.
func (m *Manager) Compare(vendorID string) ([]ZoneStatus, error) {
	f, err := LoadFile(m.filePath(vendorID))
	if err != nil {
		return nil, fmt.Errorf("utsf: compare %s: %w", vendorID, err)
	}

	zones := m.catalog.Zones()
	statuses := make([]ZoneStatus, 0, len(zones))
	for _, zone := range zones {
		master := m.catalog.PincodesOfZone(zone)
		zc, hasCoverage := f.Serviceability[zone]

		var served map[int]struct{}
		if hasCoverage {
			served = materialize(m.catalog, zone, zc)
		} else {
			served = map[int]struct{}{}
		}

		missing := make([]int, 0)
		for _, p := range master {
			if _, ok := served[p]; !ok {
				missing = append(missing, p)
			}
		}

		statuses = append(statuses, ZoneStatus{
			Zone:            zone,
			MasterCount:     len(master),
			ServedCount:     len(served),
			MissingCount:    len(missing),
			MissingPincodes: missing,
		})
	}

	return statuses, nil
}

// repairSnapshot is the portion of a File that Rollback can restore.
type repairSnapshot struct {
	Meta           Meta                    `json:"meta"`
	Serviceability map[string]ZoneCoverage `json:"serviceability"`
	ZoneOverrides  map[string]string       `json:"zoneOverrides,omitempty"`
	Stats          Stats                   `json:"stats"`
}

func snapshotOf(f *File) repairSnapshot {
	return repairSnapshot{
		Meta:           f.Meta,
		Serviceability: f.Serviceability,
		ZoneOverrides:  f.ZoneOverrides,
		Stats:          f.Stats,
	}
}

// RepairResult summarizes what a Repair call changed.
type RepairResult struct {
	VendorID          string
	BackfilledGovernance bool
	VersionBumped     bool
	PromotedZones     []string
	UnblockedCount    int
	ComplianceBefore  float64
	ComplianceAfter   float64
}

// Repair is idempotent: running it twice against the same file produces
// byte-identical output modulo the newly appended audit entry (spec.md
// 9). It performs, in order: governance backfill, FULL_ZONE ->
// FULL_MINUS_EXCEPT promotion where drift is recorded, compliance
// recompute, soft-exclusion auto-unblock, and an atomic write.
func (m *Manager) Repair(vendorID, editorID string) (*RepairResult, error) {
	f, err := LoadFile(m.filePath(vendorID))
	if err != nil {
		return nil, fmt.Errorf("utsf: repair %s: %w", vendorID, err)
	}

	before := snapshotOf(f)
	complianceBefore := computeCompliance(m.catalog, f)

	result := &RepairResult{VendorID: vendorID, ComplianceBefore: complianceBefore}

	// Step 1: backfill governance headers; force Strict Mode.
	if !hasGovernance(f) {
		if f.Meta.Created.At == "" {
			f.Meta.Created = Created{By: editorID, At: nowRFC3339(), Source: "repair"}
		}
		if f.Meta.Version == "" {
			f.Meta.Version = bumpMajor(f.Meta.Version)
			result.VersionBumped = true
		}
		if f.Updates == nil {
			f.Updates = []UpdateEntry{}
		}
		result.BackfilledGovernance = true
	}
	f.Meta.IntegrityMode = Strict

	// Step 2: promote FULL_ZONE zones with recorded drift.
	for _, zone := range m.catalog.Zones() {
		zc, ok := f.Serviceability[zone]
		if !ok || zc.Variant != FullZone {
			continue
		}

		master := m.catalog.PincodesOfZone(zone)
		masterCount := len(master)
		if zc.ServedCount <= 0 || zc.ServedCount >= masterCount {
			continue
		}

		missing := append([]int(nil), master[zc.ServedCount:]...)
		ranges, singles := Compress(missing, m.compressThreshold)

		zc.Variant = FullMinusExcept
		zc.ExceptRanges = ranges
		zc.ExceptSingles = singles
		zc.ServedCount = masterCount - len(missing)
		if masterCount > 0 {
			zc.CoveragePercent = round2(float64(zc.ServedCount) / float64(masterCount) * 100)
		}
		f.Serviceability[zone] = zc
		result.PromotedZones = append(result.PromotedZones, zone)
	}

	// Step 3: recompute and store compliance.
	f.Stats.ComplianceScore = computeCompliance(m.catalog, f)
	result.ComplianceAfter = f.Stats.ComplianceScore

	// Step 4: soft-exclusion auto-unblock.
	for zone, zc := range f.Serviceability {
		if len(zc.SoftExclusions) == 0 {
			continue
		}

		rebuilt := materialize(m.catalog, zone, zc)
		zoneMaster := make(map[int]struct{})
		for _, p := range m.catalog.PincodesOfZone(zone) {
			zoneMaster[p] = struct{}{}
		}

		remaining := zc.SoftExclusions[:0:0]
		for _, p := range zc.SoftExclusions {
			_, inMaster := zoneMaster[p]
			_, inServed := rebuilt[p]
			if inMaster && inServed {
				result.UnblockedCount++
				continue
			}
			remaining = append(remaining, p)
		}
		zc.SoftExclusions = remaining
		f.Serviceability[zone] = zc
	}

	// Step 5: append audit entry; bump updateCount.
	snapshotJSON, _ := json.Marshal(before)
	summary := repairSummary(result)
	entry := UpdateEntry{
		Timestamp:     nowRFC3339(),
		EditorID:      editorID,
		Reason:        "repair",
		ChangeSummary: summary,
		Snapshot:      snapshotJSON,
	}
	f.Updates = append(f.Updates, entry)
	f.Meta.UpdateCount = len(f.Updates)

	// Step 6: persist atomically.
	if err := SaveFile(m.dir, f); err != nil {
		if m.metrics != nil {
			m.metrics.ObserveRepair("error")
		}
		return nil, fmt.Errorf("utsf: repair %s: %w", vendorID, err)
	}

	m.mirrorEntry(vendorID, entry)

	if m.metrics != nil {
		m.metrics.ObserveRepair("ok")
		m.metrics.AddSoftUnblocks(result.UnblockedCount)
	}

	return result, nil
}

func repairSummary(r *RepairResult) string {
	return fmt.Sprintf(
		"backfilledGovernance=%t versionBumped=%t promotedZones=%d unblocked=%d complianceBefore=%.4f complianceAfter=%.4f",
		r.BackfilledGovernance, r.VersionBumped, len(r.PromotedZones), r.UnblockedCount,
		r.ComplianceBefore, r.ComplianceAfter,
	)
}

// RepairAll repairs every vendor file in the directory sequentially; the
// `repair-all` CLI command calls it directly. The concurrent, NATS fan-out
// variant is RepairCoordinator in repair_worker.go, which runs inside the
// quoted process.
func (m *Manager) RepairAll(editorID string) ([]*RepairResult, []error) {
	files, loadErrs := LoadDir(m.dir)
	results := make([]*RepairResult, 0, len(files))
	var errs []error

	for _, id := range VendorIDs(files) {
		result, err := m.Repair(id, editorID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, result)
	}

	return results, append(errs, loadErrs...)
}

// Rollback restores a vendor's file to the state captured in the
// snapshot at updates[versionIndex], if one was recorded. An absent or
// unparseable snapshot is a no-op beyond appending the audit entry
// (spec.md 4.4, 7).
func (m *Manager) Rollback(vendorID string, versionIndex int, editorID string) error {
	f, err := LoadFile(m.filePath(vendorID))
	if err != nil {
		return fmt.Errorf("utsf: rollback %s: %w", vendorID, err)
	}

	if versionIndex < 0 || versionIndex >= len(f.Updates) {
		return fmt.Errorf("utsf: rollback %s: version index %d out of bounds (have %d updates)", vendorID, versionIndex, len(f.Updates))
	}

	target := f.Updates[versionIndex]
	restored := false
	if len(target.Snapshot) > 0 {
		var snap repairSnapshot
		if err := json.Unmarshal(target.Snapshot, &snap); err == nil {
			f.Meta = snap.Meta
			f.Serviceability = snap.Serviceability
			f.ZoneOverrides = snap.ZoneOverrides
			f.Stats = snap.Stats
			restored = true
		}
	}

	entry := UpdateEntry{
		Timestamp:     nowRFC3339(),
		EditorID:      editorID,
		Reason:        "rollback",
		ChangeSummary: fmt.Sprintf("rollback to update index %d, restored=%t", versionIndex, restored),
	}
	f.Updates = append(f.Updates, entry)
	f.Meta.UpdateCount = len(f.Updates)

	if err := SaveFile(m.dir, f); err != nil {
		return err
	}

	m.mirrorEntry(vendorID, entry)

	return nil
}

// VendorIDsOnDisk lists every vendor id currently present in the
// Manager's directory, read fresh from disk.
func (m *Manager) VendorIDsOnDisk() []string {
	files, _ := LoadDir(m.dir)
	return VendorIDs(files)
}

func (m *Manager) filePath(vendorID string) string {
	return joinDir(m.dir, vendorID+".json")
}

func joinDir(dir, name string) string {
	if dir == "" {
		return name
	}
	if dir[len(dir)-1] == '/' {
		return dir + name
	}
	return dir + "/" + name
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// bumpMajor parses a semantic version's major component and returns the
// next major as "<n>.0.0". A missing or unparseable version starts at
// "1.0.0".
func bumpMajor(version string) string {
	var major int
	if version != "" {
		fmt.Sscanf(version, "%d.", &major)
	}
	return fmt.Sprintf("%d.0.0", major+1)
}
