package utsf

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pinggolf/freight-quote-core/internal/mpc"
)

// snapshot is one immutable epoch of loaded UTSF files plus the MPC they
// are checked against. Readers holding a *snapshot finish on it even
// after Reload swaps the Service's pointer (spec.md 5: copy-on-reload).
type snapshot struct {
	mpc   *mpc.Catalog
	files map[string]*File
	cache sync.Map // "<vendorID>|<zone>" -> map[int]struct{}
}

func (s *snapshot) servedSet(vendorID, zone string, zc ZoneCoverage) map[int]struct{} {
	key := vendorID + "|" + zone
	if v, ok := s.cache.Load(key); ok {
		return v.(map[int]struct{})
	}
	set := materialize(s.mpc, zone, zc)
	actual, _ := s.cache.LoadOrStore(key, set)
	return actual.(map[int]struct{})
}

// materialize computes the served pincode set for one zone's coverage,
// per spec.md 3's ZoneCoverage variants.
func materialize(catalog *mpc.Catalog, zone string, zc ZoneCoverage) map[int]struct{} {
	switch zc.Variant {
	case FullZone:
		base := catalog.PincodesOfZone(zone)
		served := base
		if zc.ServedCount > 0 && zc.ServedCount < len(base) {
			served = base[:zc.ServedCount]
		}
		out := make(map[int]struct{}, len(served))
		for _, p := range served {
			out[p] = struct{}{}
		}
		return out

	case FullMinusExcept:
		base := catalog.PincodesOfZone(zone)
		excluded := Expand(zc.ExceptRanges, zc.ExceptSingles)
		out := make(map[int]struct{}, len(base))
		for _, p := range base {
			if _, bad := excluded[p]; bad {
				continue
			}
			out[p] = struct{}{}
		}
		return out

	case OnlyServed:
		return Expand(zc.ServedRanges, zc.ServedSingles)

	default: // NotServed, or an unrecognized variant
		return map[int]struct{}{}
	}
}

// Service is the in-memory index of all UTSF files for a process,
// answering serviceability queries with no I/O on the hot path.
type Service struct {
	current    atomic.Pointer[snapshot]
	strictMode bool
}

// NewService builds a Service over a freshly loaded snapshot. strictMode
// is the process-wide default; a vendor file's own meta.integrityMode can
// independently force Strict behavior for that vendor even when the
// process default is Permissive.
func NewService(catalog *mpc.Catalog, files map[string]*File, strictMode bool) *Service {
	s := &Service{strictMode: strictMode}
	s.current.Store(&snapshot{mpc: catalog, files: files})
	return s
}

// Reload swaps in a freshly loaded MPC/UTSF pair atomically. In-flight
// readers holding the previous *snapshot via Load() finish on it.
func (s *Service) Reload(catalog *mpc.Catalog, files map[string]*File) {
	s.current.Store(&snapshot{mpc: catalog, files: files})
}

// File returns the current snapshot's copy of a vendor's UTSF file, or
// nil if the vendor is unknown.
func (s *Service) File(vendorID string) *File {
	return s.current.Load().files[vendorID]
}

// VendorIDs returns every vendor id present in the current snapshot.
func (s *Service) VendorIDs() []string {
	return VendorIDs(s.current.Load().files)
}

// IsServiceable reports whether vendorID serves pincode, honoring Strict
// Mode, soft exclusions and zone overrides per spec.md 4.3.
func (s *Service) IsServiceable(vendorID string, pincode int) bool {
	snap := s.current.Load()

	file, ok := snap.files[vendorID]
	if !ok {
		return false
	}

	strict := s.strictMode || file.Meta.IntegrityMode == Strict
	inMPC := snap.mpc.Contains(pincode)
	if strict && !inMPC {
		return false
	}

	zone, hasZone := resolveZone(snap, file, pincode)
	if !hasZone {
		return false
	}

	zc, ok := file.Serviceability[zone]
	if !ok {
		return false
	}

	for _, soft := range zc.SoftExclusions {
		if soft == pincode {
			return false
		}
	}

	_, served := snap.servedSet(vendorID, zone, zc)[pincode]
	return served
}

// resolveZone determines the effective zone to consult for pincode:
// zoneOverrides win over the MPC-derived zone (spec.md 4.3). When an
// override maps to a zone the vendor's file never mentions, or no zone
// can be resolved at all, the open question in spec.md 9 is answered by
// treating this as "not served" rather than guessing.
func resolveZone(snap *snapshot, file *File, pincode int) (string, bool) {
	if file.ZoneOverrides != nil {
		if zone, ok := file.ZoneOverrides[strconv.Itoa(pincode)]; ok {
			return zone, true
		}
	}
	return snap.mpc.ZoneOf(pincode)
}

// ZoneStatus is the per-zone detail produced by Compare.
type ZoneStatus struct {
	Zone           string
	MasterCount    int
	ServedCount    int
	MissingCount   int
	MissingPincodes []int
}

// Compare reports, per zone, how a vendor's declared coverage measures up
// against the MPC (spec.md 4.4).
func (s *Service) Compare(vendorID string) ([]ZoneStatus, bool) {
	snap := s.current.Load()
	file, ok := snap.files[vendorID]
	if !ok {
		return nil, false
	}

	zones := snap.mpc.Zones()
	statuses := make([]ZoneStatus, 0, len(zones))

	for _, zone := range zones {
		master := snap.mpc.PincodesOfZone(zone)
		zc, hasCoverage := file.Serviceability[zone]

		var served map[int]struct{}
		if hasCoverage {
			served = snap.servedSet(vendorID, zone, zc)
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

	return statuses, true
}
