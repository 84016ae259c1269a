// Package utsf implements the Unified Transporter Serviceability Format:
// the compressed, zone-partitioned coverage representation stored one
// file per vendor, the codec that compresses/expands pincode sets, the
// in-memory service that answers serviceability queries, and the control
// plane that audits, repairs and rolls back these files against the
// Master Pincode Catalog.
package utsf

import (
	"encoding/json"
	"fmt"
)

// Variant identifies which ZoneCoverage shape a zone uses.
type Variant string

const (
	FullZone        Variant = "FULL_ZONE"
	FullMinusExcept Variant = "FULL_MINUS_EXCEPT"
	OnlyServed      Variant = "ONLY_SERVED"
	NotServed       Variant = "NOT_SERVED"
)

// normalizeVariant accepts the backwards-compatible alias
// FULL_MINUS_EXCEPTIONS required by spec.
func normalizeVariant(raw string) Variant {
	if raw == "FULL_MINUS_EXCEPTIONS" {
		return FullMinusExcept
	}
	return Variant(raw)
}

// Range is an inclusive [S, E] pincode range, stored canonically sorted
// by start and non-overlapping within a given array (invariant I1).
type Range struct {
	S int `json:"s"`
	E int `json:"e"`
}

// UnmarshalJSON tolerates both object form {"s":..,"e":..} and the
// 2-tuple form [s,e] for forward compatibility (spec.md 4.2).
func (r *Range) UnmarshalJSON(data []byte) error {
	var obj struct {
		S int `json:"s"`
		E int `json:"e"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && (obj.S != 0 || obj.E != 0) {
		r.S, r.E = obj.S, obj.E
		return nil
	}

	var tuple [2]int
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("utsf: range must be {s,e} or [s,e]: %w", err)
	}
	r.S, r.E = tuple[0], tuple[1]
	return nil
}

// ZoneCoverage is the tagged-variant coverage description for one zone
// within one vendor's UTSF file. Only the fields relevant to Variant are
// meaningful; this is a sum type expressed as a struct with a discriminant
// rather than optional fields scattered across an interface, by design
// (see spec.md 9: "Coverage as tagged variants").
type ZoneCoverage struct {
	Variant Variant `json:"variant"`

	ExceptRanges  []Range `json:"exceptRanges,omitempty"`
	ExceptSingles []int   `json:"exceptSingles,omitempty"`

	ServedRanges  []Range `json:"servedRanges,omitempty"`
	ServedSingles []int   `json:"servedSingles,omitempty"`

	// SoftExclusions are temporarily blocked pincodes that auto-unblock
	// once evidence shows the vendor now serves them (spec.md 4.4 step 4).
	// Distinct from ExceptSingles by design (invariant I4).
	SoftExclusions []int `json:"softExclusions,omitempty"`

	ServedCount     int     `json:"servedCount,omitempty"`
	CoveragePercent float64 `json:"coveragePercent,omitempty"`
}

// zoneCoverageAlias mirrors ZoneCoverage but exists purely so
// UnmarshalJSON can read both the camelCase canonical field names and
// the snake_case aliases spec.md 6 requires readers to accept.
type zoneCoverageAlias struct {
	Variant string `json:"variant"`

	ExceptRanges     []Range `json:"exceptRanges"`
	ExceptRangesSnake []Range `json:"except_ranges"`
	ExceptSingles     []int   `json:"exceptSingles"`
	ExceptSinglesSnake []int  `json:"except_singles"`

	ServedRanges      []Range `json:"servedRanges"`
	ServedRangesSnake []Range `json:"served_ranges"`
	ServedSingles     []int   `json:"servedSingles"`
	ServedSinglesSnake []int  `json:"served_singles"`

	SoftExclusions []int `json:"softExclusions"`

	ServedCount     int     `json:"servedCount"`
	CoveragePercent float64 `json:"coveragePercent"`
}

func firstNonEmptyRanges(a, b []Range) []Range {
	if len(a) > 0 {
		return a
	}
	return b
}

func firstNonEmptyInts(a, b []int) []int {
	if len(a) > 0 {
		return a
	}
	return b
}

// UnmarshalJSON reads either the canonical camelCase field names or the
// documented backwards-compatible snake_case aliases.
func (z *ZoneCoverage) UnmarshalJSON(data []byte) error {
	var alias zoneCoverageAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	z.Variant = normalizeVariant(alias.Variant)
	z.ExceptRanges = firstNonEmptyRanges(alias.ExceptRanges, alias.ExceptRangesSnake)
	z.ExceptSingles = firstNonEmptyInts(alias.ExceptSingles, alias.ExceptSinglesSnake)
	z.ServedRanges = firstNonEmptyRanges(alias.ServedRanges, alias.ServedRangesSnake)
	z.ServedSingles = firstNonEmptyInts(alias.ServedSingles, alias.ServedSinglesSnake)
	z.SoftExclusions = alias.SoftExclusions
	z.ServedCount = alias.ServedCount
	z.CoveragePercent = alias.CoveragePercent
	return nil
}

// MarshalJSON always emits the canonical camelCase form and variant name,
// per spec.md 6 ("Writers must emit the camelCase form and the canonical
// variant name").
func (z ZoneCoverage) MarshalJSON() ([]byte, error) {
	type canonical struct {
		Variant         Variant `json:"variant"`
		ExceptRanges    []Range `json:"exceptRanges,omitempty"`
		ExceptSingles   []int   `json:"exceptSingles,omitempty"`
		ServedRanges    []Range `json:"servedRanges,omitempty"`
		ServedSingles   []int   `json:"servedSingles,omitempty"`
		SoftExclusions  []int   `json:"softExclusions,omitempty"`
		ServedCount     int     `json:"servedCount,omitempty"`
		CoveragePercent float64 `json:"coveragePercent,omitempty"`
	}
	return json.Marshal(canonical{
		Variant:         z.Variant,
		ExceptRanges:    z.ExceptRanges,
		ExceptSingles:   z.ExceptSingles,
		ServedRanges:    z.ServedRanges,
		ServedSingles:   z.ServedSingles,
		SoftExclusions:  z.SoftExclusions,
		ServedCount:     z.ServedCount,
		CoveragePercent: z.CoveragePercent,
	})
}

// Created captures who/what/when produced a UTSF file or revision.
type Created struct {
	By     string `json:"by"`
	At     string `json:"at"`
	Source string `json:"source"`
}

// IntegrityMode selects whether phantom pincodes (not present in the MPC)
// are ever allowed to be served.
type IntegrityMode string

const (
	Strict     IntegrityMode = "STRICT"
	Permissive IntegrityMode = "PERMISSIVE"
)

// Meta is the governance header of a UTSF file.
type Meta struct {
	ID            string        `json:"id"`
	CompanyName   string        `json:"companyName"`
	Version       string        `json:"version"`
	Created       Created       `json:"created"`
	UpdateCount   int           `json:"updateCount"`
	IntegrityMode IntegrityMode `json:"integrityMode"`
}

// UpdateEntry is one append-only audit entry in a UTSF file's history.
type UpdateEntry struct {
	Timestamp     string          `json:"timestamp"`
	EditorID      string          `json:"editorId"`
	Reason        string          `json:"reason"`
	ChangeSummary string          `json:"changeSummary"`
	Snapshot      json.RawMessage `json:"snapshot,omitempty"`
}

// Stats holds the aggregate governance metrics for a vendor.
type Stats struct {
	ComplianceScore float64 `json:"complianceScore"`
}

// File is one vendor's complete UTSF document.
type File struct {
	Meta           Meta                    `json:"meta"`
	Serviceability map[string]ZoneCoverage `json:"serviceability"`
	ZoneOverrides  map[string]string       `json:"zoneOverrides,omitempty"`
	Stats          Stats                   `json:"stats"`
	Updates        []UpdateEntry           `json:"updates"`
}

// VendorID returns the vendor identifier this file belongs to.
func (f *File) VendorID() string {
	return f.Meta.ID
}
