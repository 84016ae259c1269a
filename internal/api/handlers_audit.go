package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
)

type auditEntryResponse struct {
	Timestamp     string `json:"timestamp"`
	EditorID      string `json:"editorId"`
	Reason        string `json:"reason"`
	ChangeSummary string `json:"changeSummary"`
}

type auditResponse struct {
	VendorID           string               `json:"vendorId"`
	HasGovernance      bool                 `json:"hasGovernance"`
	StoredCompliance   float64              `json:"storedCompliance"`
	ComputedCompliance float64              `json:"computedCompliance"`
	OverrideCount      int                  `json:"overrideCount"`
	NeedsRepair        bool                 `json:"needsRepair"`
	History            []auditEntryResponse `json:"history"`
}

// handleVendorAudit returns governance/compliance status for one vendor
// plus its update history. History prefers the Postgres mirror (queryable
// across runs); it falls back to the UTSF file's own updates[] when no
// mirror is configured, since that array is the authoritative source
// either way.
func (s *Server) handleVendorAudit(w http.ResponseWriter, r *http.Request) {
	vendorID := mux.Vars(r)["vendorID"]
	if vendorID == "" {
		writeError(w, http.StatusBadRequest, "vendorID is required")
		return
	}

	report, err := s.manager.Audit(vendorID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "vendor not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to audit vendor")
		return
	}

	if s.metrics != nil {
		s.metrics.UTSFComplianceScore.WithLabelValues(vendorID).Set(report.ComputedCompliance)
	}

	history := s.auditHistory(r, vendorID)

	writeJSON(w, http.StatusOK, auditResponse{
		VendorID:           report.VendorID,
		HasGovernance:      report.HasGovernance,
		StoredCompliance:   report.StoredCompliance,
		ComputedCompliance: report.ComputedCompliance,
		OverrideCount:      report.OverrideCount,
		NeedsRepair:        report.NeedsRepair,
		History:            history,
	})
}

func (s *Server) auditHistory(r *http.Request, vendorID string) []auditEntryResponse {
	const defaultLimit = 50

	if s.auditMirror != nil {
		limit := defaultLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		entries, err := s.auditMirror.AuditEntriesForVendor(r.Context(), vendorID, limit)
		if err == nil {
			out := make([]auditEntryResponse, 0, len(entries))
			for _, e := range entries {
				out = append(out, auditEntryResponse{
					Timestamp:     e.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
					EditorID:      e.EditorID,
					Reason:        e.Reason,
					ChangeSummary: e.ChangeSummary,
				})
			}
			return out
		}
	}

	updates, err := s.manager.AuditHistory(vendorID)
	if err != nil {
		return nil
	}
	out := make([]auditEntryResponse, 0, len(updates))
	for _, u := range updates {
		out = append(out, auditEntryResponse{
			Timestamp:     u.Timestamp,
			EditorID:      u.EditorID,
			Reason:        u.Reason,
			ChangeSummary: u.ChangeSummary,
		})
	}
	return out
}
