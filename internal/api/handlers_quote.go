package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/pinggolf/freight-quote-core/internal/calculator"
	"github.com/pinggolf/freight-quote-core/internal/quoteerr"
	"github.com/pinggolf/freight-quote-core/internal/vendor"
)

// quoteRequest is the wire shape of POST /api/v1/quotes.
type quoteRequest struct {
	FromPincode  int    `json:"fromPincode"`
	ToPincode    int    `json:"toPincode"`
	ActualWeight float64 `json:"actualWeight"`

	ShipmentDetails []vendor.ShipmentItem   `json:"shipmentDetails,omitempty"`
	LegacyParams    vendor.LegacyDimensions `json:"legacyParams,omitempty"`

	InvoiceValue float64 `json:"invoiceValue,omitempty"`
	CustomerID   string  `json:"customerId,omitempty"`
}

type quoteResponse struct {
	Quotes           []calculator.Quote `json:"quotes"`
	VendorsProcessed int                `json:"vendorsProcessed"`
	Errors           int                `json:"errors"`
	DurationMs       int64              `json:"durationMs"`
	TimedOut         bool               `json:"timedOut"`
	Diagnostic       string             `json:"diagnostic,omitempty"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if req.FromPincode <= 0 || req.ToPincode <= 0 {
		writeError(w, http.StatusBadRequest, "fromPincode and toPincode are required")
		return
	}
	if req.ActualWeight <= 0 {
		writeError(w, http.StatusBadRequest, "actualWeight must be positive")
		return
	}

	routeCtx := calculator.RouteContext{
		FromPincode:     req.FromPincode,
		ToPincode:       req.ToPincode,
		ActualWeight:    req.ActualWeight,
		ShipmentDetails: req.ShipmentDetails,
		LegacyParams:    req.LegacyParams,
		InvoiceValue:    req.InvoiceValue,
		CustomerID:      req.CustomerID,
	}

	start := time.Now()
	result, err := s.dispatcher.Dispatch(r.Context(), routeCtx)
	if err != nil {
		if errors.Is(err, quoteerr.ErrNotServiceable) {
			s.observeQuote("not_serviceable", start)
			writeJSON(w, http.StatusOK, quoteResponse{
				Quotes:     []calculator.Quote{},
				Diagnostic: "no vendor serves this route",
			})
			return
		}
		if errors.Is(err, quoteerr.ErrTimeout) {
			s.observeQuote("timeout", start)
			writeError(w, http.StatusGatewayTimeout, "quote request timed out")
			return
		}
		log.Printf("dispatch failed: %v", err)
		s.observeQuote("error", start)
		writeError(w, http.StatusInternalServerError, "failed to compute quotes")
		return
	}

	s.observeQuote("ok", start)
	if s.metrics != nil {
		s.metrics.QuoteVendorsProcessed.Add(float64(result.VendorsProcessed))
		s.metrics.QuoteVendorsHidden.Add(float64(len(result.HiddenQuotes)))
		s.metrics.QuoteBatchDuration.Observe(result.Duration.Seconds())
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		Quotes:           result.Quotes,
		VendorsProcessed: result.VendorsProcessed,
		Errors:           result.Errors,
		DurationMs:       result.Duration.Milliseconds(),
		TimedOut:         result.TimedOut,
	})
}

func (s *Server) observeQuote(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.QuoteRequestsTotal.WithLabelValues(outcome).Inc()
	_ = start
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
