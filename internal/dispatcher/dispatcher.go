// Package dispatcher fans a quote request out across a fixed pool of
// goroutine workers, collects results, and ranks them (spec.md 4.8, 5).
// Workers are message-passing isolates: each receives an immutable batch
// by channel and returns an immutable result batch by channel, so no
// lock guards the hot path (spec.md 9 "Workers as message-passing
// isolates").
package dispatcher

import (
	"context"
	"sort"
	"time"

	"github.com/pinggolf/freight-quote-core/internal/calculator"
	"github.com/pinggolf/freight-quote-core/internal/mpc"
	"github.com/pinggolf/freight-quote-core/internal/quoteerr"
	"github.com/pinggolf/freight-quote-core/internal/utsf"
	"github.com/pinggolf/freight-quote-core/internal/vendor"
)

// Config tunes partitioning and deadline behavior. WorkerCount and
// BatchMin are fixed per run, as spec.md 4.8 requires.
type Config struct {
	WorkerCount    int
	BatchMin       int
	RequestTimeout time.Duration
}

// Result is the outcome of dispatching one quote request.
type Result struct {
	Quotes         []calculator.Quote // ranked, hidden vendors excluded
	HiddenQuotes   []calculator.Quote // computed but suppressed, spec.md 4.8
	VendorsProcessed int
	Errors         int
	Duration       time.Duration
	TimedOut       bool
}

// Dispatcher owns the candidate-selection and fan-out/fan-in pipeline
// for one process.
type Dispatcher struct {
	catalog *vendor.Catalog
	mpc     *mpc.Catalog
	service *utsf.Service
	cfg     Config
}

// New builds a Dispatcher over the given collaborators.
func New(catalog *vendor.Catalog, catalogMPC *mpc.Catalog, service *utsf.Service, cfg Config) *Dispatcher {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 4
	}
	if cfg.BatchMin < 1 {
		cfg.BatchMin = 10
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Dispatcher{catalog: catalog, mpc: catalogMPC, service: service, cfg: cfg}
}

// batchJob is the immutable message sent to a worker goroutine.
type batchJob struct {
	index   int
	vendors []vendor.Vendor
	ctx     calculator.RouteContext
}

// batchResult is the immutable message a worker returns.
type batchResult struct {
	index  int
	quotes []calculator.Quote
	errors int
}

// Dispatch resolves candidates, partitions them into batches, fans the
// batches out to workers, waits for completion or the request deadline,
// and returns the ranked result (spec.md 4.8).
func (d *Dispatcher) Dispatch(parent context.Context, routeCtx calculator.RouteContext) (*Result, error) {
	start := time.Now()

	candidates := vendor.Candidates(d.catalog, d.service, d.mpc, routeCtx.FromPincode, routeCtx.ToPincode)
	if len(candidates) == 0 {
		return &Result{Duration: time.Since(start)}, quoteerr.ErrNotServiceable
	}

	ctx, cancel := context.WithTimeout(parent, d.cfg.RequestTimeout)
	defer cancel()

	batches := partition(candidates, d.cfg.WorkerCount, d.cfg.BatchMin)

	jobs := make(chan batchJob, len(batches))
	results := make(chan batchResult, len(batches))

	workerCount := d.cfg.WorkerCount
	if workerCount > len(batches) {
		workerCount = len(batches)
	}
	for w := 0; w < workerCount; w++ {
		go worker(ctx, jobs, results)
	}

	for i, batch := range batches {
		jobs <- batchJob{index: i, vendors: batch, ctx: routeCtx}
	}
	close(jobs)

	all := make([]calculator.Quote, 0, len(candidates))
	vendorsProcessed := 0
	errorCount := 0
	timedOut := false

	received := 0
collect:
	for received < len(batches) {
		select {
		case r := <-results:
			all = append(all, r.quotes...)
			vendorsProcessed += len(batches[r.index])
			errorCount += r.errors
			received++
		case <-ctx.Done():
			timedOut = true
			break collect // remaining batches are abandoned; discard on arrival
		}
	}

	visible, hidden := splitHidden(all)
	rank(visible)
	rank(hidden)

	result := &Result{
		Quotes:           visible,
		HiddenQuotes:     hidden,
		VendorsProcessed: vendorsProcessed,
		Errors:           errorCount,
		Duration:         time.Since(start),
		TimedOut:         timedOut,
	}

	if timedOut && len(visible) == 0 {
		return result, quoteerr.ErrTimeout
	}
	return result, nil
}

// worker computes quotes for each batch it receives. It never lets a
// per-vendor panic or error escape: failures are counted and the vendor
// is dropped, matching the Worker message protocol (spec.md 6).
func worker(ctx context.Context, jobs <-chan batchJob, results chan<- batchResult) {
	for job := range jobs {
		quotes := make([]calculator.Quote, 0, len(job.vendors))
		errs := 0

		for _, v := range job.vendors {
			quote, err := safeCalculate(v, job.ctx)
			if err != nil {
				errs++
				continue
			}
			if quote == nil {
				continue // pricing miss, silently dropped per spec.md 7
			}
			quotes = append(quotes, *quote)
		}

		select {
		case results <- batchResult{index: job.index, quotes: quotes, errors: errs}:
		case <-ctx.Done():
		}
	}
}

// safeCalculate recovers a panicking per-vendor computation into a
// WorkerError rather than letting it cross the worker boundary
// (spec.md 6: "A worker never throws past the boundary").
func safeCalculate(v vendor.Vendor, ctx calculator.RouteContext) (q *calculator.Quote, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &quoteerr.WorkerError{VendorID: v.ID, VendorName: v.CompanyName, ErrorMessage: "panic during calculation"}
		}
	}()
	return calculator.Calculate(v, ctx)
}

// partition splits candidates into min(workerCount, ceil(n/batchMin))
// roughly-equal batches (spec.md 4.8).
func partition(candidates []vendor.Vendor, workerCount, batchMin int) [][]vendor.Vendor {
	n := len(candidates)
	batchCount := (n + batchMin - 1) / batchMin
	if batchCount < 1 {
		batchCount = 1
	}
	if batchCount > workerCount {
		batchCount = workerCount
	}
	if batchCount < 1 {
		batchCount = 1
	}

	batches := make([][]vendor.Vendor, batchCount)
	base := n / batchCount
	remainder := n % batchCount

	offset := 0
	for i := 0; i < batchCount; i++ {
		size := base
		if i < remainder {
			size++
		}
		batches[i] = candidates[offset : offset+size]
		offset += size
	}
	return batches
}

// splitHidden separates quotes whose vendor is flagged isHidden; hidden
// vendors are suppressed from the primary ranked list but remain
// available as an auxiliary output (spec.md 4.8).
func splitHidden(quotes []calculator.Quote) (visible, hidden []calculator.Quote) {
	for _, q := range quotes {
		if q.IsHidden {
			hidden = append(hidden, q)
		} else {
			visible = append(visible, q)
		}
	}
	return visible, hidden
}

// rank orders quotes by total ascending, rating descending, company name
// ascending, per spec.md 4.8 and the tie-break open question in spec.md 9.
func rank(quotes []calculator.Quote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		a, b := quotes[i], quotes[j]
		if a.Total != b.Total {
			return a.Total < b.Total
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.CompanyName < b.CompanyName
	})
}
