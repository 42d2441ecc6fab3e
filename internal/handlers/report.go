package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/go-pos/httpx"
	"github.com/diewo77/go-pos/internal/services"
	"github.com/diewo77/go-pos/validation"
	"go.uber.org/zap"
)

// ReportHandler serves the admin reports over paid sales.
type ReportHandler struct {
	reports *services.ReportService
	log     *zap.Logger
	now     func() time.Time
}

func NewReportHandler(reports *services.ReportService, log *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, log: log, now: time.Now}
}

// window reads start_date/end_date (inclusive days). Both are required.
func (h *ReportHandler) window(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := newQuery(r)
	from, to := requiredRange(q, "start_date", "end_date")
	if !q.ok(w) {
		return time.Time{}, time.Time{}, false
	}
	return *from, *to, true
}

// requiredRange reads a pair of inclusive dates that must both be present,
// the end not before the start.
func requiredRange(q *query, startKey, endKey string) (from, to *time.Time) {
	from, to = q.dayRange(startKey, endKey)
	for key, val := range map[string]*time.Time{startKey: from, endKey: to} {
		if val == nil && !q.values.Has(key) {
			validation.Required(key, "", q.values)
		}
	}
	if from != nil && to != nil && !to.After(*from) {
		q.values.Add(endKey, "The "+label(endKey)+" must be a date after or equal to "+label(startKey)+".")
	}
	return from, to
}

func (h *ReportHandler) SalesRange(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.window(w, r)
	if !ok {
		return
	}
	sum, err := h.reports.SalesBetween(r.Context(), from, to)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Sales report generated successfully", sum)
}

// Daily reports on ?date=YYYY-MM-DD, today when omitted.
func (h *ReportHandler) Daily(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	day := q.date("date")
	if !q.ok(w) {
		return
	}
	if day == nil {
		now := h.now().UTC()
		day = &now
	}
	sum, err := h.reports.Daily(r.Context(), *day)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Daily sales report generated", sum)
}

func (h *ReportHandler) Profit(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.window(w, r)
	if !ok {
		return
	}
	out, err := h.reports.Profit(r.Context(), from, to)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Profit analysis report generated", out)
}

func (h *ReportHandler) Cashiers(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.window(w, r)
	if !ok {
		return
	}
	rows, err := h.reports.Cashiers(r.Context(), from, to)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Cashier performance report generated", rows)
}

func (h *ReportHandler) Products(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.ProductPerformance(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Product performance report generated", rows)
}

// SlowMoving looks back ?days= days, 30 when omitted.
func (h *ReportHandler) SlowMoving(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	days := q.number("days")
	if days != nil && *days < 1 {
		q.values.Add("days", "The days must be at least 1.")
	}
	if !q.ok(w) {
		return
	}
	lookback := 30
	if days != nil {
		lookback = *days
	}
	rows, err := h.reports.SlowMoving(r.Context(), lookback)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Slow moving products report generated", rows)
}

func (h *ReportHandler) ComparePeriods(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	from1, to1 := requiredRange(q, "period1_start", "period1_end")
	from2, to2 := requiredRange(q, "period2_start", "period2_end")
	if !q.ok(w) {
		return
	}
	out, err := h.reports.ComparePeriods(r.Context(),
		services.Period{From: *from1, To: *to1},
		services.Period{From: *from2, To: *to2})
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Period comparison report generated", out)
}
