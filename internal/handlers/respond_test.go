package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-pos/gate"
	"github.com/diewo77/go-pos/httpx"
	"github.com/diewo77/go-pos/internal/services"
	"github.com/diewo77/go-pos/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFail_MapsServiceErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", &services.NotFoundError{Entity: "Sale"}, http.StatusNotFound, "Sale not found"},
		{"wrapped not found", fmt.Errorf("load: %w", &services.NotFoundError{Entity: "Product"}), http.StatusNotFound, "Product not found"},
		{"conflict", &services.ConflictError{Message: "Cannot add items: sale 1 is paid"}, http.StatusConflict, "Cannot add items: sale 1 is paid"},
		{"no user", services.ErrUnauthenticated, http.StatusUnauthorized, "Unable to resolve user from token or payload"},
		{"no token", gate.ErrUnauthenticated, http.StatusUnauthorized, "Unauthorized"},
		{"forbidden", gate.ErrForbidden, http.StatusForbidden, "Forbidden"},
		{"unexpected", errors.New("db exploded"), http.StatusInternalServerError, "Something went wrong"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			fail(rec, httptest.NewRequest(http.MethodGet, "/x", nil), zap.NewNop(), tc.err)
			assert.Equal(t, tc.status, rec.Code)
			var env httpx.Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, tc.status, env.Meta.Status)
			assert.Equal(t, tc.message, env.Meta.Message)
		})
	}
}

func TestFail_ValidationBodies(t *testing.T) {
	rec := httptest.NewRecorder()
	stock := &services.InsufficientStockError{ProductID: 1, Product: "Kopi", Available: 2, Requested: 5}
	fail(rec, httptest.NewRequest(http.MethodPost, "/sales/items", nil), zap.NewNop(), stock)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body httpx.ValidationBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, httpx.ValidationMessage, body.Message)
	assert.Equal(t, []string{"Insufficient stock for product 'Kopi' (available: 2, requested: 5)"}, body.Errors["quantity"])

	rec = httptest.NewRecorder()
	v := validation.Violations{}
	validation.Required("name", "", v)
	fail(rec, httptest.NewRequest(http.MethodPost, "/products", nil), zap.NewNop(), &services.ValidationError{Violations: v})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "The name field is required.")
}

func TestFail_LogsOnlyUnexpected(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	req := httptest.NewRequest(http.MethodDelete, "/sales/3", nil)

	fail(httptest.NewRecorder(), req, log, &services.NotFoundError{Entity: "Sale"})
	assert.Zero(t, logs.Len())

	fail(httptest.NewRecorder(), req, log, errors.New("connection reset"))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "/sales/3", entry.ContextMap()["path"])
}

func TestDecode(t *testing.T) {
	var body struct {
		Name string `json:"name"`
	}
	rec := httptest.NewRecorder()
	assert.True(t, decode(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Kopi"}`)), &body))
	assert.Equal(t, "Kopi", body.Name)

	assert.True(t, decode(rec, httptest.NewRequest(http.MethodPost, "/", http.NoBody), &body))

	rec = httptest.NewRecorder()
	assert.False(t, decode(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`)), &body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid JSON body")
}

func TestPathID(t *testing.T) {
	for raw, want := range map[string]bool{"7": true, "0": false, "-1": false, "abc": false} {
		req := httptest.NewRequest(http.MethodGet, "/sales/"+raw, nil)
		req.SetPathValue("id", raw)
		rec := httptest.NewRecorder()
		id, ok := pathID(rec, req, "id", "Sale")
		assert.Equal(t, want, ok, raw)
		if want {
			assert.Equal(t, uint(7), id)
		} else {
			assert.Equal(t, http.StatusNotFound, rec.Code, raw)
			assert.Contains(t, rec.Body.String(), "Sale not found")
		}
	}
}

func TestQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/products?category_id=3&min_price=1500.50&min_stock=2&start_date=2024-03-01&end_date=2024-03-15&limit=1000", nil)
	q := newQuery(req)

	assert.Equal(t, uint(3), q.id("category_id"))
	require.NotNil(t, q.amount("min_price"))
	assert.True(t, decimal.RequireFromString("1500.50").Equal(*q.amount("min_price")))
	assert.Equal(t, 2, *q.number("min_stock"))
	assert.Nil(t, q.number("missing"))

	from, to := q.dayRange("start_date", "end_date")
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *from)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), *to)

	page, limit := q.page()
	assert.Equal(t, 1, page)
	assert.Equal(t, services.MaxPageSize, limit)

	rec := httptest.NewRecorder()
	assert.True(t, q.ok(rec))
}

func TestQuery_CollectsViolations(t *testing.T) {
	q := newQuery(httptest.NewRequest(http.MethodGet, "/sales?user_id=x&start_date=15-03-2024&max_price=cheap", nil))
	assert.Zero(t, q.id("user_id"))
	assert.Nil(t, q.date("start_date"))
	assert.Nil(t, q.amount("max_price"))

	rec := httptest.NewRecorder()
	assert.False(t, q.ok(rec))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body httpx.ValidationBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"The user id must be an integer."}, body.Errors["user_id"])
	assert.Equal(t, []string{"The start date does not match the format Y-m-d."}, body.Errors["start_date"])
	assert.Equal(t, []string{"The max price must be a number."}, body.Errors["max_price"])
}

func TestAmountBody(t *testing.T) {
	cases := []struct {
		body   string
		ok     bool
		amount string
		errMsg string
	}{
		{`{"discount_amount": 2500}`, true, "2500", ""},
		{`{"discount_amount": "1250.75"}`, true, "1250.75", ""},
		{`{}`, false, "", "The discount amount field is required."},
		{`{"discount_amount": null}`, false, "", "The discount amount field is required."},
		{`{"discount_amount": "lots"}`, false, "", "The discount amount must be a number."},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/sales/1/discount", strings.NewReader(tc.body))
		amount, ok := amountBody(rec, req, "discount_amount")
		assert.Equal(t, tc.ok, ok, tc.body)
		if tc.ok {
			assert.True(t, decimal.RequireFromString(tc.amount).Equal(amount), tc.body)
			continue
		}
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, tc.body)
		assert.Contains(t, rec.Body.String(), tc.errMsg, tc.body)
	}
}
