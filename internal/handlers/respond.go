package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-pos/gate"
	"github.com/diewo77/go-pos/httpx"
	"github.com/diewo77/go-pos/internal/services"
	"github.com/diewo77/go-pos/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// fail translates a service error into its response. Only unexpected errors
// are logged; the client never sees their text.
func fail(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var (
		stockErr *services.InsufficientStockError
		verr     *services.ValidationError
		nf       *services.NotFoundError
		conflict *services.ConflictError
	)
	switch {
	case errors.As(err, &stockErr):
		httpx.Validation(w, stockErr.Violations())
	case errors.As(err, &verr):
		httpx.Validation(w, verr.Violations)
	case errors.As(err, &nf):
		httpx.Error(w, http.StatusNotFound, nf.Error())
	case errors.As(err, &conflict):
		httpx.Error(w, http.StatusConflict, conflict.Message)
	case errors.Is(err, services.ErrUnauthenticated):
		httpx.Error(w, http.StatusUnauthorized, "Unable to resolve user from token or payload")
	case errors.Is(err, gate.ErrUnauthenticated):
		httpx.Error(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, gate.ErrForbidden):
		httpx.Error(w, http.StatusForbidden, "Forbidden")
	default:
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		httpx.Error(w, http.StatusInternalServerError, "Something went wrong")
	}
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
// Malformed JSON is a 400; well-formed JSON with a wrongly typed field is a
// 422 naming that field.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	raw, err := io.ReadAll(r.Body)
	if err != nil || (len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw)) {
		httpx.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		field, typ := badField(raw, dst, err)
		if field == "" {
			httpx.Error(w, http.StatusBadRequest, "Invalid JSON body")
			return false
		}
		v := validation.Violations{}
		v.Add(field, "The "+label(field)+" "+typeRule(typ)+".")
		httpx.Validation(w, v)
		return false
	}
	return true
}

// badField names the body field that failed to decode. Type mismatches carry
// it; errors from custom unmarshalers (decimals) do not, so each top-level
// field is retried on its own.
func badField(raw []byte, dst any, err error) (string, reflect.Type) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return typeErr.Field, typeErr.Type
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return "", nil
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return "", nil
	}
	st := rv.Elem().Type()
	for i := range st.NumField() {
		f := st.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		val, ok := fields[name]
		if !ok {
			continue
		}
		if json.Unmarshal(val, reflect.New(f.Type).Interface()) != nil {
			return name, f.Type
		}
	}
	return "", nil
}

var decimalType = reflect.TypeFor[decimal.Decimal]()

func typeRule(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "is invalid"
	}
	if t == decimalType {
		return "must be a number"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "must be an integer"
	case reflect.Float32, reflect.Float64:
		return "must be a number"
	case reflect.String:
		return "must be a string"
	case reflect.Bool:
		return "must be true or false"
	case reflect.Slice, reflect.Array:
		return "must be an array"
	}
	return "is invalid"
}

// pathID parses the {name} path segment. Anything but a positive integer
// cannot name a row, so it is answered as not found.
func pathID(w http.ResponseWriter, r *http.Request, name, entity string) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id == 0 {
		httpx.Error(w, http.StatusNotFound, entity+" not found")
		return 0, false
	}
	return uint(id), true
}

// query collects typed query parameters and their violations.
type query struct {
	values validation.Violations
	r      *http.Request
}

func newQuery(r *http.Request) *query {
	return &query{values: validation.Violations{}, r: r}
}

func (q *query) str(key string) string { return strings.TrimSpace(q.r.URL.Query().Get(key)) }

func (q *query) id(key string) uint {
	s := q.str(key)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		q.values.Add(key, "The "+label(key)+" must be an integer.")
		return 0
	}
	return uint(n)
}

func (q *query) number(key string) *int {
	s := q.str(key)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		q.values.Add(key, "The "+label(key)+" must be an integer.")
		return nil
	}
	return &n
}

func (q *query) amount(key string) *decimal.Decimal {
	s := q.str(key)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		q.values.Add(key, "The "+label(key)+" must be a number.")
		return nil
	}
	return &d
}

func (q *query) date(key string) *time.Time {
	s := q.str(key)
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		q.values.Add(key, "The "+label(key)+" does not match the format Y-m-d.")
		return nil
	}
	return &t
}

// page returns the requested page and limit; normalisation happens in the services.
func (q *query) page() (int, int) {
	page, limit := 1, services.DefaultPageSize
	if p := q.number("page"); p != nil && *p > 0 {
		page = *p
	}
	if l := q.number("limit"); l != nil && *l > 0 {
		limit = min(*l, services.MaxPageSize)
	}
	return page, limit
}

// dayRange turns inclusive start/end dates into a half-open [from, to) window.
func (q *query) dayRange(startKey, endKey string) (from, to *time.Time) {
	from = q.date(startKey)
	if end := q.date(endKey); end != nil {
		next := end.AddDate(0, 0, 1)
		to = &next
	}
	return from, to
}

// ok reports whether all parameters parsed, answering 422 otherwise.
func (q *query) ok(w http.ResponseWriter) bool {
	if q.values.Empty() {
		return true
	}
	httpx.Validation(w, q.values)
	return false
}

func label(key string) string { return strings.ReplaceAll(key, "_", " ") }
