// Package httpx writes the JSON envelopes used by every endpoint:
//
//	{"meta": {"status": 200, "message": "Success"}, "data": ...}
//
// Validation failures use a flat body instead:
//
//	{"message": "The given data was invalid.", "errors": {"field": ["..."]}}
package httpx

import (
	"encoding/json"
	"net/http"
)

const ValidationMessage = "The given data was invalid."

type Meta struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type Envelope struct {
	Meta       Meta        `json:"meta"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page     int   `json:"page"`
	Limit    int   `json:"limit"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
	NextPage *int  `json:"next_page"`
	PrevPage *int  `json:"prev_page"`
}

// NewPagination derives page links from the total row count.
func NewPagination(page, limit int, total int64) *Pagination {
	last := 1
	if limit > 0 && total > 0 {
		last = int((total + int64(limit) - 1) / int64(limit))
	}
	p := &Pagination{Page: page, Limit: limit, Total: total, LastPage: last}
	if page < last {
		n := page + 1
		p.NextPage = &n
	}
	if page > 1 {
		n := page - 1
		p.PrevPage = &n
	}
	return p
}

type ValidationBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// JSON marshals payload before touching the writer so a failed encoding
// never leaves a half-written body.
func JSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"meta":{"status":500,"message":"encode_error"},"data":null}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Success writes data inside the envelope.
func Success(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{Meta: Meta{Status: status, Message: message}, Data: data})
}

// Paginated writes a page of items with its pagination block.
func Paginated(w http.ResponseWriter, message string, items any, p *Pagination) {
	JSON(w, http.StatusOK, Envelope{Meta: Meta{Status: http.StatusOK, Message: message}, Data: items, Pagination: p})
}

// Error writes an envelope with a null data field.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Meta: Meta{Status: status, Message: message}})
}

// Validation writes a 422 with field errors.
func Validation(w http.ResponseWriter, errs map[string][]string) {
	ValidationWithMessage(w, ValidationMessage, errs)
}

func ValidationWithMessage(w http.ResponseWriter, message string, errs map[string][]string) {
	JSON(w, http.StatusUnprocessableEntity, ValidationBody{Message: message, Errors: errs})
}
