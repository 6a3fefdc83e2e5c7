package shared

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Status is the code and message attached to one item or to a whole batch call.
// Code follows HTTP semantics: 200 means success, everything else is a failure.
type Status struct {
	ID      string `json:"id,omitempty"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// IsSuccess reports whether the status signals success.
func (s Status) IsSuccess() bool {
	return s.Code == http.StatusOK
}

// WithID returns a copy of the status bound to an item id.
func (s Status) WithID(id string) Status {
	s.ID = id
	return s
}

// Withf returns a copy of the status whose message is formatted with args.
// Templates use %s placeholders, e.g. "%s %s not found".
func (s Status) Withf(args ...any) Status {
	s.Message = fmt.Sprintf(s.Message, args...)
	return s
}

// Err wraps the status so it can travel through an error return.
func (s Status) Err() error {
	return &StatusError{Status: s}
}

func (s Status) String() string {
	if s.ID != "" {
		return fmt.Sprintf("%d %s (%s)", s.Code, s.Message, s.ID)
	}
	return fmt.Sprintf("%d %s", s.Code, s.Message)
}

// StatusError carries a Status as an error. Aggregation and pricing abort by
// returning one so the batch handler can surface the original code and message.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return e.Status.String()
}

// AsStatus extracts the Status carried by err, either a *StatusError or any
// error with a Status() method. DomainErrors are mapped onto a matching code.
func AsStatus(err error) (Status, bool) {
	if err == nil {
		return StatusSuccess, false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	var sc interface{ Status() Status }
	if errors.As(err, &sc) {
		return sc.Status(), true
	}
	var de *DomainError
	if errors.As(err, &de) {
		return Status{Code: domainErrorCode(de.Code), Message: de.Message}, true
	}
	return Status{Code: http.StatusInternalServerError, Message: err.Error()}, false
}

func domainErrorCode(code string) int {
	switch code {
	case ErrNotFound.Code:
		return http.StatusNotFound
	case ErrInvalidInput.Code, ErrInvalidState.Code:
		return http.StatusBadRequest
	case ErrAlreadyExists.Code, ErrConcurrencyConflict.Code:
		return http.StatusConflict
	case ErrUnauthorized.Code:
		return http.StatusUnauthorized
	case ErrForbidden.Code:
		return http.StatusForbidden
	}
	// validation codes such as INVALID_QUANTITY or NO_ITEMS
	if strings.HasPrefix(code, "INVALID_") || strings.HasPrefix(code, "NO_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Item and operation status table. Messages are templates consumed by Withf.
var (
	StatusSuccess           = Status{Code: http.StatusOK, Message: "success"}
	StatusPartial           = Status{Code: http.StatusMultiStatus, Message: "Partially executed with errors"}
	StatusNotFound          = Status{Code: http.StatusNotFound, Message: "%s %s not found"}
	StatusNoLegalAddress    = Status{Code: http.StatusNotFound, Message: "%s %s has no legal address"}
	StatusNoShippingAddress = Status{Code: http.StatusNotFound, Message: "%s %s has no shipping address"}
	StatusNoItem            = Status{Code: http.StatusBadRequest, Message: "No item in request"}
	StatusInvalidState      = Status{Code: http.StatusBadRequest, Message: "%s %s is in state %s, expected %s"}
	StatusInvalidInput      = Status{Code: http.StatusBadRequest, Message: "%s %s is invalid: %s"}
	StatusConflict          = Status{Code: http.StatusConflict, Message: "%s %s is in state %s, expected %s"}
	StatusLocked            = Status{Code: http.StatusConflict, Message: "%s %s is locked by another operation"}
	StatusLimitExhausted    = Status{Code: http.StatusInternalServerError, Message: "Query limit 1000 exhausted for %s"}
	StatusTimeout           = Status{Code: http.StatusInternalServerError, Message: "Request timed out: %s"}
	StatusFailed            = Status{Code: http.StatusInternalServerError, Message: "%s %s failed: %s"}
	StatusForbidden         = Status{Code: http.StatusForbidden, Message: "Access denied to %s %s"}
	StatusUnauthenticated   = Status{Code: http.StatusUnauthorized, Message: "Unauthenticated"}
)

// Summarize derives the operation status of a batch from its item statuses:
// PARTIAL when at least one item failed, SUCCESS otherwise. A batch in which
// every item failed is PARTIAL as well; only the item statuses tell it apart.
// An empty batch is NO_ITEM.
func Summarize(items []Status) Status {
	if len(items) == 0 {
		return StatusNoItem
	}
	for _, s := range items {
		if !s.IsSuccess() {
			return StatusPartial
		}
	}
	return StatusSuccess
}
