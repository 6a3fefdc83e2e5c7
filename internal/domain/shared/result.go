package shared

// Result is one entry of a bulk response: the payload, if any, and its own
// status.
type Result[T any] struct {
	Payload *T     `json:"payload,omitempty"`
	Status  Status `json:"status"`
}

// ListResult is the response of every bulk operation. Callers must inspect
// both the operation status and the item statuses.
type ListResult[T any] struct {
	Items           []Result[T] `json:"items"`
	TotalCount      int64       `json:"total_count,omitempty"`
	OperationStatus Status      `json:"operation_status"`
}

// Payloads returns the non-nil payloads whose item status is a success.
func (l *ListResult[T]) Payloads() []T {
	if l == nil {
		return nil
	}
	out := make([]T, 0, len(l.Items))
	for _, item := range l.Items {
		if item.Payload != nil && item.Status.IsSuccess() {
			out = append(out, *item.Payload)
		}
	}
	return out
}

// NewListResult builds a response whose operation status is derived from the
// item statuses.
func NewListResult[T any](items []Result[T]) *ListResult[T] {
	statuses := make([]Status, len(items))
	for i, item := range items {
		statuses[i] = item.Status
	}
	return &ListResult[T]{
		Items:           items,
		TotalCount:      int64(len(items)),
		OperationStatus: Summarize(statuses),
	}
}

// FailedListResult builds a response for a batch that failed as a whole.
func FailedListResult[T any](status Status) *ListResult[T] {
	return &ListResult[T]{Items: []Result[T]{}, OperationStatus: status}
}

// DeleteResult is the response of bulk deletes.
type DeleteResult struct {
	Status          []Status `json:"status"`
	OperationStatus Status   `json:"operation_status"`
}
