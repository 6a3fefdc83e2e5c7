package ordering

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/logger"
)

// Action is what an operation does to a resource
type Action string

const (
	ActionCreate  Action = "CREATE"
	ActionRead    Action = "READ"
	ActionModify  Action = "MODIFY"
	ActionDelete  Action = "DELETE"
	ActionExecute Action = "EXECUTE"
)

// Entity names used in access descriptors
const (
	ResourceOrder       = "order"
	ResourceFulfillment = "fulfillment"
	ResourceInvoice     = "invoice"
)

// Descriptor names the action, resource and operation an entry point performs
type Descriptor struct {
	Action    Action
	Resource  string
	Operation string
	IDs       []string
}

// Permission returns the permission string checked for d, e.g. "order:submit"
func (d Descriptor) Permission() string {
	return d.Resource + ":" + d.Operation
}

// Subject is the caller of an operation
type Subject struct {
	ID          string
	Name        string
	Roles       []string
	Permissions []string
	Token       string
}

// IsAnonymous reports whether no identity was resolved
func (s Subject) IsAnonymous() bool {
	return s.ID == ""
}

type subjectKey struct{}

// WithSubject stores the caller in ctx
func WithSubject(ctx context.Context, s Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, s)
}

// SubjectFrom returns the caller stored in ctx
func SubjectFrom(ctx context.Context) (Subject, bool) {
	s, ok := ctx.Value(subjectKey{}).(Subject)
	return s, ok
}

// Decider answers whether a subject may perform an operation
type Decider interface {
	IsAllowed(ctx context.Context, subject Subject, d Descriptor) (bool, error)
}

// DeciderFunc adapts a function to Decider
type DeciderFunc func(ctx context.Context, subject Subject, d Descriptor) (bool, error)

// IsAllowed calls f
func (f DeciderFunc) IsAllowed(ctx context.Context, subject Subject, d Descriptor) (bool, error) {
	return f(ctx, subject, d)
}

// AllowAll permits every operation
var AllowAll Decider = DeciderFunc(func(context.Context, Subject, Descriptor) (bool, error) {
	return true, nil
})

// PermissionDecider permits an operation when the subject holds its
// permission, the resource wildcard ("order:*") or "*", or one of the
// admin roles.
type PermissionDecider struct {
	AdminRoles []string
}

// IsAllowed implements Decider
func (p PermissionDecider) IsAllowed(_ context.Context, subject Subject, d Descriptor) (bool, error) {
	for _, role := range subject.Roles {
		if slices.Contains(p.AdminRoles, role) {
			return true, nil
		}
	}
	for _, perm := range subject.Permissions {
		if perm == "*" || perm == d.Permission() || perm == d.Resource+":*" {
			return true, nil
		}
	}
	return false, nil
}

// Handler is the guarded body of an operation
type Handler func(ctx context.Context) error

// Interceptor wraps a Handler. It may reject the call or enrich ctx.
type Interceptor func(ctx context.Context, d Descriptor, next Handler) error

// ErrAccessDenied is returned when an interceptor rejects a call
var ErrAccessDenied = errors.New("access denied")

// Chain runs interceptors in order around an operation
type Chain struct {
	interceptors []Interceptor
}

// NewChain creates a chain
func NewChain(interceptors ...Interceptor) *Chain {
	return &Chain{interceptors: interceptors}
}

// Run invokes fn behind every interceptor
func (c *Chain) Run(ctx context.Context, d Descriptor, fn Handler) error {
	h := fn
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		ic, next := c.interceptors[i], h
		h = func(ctx context.Context) error {
			return ic(ctx, d, next)
		}
	}
	return h(ctx)
}

// RequireSubject rejects calls without a resolved subject
func RequireSubject() Interceptor {
	return func(ctx context.Context, d Descriptor, next Handler) error {
		s, ok := SubjectFrom(ctx)
		if !ok || s.IsAnonymous() {
			return shared.StatusUnauthenticated.Err()
		}
		return next(ctx)
	}
}

// InjectMeta adds the operation and subject to the request logger
func InjectMeta() Interceptor {
	return func(ctx context.Context, d Descriptor, next Handler) error {
		if s, ok := SubjectFrom(ctx); ok && !s.IsAnonymous() {
			ctx = logger.WithSubjectID(ctx, s.ID)
		}
		l := logger.FromContext(ctx).With(zap.String("operation", d.Permission()))
		return next(logger.WithContext(ctx, l))
	}
}

// CheckPermission consults decider before the call
func CheckPermission(decider Decider) Interceptor {
	return func(ctx context.Context, d Descriptor, next Handler) error {
		s, _ := SubjectFrom(ctx)
		allowed, err := decider.IsAllowed(ctx, s, d)
		if err != nil {
			return fmt.Errorf("failed to check permission: %w", err)
		}
		if !allowed {
			return fmt.Errorf("%w: %w", ErrAccessDenied, shared.StatusForbidden.Withf(d.Resource, d.Operation).Err())
		}
		return next(ctx)
	}
}

// guard runs fn behind the access chain and converts a rejection into a
// failed list response.
func guard[T any](ctx context.Context, c *Chain, d Descriptor, fn func(ctx context.Context) (*shared.ListResult[T], error)) (*shared.ListResult[T], error) {
	var out *shared.ListResult[T]
	err := c.Run(ctx, d, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	if err != nil {
		if out != nil {
			return out, err
		}
		if st, ok := shared.AsStatus(err); ok {
			return shared.FailedListResult[T](st), nil
		}
		return nil, err
	}
	return out, nil
}
