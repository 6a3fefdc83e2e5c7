package ordering

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/telemetry"
)

// Read lists orders matching filter
func (s *Service) Read(ctx context.Context, filter ordering.OrderFilter) (*shared.ListResult[ordering.Order], error) {
	d := Descriptor{Action: ActionRead, Resource: ResourceOrder, Operation: "read", IDs: filter.IDs}
	return guard(ctx, s.chain, d, func(ctx context.Context) (*shared.ListResult[ordering.Order], error) {
		ctx, span := telemetry.StartServiceSpan(ctx, "ordering", "read")
		defer span.End()

		orders, total, err := s.repo.FindAll(ctx, filter)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to list orders: %w", err)
		}
		items := make([]shared.Result[ordering.Order], 0, len(orders))
		for _, o := range orders {
			items = append(items, shared.Result[ordering.Order]{Payload: o, Status: shared.StatusSuccess.WithID(o.ID)})
		}
		result := &shared.ListResult[ordering.Order]{Items: items, TotalCount: total, OperationStatus: shared.StatusSuccess}
		return result, nil
	})
}

// Create stores new pending orders. Orders with an id that already exists
// fail with CONFLICT.
func (s *Service) Create(ctx context.Context, orders []*ordering.Order) (*shared.ListResult[ordering.Order], error) {
	return s.write(ctx, ActionCreate, "create", orders, func(ctx context.Context, o *ordering.Order) shared.Status {
		return s.createOne(ctx, o)
	})
}

// Update modifies pending orders
func (s *Service) Update(ctx context.Context, orders []*ordering.Order) (*shared.ListResult[ordering.Order], error) {
	return s.write(ctx, ActionModify, "update", orders, func(ctx context.Context, o *ordering.Order) shared.Status {
		return s.updateOne(ctx, o)
	})
}

// Upsert updates existing orders and creates the others
func (s *Service) Upsert(ctx context.Context, orders []*ordering.Order) (*shared.ListResult[ordering.Order], error) {
	return s.write(ctx, ActionModify, "upsert", orders, func(ctx context.Context, o *ordering.Order) shared.Status {
		if o.ID != "" {
			if _, err := s.repo.FindByID(ctx, o.ID); err == nil {
				return s.updateOne(ctx, o)
			} else if !errors.Is(err, shared.ErrNotFound) {
				return statusOf(fmt.Errorf("failed to load order %s: %w", o.ID, err))
			}
		}
		return s.createOne(ctx, o)
	})
}

// Delete removes orders. Unknown ids yield NOT_FOUND item statuses.
func (s *Service) Delete(ctx context.Context, ids []string) (*shared.DeleteResult, error) {
	d := Descriptor{Action: ActionDelete, Resource: ResourceOrder, Operation: "delete", IDs: ids}
	var result *shared.DeleteResult
	err := s.chain.Run(ctx, d, func(ctx context.Context) error {
		ctx, span := telemetry.StartServiceSpan(ctx, "ordering", "delete", telemetry.WithAttribute("orders", len(ids)))
		defer span.End()

		ids := distinct(ids)
		if len(ids) == 0 {
			result = &shared.DeleteResult{OperationStatus: shared.StatusNoItem}
			return nil
		}
		statuses := make([]shared.Status, 0, len(ids))
		for _, id := range ids {
			switch err := s.repo.Delete(ctx, id); {
			case errors.Is(err, shared.ErrNotFound):
				statuses = append(statuses, shared.StatusNotFound.Withf("order", id).WithID(id))
			case err != nil:
				s.logger.Error("Failed to delete order", zap.String("order_id", id), zap.Error(err))
				statuses = append(statuses, statusOf(err).WithID(id))
			default:
				statuses = append(statuses, shared.StatusSuccess.WithID(id))
				s.publish(ctx, ordering.NewOrderDeletedEvent(id))
			}
		}
		result = &shared.DeleteResult{Status: statuses, OperationStatus: shared.Summarize(statuses)}
		return nil
	})
	if err != nil {
		if st, ok := shared.AsStatus(err); ok {
			return &shared.DeleteResult{OperationStatus: st}, nil
		}
		return nil, err
	}
	return result, nil
}

// DeleteCollection removes every stored order
func (s *Service) DeleteCollection(ctx context.Context) (*shared.DeleteResult, error) {
	var ids []string
	filter := ordering.OrderFilter{Filter: shared.Filter{Page: 1, PageSize: ordering.MaxReadLimit, OrderBy: "id", OrderDir: "asc"}}
	for {
		orders, total, err := s.repo.FindAll(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list orders: %w", err)
		}
		for _, o := range orders {
			ids = append(ids, o.ID)
		}
		if len(orders) == 0 || int64(len(ids)) >= total {
			break
		}
		filter.Page++
	}
	if len(ids) == 0 {
		return &shared.DeleteResult{Status: []shared.Status{}, OperationStatus: shared.StatusSuccess}, nil
	}
	return s.Delete(ctx, ids)
}

func (s *Service) write(
	ctx context.Context,
	action Action,
	op string,
	orders []*ordering.Order,
	fn func(ctx context.Context, o *ordering.Order) shared.Status,
) (*shared.ListResult[ordering.Order], error) {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		if o != nil && o.ID != "" {
			ids = append(ids, o.ID)
		}
	}
	d := Descriptor{Action: action, Resource: ResourceOrder, Operation: op, IDs: ids}
	return guard(ctx, s.chain, d, func(ctx context.Context) (*shared.ListResult[ordering.Order], error) {
		ctx, span := telemetry.StartServiceSpan(ctx, "ordering", op, telemetry.WithAttribute("orders", len(orders)))
		defer span.End()

		if len(orders) == 0 {
			return shared.FailedListResult[ordering.Order](shared.StatusNoItem), nil
		}
		items := make([]shared.Result[ordering.Order], 0, len(orders))
		for _, o := range orders {
			if o == nil {
				items = append(items, shared.Result[ordering.Order]{Status: shared.StatusInvalidInput.Withf("order", "", "missing payload")})
				continue
			}
			st := fn(ctx, o)
			items = append(items, shared.Result[ordering.Order]{Payload: o, Status: st.WithID(o.ID)})
		}
		return shared.NewListResult(items), nil
	})
}

func (s *Service) createOne(ctx context.Context, o *ordering.Order) shared.Status {
	if o.ID == "" {
		o.ID = uuid.NewString()
	} else if _, err := s.repo.FindByID(ctx, o.ID); err == nil {
		return statusOf(shared.ErrAlreadyExists)
	}
	if o.State == "" {
		o.State = ordering.StatePending
	}
	if o.State != ordering.StatePending {
		return shared.StatusInvalidState.Withf("order", o.ID, o.State, ordering.StatePending)
	}
	if o.Version == 0 {
		o.Version = 1
	}
	o.AssignItemIDs()
	if err := o.Validate(); err != nil {
		return statusOf(err)
	}
	o.Touch()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = o.UpdatedAt
	}
	if err := s.repo.Save(ctx, o); err != nil {
		return statusOf(fmt.Errorf("failed to create order %s: %w", o.ID, err))
	}
	s.publish(ctx, ordering.NewOrderEvent(ordering.EventTypeOrderCreated, o))
	return shared.StatusSuccess
}

func (s *Service) updateOne(ctx context.Context, patch *ordering.Order) shared.Status {
	if patch.ID == "" {
		return shared.StatusInvalidInput.Withf("order", "", "missing id")
	}
	existing, err := s.repo.FindByID(ctx, patch.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.StatusNotFound.Withf("order", patch.ID)
	}
	if err != nil {
		return statusOf(fmt.Errorf("failed to load order %s: %w", patch.ID, err))
	}
	if patch.Version != 0 && patch.Version != existing.Version {
		return statusOf(shared.ErrConcurrencyConflict)
	}
	if err := existing.Modify(patch); err != nil {
		return statusOf(err)
	}
	if err := s.repo.Save(ctx, existing); err != nil {
		return statusOf(fmt.Errorf("failed to update order %s: %w", existing.ID, err))
	}
	s.publish(ctx, existing.GetDomainEvents()...)
	existing.ClearDomainEvents()
	*patch = *existing
	return shared.StatusSuccess
}
