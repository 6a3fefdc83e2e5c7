package ordering

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/awaitqueue"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/telemetry"
)

// ContactPointTypes are the contact point type ids that mark addresses
type ContactPointTypes struct {
	Legal    string
	Shipping string
	Billing  string
}

// Options is the immutable configuration of the ordering service
type Options struct {
	ReadLimit         int
	AwaitTimeout      time.Duration
	SubmitLockTTL     time.Duration
	ContactPointTypes ContactPointTypes
	Defaults          Defaults
}

// DefaultOptions returns the options used when configuration is silent
func DefaultOptions() Options {
	return Options{
		ReadLimit:         ordering.MaxReadLimit,
		AwaitTimeout:      30 * time.Second,
		SubmitLockTTL:     5 * time.Minute,
		ContactPointTypes: ContactPointTypes{
			Legal:    "legal",
			Shipping: "shipping",
			Billing:  "billing",
		},
		Defaults: NewDefaults(nil),
	}
}

// RenderResult is the rendered body awaited after a render request
type RenderResult struct {
	ContentType string
	Body        []byte
	URL         string
}

// Service implements the order operations
type Service struct {
	repo       ordering.OrderRepository
	services   Services
	aggregator *Aggregator
	publisher  shared.EventPublisher
	locks      shared.IdempotencyStore
	renders    *awaitqueue.Queue[RenderResult]
	chain      *Chain
	metrics    *telemetry.OrderingMetrics
	opts       Options
	logger     *zap.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithEventPublisher sets the publisher for domain events
func WithEventPublisher(p shared.EventPublisher) ServiceOption {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithLockStore guards submissions against concurrent batches
func WithLockStore(store shared.IdempotencyStore) ServiceOption {
	return func(s *Service) {
		s.locks = store
	}
}

// WithRenderQueue sets the queue render responses are delivered to
func WithRenderQueue(q *awaitqueue.Queue[RenderResult]) ServiceOption {
	return func(s *Service) {
		s.renders = q
	}
}

// WithAccessChain sets the interceptors run around every operation
func WithAccessChain(c *Chain) ServiceOption {
	return func(s *Service) {
		s.chain = c
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m *telemetry.OrderingMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates the ordering service
func NewService(repo ordering.OrderRepository, services Services, opts Options, logger *zap.Logger, options ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.AwaitTimeout <= 0 {
		opts.AwaitTimeout = DefaultOptions().AwaitTimeout
	}
	if opts.SubmitLockTTL <= 0 {
		opts.SubmitLockTTL = DefaultOptions().SubmitLockTTL
	}
	if opts.ContactPointTypes == (ContactPointTypes{}) {
		opts.ContactPointTypes = DefaultOptions().ContactPointTypes
	}
	if opts.Defaults.values == nil {
		opts.Defaults = NewDefaults(nil)
	}
	s := &Service{
		repo:       repo,
		services:   services,
		aggregator: NewAggregator(opts.ReadLimit, logger.Named("aggregator")),
		opts:       opts,
		logger:     logger,
	}
	for _, o := range options {
		o(s)
	}
	if s.renders == nil {
		s.renders = awaitqueue.New[RenderResult](
			awaitqueue.WithLogger(logger.Named("renders")),
			awaitqueue.WithTimeoutHook(func(string) {
				s.metrics.RecordAwaitTimeout(context.Background())
			}),
		)
	}
	if s.chain == nil {
		s.chain = NewChain()
	}
	return s
}

// RenderQueue returns the queue render responses resolve
func (s *Service) RenderQueue() *awaitqueue.Queue[RenderResult] {
	return s.renders
}

// publish emits events; delivery failures are logged, never returned
func (s *Service) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish events", zap.Int("count", len(events)), zap.Error(err))
	}
}

// batchItem tracks one order through a multi-step operation
type batchItem struct {
	order        *ordering.Order
	status       shared.Status
	eval         *evaluation
	settings     Settings
	fulfillments []ordering.Fulfillment
	invoiceIDs   []string
	// committed is set once the new state is persisted
	committed bool
}

func (b *batchItem) ok() bool {
	return b.status.IsSuccess()
}

// batch holds the items of an operation in request order
type batch struct {
	items  []*batchItem
	byID   map[string]*batchItem
	agg    *Aggregation
	logger *zap.Logger
}

func newBatch(ids []string, orders []*ordering.Order, logger *zap.Logger) *batch {
	found := make(map[string]*ordering.Order, len(orders))
	for _, o := range orders {
		found[o.ID] = o
	}
	b := &batch{byID: make(map[string]*batchItem, len(ids)), logger: logger}
	for _, id := range distinct(ids) {
		item := &batchItem{status: shared.StatusSuccess.WithID(id)}
		if o, ok := found[id]; ok {
			item.order = o
		} else {
			item.status = shared.StatusNotFound.Withf("order", id).WithID(id)
		}
		b.items = append(b.items, item)
		b.byID[id] = item
	}
	return b
}

func (b *batch) fail(item *batchItem, status shared.Status) {
	if !item.ok() {
		return
	}
	id := ""
	if item.order != nil {
		id = item.order.ID
	}
	item.status = status.WithID(id)
	b.logger.Warn("Order failed", zap.String("order_id", id), zap.Int("code", status.Code), zap.String("message", status.Message))
}

func (b *batch) passing() []*batchItem {
	out := make([]*batchItem, 0, len(b.items))
	for _, item := range b.items {
		if item.ok() && item.order != nil {
			out = append(out, item)
		}
	}
	return out
}

func (b *batch) orders() []*ordering.Order {
	out := make([]*ordering.Order, 0, len(b.items))
	for _, item := range b.items {
		if item.order != nil {
			out = append(out, item.order)
		}
	}
	return out
}

func (b *batch) result() *shared.ListResult[ordering.Order] {
	results := make([]shared.Result[ordering.Order], 0, len(b.items))
	for _, item := range b.items {
		results = append(results, shared.Result[ordering.Order]{Payload: item.order, Status: item.status})
	}
	return shared.NewListResult(results)
}

// failedCount returns the number of items that did not succeed
func (b *batch) failedCount() int {
	n := 0
	for _, item := range b.items {
		if !item.ok() {
			n++
		}
	}
	return n
}
