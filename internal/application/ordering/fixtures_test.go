package ordering

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

// memRepo is an in-memory OrderRepository storing copies
type memRepo struct {
	mu      sync.Mutex
	orders  map[string]ordering.Order
	saveErr error
	saves   int
}

func newMemRepo(orders ...*ordering.Order) *memRepo {
	r := &memRepo{orders: make(map[string]ordering.Order)}
	for _, o := range orders {
		r.orders[o.ID] = *o
	}
	return r
}

func (r *memRepo) FindByID(_ context.Context, id string) (*ordering.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &o, nil
}

func (r *memRepo) FindByIDs(_ context.Context, ids []string) ([]*ordering.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*ordering.Order
	for _, id := range ids {
		if o, ok := r.orders[id]; ok {
			out = append(out, &o)
		}
	}
	return out, nil
}

func (r *memRepo) FindAll(_ context.Context, filter ordering.OrderFilter) ([]*ordering.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.orders))
	for id, o := range r.orders {
		if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, id) {
			continue
		}
		if filter.ShopID != "" && o.ShopID != filter.ShopID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	total := int64(len(ids))
	if filter.PageSize > 0 {
		start := filter.Offset()
		if start > len(ids) {
			start = len(ids)
		}
		end := min(start+filter.PageSize, len(ids))
		ids = ids[start:end]
	}
	out := make([]*ordering.Order, 0, len(ids))
	for _, id := range ids {
		o := r.orders[id]
		out = append(out, &o)
	}
	return out, total, nil
}

func (r *memRepo) Save(_ context.Context, o *ordering.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.orders[o.ID] = *o
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *memRepo) get(t *testing.T, id string) ordering.Order {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	require.True(t, ok, "order %s not stored", id)
	return o
}

// sliceReader serves bulk reads from a fixed slice and records requests
type sliceReader[T any] struct {
	mu       sync.Mutex
	items    []T
	idOf     func(T) string
	status   *shared.Status
	requests []ordering.ReadRequest
}

func newSliceReader[T any](idOf func(T) string, items ...T) *sliceReader[T] {
	return &sliceReader[T]{items: items, idOf: idOf}
}

func (r *sliceReader[T]) Read(_ context.Context, req ordering.ReadRequest) (*shared.ListResult[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.status != nil {
		return shared.FailedListResult[T](*r.status), nil
	}
	var results []shared.Result[T]
	for _, item := range r.items {
		if len(req.IDs) > 0 && !slices.Contains(req.IDs, r.idOf(item)) {
			continue
		}
		v := item
		results = append(results, shared.Result[T]{Payload: &v, Status: shared.StatusSuccess.WithID(r.idOf(item))})
	}
	return &shared.ListResult[T]{Items: results, OperationStatus: shared.StatusSuccess}, nil
}

func (r *sliceReader[T]) requested() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, req.IDs)
	}
	return out
}

// fakeFulfillments accepts everything unless told otherwise
type fakeFulfillments struct {
	mu         sync.Mutex
	stored     map[string]ordering.Fulfillment
	created    []ordering.Fulfillment
	submitted  []ordering.Fulfillment
	deleted    []string
	evaluateFn func(f ordering.Fulfillment) shared.Status
	// createFn rejects a fulfillment after it was stored, like a carrier
	// that fails late
	createFn func(f ordering.Fulfillment) shared.Status
}

func newFakeFulfillments() *fakeFulfillments {
	return &fakeFulfillments{stored: make(map[string]ordering.Fulfillment)}
}

func (f *fakeFulfillments) Read(_ context.Context, req ordering.ReadRequest) (*shared.ListResult[ordering.Fulfillment], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := req.Filters["reference.instance_id"]
	var items []shared.Result[ordering.Fulfillment]
	for _, v := range f.stored {
		if ref != "" && v.Reference.InstanceID != ref {
			continue
		}
		v := v
		items = append(items, shared.Result[ordering.Fulfillment]{Payload: &v, Status: shared.StatusSuccess})
	}
	return &shared.ListResult[ordering.Fulfillment]{Items: items, OperationStatus: shared.StatusSuccess}, nil
}

func (f *fakeFulfillments) Evaluate(_ context.Context, items []ordering.Fulfillment) (*shared.ListResult[ordering.Fulfillment], error) {
	results := make([]shared.Result[ordering.Fulfillment], 0, len(items))
	for _, item := range items {
		st := shared.StatusSuccess
		if f.evaluateFn != nil {
			st = f.evaluateFn(item)
		}
		v := item
		results = append(results, shared.Result[ordering.Fulfillment]{Payload: &v, Status: st})
	}
	return shared.NewListResult(results), nil
}

func (f *fakeFulfillments) Create(_ context.Context, items []ordering.Fulfillment) (*shared.ListResult[ordering.Fulfillment], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]shared.Result[ordering.Fulfillment], 0, len(items))
	for _, item := range items {
		item.ID = "f-" + item.Reference.InstanceID
		f.stored[item.ID] = item
		f.created = append(f.created, item)
		st := shared.StatusSuccess
		if f.createFn != nil {
			st = f.createFn(item)
		}
		v := item
		results = append(results, shared.Result[ordering.Fulfillment]{Payload: &v, Status: st.WithID(item.ID)})
	}
	return shared.NewListResult(results), nil
}

func (f *fakeFulfillments) Submit(_ context.Context, items []ordering.Fulfillment) (*shared.ListResult[ordering.Fulfillment], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]shared.Result[ordering.Fulfillment], 0, len(items))
	for _, item := range items {
		item.State = ordering.FulfillmentStateSubmitted
		f.submitted = append(f.submitted, item)
		v := item
		results = append(results, shared.Result[ordering.Fulfillment]{Payload: &v, Status: shared.StatusSuccess.WithID(item.ID)})
	}
	return shared.NewListResult(results), nil
}

func (f *fakeFulfillments) Update(ctx context.Context, items []ordering.Fulfillment) (*shared.ListResult[ordering.Fulfillment], error) {
	return f.Create(ctx, items)
}

func (f *fakeFulfillments) Upsert(ctx context.Context, items []ordering.Fulfillment) (*shared.ListResult[ordering.Fulfillment], error) {
	return f.Create(ctx, items)
}

func (f *fakeFulfillments) Delete(_ context.Context, ids []string) (*shared.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	statuses := make([]shared.Status, 0, len(ids))
	for _, id := range ids {
		delete(f.stored, id)
		f.deleted = append(f.deleted, id)
		statuses = append(statuses, shared.StatusSuccess.WithID(id))
	}
	return &shared.DeleteResult{Status: statuses, OperationStatus: shared.StatusSuccess}, nil
}

// fakeInvoices numbers created invoices and records render and send calls
type fakeInvoices struct {
	mu        sync.Mutex
	created   []ordering.Invoice
	rendered  []string
	sent      []string
	deleted   []string
	createErr error
	renderFn  func(id string) shared.Status
}

func (f *fakeInvoices) Read(context.Context, ordering.ReadRequest) (*shared.ListResult[ordering.Invoice], error) {
	return &shared.ListResult[ordering.Invoice]{OperationStatus: shared.StatusSuccess}, nil
}

func (f *fakeInvoices) Create(_ context.Context, items []ordering.Invoice) (*shared.ListResult[ordering.Invoice], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	results := make([]shared.Result[ordering.Invoice], 0, len(items))
	for _, item := range items {
		item.ID = fmt.Sprintf("inv-%d", len(f.created)+1)
		f.created = append(f.created, item)
		v := item
		results = append(results, shared.Result[ordering.Invoice]{Payload: &v, Status: shared.StatusSuccess.WithID(item.ID)})
	}
	return shared.NewListResult(results), nil
}

func (f *fakeInvoices) Update(ctx context.Context, items []ordering.Invoice) (*shared.ListResult[ordering.Invoice], error) {
	return f.Create(ctx, items)
}

func (f *fakeInvoices) Upsert(ctx context.Context, items []ordering.Invoice) (*shared.ListResult[ordering.Invoice], error) {
	return f.Create(ctx, items)
}

func (f *fakeInvoices) Delete(_ context.Context, ids []string) (*shared.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	statuses := make([]shared.Status, 0, len(ids))
	for _, id := range ids {
		statuses = append(statuses, shared.StatusSuccess.WithID(id))
	}
	return &shared.DeleteResult{Status: statuses, OperationStatus: shared.StatusSuccess}, nil
}

func (f *fakeInvoices) Render(_ context.Context, ids []string) (*shared.ListResult[ordering.Invoice], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rendered = append(f.rendered, ids...)
	if f.renderFn == nil {
		return echoInvoices(ids), nil
	}
	results := make([]shared.Result[ordering.Invoice], 0, len(ids))
	for _, id := range ids {
		if st := f.renderFn(id); !st.IsSuccess() {
			results = append(results, shared.Result[ordering.Invoice]{Status: st.WithID(id)})
			continue
		}
		results = append(results, shared.Result[ordering.Invoice]{Payload: &ordering.Invoice{ID: id}, Status: shared.StatusSuccess.WithID(id)})
	}
	return shared.NewListResult(results), nil
}

func (f *fakeInvoices) Send(_ context.Context, ids []string) (*shared.ListResult[ordering.Invoice], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, ids...)
	return echoInvoices(ids), nil
}

func echoInvoices(ids []string) *shared.ListResult[ordering.Invoice] {
	results := make([]shared.Result[ordering.Invoice], 0, len(ids))
	for _, id := range ids {
		results = append(results, shared.Result[ordering.Invoice]{Payload: &ordering.Invoice{ID: id}, Status: shared.StatusSuccess.WithID(id)})
	}
	return shared.NewListResult(results)
}

// MockNotificationService mocks notification delivery
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Send(ctx context.Context, n ordering.Notification) (shared.Status, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(shared.Status), args.Error(1)
}

// MockFulfillmentSolutionService mocks the solution query
type MockFulfillmentSolutionService struct {
	mock.Mock
}

func (m *MockFulfillmentSolutionService) Query(ctx context.Context, queries []ordering.FulfillmentSolutionQuery) (*shared.ListResult[ordering.FulfillmentSolutionResult], error) {
	args := m.Called(ctx, queries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.ListResult[ordering.FulfillmentSolutionResult]), args.Error(1)
}

// capturePublisher records events. Render requests are answered through
// the render response handler when one is attached.
type capturePublisher struct {
	mu       sync.Mutex
	events   []shared.DomainEvent
	renderer *RenderResponseHandler
	body     string
}

func (p *capturePublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	p.events = append(p.events, events...)
	renderer := p.renderer
	p.mu.Unlock()
	for _, e := range events {
		req, ok := e.(*ordering.RenderRequestedEvent)
		if !ok || renderer == nil {
			continue
		}
		resp := ordering.NewRenderRespondedEvent(req.AggregateID(), req.CorrelationID)
		resp.ContentType = req.ContentType
		resp.Body = []byte(p.body + " " + req.Template)
		if err := renderer.Handle(ctx, resp); err != nil {
			return err
		}
	}
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// world is a consistent set of remote entities: a German shop selling to a
// German private customer, a commercial customer and a customer without a
// shipping contact point.
type world struct {
	Shops         *sliceReader[ordering.Shop]
	Customers     *sliceReader[ordering.Customer]
	Organizations *sliceReader[ordering.Organization]
	ContactPoints *sliceReader[ordering.ContactPoint]
	Addresses     *sliceReader[ordering.Address]
	Countries     *sliceReader[ordering.Country]
	Currencies    *sliceReader[ordering.Currency]
	Taxes         *sliceReader[ordering.Tax]
	Products      *sliceReader[ordering.Product]
	Users         *sliceReader[ordering.User]
	Locales       *sliceReader[ordering.Locale]
	Settings      *sliceReader[ordering.Setting]
	Fulfillments  *fakeFulfillments
	Invoices      *fakeInvoices
}

func newWorld() *world {
	precision := int32(2)
	price := &ordering.Price{CurrencyID: "eur", RegularPrice: decimal.RequireFromString("10.00")}
	return &world{
		Shops: newSliceReader(shopID,
			ordering.Shop{ID: "shop-1", Name: "Shop", OrganizationID: "org-shop"},
			ordering.Shop{ID: "shop-bare", Name: "Bare", OrganizationID: "org-bare"},
		),
		Customers: newSliceReader(customerID,
			ordering.Customer{ID: "cust-private", Private: &ordering.PrivateCustomer{UserID: "user-1", ContactPointIDs: []string{"cp-home"}}},
			ordering.Customer{ID: "cust-company", Commercial: &ordering.OrganizationCustomer{OrganizationID: "org-company"}},
			ordering.Customer{ID: "cust-homeless", Private: &ordering.PrivateCustomer{UserID: "user-1"}},
		),
		Organizations: newSliceReader(organizationID,
			ordering.Organization{ID: "org-shop", Name: "Shop GmbH", ContactPointIDs: []string{"cp-legal"}},
			ordering.Organization{ID: "org-bare", Name: "Bare GmbH"},
			ordering.Organization{ID: "org-company", Name: "Company AG", ContactPointIDs: []string{"cp-company"}},
		),
		ContactPoints: newSliceReader(contactPointID,
			ordering.ContactPoint{ID: "cp-legal", Name: "Legal", PhysicalAddressID: "addr-legal", ContactPointTypeIDs: []string{"legal"}},
			ordering.ContactPoint{ID: "cp-home", Name: "Jane", Email: "jane@example.com", LocaleID: "loc-de",
				PhysicalAddressID: "addr-home", ContactPointTypeIDs: []string{"shipping", "billing"}},
			ordering.ContactPoint{ID: "cp-company", Name: "Purchasing", Email: "buy@example.com",
				PhysicalAddressID: "addr-company", ContactPointTypeIDs: []string{"shipping"}},
		),
		Addresses: newSliceReader(addressID,
			ordering.Address{ID: "addr-legal", CountryID: "de", Locality: "Berlin"},
			ordering.Address{ID: "addr-home", CountryID: "de", Locality: "Hamburg"},
			ordering.Address{ID: "addr-company", CountryID: "de", Locality: "Munich"},
		),
		Countries: newSliceReader(countryID,
			ordering.Country{ID: "de", CountryCode: "DE", EconomicAreas: []string{"EU"}},
			ordering.Country{ID: "fr", CountryCode: "FR", EconomicAreas: []string{"EU"}},
			ordering.Country{ID: "ch", CountryCode: "CH", EconomicAreas: []string{"EFTA"}},
		),
		Currencies: newSliceReader(currencyID,
			ordering.Currency{ID: "eur", Code: "EUR", Precision: &precision},
		),
		Taxes: newSliceReader(taxID,
			ordering.Tax{ID: "vat-de", CountryID: "de", Rate: decimal.RequireFromString("0.19")},
		),
		Products: newSliceReader(productID,
			ordering.Product{ID: "prod-box", Name: "Box", ShopID: "shop-1", Active: true, TaxIDs: []string{"vat-de"},
				Physical: []ordering.Variant{{ID: "var-box", Price: price}}},
			ordering.Product{ID: "prod-ebook", Name: "E-Book", ShopID: "shop-1", Active: true, TaxIDs: []string{"vat-de"},
				Virtual: []ordering.Variant{{ID: "var-ebook", Price: price}}},
		),
		Users: newSliceReader(userID,
			ordering.User{ID: "user-1", Name: "jane", Email: "jane.user@example.com", LocaleID: "loc-en"},
		),
		Locales: newSliceReader(localeID,
			ordering.Locale{ID: "loc-de", Value: "de-DE"},
			ordering.Locale{ID: "loc-en", Value: "en-US"},
		),
		Settings:     newSliceReader(settingID),
		Fulfillments: newFakeFulfillments(),
		Invoices:     &fakeInvoices{},
	}
}

func (w *world) services() Services {
	return Services{
		Shops:         w.Shops,
		Customers:     w.Customers,
		Organizations: w.Organizations,
		ContactPoints: w.ContactPoints,
		Addresses:     w.Addresses,
		Countries:     w.Countries,
		Currencies:    w.Currencies,
		Taxes:         w.Taxes,
		Products:      w.Products,
		Users:         w.Users,
		Locales:       w.Locales,
		Settings:      w.Settings,
		Fulfillments:  w.Fulfillments,
		Invoices:      w.Invoices,
	}
}

// pendingOrder is an order for two boxes
func pendingOrder(id, customerID string) *ordering.Order {
	return &ordering.Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(id),
		ShopID:            "shop-1",
		CustomerID:        customerID,
		UserID:            "user-1",
		State:             ordering.StatePending,
		Items:             []ordering.Item{{ID: id + "-item", ProductID: "prod-box", VariantID: "var-box", Quantity: 2}},
	}
}

// withNotificationsDisabled stores a shop setting that turns notifications off
func (w *world) withNotificationsDisabled() *world {
	w.Settings.items = append(w.Settings.items, ordering.Setting{ID: "set-quiet",
		Settings: []ordering.SettingAttribute{{ID: SettingDisableNotification, Value: "true"}}})
	for i := range w.Shops.items {
		w.Shops.items[i].SettingID = "set-quiet"
	}
	return w
}

func newTestService(w *world, repo ordering.OrderRepository, options ...ServiceOption) *Service {
	return NewService(repo, w.services(), DefaultOptions(), zap.NewNop(), options...)
}
