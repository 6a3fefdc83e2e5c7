package ordering

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/resource"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/telemetry"
)

// ContainerName identifies one Resource Map of an Aggregation
type ContainerName string

const (
	ContainerShops         ContainerName = "shops"
	ContainerCustomers     ContainerName = "customers"
	ContainerOrganizations ContainerName = "organizations"
	ContainerContactPoints ContainerName = "contact_points"
	ContainerAddresses     ContainerName = "addresses"
	ContainerCountries     ContainerName = "countries"
	ContainerCurrencies    ContainerName = "currencies"
	ContainerTaxes         ContainerName = "taxes"
	ContainerProducts      ContainerName = "products"
	ContainerUsers         ContainerName = "users"
	ContainerLocales       ContainerName = "locales"
	ContainerSettings      ContainerName = "settings"
)

// Aggregation is a batch of orders plus every Resource Map pulled in while
// resolving their references. Maps stay nil until a join fills them.
type Aggregation struct {
	Orders        []*ordering.Order
	Shops         *resource.Map[ordering.Shop]
	Customers     *resource.Map[ordering.Customer]
	Organizations *resource.Map[ordering.Organization]
	ContactPoints *resource.Map[ordering.ContactPoint]
	Addresses     *resource.Map[ordering.Address]
	Countries     *resource.Map[ordering.Country]
	Currencies    *resource.Map[ordering.Currency]
	Taxes         *resource.Map[ordering.Tax]
	Products      *resource.Map[ordering.Product]
	Users         *resource.Map[ordering.User]
	Locales       *resource.Map[ordering.Locale]
	Settings      *resource.Map[ordering.Setting]
}

// NewAggregation starts an aggregation for a batch of orders
func NewAggregation(orders []*ordering.Order) *Aggregation {
	return &Aggregation{Orders: orders}
}

func (a *Aggregation) slot(name ContainerName) any {
	switch name {
	case ContainerShops:
		return &a.Shops
	case ContainerCustomers:
		return &a.Customers
	case ContainerOrganizations:
		return &a.Organizations
	case ContainerContactPoints:
		return &a.ContactPoints
	case ContainerAddresses:
		return &a.Addresses
	case ContainerCountries:
		return &a.Countries
	case ContainerCurrencies:
		return &a.Currencies
	case ContainerTaxes:
		return &a.Taxes
	case ContainerProducts:
		return &a.Products
	case ContainerUsers:
		return &a.Users
	case ContainerLocales:
		return &a.Locales
	case ContainerSettings:
		return &a.Settings
	}
	return nil
}

// Joiner is a join descriptor with its entity type erased so joins of
// different types can run in one phase.
type Joiner interface {
	Container() ContainerName
	Label() string
	IDs(agg *Aggregation) []string
	Fetch(ctx context.Context, ids []string) (apply func(*Aggregation) error, err error)
}

// Join fetches the entities referenced by IDsOf from Source into the map
// named by Into.
type Join[T any] struct {
	Entity string
	Into   ContainerName
	Source ordering.Reader[T]
	IDsOf  func(*Aggregation) []string
	IDOf   func(T) string
}

// Container returns the destination map name
func (j Join[T]) Container() ContainerName {
	return j.Into
}

// Label returns the entity name used in status messages
func (j Join[T]) Label() string {
	return j.Entity
}

// IDs extracts the distinct non-empty ids to fetch
func (j Join[T]) IDs(agg *Aggregation) []string {
	return distinct(j.IDsOf(agg))
}

// Fetch issues one bulk read for ids. The returned apply stores the result
// and must not run concurrently with other applies.
func (j Join[T]) Fetch(ctx context.Context, ids []string) (func(*Aggregation) error, error) {
	resp, err := j.Source.Read(ctx, ordering.ReadRequest{IDs: ids, Limit: ordering.MaxReadLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", j.Entity, err)
	}
	if !resp.OperationStatus.IsSuccess() {
		return nil, resp.OperationStatus.Err()
	}
	items := resp.Payloads()
	return func(agg *Aggregation) error {
		p, ok := agg.slot(j.Into).(**resource.Map[T])
		if !ok {
			return fmt.Errorf("container %s does not hold %s", j.Into, j.Entity)
		}
		if *p == nil {
			*p = resource.NewMap(j.Entity, j.IDOf)
		}
		(*p).Add(items...)
		return nil
	}, nil
}

// Aggregator resolves the references of an Aggregation with batched reads
type Aggregator struct {
	limit  int
	logger *zap.Logger
}

// NewAggregator creates an Aggregator. limit caps the ids per bulk read and
// defaults to ordering.MaxReadLimit.
func NewAggregator(limit int, logger *zap.Logger) *Aggregator {
	if limit <= 0 || limit > ordering.MaxReadLimit {
		limit = ordering.MaxReadLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{limit: limit, logger: logger}
}

// Aggregate runs one phase: every join fetches concurrently, then results are
// stored one after another. A failed remote status aborts the whole phase and
// is returned as a *shared.StatusError. Later phases may read the maps
// filled by earlier ones.
func (a *Aggregator) Aggregate(ctx context.Context, agg *Aggregation, joins ...Joiner) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "aggregator", "aggregate")
	defer span.End()

	idSets := make([][]string, len(joins))
	for i, j := range joins {
		ids := j.IDs(agg)
		if len(ids) > a.limit {
			err := shared.StatusLimitExhausted.Withf(j.Label()).Err()
			telemetry.RecordError(span, err)
			return err
		}
		idSets[i] = ids
	}

	applies := make([]func(*Aggregation) error, len(joins))
	g, gctx := errgroup.WithContext(ctx)
	for i, j := range joins {
		if len(idSets[i]) == 0 {
			continue
		}
		g.Go(func() error {
			jctx, jspan := telemetry.StartServiceSpan(gctx, "aggregate", string(j.Container()),
				telemetry.WithAttribute("ids", len(idSets[i])))
			defer jspan.End()
			apply, err := j.Fetch(jctx, idSets[i])
			if err != nil {
				telemetry.RecordError(jspan, err)
				return err
			}
			applies[i] = apply
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.Warn("Aggregation phase failed", zap.Error(err))
		telemetry.RecordError(span, err)
		return err
	}

	for _, apply := range applies {
		if apply == nil {
			continue
		}
		if err := apply(agg); err != nil {
			return err
		}
	}
	return nil
}

// AggregateProductBundles expands bundle components until no unseen product
// id is left. Ids already present in agg.Products or fetched before are
// never requested again, so cyclic bundles terminate.
func (a *Aggregator) AggregateProductBundles(ctx context.Context, agg *Aggregation, source ordering.Reader[ordering.Product]) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "aggregator", "product_bundles")
	defer span.End()

	if agg.Products == nil {
		agg.Products = resource.NewMap("product", productID)
	}
	visited := make(map[string]bool, agg.Products.Len())
	for _, id := range agg.Products.IDs() {
		visited[id] = true
	}
	var queue []string
	for _, p := range agg.Products.All() {
		queue = append(queue, bundleComponentIDs(p)...)
	}

	join := Join[ordering.Product]{Entity: "product", Into: ContainerProducts, Source: source, IDOf: productID}
	for len(queue) > 0 {
		var batch []string
		for _, id := range distinct(queue) {
			if !visited[id] {
				visited[id] = true
				batch = append(batch, id)
			}
		}
		queue = nil
		if len(batch) == 0 {
			break
		}
		if len(batch) > a.limit {
			return shared.StatusLimitExhausted.Withf("product").Err()
		}
		apply, err := join.Fetch(ctx, batch)
		if err != nil {
			telemetry.RecordError(span, err)
			return err
		}
		if err := apply(agg); err != nil {
			return err
		}
		for _, p := range agg.Products.GetMany(batch) {
			queue = append(queue, bundleComponentIDs(p)...)
		}
	}
	return nil
}

func bundleComponentIDs(p ordering.Product) []string {
	if p.Bundle == nil {
		return nil
	}
	ids := make([]string, 0, len(p.Bundle.Products))
	for _, bp := range p.Bundle.Products {
		ids = append(ids, bp.ProductID)
	}
	return ids
}

func productID(p ordering.Product) string { return p.ID }

// distinct drops empty ids and duplicates, keeping first occurrences
func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
