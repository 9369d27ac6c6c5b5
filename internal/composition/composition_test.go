package composition_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/fedgraph/internal/composition"
	"github.com/hanpama/fedgraph/internal/eventbus"
	"github.com/hanpama/fedgraph/internal/events"
	"github.com/hanpama/fedgraph/internal/resolvability"
	"github.com/hanpama/fedgraph/internal/subgraph"
	"github.com/stretchr/testify/require"
)

func compose(t *testing.T, subgraphs ...subgraph.InMemorySubgraph) *composition.Result {
	t.Helper()
	res, err := composition.NewComposer().Compose(testContext(t), subgraph.NewInMemoryDiscovery(subgraphs))
	require.NoError(t, err)
	return res
}

func paths(t *testing.T, errs []error) []string {
	t.Helper()
	var out []string
	for _, err := range errs {
		var ufe *resolvability.UnresolvableFieldError
		require.ErrorAs(t, err, &ufe)
		out = append(out, ufe.FieldPath+"|"+ufe.FieldName)
	}
	return out
}

func TestCompose(t *testing.T) {
	for _, tc := range []struct {
		name      string
		subgraphs []subgraph.InMemorySubgraph
		want      []string
	}{
		{
			name: "entity resolved through key",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "accounts", Content: `
					type Query { me: User }
					type User @key(fields: "id") { id: ID!, username: String }
				`},
				{Name: "reviews", Content: `
					type Review { body: String, author: User }
					extend type User @key(fields: "id") { id: ID! @external, reviews: [Review] }
				`},
			},
		},
		{
			name: "plain object field in another subgraph",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "a", Content: `type Query { user: User } type User { id: ID }`},
				{Name: "b", Content: `type User { id: ID, age: Int }`},
			},
			want: []string{"query.user|age"},
		},
		{
			name: "non-resolvable key",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "a", Content: `type Query { product: Product } type Product @key(fields: "upc") { upc: ID! }`},
				{Name: "b", Content: `type Product @key(fields: "upc", resolvable: false) { upc: ID!, price: Int }`},
			},
			want: []string{"query.product|price"},
		},
		{
			name: "external non-key field is not owned",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "a", Content: `type Query { user: User } type User @key(fields: "id") { id: ID!, name: String @external }`},
				{Name: "b", Content: `type User @key(fields: "id", resolvable: false) { id: ID!, name: String }`},
			},
			want: []string{"query.user|name"},
		},
		{
			name: "inaccessible field is skipped",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "a", Content: `type Query { user: User } type User { id: ID }`},
				{Name: "b", Content: `type User { id: ID, age: Int @inaccessible }`},
			},
		},
		{
			name: "field of inaccessible type is skipped",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "a", Content: `type Query { user: User } type User { id: ID }`},
				{Name: "b", Content: `type User { id: ID, secret: Secret } type Secret @inaccessible { value: String }`},
			},
		},
		{
			name: "shareable root field",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "a", Content: `type Query { user: User } type User { id: ID }`},
				{Name: "b", Content: `type Query { user: User } type User { id: ID }`},
			},
		},
		{
			name: "abstract member field",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "a", Content: `
					type Query { media: Media }
					interface Media { title: String }
					type Book implements Media { title: String }
				`},
				{Name: "b", Content: `type Book { title: String, author: String }`},
			},
			want: []string{"query.media.... on Book|author"},
		},
		{
			name: "entity ancestor reaches nested field through implicit key",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "q", Content: `
					type Query { entity: SometimesEntity! }
					type SometimesEntity { id: ID!, object: Object! }
					type Object { nestedObject: NestedObject! }
					type NestedObject { name: String! }
				`},
				{Name: "r", Content: `
					type SometimesEntity @key(fields: "id") { id: ID!, object: Object! }
					type Object { nestedObject: NestedObject! }
					type NestedObject { age: Int! }
				`},
			},
		},
		{
			name: "implicit keys leapfrog across subgraphs",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "ak", Content: `
					type Query { entityOne: EntityOne! }
					type EntityOne @key(fields: "object { id }") {
						object: Object!
						idTwo: ID! @shareable
						entityTwo: EntityTwo
					}
					type Object { id: ID! @shareable }
					type EntityTwo @key(fields: "id") { id: ID! }
				`},
				{Name: "al", Content: `
					type EntityTwo @key(fields: "id") { id: ID!, entityThree: EntityThree! }
					type EntityThree @key(fields: "id") { id: ID!, entityOne: EntityOne! }
					type EntityOne @key(fields: "object { id }") { object: Object! }
					type Object { id: ID! @shareable }
				`},
				{Name: "am", Content: `type EntityOne @key(fields: "idTwo") { idTwo: ID!, name: String! }`},
			},
		},
		{
			name: "nested entity without a key back to the root subgraph",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "ac", Content: `
					type Query { entityOne: EntityOne! }
					type EntityOne { id: ID! @shareable, entityTwo: EntityTwo!, name: String! }
					type EntityTwo @key(fields: "id") { id: ID!, name: String! }
				`},
				{Name: "ad", Content: `
					type EntityOne @key(fields: "id") { id: ID!, age: Int! }
					type EntityTwo @key(fields: "id") { id: ID!, entityOne: EntityOne! }
				`},
			},
			want: []string{
				"query.entityOne.entityTwo.entityOne|entityTwo",
				"query.entityOne.entityTwo.entityOne|name",
			},
		},
		{
			name: "nested entity with an unreachable nested object field",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "ba", Content: `
					type Query { entityOne: EntityOne! }
					type EntityOne { id: ID! @shareable, entityTwo: EntityTwo!, object: Object @shareable }
					type EntityTwo @key(fields: "id") { id: ID!, name: String! }
					type Object { nestedObject: NestedObject! @shareable }
					type NestedObject { name: String! }
				`},
				{Name: "bb", Content: `
					type EntityOne @key(fields: "id") { id: ID!, object: Object! @shareable }
					type EntityTwo @key(fields: "id") { id: ID!, entityOne: EntityOne! }
					type Object { nestedObject: NestedObject! @shareable }
					type NestedObject { age: Int! }
				`},
			},
			want: []string{
				"query.entityOne.entityTwo.entityOne.object.nestedObject|name",
				"query.entityOne.entityTwo.entityOne|entityTwo",
			},
		},
		{
			name: "external field does not satisfy an implicit key",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "bm", Content: `type Query { entity: Entity! } type Entity { id: ID! @external, name: String! }`},
				{Name: "bn", Content: `type Entity @key(fields: "id") { id: ID!, age: Int! }`},
			},
			want: []string{"query.entity|age"},
		},
		{
			name: "unconditionally external key field",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "iaaa", Content: `type Entity @key(fields: "id") { id: ID! @external } type Query { entities: [Entity!]! }`},
				{Name: "iaab", Content: `type Entity @key(fields: "id") { id: ID!, name: String! }`},
			},
			want: []string{"query.entities|id", "query.entities|name"},
		},
		{
			name: "external key field is still a target",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "jaaa", Content: `type Entity @key(fields: "id") { id: ID! @external, name: String! }`},
				{Name: "jaab", Content: `type Entity @key(fields: "id") { id: ID! } type Query { entities: [Entity!]! }`},
			},
		},
		{
			name: "extends directive provides external key field",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "a", Content: `type Entity @extends @key(fields: "id") { id: ID! @external } type Query { entities: [Entity!]! }`},
				{Name: "b", Content: `type Entity @key(fields: "id") { id: ID!, name: String! }`},
			},
		},
		{
			name: "interface object fields reach every implementation",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "a", Content: `
					type Query { accounts: [Account] }
					interface Account @key(fields: "id") { id: ID! }
					type User implements Account @key(fields: "id") { id: ID!, name: String }
					type Admin implements Account @key(fields: "id") { id: ID!, level: Int }
				`},
				{Name: "b", Content: `
					type Query { featured: Account }
					type Account @key(fields: "id") @interfaceObject { id: ID!, visits: Int }
				`},
			},
		},
		{
			name: "interface object without a resolvable key",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "a", Content: `
					type Query { accounts: [Account] }
					interface Account @key(fields: "id") { id: ID! }
					type User implements Account @key(fields: "id") { id: ID!, name: String }
					type Admin implements Account @key(fields: "id") { id: ID!, level: Int }
				`},
				{Name: "b", Content: `
					type Query { featured: Account }
					type Account @key(fields: "id", resolvable: false) @interfaceObject { id: ID!, visits: Int }
				`},
			},
			want: []string{"query.accounts.... on User|visits"},
		},
		{
			name: "errors accumulate across root fields",
			subgraphs: []subgraph.InMemorySubgraph{
				{Name: "a", Content: `
					type Query { user: User }
					type Mutation { touch: User }
					type User { id: ID }
				`},
				{Name: "b", Content: `type User { id: ID, age: Int }`},
			},
			want: []string{"query.user|age", "mutation.touch|age"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res := compose(t, tc.subgraphs...)
			if diff := cmp.Diff(tc.want, paths(t, res.Errors)); diff != "" {
				t.Fatalf("errors mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, tc.want == nil, res.Success())
			require.Len(t, res.Subgraphs, len(tc.subgraphs))
		})
	}
}

func TestComposeReportsEachUnresolvableFieldOnce(t *testing.T) {
	res := compose(t,
		subgraph.InMemorySubgraph{Name: "bm", Content: `type Query { entity: Entity! } type Entity { id: ID! @external, name: String! }`},
		subgraph.InMemorySubgraph{Name: "bn", Content: `type Entity @key(fields: "id") { id: ID!, age: Int! }`},
	)
	require.Len(t, res.Errors, 1)
	var ufe *resolvability.UnresolvableFieldError
	require.ErrorAs(t, res.Errors[0], &ufe)
	require.Equal(t, "age", ufe.FieldName)
	require.Equal(t, []string{"bn"}, ufe.SubgraphNames)
	require.NotNil(t, ufe.EntityAncestor)
	require.Equal(t, "bm", ufe.EntityAncestor.SubgraphName)
	require.Empty(t, ufe.EntityAncestor.SatisfiedFieldSets)
	if diff := cmp.Diff(map[string][]string{"bn": {"id"}}, ufe.EntityAncestor.FieldSetsByTargetSubgraphName); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}
}

func TestResultErr(t *testing.T) {
	ok := &composition.Result{}
	require.NoError(t, ok.Err())

	e1, e2 := errors.New("first"), errors.New("second")
	res := &composition.Result{Errors: []error{e1, e2}}
	err := res.Err()
	require.EqualError(t, err, "first\n\nsecond")
	require.ErrorIs(t, err, e2)
}

func TestComposeMaxDepth(t *testing.T) {
	res, err := composition.NewComposer(composition.WithMaxDepth(1)).Compose(testContext(t),
		subgraph.NewInMemoryDiscovery([]subgraph.InMemorySubgraph{
			{Name: "a", Content: `type Query { a: A } type A { b: B } type B { id: ID }`},
		}))
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	var dle *resolvability.DepthLimitError
	require.ErrorAs(t, res.Errors[0], &dle)
	require.Equal(t, 1, dle.MaxDepth)
}

func TestComposeFailures(t *testing.T) {
	composer := composition.NewComposer()

	_, err := composer.Compose(testContext(t), subgraph.NewInMemoryDiscovery(nil))
	require.EqualError(t, err, "no subgraphs found")

	_, err = composer.Compose(testContext(t), subgraph.NewInMemoryDiscovery([]subgraph.InMemorySubgraph{
		{Name: "a", Content: `type Query { user: User }`},
	}))
	var verr subgraph.ValidationError
	require.ErrorAs(t, err, &verr)
	require.ErrorContains(t, err, `subgraph "a": `)

	_, err = composer.Compose(testContext(t), subgraph.NewInMemoryDiscovery([]subgraph.InMemorySubgraph{
		{Name: "a", Content: `type Query {`},
	}))
	require.ErrorContains(t, err, `parse subgraph "a"`)

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()
	_, err = composer.Compose(ctx, subgraph.NewInMemoryDiscovery([]subgraph.InMemorySubgraph{
		{Name: "a", Content: `type Query { a: Int }`},
	}))
	require.ErrorIs(t, err, context.Canceled)
}

func TestComposePublishesEvents(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })

	var starts []events.CompositionStart
	var finishes []events.CompositionFinish
	defer eventbus.SubscribeTo(bus, func(_ context.Context, e events.CompositionStart) { starts = append(starts, e) })()
	defer eventbus.SubscribeTo(bus, func(_ context.Context, e events.CompositionFinish) { finishes = append(finishes, e) })()

	compose(t,
		subgraph.InMemorySubgraph{Name: "a", Content: `type Query { user: User } type User { id: ID }`},
		subgraph.InMemorySubgraph{Name: "b", Content: `type User { id: ID, age: Int }`},
	)
	require.Len(t, starts, 1)
	require.Equal(t, []string{"a", "b"}, starts[0].Subgraphs)
	require.Len(t, finishes, 1)
	require.Equal(t, []string{"a", "b"}, finishes[0].Subgraphs)
	require.Len(t, finishes[0].Errors, 1)
}
