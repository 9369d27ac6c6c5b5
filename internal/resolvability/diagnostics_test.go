package resolvability

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSelectionSetSegments(t *testing.T) {
	for _, tc := range []struct {
		path string
		want []string
	}{
		{path: "query", want: []string{"query"}},
		{path: "query.product", want: []string{"query", "product"}},
		{path: "query.media.... on Book.author", want: []string{"query", "media", "... on Book", "author"}},
		{path: "query.search.... on Book.... on Novel", want: []string{"query", "search", "... on Book", "... on Novel"}},
		{path: ".reviews.author", want: []string{"reviews", "author"}},
	} {
		t.Run(tc.path, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, SelectionSetSegments(tc.path)); diff != "" {
				t.Fatalf("segments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderSelectionSet(t *testing.T) {
	got := RenderSelectionSet([]string{"query", "media", "... on Book"}, &GraphFieldData{Name: "author"})
	want := `query {
  media {
    ... on Book {
      author { ... }
    }
  }
}`
	require.Equal(t, want, got)

	got = RenderSelectionSet([]string{"query"}, &GraphFieldData{Name: "id", IsLeaf: true})
	require.Equal(t, "query {\n  id\n}", got)
}

func TestUnresolvableFieldErrorMessage(t *testing.T) {
	errs := newFixture().
		field("a", "Query", "user", "User").
		field("a", "User", "id", "ID").
		field("b", "User", "id", "ID").
		field("b", "User", "age", "Int").
		build().Validate()
	require.Len(t, errs, 1)

	want := `The field "age" is unresolvable at the following path:
query {
  user {
    age
  }
}
This is because:
 - The root type field "Query.user" is defined in the following subgraph: "a".
 - However, "User.age" is only defined in the following subgraph: "b".
 - The type "User" is not an entity, and no entity ancestor on this path can be used to reach those subgraphs.`
	require.Equal(t, want, errs[0].Error())

	var ufe *UnresolvableFieldError
	require.ErrorAs(t, errs[0], &ufe)
	require.Equal(t, "Query.user", ufe.RootField.Coords)
	require.Equal(t, []string{"b"}, ufe.SubgraphNames)
	require.Nil(t, ufe.EntityAncestor)
}

func TestResolvabilityReasonsForEntity(t *testing.T) {
	rootField := newRootFieldData(Query, "product", []string{"a", "b"})
	field := &GraphFieldData{Name: "price", IsLeaf: true, SubgraphNames: []string{"c", "a"}}

	t.Run("key targets the subgraph", func(t *testing.T) {
		ancestor := &EntityAncestorData{
			TypeName:                      "Product",
			SubgraphName:                  "a",
			SatisfiedFieldSets:            []string{"id"},
			FieldSetsByTargetSubgraphName: map[string][]string{"c": {"upc", "id"}},
		}
		want := []string{
			`The root type field "Query.product" is defined in the following subgraphs: "a", "b".`,
			`However, "Product.price" is only defined in the following subgraphs: "a", "c".`,
			`The entity ancestor "Product" in subgraph "a" satisfies the key field set "id" to access subgraph "c".`,
			`The entity ancestor "Product" in subgraph "a" does not satisfy the key field set "upc" to access subgraph "c".`,
			`The type "Product" has no other accessible entity ancestor that provides a shared route to "Product.price".`,
		}
		if diff := cmp.Diff(want, ResolvabilityReasons(rootField, "Product", field, ancestor)); diff != "" {
			t.Fatalf("reasons mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no key targets the subgraph", func(t *testing.T) {
		ancestor := &EntityAncestorData{TypeName: "Product", SubgraphName: "a", SatisfiedFieldSets: []string{"id"}}
		got := ResolvabilityReasons(rootField, "Product", field, ancestor)
		require.Len(t, got, 4)
		require.Equal(t,
			`The entity ancestor "Product" in subgraph "a" has no resolvable key field set that targets a subgraph that defines "Product.price".`,
			got[2])
	})
}
