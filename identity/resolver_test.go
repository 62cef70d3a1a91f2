package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/identity"
)

func pid(s string) *generic.PersonID {
	id := generic.PersonID(s)
	return &id
}

func testPeople() []generic.Person {
	return []generic.Person{
		{ID: "p-ana", DisplayName: "Ana Núñez", Email: "ana@acme.test", Aliases: []string{"anunez", "A. Nunez"}, Active: true},
		{ID: "p-bob", DisplayName: "Bob Stone", Email: "bob@acme.test", UserEmail: "bob.login@acme.test", Active: true},
		{ID: "p-sam1", DisplayName: "Sam Lee", Email: "sam1@acme.test", Active: true},
		{ID: "p-sam2", DisplayName: "Sam Lee", Email: "sam2@acme.test", Active: true},
		{ID: "p-old", DisplayName: "Bob Stone", Email: "old@acme.test", Active: false},
	}
}

func TestResolve_DirectIDWins(t *testing.T) {
	r := identity.NewResolver(testPeople())

	id, m := r.ResolveMatch(pid("p-bob"), "Ana Núñez")

	assert.Equal(t, generic.PersonID("p-bob"), id)
	assert.Equal(t, identity.MatchDirect, m)
}

func TestResolve_UnknownDirectIDFallsThrough(t *testing.T) {
	r := identity.NewResolver(testPeople())

	id, m := r.ResolveMatch(pid("p-ghost"), "anunez")

	assert.Equal(t, generic.PersonID("p-ana"), id)
	assert.Equal(t, identity.MatchAlias, m)
}

func TestResolve_AliasIsCaseAndDiacriticInsensitive(t *testing.T) {
	r := identity.NewResolver(testPeople())

	id, ok := r.Resolve(nil, "  a.   NÚNEZ ")

	assert.True(t, ok)
	assert.Equal(t, generic.PersonID("p-ana"), id)
}

func TestResolve_EmailAndUserEmail(t *testing.T) {
	r := identity.NewResolver(testPeople())

	id, m := r.ResolveMatch(nil, "BOB@acme.test")
	assert.Equal(t, generic.PersonID("p-bob"), id)
	assert.Equal(t, identity.MatchEmail, m)

	id, m = r.ResolveMatch(nil, "bob.login@acme.test")
	assert.Equal(t, generic.PersonID("p-bob"), id)
	assert.Equal(t, identity.MatchEmail, m)
}

func TestResolve_UniqueNameAmongActivePeople(t *testing.T) {
	// GIVEN: "Bob Stone" is shared with an inactive person only
	r := identity.NewResolver(testPeople())

	// THEN: the active person wins the name
	id, m := r.ResolveMatch(nil, "bob stone")
	assert.Equal(t, generic.PersonID("p-bob"), id)
	assert.Equal(t, identity.MatchName, m)

	// And diacritics do not matter
	id, ok := r.Resolve(nil, "ana nunez")
	assert.True(t, ok)
	assert.Equal(t, generic.PersonID("p-ana"), id)
}

func TestResolve_InactivePersonOnlyByIDAliasOrEmail(t *testing.T) {
	// GIVEN: an inactive person with a unique display name and an alias
	r := identity.NewResolver([]generic.Person{
		{ID: "p-ana", DisplayName: "Ana Ruiz", Active: true},
		{ID: "p-carl", DisplayName: "Carl Witt", Email: "carl@acme.test", Aliases: []string{"cwitt"}, Active: false},
	})

	// THEN: the name stays unmapped
	_, m := r.ResolveMatch(nil, "Carl Witt")
	assert.Equal(t, identity.MatchNone, m)

	// but the other strategies still find him
	for _, owner := range []string{"cwitt", "carl@acme.test"} {
		id, ok := r.Resolve(nil, owner)
		assert.True(t, ok, owner)
		assert.Equal(t, generic.PersonID("p-carl"), id)
	}
	id, m := r.ResolveMatch(pid("p-carl"), "")
	assert.Equal(t, generic.PersonID("p-carl"), id)
	assert.Equal(t, identity.MatchDirect, m)
}

func TestResolve_AmbiguousNameNeverResolves(t *testing.T) {
	r := identity.NewResolver(testPeople())

	_, ok := r.Resolve(nil, "Sam Lee")

	assert.False(t, ok)
}

func TestResolve_AmbiguousAliasNeverResolves(t *testing.T) {
	people := []generic.Person{
		{ID: "p-1", DisplayName: "One", Aliases: []string{"shared"}, Active: true},
		{ID: "p-2", DisplayName: "Two", Aliases: []string{"Shared"}, Active: true},
		{ID: "p-3", DisplayName: "Three", Aliases: []string{"shared"}, Active: true},
	}
	r := identity.NewResolver(people)

	_, ok := r.Resolve(nil, "shared")

	assert.False(t, ok)
}

func TestResolve_EmailStrategyRequiresAt(t *testing.T) {
	// An alias that happens to equal someone's email local part is not an email.
	people := []generic.Person{{ID: "p-1", DisplayName: "One", Email: "x@y", Active: true}}
	r := identity.NewResolver(people)

	_, ok := r.Resolve(nil, "x")

	assert.False(t, ok)
}

func TestResolve_EmptyInputIsUnmapped(t *testing.T) {
	r := identity.NewResolver(testPeople())

	_, ok := r.Resolve(nil, "   ")

	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "jose garcia", identity.Normalize("  José   GARCÍA "))
	assert.Equal(t, "", identity.Normalize(""))
}
