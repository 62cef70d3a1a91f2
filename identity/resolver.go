// Package identity maps the loose owner identifiers found in effort and
// spend tables to canonical person ids.
//
// Resolution is an ordered chain of strategies; the first one that matches
// wins. The chain is built once from the person list and is read-only
// afterwards, so a Resolver can be shared between goroutines.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/warp/capacity-engine/generic"
)

// Match names the strategy that resolved an owner.
type Match string

const (
	MatchNone   Match = ""
	MatchDirect Match = "direct"
	MatchAlias  Match = "alias"
	MatchEmail  Match = "email"
	MatchName   Match = "name"
)

// Query is one owner to resolve. Key is OwnerText already normalized.
type Query struct {
	PersonID  *generic.PersonID
	OwnerText string
	Key       string
}

// Strategy is one step of the resolution chain.
type Strategy interface {
	Match() Match
	Resolve(q Query) (generic.PersonID, bool)
}

// Resolver evaluates its strategies in order.
type Resolver struct {
	strategies []Strategy
}

// NewResolver builds the standard chain: direct id, alias, email, unique name.
func NewResolver(people []generic.Person) *Resolver {
	return &Resolver{strategies: []Strategy{
		newDirectStrategy(people),
		newAliasStrategy(people),
		newEmailStrategy(people),
		newNameStrategy(people),
	}}
}

// NewChain builds a resolver from explicit strategies.
func NewChain(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve returns the person for an optional id and owner text.
func (r *Resolver) Resolve(personID *generic.PersonID, ownerText string) (generic.PersonID, bool) {
	id, m := r.ResolveMatch(personID, ownerText)
	return id, m != MatchNone
}

// ResolveMatch is Resolve plus the name of the strategy that matched.
func (r *Resolver) ResolveMatch(personID *generic.PersonID, ownerText string) (generic.PersonID, Match) {
	q := Query{PersonID: personID, OwnerText: ownerText, Key: Normalize(ownerText)}
	for _, s := range r.strategies {
		if id, ok := s.Resolve(q); ok {
			return id, s.Match()
		}
	}
	return "", MatchNone
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// Normalize folds case, strips diacritics, trims, and collapses inner
// whitespace: "  José  García " and "jose garcia" share a key.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// =============================================================================
// STRATEGIES
// =============================================================================

type directStrategy struct {
	known map[generic.PersonID]bool
}

func newDirectStrategy(people []generic.Person) *directStrategy {
	known := make(map[generic.PersonID]bool, len(people))
	for _, p := range people {
		known[p.ID] = true
	}
	return &directStrategy{known: known}
}

func (s *directStrategy) Match() Match { return MatchDirect }

func (s *directStrategy) Resolve(q Query) (generic.PersonID, bool) {
	if q.PersonID == nil || !s.known[*q.PersonID] {
		return "", false
	}
	return *q.PersonID, true
}

// lookupStrategy resolves a normalized key through a precomputed table.
// Keys claimed by more than one person are dropped while building.
type lookupStrategy struct {
	match Match
	table map[string]generic.PersonID
	guard func(q Query) bool
}

func (s *lookupStrategy) Match() Match { return s.match }

func (s *lookupStrategy) Resolve(q Query) (generic.PersonID, bool) {
	if q.Key == "" || (s.guard != nil && !s.guard(q)) {
		return "", false
	}
	id, ok := s.table[q.Key]
	return id, ok
}

// uniqueTable indexes key -> person and removes keys with two owners.
type uniqueTable struct {
	ids       map[string]generic.PersonID
	ambiguous map[string]bool
}

func newUniqueTable() *uniqueTable {
	return &uniqueTable{ids: map[string]generic.PersonID{}, ambiguous: map[string]bool{}}
}

func (u *uniqueTable) add(raw string, id generic.PersonID) {
	key := Normalize(raw)
	if key == "" || u.ambiguous[key] {
		return
	}
	if existing, ok := u.ids[key]; ok && existing != id {
		delete(u.ids, key)
		u.ambiguous[key] = true
		return
	}
	u.ids[key] = id
}

func newAliasStrategy(people []generic.Person) *lookupStrategy {
	u := newUniqueTable()
	for _, p := range people {
		for _, alias := range p.Aliases {
			u.add(alias, p.ID)
		}
	}
	return &lookupStrategy{match: MatchAlias, table: u.ids}
}

func newEmailStrategy(people []generic.Person) *lookupStrategy {
	u := newUniqueTable()
	for _, p := range people {
		u.add(p.Email, p.ID)
		u.add(p.UserEmail, p.ID)
	}
	return &lookupStrategy{
		match: MatchEmail,
		table: u.ids,
		guard: func(q Query) bool { return strings.Contains(q.Key, "@") },
	}
}

// Display names only resolve when exactly one active person carries them.
// Inactive people are left out of the table entirely: a former employee's
// name neither resolves nor makes a current colleague's name ambiguous.
// They stay reachable by id, alias and email.
func newNameStrategy(people []generic.Person) *lookupStrategy {
	u := newUniqueTable()
	for _, p := range people {
		if p.Active {
			u.add(p.DisplayName, p.ID)
		}
	}
	return &lookupStrategy{match: MatchName, table: u.ids}
}
