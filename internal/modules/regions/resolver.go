// Package regions resolves named regional groupings (e.g. "Developed Europe")
// into flat country sets. Groupings may nest: a region's member list can name
// other regions. Resolution is an explicit graph walk with path tracking, so
// cyclic definitions fail cleanly instead of recursing unboundedly.
package regions

import (
	"errors"
	"fmt"
	"sort"
)

// AllWorld is a built-in pseudo-region resolving to every known country.
// A user-supplied group with the same name takes precedence.
const AllWorld = "All World"

var (
	// ErrUnknownRegionOrCountry indicates a name that matches neither a
	// region group nor a known country
	ErrUnknownRegionOrCountry = errors.New("unknown region or country")
	// ErrCyclicRegion indicates region groups that reference each other in a loop
	ErrCyclicRegion = errors.New("cyclic region definition")
)

// Resolver expands region names into country sets. It is immutable after
// construction and safe for concurrent use; every group is resolved eagerly
// at load time, so cycles are reported by New, not on first lookup.
type Resolver struct {
	groups    map[string][]string
	countries map[string]struct{}
	resolved  map[string][]string // group name -> sorted country set
}

// New builds a resolver from raw group definitions plus any countries known
// from outside the groupings (e.g. countries present in the fetched weights).
// Member names that match a group key are treated as nested regions; all
// other members are countries. Returns ErrCyclicRegion if any group
// definition loops back on itself.
func New(groups map[string][]string, countries []string) (*Resolver, error) {
	r := &Resolver{
		groups:    make(map[string][]string, len(groups)),
		countries: make(map[string]struct{}),
		resolved:  make(map[string][]string, len(groups)),
	}
	for name, members := range groups {
		r.groups[name] = append([]string(nil), members...)
	}

	// Leaf members of the groups are countries by definition.
	for _, members := range r.groups {
		for _, member := range members {
			if _, isGroup := r.groups[member]; !isGroup {
				r.countries[member] = struct{}{}
			}
		}
	}
	for _, c := range countries {
		r.countries[c] = struct{}{}
	}

	// Resolve every group eagerly so cycles surface at load time.
	for name := range r.groups {
		if _, err := r.resolveGroup(name, make(map[string]struct{})); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Resolve returns the sorted, deduplicated country set for a name. A known
// country resolves to itself; a region resolves to the union of its members,
// recursively. The built-in "All World" name resolves to every known country.
func (r *Resolver) Resolve(name string) ([]string, error) {
	if countries, ok := r.resolved[name]; ok {
		return append([]string(nil), countries...), nil
	}
	if _, ok := r.countries[name]; ok {
		return []string{name}, nil
	}
	if name == AllWorld {
		return r.AllCountries(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRegionOrCountry, name)
}

// resolveGroup walks a group definition, tracking the in-progress resolution
// path to detect cycles. Results are memoized in r.resolved.
func (r *Resolver) resolveGroup(name string, path map[string]struct{}) ([]string, error) {
	if countries, ok := r.resolved[name]; ok {
		return countries, nil
	}
	if _, onPath := path[name]; onPath {
		return nil, fmt.Errorf("%w: region %q references itself", ErrCyclicRegion, name)
	}
	path[name] = struct{}{}
	defer delete(path, name)

	set := make(map[string]struct{})
	for _, member := range r.groups[name] {
		if _, isGroup := r.groups[member]; isGroup {
			nested, err := r.resolveGroup(member, path)
			if err != nil {
				return nil, err
			}
			for _, c := range nested {
				set[c] = struct{}{}
			}
			continue
		}
		set[member] = struct{}{}
	}

	countries := make([]string, 0, len(set))
	for c := range set {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	r.resolved[name] = countries
	return countries, nil
}

// RegionNames returns all defined group names, sorted.
func (r *Resolver) RegionNames() []string {
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllCountries returns every known country, sorted.
func (r *Resolver) AllCountries() []string {
	countries := make([]string, 0, len(r.countries))
	for c := range r.countries {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	return countries
}

// IsCountry reports whether a name is a known country (not a region).
func (r *Resolver) IsCountry(name string) bool {
	_, ok := r.countries[name]
	return ok
}
