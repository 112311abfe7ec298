// Package catalog holds the instrument lookup table: immutable profiles keyed by nickname.
//
// A Catalog is built once at startup, from Builtin, from a TOML file via Load, or from both
// with Extend, and then passed explicitly to whatever opens instruments. Nothing in this
// package is mutable after construction, so a Catalog can be shared between goroutines.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/arloliu/go-scpi/instrument"
)

var (
	// ErrUnknownInstrument indicates a nickname that is not in the catalog.
	ErrUnknownInstrument = errors.New("catalog: unknown instrument")

	// ErrDuplicateNickname indicates two profiles with the same nickname.
	ErrDuplicateNickname = errors.New("catalog: duplicate nickname")
)

// Catalog is an immutable set of instrument profiles.
type Catalog struct {
	profiles map[string]instrument.Profile
	names    []string
}

// New builds a catalog from profiles. Every profile is validated, and nicknames must be
// unique ignoring case.
func New(profiles ...instrument.Profile) (*Catalog, error) {
	c := &Catalog{profiles: make(map[string]instrument.Profile, len(profiles))}

	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}

		key := normalize(p.Nickname)
		if _, ok := c.profiles[key]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNickname, p.Nickname)
		}
		c.profiles[key] = p
		c.names = append(c.names, key)
	}
	slices.Sort(c.names)

	return c, nil
}

// Lookup returns the profile registered under nickname, ignoring case.
func (c *Catalog) Lookup(nickname string) (instrument.Profile, bool) {
	p, ok := c.profiles[normalize(nickname)]
	return p, ok
}

// Get is Lookup returning ErrUnknownInstrument for a missing nickname.
func (c *Catalog) Get(nickname string) (instrument.Profile, error) {
	p, ok := c.Lookup(nickname)
	if !ok {
		return instrument.Profile{}, fmt.Errorf("%w: %q", ErrUnknownInstrument, nickname)
	}

	return p, nil
}

// Nicknames returns the sorted nicknames of the catalog.
func (c *Catalog) Nicknames() []string {
	return slices.Clone(c.names)
}

// Profiles returns all profiles sorted by nickname.
func (c *Catalog) Profiles() []instrument.Profile {
	out := make([]instrument.Profile, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.profiles[name])
	}

	return out
}

// Len returns the number of profiles.
func (c *Catalog) Len() int {
	return len(c.names)
}

// Extend returns a new catalog holding the profiles of c plus profiles, which replace entries
// of c with the same nickname. c is not modified.
func (c *Catalog) Extend(profiles ...instrument.Profile) (*Catalog, error) {
	overrides := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		overrides[normalize(p.Nickname)] = true
	}

	merged := make([]instrument.Profile, 0, len(c.names)+len(profiles))
	for _, name := range c.names {
		if !overrides[name] {
			merged = append(merged, c.profiles[name])
		}
	}
	merged = append(merged, profiles...)

	return New(merged...)
}

func normalize(nickname string) string {
	return strings.ToLower(strings.TrimSpace(nickname))
}
