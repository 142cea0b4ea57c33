// Package jobid provides identifiers for jobs, services and their processes.
//
// An ID carries a globally unique ULID and a short friendly number used for
// display and lookup. IDs are comparable (usable as map keys) and totally
// ordered by Compare.
package jobid

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

// ID identifies a job, service or process.
type ID struct {
	Unique   ulid.ULID `json:"unique"`
	Friendly int64     `json:"friendly"`
}

// New returns an ID with a fresh unique part and the given friendly number.
func New(friendly int64) ID {
	return ID{Unique: ulid.Make(), Friendly: friendly}
}

// IsZero reports whether the ID was never assigned.
func (id ID) IsZero() bool {
	return id == ID{}
}

// String returns the friendly display form.
func (id ID) String() string {
	return strconv.FormatInt(id.Friendly, 10)
}

// Compare orders IDs by friendly number, then by unique part.
func (id ID) Compare(other ID) int {
	if c := cmp.Compare(id.Friendly, other.Friendly); c != 0 {
		return c
	}
	return id.Unique.Compare(other.Unique)
}

// ParseFriendly parses the display form of an ID.
func ParseFriendly(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return n, nil
}

// Generator hands out IDs with increasing friendly numbers.
// Friendly numbers are never reused by the same generator.
type Generator struct {
	last atomic.Int64
}

// NewGenerator creates a generator whose first ID has friendly number start.
func NewGenerator(start int64) *Generator {
	g := &Generator{}
	g.last.Store(start - 1)
	return g
}

// Next returns the next ID.
func (g *Generator) Next() ID {
	return New(g.last.Add(1))
}
