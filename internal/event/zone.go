package event

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultNamespace is omitted when displaying zones.
const DefaultNamespace = "minecraft"

// Well-known zones of the default namespace.
const (
	Overworld Zone = "minecraft:overworld"
	Nether    Zone = "minecraft:the_nether"
	End       Zone = "minecraft:the_end"
)

var (
	namespacePattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)
	pathPattern      = regexp.MustCompile(`^[a-z0-9_./-]+$`)
)

// Zone identifies the spatial region (world or dimension) an owner occupies,
// written as namespace:path.
type Zone string

// ParseZone validates s and returns its canonical form. A bare path is
// placed in the default namespace.
func ParseZone(s string) (Zone, error) {
	ns, path, found := strings.Cut(s, ":")
	if !found {
		ns, path = DefaultNamespace, s
	}
	if !namespacePattern.MatchString(ns) || !pathPattern.MatchString(path) {
		return "", fmt.Errorf("%w: %q", ErrInvalidZone, s)
	}
	return Zone(ns + ":" + path), nil
}

// Namespace returns the part before the colon.
func (z Zone) Namespace() string {
	ns, _, found := strings.Cut(string(z), ":")
	if !found {
		return DefaultNamespace
	}
	return ns
}

// Path returns the part after the colon.
func (z Zone) Path() string {
	_, path, found := strings.Cut(string(z), ":")
	if !found {
		return string(z)
	}
	return path
}

// Display returns the path alone for default-namespace zones and the full
// identifier otherwise.
func (z Zone) Display() string {
	if z.Namespace() == DefaultNamespace {
		return z.Path()
	}
	return string(z)
}

// String implements fmt.Stringer.
func (z Zone) String() string {
	return string(z)
}
