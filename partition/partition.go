// Package partition derives deterministic, hierarchical storage keys from
// signal type, extracted service name, and time. Paths are Hive-style so
// query engines can prune by time range:
//
//	logs/{service}/year=2024/month=01/day=15/hour=14/
//	metrics/gauge/{service}/year=.../
//
// The file name inside the partition is assigned by the writer, which owns
// the uniqueness suffix.
package partition

import (
	"fmt"
	"time"

	"github.com/xtxerr/coldtel/columnar"
)

// UnknownService is the sentinel label used when no service name was
// extracted from the payload's resource attributes.
const UnknownService = "unknown-service"

// Path is a resolved partition directory key.
type Path struct {
	Dir string
}

// File joins a writer-assigned file name onto the partition directory.
func (p Path) File(name string) string {
	return p.Dir + "/" + name
}

// Resolve derives the partition path for a flushed batch. One representative
// timestamp decides the hour bucket for the whole batch; the caller passes
// the batch's first row timestamp.
func Resolve(schema columnar.SchemaID, service string, t time.Time) Path {
	if service == "" {
		service = UnknownService
	}
	t = t.UTC()

	prefix := schema.Signal().String()
	if kind, ok := schema.MetricKind(); ok {
		prefix += "/" + kind.String()
	}

	return Path{Dir: fmt.Sprintf("%s/%s/year=%d/month=%02d/day=%02d/hour=%02d",
		prefix, Sanitize(service), t.Year(), int(t.Month()), t.Day(), t.Hour())}
}

// Sanitize replaces path-hostile characters in a service name with
// underscores so the name is safe as a path segment on any backend.
func Sanitize(name string) string {
	out := []byte(name)
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
