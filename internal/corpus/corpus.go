// Package corpus provides read access to the reply corpus: canned replies
// tagged with a score level and a language code. The pipeline never writes
// to it beyond the initial seeding helper.
package corpus

import (
	"context"
	"errors"
)

// ErrNoReply indicates that no reply exists for the requested (level,
// language) pair. FetchRandom callers are expected to have probed Exists
// first via the level index.
var ErrNoReply = errors.New("no reply for level and language")

// Reply is one canned reply. BodyHTML is empty when the reply has no rich
// form; when present it is preferred over the plain body.
type Reply struct {
	Body     string
	BodyHTML string
}

// Text returns the preferred body and whether it carries rich formatting.
func (r Reply) Text() (string, bool) {
	if r.BodyHTML != "" {
		return r.BodyHTML, true
	}

	return r.Body, false
}

// Store is the reply corpus boundary consumed by the pipeline.
type Store interface {
	Exists(ctx context.Context, level float64, language string) (bool, error)
	FetchRandom(ctx context.Context, level float64, language string) (Reply, error)
}
