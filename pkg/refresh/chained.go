package refresh

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/loadwise/pageloader/pkg/loader"
	"github.com/loadwise/pageloader/pkg/paging"
)

// Rule picks the convergence strategy of a chained refresh.
type Rule interface {
	isRule()
}

// End walks forward until Limit pages were loaded or the loader's progress
// has caught up with the held item count. A Limit of 0 means no page cap.
type End struct {
	Limit int
}

// Intersection walks forward until a freshly fetched page shares at least
// one item with the collection as it was held before the walk started, then
// resynchronizes the cursor to the actual holdings. Items must be comparable
// for this rule.
//
// With remote data that never overlaps the holdings and a source that never
// returns an empty page this walk does not terminate; bounding it is the
// caller's job, e.g. via ctx.
type Intersection struct{}

func (End) isRule()          {}
func (Intersection) isRule() {}

// Chained walks the remote data from the first page until the rule declares
// convergence. An empty fetched page marks the cursor exhausted and fails
// with ErrDataLimitReached instead of succeeding with nothing.
func Chained[T comparable](ctx context.Context, l *loader.Loader[T], rule Rule) error {
	return ChainedFrom(ctx, l, rule, paging.First)
}

// ChainedFrom is Chained starting from an explicit intent. The walk is a
// loop, not a recursion: convergence chains over many pages must not grow
// the stack.
func ChainedFrom[T comparable](ctx context.Context, l *loader.Loader[T], rule Rule, from paging.Intent) error {
	intent := from
	// The overlap test runs against the holdings as they were before the
	// walk: each cycle commits its page to the store, so the live holdings
	// would intersect every page the walk itself just wrote.
	held := l.Items()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := l.Load(ctx, intent)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			l.MarkExhausted()
			return loader.ErrDataLimitReached
		}

		switch rule := rule.(type) {
		case End:
			withinCap := rule.Limit <= 0 || l.PageIndex() < rule.Limit-1
			if withinCap && l.Loaded() < l.Held() {
				intent = paging.Next
				continue
			}
			return nil

		case Intersection:
			if len(lo.Intersect(page, held)) == 0 && !l.Exhausted() {
				intent = paging.Next
				continue
			}
			// Converged: snap progress to the caller's actual holdings.
			l.ForceLoaded(l.Held())
			return nil

		default:
			return fmt.Errorf("unknown chain rule %T", rule)
		}
	}
}
