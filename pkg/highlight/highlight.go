/*
Package highlight keeps the tag pair under the caret up to date.

	caret moved ──> FindAnchor ──┐
	                             ├──> current anchor ──> Locate ──> Sink
	text edited ──> TranslateTo ─┘        (EdgePositive)

The controller remembers the anchor name span, not the pair: every change
re-runs the locator against the newest snapshot and pushes the result, or nil
when nothing is highlighted, to the sink.
*/
package highlight

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/walteh/tagmatch/pkg/classify"
	"github.com/walteh/tagmatch/pkg/position"
	"github.com/walteh/tagmatch/pkg/tagmatch"
)

// Sink receives the highlight set after every change.
type Sink interface {
	TagsChanged(ctx context.Context, snap *position.Snapshot, pair *tagmatch.TagPair)
}

type SinkFunc func(ctx context.Context, snap *position.Snapshot, pair *tagmatch.TagPair)

func (f SinkFunc) TagsChanged(ctx context.Context, snap *position.Snapshot, pair *tagmatch.TagPair) {
	f(ctx, snap, pair)
}

type Controller struct {
	locator *tagmatch.Locator
	sink    Sink

	mu         sync.Mutex
	current    position.Span
	hasCurrent bool
}

func NewController(locator *tagmatch.Locator, sink Sink) *Controller {
	return &Controller{locator: locator, sink: sink}
}

// Current returns the anchor name span being tracked.
func (c *Controller) Current() (position.Span, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.hasCurrent
}

// CaretMoved re-anchors on the name under offset and notifies the sink.
func (c *Controller) CaretMoved(ctx context.Context, stream classify.Stream, snap *position.Snapshot, offset int) *tagmatch.TagPair {
	c.mu.Lock()
	c.current, c.hasCurrent = c.locator.FindAnchor(stream, snap, offset)
	c.mu.Unlock()

	zerolog.Ctx(ctx).Trace().Int("offset", offset).Msg("caret moved")
	return c.refresh(ctx, stream, snap)
}

// LayoutChanged carries the anchor over to snap and notifies the sink.
func (c *Controller) LayoutChanged(ctx context.Context, stream classify.Stream, snap *position.Snapshot) *tagmatch.TagPair {
	c.mu.Lock()
	if c.hasCurrent && c.current.Snapshot() != snap {
		moved, err := c.current.TranslateTo(snap, position.EdgePositive)
		if err != nil || moved.Length() == 0 {
			zerolog.Ctx(ctx).Debug().Err(err).Stringer("anchor", c.current).Msg("dropping anchor")
			c.current, c.hasCurrent = position.Span{}, false
		} else {
			c.current = moved
		}
	}
	c.mu.Unlock()

	return c.refresh(ctx, stream, snap)
}

// Tags computes the highlight set for snap without notifying the sink.
func (c *Controller) Tags(ctx context.Context, stream classify.Stream, snap *position.Snapshot) *tagmatch.TagPair {
	c.mu.Lock()
	anchor, ok := c.current, c.hasCurrent
	c.mu.Unlock()

	if !ok {
		return nil
	}
	if anchor.Snapshot() != snap {
		moved, err := anchor.TranslateTo(snap, position.EdgePositive)
		if err != nil {
			return nil
		}
		anchor = moved
	}
	pair, ok := c.locator.Locate(ctx, stream, anchor)
	if !ok {
		return nil
	}
	return pair
}

func (c *Controller) refresh(ctx context.Context, stream classify.Stream, snap *position.Snapshot) *tagmatch.TagPair {
	pair := c.Tags(ctx, stream, snap)
	if c.sink != nil {
		c.sink.TagsChanged(ctx, snap, pair)
	}
	return pair
}
