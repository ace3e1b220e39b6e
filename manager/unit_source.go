package manager

import "github.com/jtdaugherty/fluxgo/job"

// UnitSource hands out work units one at a time. CancellableIterator
// implements it for jobs dispatched by RenderManager (units known up front);
// ChannelSource implements it for a node server's per-connection work-unit
// stream, where units arrive one at a time over the wire.
type UnitSource interface {
	Next() (job.WorkUnit, bool)
}

// ChannelSource adapts a channel of incoming work units into a UnitSource:
// Next blocks until a unit arrives or the channel is closed.
type ChannelSource struct {
	ch <-chan job.WorkUnit
}

// NewChannelSource wraps ch. Closing ch signals exhaustion.
func NewChannelSource(ch <-chan job.WorkUnit) *ChannelSource {
	return &ChannelSource{ch: ch}
}

// Next implements UnitSource.
func (c *ChannelSource) Next() (job.WorkUnit, bool) {
	u, ok := <-c.ch
	return u, ok
}
