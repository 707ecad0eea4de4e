package stormbus

import "sync/atomic"

// HandlerChain is the ordered, post-scoped snapshot of subscribers
// matched to one posted event. Later registration or deregistration does
// not affect an in-flight chain.
//
// A handler may interrupt the chain during its own invocation; no further
// entries are invoked for that post. Interruption does not cancel async
// work already submitted, and it does not outlive the post.
type HandlerChain struct {
	entries     []*record
	interrupted atomic.Bool
}

func newHandlerChain(entries []*record) *HandlerChain {
	return &HandlerChain{entries: entries}
}

// Interrupt bars invocation of all subsequent entries in this chain.
func (c *HandlerChain) Interrupt() {
	c.interrupted.Store(true)
}

// Interrupted reports whether the chain has been interrupted.
func (c *HandlerChain) Interrupted() bool {
	return c.interrupted.Load()
}

// Len returns the number of entries in the chain.
func (c *HandlerChain) Len() int {
	return len(c.entries)
}

// ChainAware is the capability for events that want access to their
// handler chain. The dispatcher attaches the chain before the first
// invocation, so handler code can call back into it to interrupt.
type ChainAware interface {
	SetHandlerChain(chain *HandlerChain)
}

// ChainHolder is an embeddable ChainAware implementation.
//
//	type AuditEvent struct {
//	    stormbus.ChainHolder
//	    Entry string
//	}
type ChainHolder struct {
	chain *HandlerChain
}

// SetHandlerChain implements ChainAware.
func (h *ChainHolder) SetHandlerChain(chain *HandlerChain) {
	h.chain = chain
}

// HandlerChain returns the chain attached for the current post, or nil
// outside a dispatch.
func (h *ChainHolder) HandlerChain() *HandlerChain {
	return h.chain
}

// Interrupt interrupts the attached chain, if any.
func (h *ChainHolder) Interrupt() {
	if h.chain != nil {
		h.chain.Interrupt()
	}
}
