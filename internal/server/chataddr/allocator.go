// Package chataddr hands out IPv4 multicast group addresses for document
// chat channels.
package chataddr

import (
	"errors"
	"net/netip"
	"sync"

	"github.com/dmitrijs2005/turing/internal/common"
)

// First is the first address handed out. Allocation walks up from here and
// stops at the end of 239.0.0.0/8.
var First = netip.AddrFrom4([4]byte{239, 0, 0, 0})

var ErrOutOfScope = errors.New("address outside 239.0.0.0/8")

// Allocator returns distinct addresses in increasing order. It is safe for
// concurrent use.
type Allocator struct {
	mu        sync.Mutex
	next      [4]byte
	exhausted bool
	onAlloc   func()
}

func NewAllocator(onAlloc func()) *Allocator {
	a, _ := NewAllocatorFrom(First, onAlloc)
	return a
}

// NewAllocatorFrom starts allocation at first, which must lie in 239.0.0.0/8.
func NewAllocatorFrom(first netip.Addr, onAlloc func()) (*Allocator, error) {
	if !first.Is4() || first.As4()[0] != 239 {
		return nil, ErrOutOfScope
	}
	return &Allocator{next: first.As4(), onAlloc: onAlloc}, nil
}

// Next returns a fresh address or common.ErrAddressSpaceExhausted once the
// last address of the range has been handed out.
func (a *Allocator) Next() (netip.Addr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.exhausted {
		return netip.Addr{}, common.ErrAddressSpaceExhausted
	}

	addr := netip.AddrFrom4(a.next)
	a.advance()
	if a.onAlloc != nil {
		a.onAlloc()
	}
	return addr, nil
}

func (a *Allocator) advance() {
	for i := 3; i >= 0; i-- {
		a.next[i]++
		if a.next[i] != 0 {
			break
		}
	}
	if a.next[0] != 239 {
		a.exhausted = true
	}
}
