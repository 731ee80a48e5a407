package pool

// DataBuffer is a reference-counted chain node carrying wire payload
// bytes: received packets and outgoing samples traverse the stack as
// chains of these, never copied into a second owner's buffer, so any
// cache or proxy holding one just bumps the refcount.
type DataBuffer struct {
	poolID byte
	refs   uint32
	size   uint32
	next   *DataBuffer
	data   []byte
}

// Bytes returns this node's own payload slice (not the whole chain).
func (b *DataBuffer) Bytes() []byte { return b.data[:b.size] }

// Next returns the following node in the chain, or nil at the tail.
func (b *DataBuffer) Next() *DataBuffer { return b.next }

// Len returns the total size across the whole chain starting at b.
func (b *DataBuffer) Len() int {
	total := 0
	for p := b; p != nil; p = p.next {
		total += int(p.size)
	}
	return total
}

// Linearize copies the whole chain into one contiguous slice. A
// single-node chain returns its payload without copying.
func (b *DataBuffer) Linearize() []byte {
	if b.next == nil {
		return b.Bytes()
	}
	out := make([]byte, 0, b.Len())
	for p := b; p != nil; p = p.next {
		out = append(out, p.Bytes()...)
	}
	return out
}

// bufPool sizes the fixed-size slab a DataBufferPool draws individual
// chain links from; each link's payload capacity is fixed at linkSize.
type bufPool struct {
	linkSize int
	pool     *Pool[DataBuffer]
}

// DataBufferPool allocates/releases DataBuffer chains — the
// db_alloc_data/db_put_data/db_get_data contract: a pool-id-tagged,
// refcounted chain of links drawn from tiered fixed-size pools, so wire
// payloads are shared rather than copied between owners.
type DataBufferPool struct {
	tiers []bufPool
}

// NewDataBufferPool builds a pool with one tier per (linkSize, Constraints)
// pair, ordered smallest link first; Alloc picks the smallest tier whose
// linkSize can hold a whole chain segment.
func NewDataBufferPool(tiers map[int]Constraints) *DataBufferPool {
	dbp := &DataBufferPool{}
	for size, c := range tiers {
		dbp.tiers = append(dbp.tiers, bufPool{
			linkSize: size,
			pool:     New[DataBuffer](c, func() DataBuffer { return DataBuffer{} }),
		})
	}
	for i := 1; i < len(dbp.tiers); i++ {
		for j := i; j > 0 && dbp.tiers[j].linkSize < dbp.tiers[j-1].linkSize; j-- {
			dbp.tiers[j], dbp.tiers[j-1] = dbp.tiers[j-1], dbp.tiers[j]
		}
	}
	return dbp
}

func (dbp *DataBufferPool) tierFor(n int) (int, *bufPool) {
	for i := range dbp.tiers {
		if dbp.tiers[i].linkSize >= n {
			return i, &dbp.tiers[i]
		}
	}
	if len(dbp.tiers) == 0 {
		return -1, nil
	}
	return len(dbp.tiers) - 1, &dbp.tiers[len(dbp.tiers)-1]
}

// Alloc returns a chain whose total capacity is >= n. If linear is true the
// chain is a single node sized to n (falling back to the heap if no tier is
// large enough or the fitting tier is exhausted); otherwise a chain is built
// from links of the smallest tier that holds n, or of the largest tier when
// none does, matching db_alloc_data(n, linear).
func (dbp *DataBufferPool) Alloc(n int, linear bool) *DataBuffer {
	if n <= 0 {
		n = 1
	}
	idx, tier := dbp.tierFor(n)
	if tier == nil {
		return &DataBuffer{refs: 1, size: uint32(n), data: make([]byte, n)}
	}

	if linear && tier.linkSize >= n {
		b := tier.pool.Alloc()
		if b == nil {
			return &DataBuffer{refs: 1, size: uint32(n), data: make([]byte, n)}
		}
		*b = DataBuffer{poolID: byte(idx), refs: 1, size: uint32(n), data: make([]byte, tier.linkSize)}
		return b
	}
	if linear {
		return &DataBuffer{refs: 1, size: uint32(n), data: make([]byte, n)}
	}

	remaining := n
	var head, tail *DataBuffer
	for remaining > 0 {
		chunk := remaining
		if chunk > tier.linkSize {
			chunk = tier.linkSize
		}
		b := tier.pool.Alloc()
		if b == nil {
			b = &DataBuffer{data: make([]byte, tier.linkSize)}
		} else {
			*b = DataBuffer{poolID: byte(idx), data: make([]byte, tier.linkSize)}
		}
		b.refs = 1
		b.size = uint32(chunk)
		if head == nil {
			head = b
		} else {
			tail.next = b
		}
		tail = b
		remaining -= chunk
	}
	return head
}

// Retain increments the chain head's refcount ("Release
// decrements the chain-head refcount").
func (dbp *DataBufferPool) Retain(head *DataBuffer) {
	if head != nil {
		head.refs++
	}
}

// Release decrements the chain head's refcount; at zero, every link in the
// chain is returned to its tier pool.
func (dbp *DataBufferPool) Release(head *DataBuffer) {
	if head == nil {
		return
	}
	head.refs--
	if head.refs > 0 {
		return
	}
	for p := head; p != nil; {
		next := p.next
		if int(p.poolID) < len(dbp.tiers) {
			p.next = nil
			dbp.tiers[p.poolID].pool.Free(p)
		}
		p = next
	}
}

// PutData copies src into the chain starting at head at the given byte
// offset, spanning link boundaries as needed (db_put_data).
func PutData(head *DataBuffer, offset int, src []byte) {
	p := head
	for p != nil && offset >= int(p.size) {
		offset -= int(p.size)
		p = p.next
	}
	for p != nil && len(src) > 0 {
		n := copy(p.data[offset:p.size], src)
		src = src[n:]
		offset = 0
		p = p.next
	}
}

// GetData copies len(dst) bytes out of the chain starting at head at the
// given byte offset (db_get_data).
func GetData(head *DataBuffer, offset int, dst []byte) {
	p := head
	for p != nil && offset >= int(p.size) {
		offset -= int(p.size)
		p = p.next
	}
	for p != nil && len(dst) > 0 {
		n := copy(dst, p.data[offset:p.size])
		dst = dst[n:]
		offset = 0
		p = p.next
	}
}
