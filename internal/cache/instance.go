package cache

// instance tracks the ordered alive-change list for one InstanceKey, the
// secondary index RTPS §8.2 requires alongside the primary seqnum index.
type instance struct {
	key    InstanceKey
	alive  []*Change // ascending seqnum order; depth-bounded under KEEP_LAST.
	state  InstanceState
}

func newInstance(key InstanceKey) *instance {
	return &instance{key: key, state: InstanceAlive}
}

func (in *instance) append(c *Change) {
	in.alive = append(in.alive, c)
	if c.Kind != Alive {
		switch c.Kind {
		case NotAliveDisposed:
			in.state = InstanceNotAliveDisposed
		case NotAliveNoWriters:
			in.state = InstanceNotAliveNoWriters
		}
	} else {
		in.state = InstanceAlive
	}
}

// dropOldestAlive removes and returns the oldest ALIVE change, the one
// KEEP_LAST(depth) evicts when depth is exceeded, per RTPS §8.2.
func (in *instance) dropOldestAlive() *Change {
	for i, c := range in.alive {
		if c.Kind == Alive {
			in.alive = append(in.alive[:i], in.alive[i+1:]...)
			return c
		}
	}
	return nil
}

func (in *instance) aliveCount() int {
	n := 0
	for _, c := range in.alive {
		if c.Kind == Alive {
			n++
		}
	}
	return n
}

func (in *instance) remove(seq uint64) *Change {
	for i, c := range in.alive {
		if c.SeqNum == seq {
			in.alive = append(in.alive[:i], in.alive[i+1:]...)
			return c
		}
	}
	return nil
}
