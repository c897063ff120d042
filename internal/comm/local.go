// Package comm provides an in-process process universe: every rank is a
// goroutine and collectives are exchanged over per-member inbox channels.
package comm

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ALEYI17/InfraSight_torus/pkg/types"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidRank = errors.New("invalid rank")
	ErrRecordSize  = errors.New("gathered records differ in size")
)

// inboxDepth bounds how far a member may run ahead of a slow root, in
// collectives per peer.
const inboxDepth = 4

type message struct {
	seq   uint64
	from  int
	value int
	key   int
	rec   types.Record
	group *group
}

type group struct {
	members []int // universe rank of each group rank
	inbox   []chan message
}

func newGroup(members []int) *group {
	g := &group{members: members, inbox: make([]chan message, len(members))}
	for i := range g.inbox {
		g.inbox[i] = make(chan message, inboxDepth*len(members))
	}
	return g
}

type Universe struct {
	world *group
}

func NewUniverse(size int) (*Universe, error) {
	if size < 1 {
		return nil, fmt.Errorf("universe of %d ranks: %w", size, ErrInvalidRank)
	}
	members := make([]int, size)
	for i := range members {
		members[i] = i
	}
	return &Universe{world: newGroup(members)}, nil
}

func (u *Universe) Size() int {
	return len(u.world.members)
}

// Comm returns the world communicator of rank. Each rank must take exactly one
// handle and use it from a single goroutine.
func (u *Universe) Comm(rank int) (*Comm, error) {
	if rank < 0 || rank >= u.Size() {
		return nil, fmt.Errorf("rank %d: %w", rank, ErrInvalidRank)
	}
	return &Comm{g: u.world, rank: rank}, nil
}

// Run starts fn once per rank and waits for all of them. The first error
// cancels the context handed to every other rank.
func (u *Universe) Run(ctx context.Context, fn func(ctx context.Context, c *Comm) error) error {
	eg, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < u.Size(); rank++ {
		c, err := u.Comm(rank)
		if err != nil {
			return err
		}
		eg.Go(func() error {
			return fn(ctx, c)
		})
	}
	return eg.Wait()
}

// Comm is one member's view of a group.
type Comm struct {
	g       *group
	rank    int
	seq     uint64
	pending []message
}

func (c *Comm) Rank() int { return c.rank }

func (c *Comm) Size() int { return len(c.g.members) }

func (c *Comm) next() uint64 {
	c.seq++
	return c.seq
}

func (c *Comm) checkRoot(root int) error {
	if root < 0 || root >= c.Size() {
		return fmt.Errorf("root %d of group of %d: %w", root, c.Size(), ErrInvalidRank)
	}
	return nil
}

func (c *Comm) send(ctx context.Context, to int, m message) error {
	m.from = c.rank
	select {
	case c.g.inbox[to] <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recv returns the message of collective seq, from a given member or from any
// member when from is negative. Messages of later collectives are parked.
func (c *Comm) recv(ctx context.Context, seq uint64, from int) (message, error) {
	match := func(m message) bool {
		return m.seq == seq && (from < 0 || m.from == from)
	}
	for i, m := range c.pending {
		if match(m) {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return m, nil
		}
	}
	for {
		select {
		case <-ctx.Done():
			return message{}, ctx.Err()
		case m := <-c.g.inbox[c.rank]:
			if match(m) {
				return m, nil
			}
			c.pending = append(c.pending, m)
		}
	}
}

func (c *Comm) BcastInt(ctx context.Context, value, root int) (int, error) {
	seq := c.next()
	if err := c.checkRoot(root); err != nil {
		return 0, err
	}
	if c.rank != root {
		m, err := c.recv(ctx, seq, root)
		if err != nil {
			return 0, err
		}
		return m.value, nil
	}
	for to := 0; to < c.Size(); to++ {
		if to == root {
			continue
		}
		if err := c.send(ctx, to, message{seq: seq, value: value}); err != nil {
			return 0, err
		}
	}
	return value, nil
}

func copyRecord(rec types.Record) types.Record {
	out := rec
	out.Counters = append([]uint64(nil), rec.Counters...)
	return out
}

func (c *Comm) Gather(ctx context.Context, rec types.Record, root int) ([]types.Record, error) {
	seq := c.next()
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	if c.rank != root {
		return nil, c.send(ctx, root, message{seq: seq, rec: copyRecord(rec)})
	}

	out := make([]types.Record, c.Size())
	out[root] = copyRecord(rec)
	for n := 1; n < c.Size(); n++ {
		m, err := c.recv(ctx, seq, -1)
		if err != nil {
			return nil, err
		}
		out[m.from] = m.rec
	}
	for i, r := range out {
		if len(r.Counters) != len(rec.Counters) {
			return nil, fmt.Errorf("rank %d sent %d counters, root has %d: %w",
				i, len(r.Counters), len(rec.Counters), ErrRecordSize)
		}
	}
	return out, nil
}

// Split follows MPI_Comm_split. A negative color leaves the caller out of
// every new group and returns a nil communicator.
func (c *Comm) Split(ctx context.Context, color, key int) (types.Communicator, error) {
	seq := c.next()
	const coordinator = 0

	if c.rank != coordinator {
		if err := c.send(ctx, coordinator, message{seq: seq, value: color, key: key}); err != nil {
			return nil, err
		}
		m, err := c.recv(ctx, seq, coordinator)
		if err != nil {
			return nil, err
		}
		if m.group == nil {
			return nil, nil
		}
		return &Comm{g: m.group, rank: m.value}, nil
	}

	type entry struct{ color, key, rank int }
	entries := []entry{{color, key, c.rank}}
	for n := 1; n < c.Size(); n++ {
		m, err := c.recv(ctx, seq, -1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{m.value, m.key, m.from})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].color != entries[j].color {
			return entries[i].color < entries[j].color
		}
		if entries[i].key != entries[j].key {
			return entries[i].key < entries[j].key
		}
		return entries[i].rank < entries[j].rank
	})

	var mine *Comm
	for start := 0; start < len(entries); {
		end := start
		for end < len(entries) && entries[end].color == entries[start].color {
			end++
		}
		if entries[start].color < 0 {
			for _, e := range entries[start:end] {
				if e.rank != coordinator {
					if err := c.send(ctx, e.rank, message{seq: seq}); err != nil {
						return nil, err
					}
				}
			}
			start = end
			continue
		}

		members := make([]int, 0, end-start)
		for _, e := range entries[start:end] {
			members = append(members, c.g.members[e.rank])
		}
		g := newGroup(members)
		for newRank, e := range entries[start:end] {
			if e.rank == coordinator {
				mine = &Comm{g: g, rank: newRank}
				continue
			}
			if err := c.send(ctx, e.rank, message{seq: seq, value: newRank, group: g}); err != nil {
				return nil, err
			}
		}
		start = end
	}
	if mine == nil {
		return nil, nil
	}
	return mine, nil
}

func (c *Comm) TranslateRanks(ranks []int) ([]int, error) {
	out := make([]int, len(ranks))
	for i, r := range ranks {
		if r < 0 || r >= c.Size() {
			return nil, fmt.Errorf("rank %d of group of %d: %w", r, c.Size(), ErrInvalidRank)
		}
		out[i] = c.g.members[r]
	}
	return out, nil
}
