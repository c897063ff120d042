package types

import "context"

// Communicator is a process group. Collective calls block until every member
// of the group has entered the same call.
type Communicator interface {
	Rank() int
	Size() int

	// Split partitions the group by color. Members of a new group are
	// ordered by key, ties broken by rank in this group.
	Split(ctx context.Context, color, key int) (Communicator, error)

	// BcastInt returns root's value on every member.
	BcastInt(ctx context.Context, value, root int) (int, error)

	// Gather collects one record per member at root, in member order. Non-root
	// members receive a nil slice.
	Gather(ctx context.Context, rec Record, root int) ([]Record, error)

	// TranslateRanks maps ranks in this group to ranks in the universe.
	TranslateRanks(ranks []int) ([]int, error)
}

type Topology interface {
	Size() int
	RankToCoords(rank int) (Coords, error)
	CoordsToRank(c Coords) (int, error)
}

// Clock returns wall-clock seconds from an arbitrary fixed origin.
type Clock interface {
	Now() float64
}
