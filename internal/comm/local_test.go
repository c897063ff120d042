package comm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ALEYI17/InfraSight_torus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, size int, fn func(ctx context.Context, c *Comm) error) {
	t.Helper()
	u, err := NewUniverse(size)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, u.Run(ctx, fn))
}

func TestNewUniverseInvalid(t *testing.T) {
	_, err := NewUniverse(0)
	assert.ErrorIs(t, err, ErrInvalidRank)

	u, err := NewUniverse(2)
	require.NoError(t, err)
	_, err = u.Comm(2)
	assert.ErrorIs(t, err, ErrInvalidRank)
}

func TestBcastInt(t *testing.T) {
	const size = 5
	var mu sync.Mutex
	got := make(map[int]int)

	run(t, size, func(ctx context.Context, c *Comm) error {
		value := -1
		if c.Rank() == 3 {
			value = 42
		}
		v, err := c.BcastInt(ctx, value, 3)
		if err != nil {
			return err
		}
		mu.Lock()
		got[c.Rank()] = v
		mu.Unlock()
		return nil
	})

	require.Len(t, got, size)
	for rank, v := range got {
		assert.Equal(t, 42, v, "rank %d", rank)
	}
}

func TestGatherKeepsMemberOrder(t *testing.T) {
	const size = 4
	var gathered []types.Record

	run(t, size, func(ctx context.Context, c *Comm) error {
		// Several rounds so that early ranks run ahead of the root.
		for round := 0; round < 3; round++ {
			rec := types.Record{
				Counters: []uint64{uint64(c.Rank()), uint64(round)},
				Elapsed:  float64(c.Rank()) / 10,
				Valid:    true,
			}
			out, err := c.Gather(ctx, rec, 1)
			if err != nil {
				return err
			}
			if c.Rank() != 1 {
				if out != nil {
					t.Errorf("rank %d received gathered data", c.Rank())
				}
				continue
			}
			if round == 2 {
				gathered = out
			}
		}
		return nil
	})

	require.Len(t, gathered, size)
	for rank, rec := range gathered {
		assert.Equal(t, []uint64{uint64(rank), 2}, rec.Counters)
		assert.InDelta(t, float64(rank)/10, rec.Elapsed, 1e-12)
		assert.True(t, rec.Valid)
	}
}

func TestGatherRejectsMismatchedRecords(t *testing.T) {
	u, err := NewUniverse(2)
	require.NoError(t, err)

	err = u.Run(context.Background(), func(ctx context.Context, c *Comm) error {
		rec := types.Record{Counters: make([]uint64, 1+c.Rank())}
		_, err := c.Gather(ctx, rec, 0)
		return err
	})
	assert.ErrorIs(t, err, ErrRecordSize)
}

func TestSplitAndTranslate(t *testing.T) {
	const size = 6
	var mu sync.Mutex
	translated := make(map[int][]int)
	subRanks := make(map[int]int)

	run(t, size, func(ctx context.Context, c *Comm) error {
		color := c.Rank() % 2
		// Reverse key order inside each color.
		sub, err := c.Split(ctx, color, size-c.Rank())
		if err != nil {
			return err
		}
		ranks := make([]int, sub.Size())
		for i := range ranks {
			ranks[i] = i
		}
		world, err := sub.TranslateRanks(ranks)
		if err != nil {
			return err
		}
		mu.Lock()
		translated[color] = world
		subRanks[c.Rank()] = sub.Rank()
		mu.Unlock()
		return nil
	})

	assert.Equal(t, []int{4, 2, 0}, translated[0])
	assert.Equal(t, []int{5, 3, 1}, translated[1])
	assert.Equal(t, 0, subRanks[4])
	assert.Equal(t, 2, subRanks[1])
}

func TestSplitSubgroupCollectives(t *testing.T) {
	const size = 4
	var mu sync.Mutex
	results := make(map[int]int)

	run(t, size, func(ctx context.Context, c *Comm) error {
		color := -1
		if c.Rank() >= 2 {
			color = 7
		}
		sub, err := c.Split(ctx, color, c.Rank())
		if err != nil {
			return err
		}
		if sub == nil {
			mu.Lock()
			results[c.Rank()] = -1
			mu.Unlock()
			return nil
		}
		v, err := sub.BcastInt(ctx, 100+c.Rank(), 1)
		if err != nil {
			return err
		}
		mu.Lock()
		results[c.Rank()] = v
		mu.Unlock()
		return nil
	})

	assert.Equal(t, map[int]int{0: -1, 1: -1, 2: 103, 3: 103}, results)
}

func TestCollectiveHonoursContext(t *testing.T) {
	u, err := NewUniverse(2)
	require.NoError(t, err)
	c, err := u.Comm(0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Rank 1 never joins.
	_, err = c.Gather(ctx, types.Record{}, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTranslateRanksInvalid(t *testing.T) {
	u, err := NewUniverse(2)
	require.NoError(t, err)
	c, err := u.Comm(0)
	require.NoError(t, err)

	_, err = c.TranslateRanks([]int{0, 2})
	assert.ErrorIs(t, err, ErrInvalidRank)
	_, err = c.BcastInt(context.Background(), 0, 5)
	assert.ErrorIs(t, err, ErrInvalidRank)
}
