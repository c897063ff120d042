package topology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ALEYI17/InfraSight_torus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShape(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    Shape
		wantErr bool
	}{
		{name: "full", value: "2x2x1x1x1x4", want: Shape{2, 2, 1, 1, 1, 4}},
		{name: "spaces", value: " 1x1x1x1x1x1 ", want: Shape{1, 1, 1, 1, 1, 1}},
		{name: "too few axes", value: "2x2x2", wantErr: true},
		{name: "not a number", value: "2x2xAx1x1x1", wantErr: true},
		{name: "zero extent", value: "2x0x1x1x1x1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseShape(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidShape)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustDecode(t, tt.value))
		})
	}
}

func mustDecode(t *testing.T, value string) Shape {
	t.Helper()
	var s Shape
	require.NoError(t, s.Decode(value))
	return s
}

func TestTorusRoundTrip(t *testing.T) {
	torus, err := NewTorus(Shape{2, 3, 1, 2, 1, 4})
	require.NoError(t, err)
	require.Equal(t, 48, torus.Size())

	seen := make(map[types.Coords]bool)
	for rank := 0; rank < torus.Size(); rank++ {
		c, err := torus.RankToCoords(rank)
		require.NoError(t, err)
		assert.False(t, seen[c], "duplicate coords %s", c)
		seen[c] = true

		back, err := torus.CoordsToRank(c)
		require.NoError(t, err)
		assert.Equal(t, rank, back)
	}
}

func TestTorusTVariesFastest(t *testing.T) {
	torus, err := NewTorus(Shape{2, 1, 1, 1, 1, 2})
	require.NoError(t, err)

	want := []types.Coords{
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 1},
		{1, 0, 0, 0, 0, 0},
		{1, 0, 0, 0, 0, 1},
	}
	for rank, c := range want {
		got, err := torus.RankToCoords(rank)
		require.NoError(t, err)
		assert.Equal(t, c, got)
		assert.Equal(t, c[types.AxisT] == 0, IsRoot(got))
	}

	zero, err := torus.CoordsToRank(types.Coords{})
	require.NoError(t, err)
	assert.Equal(t, 0, zero)
}

func TestTorusOutOfRange(t *testing.T) {
	torus, err := NewTorus(Shape{1, 1, 1, 1, 1, 2})
	require.NoError(t, err)

	_, err = torus.RankToCoords(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = torus.RankToCoords(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = torus.CoordsToRank(types.Coords{0, 0, 0, 0, 0, 2})
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestLoadShapeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torus.yaml")
	content := "shape:\n  a: 2\n  b: 2\n  c: 1\n  d: 1\n  e: 1\n  t: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadShapeFile(path)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 2, 1, 1, 1, 4}, s)
	assert.Equal(t, "2x2x1x1x1x4", s.String())

	require.NoError(t, os.WriteFile(path, []byte("shape:\n  a: 2\n"), 0o644))
	_, err = LoadShapeFile(path)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestFirstHop(t *testing.T) {
	torus, err := NewTorus(Shape{4, 2, 1, 1, 3, 2})
	require.NoError(t, err)

	tests := []struct {
		name string
		src  types.Coords
		dst  types.Coords
		want types.Link
		ok   bool
	}{
		{name: "same node", src: types.Coords{1, 1, 0, 0, 2, 0}, dst: types.Coords{1, 1, 0, 0, 2, 1}},
		{name: "A forward", src: types.Coords{0}, dst: types.Coords{1}, want: types.LinkAPlus, ok: true},
		{name: "A wraps backwards", src: types.Coords{0}, dst: types.Coords{3}, want: types.LinkAMinus, ok: true},
		{name: "A before B", src: types.Coords{0, 0}, dst: types.Coords{2, 1}, want: types.LinkAPlus, ok: true},
		{name: "B only", src: types.Coords{2, 1}, dst: types.Coords{2, 0}, want: types.LinkBPlus, ok: true},
		{name: "E backwards", src: types.Coords{0, 0, 0, 0, 0}, dst: types.Coords{0, 0, 0, 0, 2}, want: types.LinkEMinus, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, ok := torus.FirstHop(tt.src, tt.dst)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, link)
			}
		})
	}
}
