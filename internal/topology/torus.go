package topology

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ALEYI17/InfraSight_torus/pkg/types"
	"github.com/goccy/go-yaml"
)

var (
	ErrInvalidShape = errors.New("invalid torus shape")
	ErrOutOfRange   = errors.New("outside the torus")
)

// Shape is the extent of each torus axis, A through T.
type Shape types.Coords

// Decode implements envconfig.Decoder for values like "2x2x1x1x1x4".
func (s *Shape) Decode(value string) error {
	parsed, err := ParseShape(value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Shape) String() string {
	parts := make([]string, types.Dims)
	for i, n := range s {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "x")
}

func (s Shape) Validate() error {
	for i, n := range s {
		if n < 1 {
			return fmt.Errorf("%w: axis %d has extent %d", ErrInvalidShape, i, n)
		}
	}
	return nil
}

func ParseShape(value string) (Shape, error) {
	var s Shape
	parts := strings.Split(strings.TrimSpace(value), "x")
	if len(parts) != types.Dims {
		return s, fmt.Errorf("%w: %q needs %d extents", ErrInvalidShape, value, types.Dims)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return s, fmt.Errorf("%w: %q: %v", ErrInvalidShape, value, err)
		}
		s[i] = n
	}
	return s, s.Validate()
}

type shapeFile struct {
	Shape struct {
		A int `yaml:"a"`
		B int `yaml:"b"`
		C int `yaml:"c"`
		D int `yaml:"d"`
		E int `yaml:"e"`
		T int `yaml:"t"`
	} `yaml:"shape"`
}

// LoadShapeFile reads a YAML description of the partition:
//
//	shape: {a: 2, b: 2, c: 1, d: 1, e: 1, t: 4}
func LoadShapeFile(path string) (Shape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Shape{}, err
	}
	var f shapeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Shape{}, fmt.Errorf("parse %s: %w", path, err)
	}
	s := Shape{f.Shape.A, f.Shape.B, f.Shape.C, f.Shape.D, f.Shape.E, f.Shape.T}
	return s, s.Validate()
}

// Torus maps ranks to coordinates with T varying fastest and A slowest.
type Torus struct {
	shape Shape
}

func NewTorus(shape Shape) (*Torus, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &Torus{shape: shape}, nil
}

func (t *Torus) Shape() Shape {
	return t.shape
}

func (t *Torus) Size() int {
	n := 1
	for _, e := range t.shape {
		n *= e
	}
	return n
}

func (t *Torus) RankToCoords(rank int) (types.Coords, error) {
	var c types.Coords
	if rank < 0 || rank >= t.Size() {
		return c, fmt.Errorf("rank %d: %w %s", rank, ErrOutOfRange, t.shape)
	}
	for axis := types.Dims - 1; axis >= 0; axis-- {
		c[axis] = rank % t.shape[axis]
		rank /= t.shape[axis]
	}
	return c, nil
}

func (t *Torus) CoordsToRank(c types.Coords) (int, error) {
	rank := 0
	for axis := 0; axis < types.Dims; axis++ {
		if c[axis] < 0 || c[axis] >= t.shape[axis] {
			return -1, fmt.Errorf("coords %s: %w %s", c, ErrOutOfRange, t.shape)
		}
		rank = rank*t.shape[axis] + c[axis]
	}
	return rank, nil
}

// IsRoot reports whether c lies on the root plane of the T axis.
func IsRoot(c types.Coords) bool {
	return c[types.AxisT] == types.RootPlane
}

// FirstHop returns the link a packet from src to dst leaves on under
// dimension-ordered routing: the lowest differing axis among A..E, in the
// shorter direction around the ring. ok is false when src and dst share a node.
func (t *Torus) FirstHop(src, dst types.Coords) (link types.Link, ok bool) {
	for axis := types.AxisA; axis < types.AxisT; axis++ {
		n := t.shape[axis]
		forward := ((dst[axis]-src[axis])%n + n) % n
		if forward == 0 {
			continue
		}
		minus := types.Link(2 * axis)
		if forward <= n-forward {
			return minus + 1, true
		}
		return minus, true
	}
	return 0, false
}
