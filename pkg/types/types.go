package types

import "fmt"

// Dims is the number of torus coordinates: A, B, C, D, E and the on-node T index.
const Dims = 6

const (
	AxisA = iota
	AxisB
	AxisC
	AxisD
	AxisE
	AxisT
)

// RootPlane is the T coordinate of topology root processes.
const RootPlane = 0

type Coords [Dims]int

func (c Coords) IsZero() bool {
	return c == Coords{}
}

func (c Coords) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d,%d,%d)", c[0], c[1], c[2], c[3], c[4], c[5])
}

// Link is a physical torus link direction.
type Link int

const (
	LinkAMinus Link = iota
	LinkAPlus
	LinkBMinus
	LinkBPlus
	LinkCMinus
	LinkCPlus
	LinkDMinus
	LinkDPlus
	LinkEMinus
	LinkEPlus
	NumLinks int = iota
)

// Links lists every link direction in canonical order.
var Links = []Link{
	LinkAMinus, LinkAPlus,
	LinkBMinus, LinkBPlus,
	LinkCMinus, LinkCPlus,
	LinkDMinus, LinkDPlus,
	LinkEMinus, LinkEPlus,
}

var linkNames = [...]string{"A-", "A+", "B-", "B+", "C-", "C+", "D-", "D+", "E-", "E+"}

func (l Link) String() string {
	if l < 0 || int(l) >= NumLinks {
		return fmt.Sprintf("link(%d)", int(l))
	}
	return linkNames[l]
}

// Network user metrics understood by the counter backends.
const (
	METRIC_NW_USER_PP_SENT       = "NW_USER_PP_SENT"
	METRIC_NW_USER_DYN_PP_SENT   = "NW_USER_DYN_PP_SENT"
	METRIC_NW_USER_ESC_PP_SENT   = "NW_USER_ESC_PP_SENT"
	METRIC_NW_USER_SUBC_COL_SENT = "NW_USER_SUBC_COL_SENT"
	METRIC_NW_USER_PP_RECV       = "NW_USER_PP_RECV"
	METRIC_NW_USER_PP_RECV_FIFO  = "NW_USER_PP_RECV_FIFO"
)

// Metrics is the catalogue of known metrics. A metric's position here is its
// hardware event index.
var Metrics = []string{
	METRIC_NW_USER_PP_SENT,
	METRIC_NW_USER_DYN_PP_SENT,
	METRIC_NW_USER_ESC_PP_SENT,
	METRIC_NW_USER_SUBC_COL_SENT,
	METRIC_NW_USER_PP_RECV,
	METRIC_NW_USER_PP_RECV_FIFO,
}

// MetricIndex returns the catalogue index of name, or -1.
func MetricIndex(name string) int {
	for i, m := range Metrics {
		if m == name {
			return i
		}
	}
	return -1
}

// Record is the fixed-size per-region contribution of one topology root.
type Record struct {
	Counters []uint64
	Elapsed  float64
	Valid    bool
}
