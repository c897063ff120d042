package report

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary is the spread of one region's elapsed time across contributors.
type Summary struct {
	Region int
	Min    float64
	Avg    float64
	Max    float64
}

func Summarize(region int, times []float64) Summary {
	s := Summary{Region: region}
	if len(times) == 0 {
		return s
	}
	s.Min = floats.Min(times)
	s.Avg = stat.Mean(times, nil)
	s.Max = floats.Max(times)
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("Timing Summary for region %d: min - %.3f s, avg - %.3f s, max - %.3f s",
		s.Region, s.Min, s.Avg, s.Max)
}

func WriteSummary(w io.Writer, s Summary) error {
	_, err := fmt.Fprintln(w, s.String())
	return err
}
