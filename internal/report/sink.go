// Package report writes the torus-addressed counter report and the per-region
// timing summaries.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ALEYI17/InfraSight_torus/pkg/types"
	"go.uber.org/multierr"
)

// Sink is the report destination. Only a sink opened on a named file owns
// and closes its file; stdout is flushed but never closed.
type Sink struct {
	bw   *bufio.Writer
	f    *os.File
	path string
	buf  []byte
}

// OpenSink creates path for writing, or reports to stdout when path is empty.
func OpenSink(path string) (*Sink, error) {
	if path == "" {
		return NewSink(os.Stdout), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open counter file: %w", err)
	}
	s := NewSink(f)
	s.f = f
	s.path = path
	return s, nil
}

func NewSink(w io.Writer) *Sink {
	return &Sink{bw: bufio.NewWriter(w)}
}

func (s *Sink) IsFile() bool { return s.f != nil }

// Path is empty for a sink that is not a file.
func (s *Sink) Path() string { return s.path }

// AppendRow formats one report line:
//
//	<region> <rank> <a> <b> <c> <d> <e> <t> ** <v0> <v1> ... <vN-1>
func AppendRow(dst []byte, region, worldRank int, c types.Coords, counters []uint64) []byte {
	dst = strconv.AppendInt(dst, int64(region), 10)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, int64(worldRank), 10)
	for _, x := range c {
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, int64(x), 10)
	}
	dst = append(dst, " **"...)
	for _, v := range counters {
		dst = append(dst, ' ')
		dst = strconv.AppendUint(dst, v, 10)
	}
	return append(dst, '\n')
}

func (s *Sink) WriteRow(region, worldRank int, c types.Coords, counters []uint64) error {
	s.buf = AppendRow(s.buf[:0], region, worldRank, c, counters)
	_, err := s.bw.Write(s.buf)
	return err
}

func (s *Sink) Flush() error {
	return s.bw.Flush()
}

func (s *Sink) Close() error {
	err := s.bw.Flush()
	if s.f != nil {
		err = multierr.Append(err, s.f.Close())
		s.f = nil
	}
	return err
}
