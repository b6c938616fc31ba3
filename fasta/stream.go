package fasta

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

var (
	// ErrUnknownContig is returned by Lookup for a name the FASTA does not hold.
	ErrUnknownContig = errors.New("unknown contig")
	// ErrContigOrder is returned by Stream.Lookup for a contig it already passed.
	ErrContigOrder = errors.New("contig requested out of file order")
)

// Lookup returns the named contig.
func (ref *Reference) Lookup(name string) (*Contig, error) {
	contig, ok := ref.Contig(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContig, name)
	}
	return contig, nil
}

// Stream reads a FASTA one record at a time and holds only the current
// contig. Contigs must be looked up in file order.
type Stream struct {
	sc      *seqio.Scanner
	current *Contig
	passed  map[string]bool
	done    bool
}

// NewStream returns a Stream over r.
func NewStream(r io.Reader) *Stream {
	return &Stream{
		sc:     seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNAgapped))),
		passed: map[string]bool{},
	}
}

// Lookup advances to the named contig, dropping the contigs before it.
func (s *Stream) Lookup(name string) (*Contig, error) {
	if s.current != nil && s.current.Name == name {
		return s.current, nil
	}
	if s.passed[name] {
		return nil, fmt.Errorf("%w: %s", ErrContigOrder, name)
	}
	for !s.done {
		if s.current != nil {
			s.passed[s.current.Name] = true
			s.current = nil
		}
		if !s.sc.Next() {
			s.done = true
			if err := s.sc.Error(); err != nil {
				return nil, err
			}
			break
		}
		seq := s.sc.Seq().(*linear.Seq)
		if s.passed[seq.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateContig, seq.ID)
		}
		s.current = &Contig{
			Name:        seq.ID,
			Description: seq.Desc,
			Seq:         bytes.ToUpper(alphabet.LettersToBytes(seq.Seq)),
		}
		if seq.ID == name {
			return s.current, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownContig, name)
}
