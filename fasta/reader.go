// Package fasta loads reference sequences as an ordered contig map and writes
// line-wrapped FASTA records.
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

// ErrDuplicateContig is returned when two records share an identifier.
var ErrDuplicateContig = errors.New("duplicate contig")

// Contig is one FASTA record. Seq is upper case.
type Contig struct {
	Name        string
	Description string
	Seq         []byte
}

// ContigSize is the length of a named contig.
type ContigSize struct {
	Name   string
	Length int64
}

// Reference is an ordered mapping from contig identifier to sequence.
type Reference struct {
	contigs []*Contig
	index   map[string]int
}

// NewReference builds a Reference from contigs in the given order.
func NewReference(contigs ...*Contig) (*Reference, error) {
	ref := &Reference{index: make(map[string]int, len(contigs))}
	for _, contig := range contigs {
		if _, ok := ref.index[contig.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateContig, contig.Name)
		}
		ref.index[contig.Name] = len(ref.contigs)
		ref.contigs = append(ref.contigs, contig)
	}
	return ref, nil
}

// Read parses every record of a multi-record FASTA stream.
func Read(r io.Reader) (*Reference, error) {
	contigs := []*Contig{}
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNAgapped)))
	for sc.Next() {
		s := sc.Seq().(*linear.Seq)
		contigs = append(contigs, &Contig{
			Name:        s.ID,
			Description: s.Desc,
			Seq:         bytes.ToUpper(alphabet.LettersToBytes(s.Seq)),
		})
	}
	if err := sc.Error(); err != nil {
		return nil, err
	}
	return NewReference(contigs...)
}

// Contig returns the named contig.
func (ref *Reference) Contig(name string) (*Contig, bool) {
	i, ok := ref.index[name]
	if !ok {
		return nil, false
	}
	return ref.contigs[i], true
}

// Contigs returns the contigs in input order.
func (ref *Reference) Contigs() []*Contig {
	return ref.contigs
}

// Sizes returns the contig lengths in input order.
func (ref *Reference) Sizes() []ContigSize {
	sizes := make([]ContigSize, len(ref.contigs))
	for i, contig := range ref.contigs {
		sizes[i] = ContigSize{Name: contig.Name, Length: int64(len(contig.Seq))}
	}
	return sizes
}
