// Package rebase moves variant records called against a personalised
// reference back onto the base reference it was derived from.
package rebase

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nvnieuwk/gramkit/fasta"
	"github.com/nvnieuwk/gramkit/regions"
	"github.com/nvnieuwk/gramkit/vcf"
)

var (
	// ErrMissingContig is returned for a record on a contig the region map does not know.
	ErrMissingContig = errors.New("contig is not in the region map")
	// ErrInconsistentRef marks a record whose REF does not match the personalised reference.
	ErrInconsistentRef = errors.New("REF does not match the personalised reference")
)

// Sequences looks up contigs of the personalised reference. Both
// *fasta.Reference and *fasta.Stream serve it.
type Sequences interface {
	Lookup(name string) (*fasta.Contig, error)
}

// Rebaser translates records from personalised to base coordinates.
type Rebaser struct {
	regions      *regions.Map
	personalised Sequences
}

// New returns a rebaser over a region map that carries sequences. When
// personalised is not nil, records are first checked against it.
func New(m *regions.Map, personalised Sequences) *Rebaser {
	return &Rebaser{regions: m, personalised: personalised}
}

// Skipped is a record that failed the REF check.
type Skipped struct {
	Variant *vcf.Variant
	Reason  error
}

// Rebase returns a copy of v with CHROM, POS, REF and ALT expressed on the
// base reference. REF is widened to cover every prior site the record
// overlaps and each ALT is flanked by the parts of the prior chosen allele it
// does not replace.
func (r *Rebaser) Rebase(v *vcf.Variant) (*vcf.Variant, error) {
	list, ok := r.regions.Regions(v.Chromosome)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingContig, v.Chromosome)
	}
	if err := r.check(v); err != nil {
		return nil, err
	}

	if v.Pos > r.regions.PersLength(v.Chromosome) {
		return nil, fmt.Errorf("%w: %s:%d lies past the personalised contig", regions.ErrOutOfRange, v.Chromosome, v.Pos)
	}
	idx, err := r.regions.Bisect(v.Chromosome, v.Pos, regions.PersRef)
	if err != nil {
		return nil, err
	}

	first := list[idx]
	var prefix string
	pos := first.BaseStart
	if first.IsVariant() {
		if inset := v.Pos - first.PersStart; inset > 0 {
			prefix = first.Alt[:inset]
		}
	} else {
		pos += v.Pos - first.PersStart
	}

	length := int64(len(v.Ref))
	var (
		ref      strings.Builder
		consumed int64
		last     regions.Region
	)
	for i := idx; consumed < length; i++ {
		if i >= len(list) {
			return nil, fmt.Errorf("%w: %s:%d REF runs past the personalised contig", regions.ErrOutOfRange, v.Chromosome, v.Pos)
		}
		region := list[i]
		avail := region.Length - (v.Pos + consumed - region.PersStart)
		take := min(avail, length-consumed)
		if region.IsVariant() {
			ref.WriteString(region.Ref)
		} else {
			ref.WriteString(v.Ref[consumed : consumed+take])
		}
		consumed += take
		last = region
	}

	var suffix string
	if end := v.Pos + length; last.IsVariant() && end < last.PersEnd() {
		suffix = last.Alt[int64(len(last.Alt))-(last.PersEnd()-end):]
	}

	rebased := v.Clone()
	rebased.Pos = pos
	rebased.Ref = ref.String()
	for i, alt := range rebased.Alt {
		rebased.Alt[i] = prefix + alt + suffix
	}
	return rebased, nil
}

func (r *Rebaser) check(v *vcf.Variant) error {
	if r.personalised == nil {
		return nil
	}
	contig, err := r.personalised.Lookup(v.Chromosome)
	if errors.Is(err, fasta.ErrUnknownContig) {
		return fmt.Errorf("%w: %s is not in the personalised reference", ErrInconsistentRef, v.Chromosome)
	}
	if err != nil {
		return err
	}
	start := v.Pos - 1
	end := start + int64(len(v.Ref))
	if start < 0 || end > int64(len(contig.Seq)) {
		return fmt.Errorf("%w: %s:%d lies past the personalised contig of length %d", ErrInconsistentRef, v.Chromosome, v.Pos, len(contig.Seq))
	}
	if got := string(contig.Seq[start:end]); !strings.EqualFold(got, v.Ref) {
		return fmt.Errorf("%w: %s:%d has REF %s, personalised reference has %s", ErrInconsistentRef, v.Chromosome, v.Pos, v.Ref, got)
	}
	return nil
}

// Run rebases every record of src in order and hands it to emit. Records
// failing the REF check are skipped and returned; any other error stops the run.
func (r *Rebaser) Run(src vcf.Source, emit func(*vcf.Variant) error) ([]Skipped, error) {
	skipped := []Skipped{}
	for {
		variant, err := src.Read()
		if err == io.EOF {
			return skipped, nil
		}
		if err != nil {
			return skipped, err
		}
		rebased, err := r.Rebase(variant)
		if errors.Is(err, ErrInconsistentRef) {
			skipped = append(skipped, Skipped{Variant: variant, Reason: err})
			continue
		}
		if err != nil {
			return skipped, err
		}
		if err := emit(rebased); err != nil {
			return skipped, err
		}
	}
}
