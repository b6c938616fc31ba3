package prg

import (
	"fmt"
	"io"

	"github.com/nvnieuwk/gramkit/fasta"
	"github.com/nvnieuwk/gramkit/vcf"
)

// Mode selects how a site is terminated.
type Mode int

const (
	// Normal ends every site with its allele separator.
	Normal Mode = iota
	// Legacy ends every site with its site marker.
	Legacy
)

// ParseMode parses "normal" or "legacy".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "normal", "":
		return Normal, nil
	case "legacy":
		return Legacy, nil
	}
	return Normal, fmt.Errorf("unknown PRG encoding '%s', must be one of: normal, legacy", s)
}

func (m Mode) String() string {
	if m == Legacy {
		return "legacy"
	}
	return "normal"
}

// Stats counts what happened to the records fed to an Encoder.
type Stats struct {
	// Number of emitted variant sites
	Sites int
	// Records dropped because FILTER was not PASS
	Filtered int
	// Records dropped because they start before the end of the previous site
	// or revisit a contig that was already closed
	OutOfOrder int
	// Records dropped because they have no ALT allele
	NoAlt int
}

// Result is an encoded PRG.
type Result struct {
	PRG []uint32
	Stats
}

// Encoder streams VCF records against a reference into a PRG.
// Records must not overlap and should be sorted within each contig.
type Encoder struct {
	ref     *fasta.Reference
	mode    Mode
	discard bool

	prg     []uint32
	scratch []uint32

	chrom   *fasta.Contig
	pos     int64
	visited map[string]bool
	marker  uint32
	stats   Stats
}

// NewEncoder returns an Encoder over ref.
func NewEncoder(ref *fasta.Reference, mode Mode) *Encoder {
	return &Encoder{
		ref:     ref,
		mode:    mode,
		visited: map[string]bool{},
		marker:  FirstSiteMarker,
	}
}

// Encode consumes every record of src and returns the finished PRG.
func Encode(ref *fasta.Reference, src vcf.Source, mode Mode) (*Result, error) {
	enc := NewEncoder(ref, mode)
	for {
		variant, err := src.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if _, err := enc.Add(variant); err != nil {
			return nil, err
		}
	}
	return enc.Finish()
}

// Add feeds one record and reports whether it was emitted as a site.
func (e *Encoder) Add(v *vcf.Variant) (bool, error) {
	if !v.Passes() {
		e.stats.Filtered++
		return false, nil
	}
	if len(v.Alt) == 0 {
		e.stats.NoAlt++
		return false, nil
	}

	contig, ok := e.ref.Contig(v.Chromosome)
	if !ok {
		return false, fmt.Errorf("%w: %s is not in the reference", ErrMissingContig, v.Chromosome)
	}

	if e.chrom == nil || contig.Name != e.chrom.Name {
		if e.visited[contig.Name] {
			e.stats.OutOfOrder++
			return false, nil
		}
		if err := e.closeContig(); err != nil {
			return false, err
		}
		e.chrom = contig
		e.pos = 1
		e.visited[contig.Name] = true
	}

	if v.Pos < e.pos {
		e.stats.OutOfOrder++
		return false, nil
	}
	if len(v.Ref) == 0 || v.End() > int64(len(contig.Seq)) {
		return false, fmt.Errorf("%w: REF of %s:%d does not fit in the contig", ErrEncoding, v.Chromosome, v.Pos)
	}

	if err := e.appendSequence(contig.Seq[e.pos-1 : v.Pos-1]); err != nil {
		return false, fmt.Errorf("reference %s: %w", contig.Name, err)
	}
	if err := e.appendSite(v); err != nil {
		return false, fmt.Errorf("record %s:%d: %w", v.Chromosome, v.Pos, err)
	}
	e.pos = v.Pos + int64(len(v.Ref))
	e.stats.Sites++
	return true, nil
}

// Finish writes the remaining reference and returns the PRG.
// Contigs without any emitted site are appended in reference order.
func (e *Encoder) Finish() (*Result, error) {
	if err := e.closeContig(); err != nil {
		return nil, err
	}
	for _, contig := range e.ref.Contigs() {
		if e.visited[contig.Name] {
			continue
		}
		e.visited[contig.Name] = true
		if err := e.appendSequence(contig.Seq); err != nil {
			return nil, fmt.Errorf("reference %s: %w", contig.Name, err)
		}
	}
	return &Result{PRG: e.prg, Stats: e.Stats()}, nil
}

// Stats returns the counters accumulated so far.
func (e *Encoder) Stats() Stats {
	return e.stats
}

func (e *Encoder) closeContig() error {
	if e.chrom == nil {
		return nil
	}
	if err := e.appendSequence(e.chrom.Seq[e.pos-1:]); err != nil {
		return fmt.Errorf("reference %s: %w", e.chrom.Name, err)
	}
	e.chrom = nil
	return nil
}

func (e *Encoder) appendSite(v *vcf.Variant) error {
	site := e.marker
	separator := site + 1

	e.appendMarker(site)
	if err := e.appendSequence(v.Ref); err != nil {
		return err
	}
	e.appendMarker(separator)
	for i, alt := range v.Alt {
		if alt == "" {
			return fmt.Errorf("%w: empty ALT allele", ErrEncoding)
		}
		if err := e.appendSequence(alt); err != nil {
			return err
		}
		if i == len(v.Alt)-1 && e.mode == Legacy {
			e.appendMarker(site)
			continue
		}
		e.appendMarker(separator)
	}
	e.marker += 2
	return nil
}

func (e *Encoder) appendMarker(m uint32) {
	if !e.discard {
		e.prg = append(e.prg, m)
	}
}

func (e *Encoder) appendSequence(seq any) error {
	var err error
	switch s := seq.(type) {
	case string:
		if e.discard {
			e.scratch, err = encodeSequence(e.scratch[:0], s)
			return err
		}
		e.prg, err = encodeSequence(e.prg, s)
	case []byte:
		if e.discard {
			e.scratch, err = encodeSequence(e.scratch[:0], s)
			return err
		}
		e.prg, err = encodeSequence(e.prg, s)
	}
	return err
}

// SiteFilter applies the Encoder's keep and drop rules without building a PRG,
// so that records can be paired with sites in marker order.
type SiteFilter struct {
	enc *Encoder
}

// NewSiteFilter returns a SiteFilter over ref.
func NewSiteFilter(ref *fasta.Reference) *SiteFilter {
	enc := NewEncoder(ref, Normal)
	enc.discard = true
	return &SiteFilter{enc: enc}
}

// Accept reports whether the Encoder would emit v as the next site.
func (f *SiteFilter) Accept(v *vcf.Variant) (bool, error) {
	return f.enc.Add(v)
}

// Stats returns the counters accumulated so far.
func (f *SiteFilter) Stats() Stats {
	return f.enc.Stats()
}
