// Package regions maps coordinates between a personalised reference and the
// base reference it was derived from.
package regions

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"

	"github.com/nvnieuwk/gramkit/fasta"
	"github.com/nvnieuwk/gramkit/vcf"
)

var (
	// ErrNoRecords is returned when a map is built from an empty record stream.
	ErrNoRecords = errors.New("no records to build a region map from")
	// ErrOrdering reports interspersed contigs or non-increasing positions.
	ErrOrdering = errors.New("records are not ordered")
	// ErrMissingContig reports a contig absent from the size map or the region map.
	ErrMissingContig = errors.New("missing contig")
	// ErrOutOfRange reports a position outside a contig.
	ErrOutOfRange = errors.New("position out of range")
)

// Region is a stretch of a personalised contig. Variant regions carry the REF
// of the base record and the chosen ALT; invariant regions share sequence
// with the base reference.
type Region struct {
	BaseStart int64  `json:"base_ref_start"`
	PersStart int64  `json:"pers_ref_start"`
	Length    int64  `json:"length"`
	Ref       string `json:"vcf_record_ref,omitempty"`
	Alt       string `json:"vcf_record_alt,omitempty"`
}

// IsVariant reports whether the region stands for a variant site.
func (r Region) IsVariant() bool {
	return r.Alt != ""
}

// PersEnd is the first personalised position after the region.
func (r Region) PersEnd() int64 {
	return r.PersStart + r.Length
}

// BaseLength is the length of the region on the base reference.
func (r Region) BaseLength() int64 {
	if r.IsVariant() {
		return int64(len(r.Ref))
	}
	return r.Length
}

// Side selects which coordinate system a search runs on.
type Side int

const (
	BaseRef Side = iota
	PersRef
)

// Map holds the regions of every contig.
type Map struct {
	contigs []string
	regions map[string][]Region
}

// Build constructs the map from records of the genotyped VCF the personalised
// reference was made from and the contig sizes of the base reference.
// The allele picked for a record is its first called GT allele.
func Build(src vcf.Source, sizes []fasta.ContigSize) (*Map, error) {
	lengths := make(map[string]int64, len(sizes))
	for _, size := range sizes {
		lengths[size.Name] = size.Length
	}

	m := &Map{regions: map[string][]Region{}}
	var (
		chrom   string
		basePos int64
		persPos int64
		lastPos int64
		seen    int
	)

	finishContig := func() {
		if chrom == "" {
			return
		}
		if basePos <= lengths[chrom] {
			m.appendInvariant(chrom, basePos, persPos, lengths[chrom]-basePos+1)
		}
	}

	for {
		variant, err := src.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		seen++

		if variant.Chromosome != chrom {
			if _, ok := m.regions[variant.Chromosome]; ok {
				return nil, fmt.Errorf("%w: contig %s appears again after %s", ErrOrdering, variant.Chromosome, chrom)
			}
			if _, ok := lengths[variant.Chromosome]; !ok {
				return nil, fmt.Errorf("%w: %s is not in the base reference", ErrMissingContig, variant.Chromosome)
			}
			finishContig()
			chrom = variant.Chromosome
			basePos, persPos = 1, 1
			m.contigs = append(m.contigs, chrom)
			m.regions[chrom] = []Region{}
		} else if variant.Pos <= lastPos {
			return nil, fmt.Errorf("%w: %s:%d does not follow the previous record", ErrOrdering, chrom, variant.Pos)
		}
		lastPos = variant.Pos

		if variant.Pos < basePos {
			return nil, fmt.Errorf("%w: %s:%d overlaps the previous record", ErrOrdering, chrom, variant.Pos)
		}
		if variant.End() > lengths[chrom] {
			return nil, fmt.Errorf("%w: %s:%d ends past the contig", ErrOutOfRange, chrom, variant.Pos)
		}

		if variant.Pos > basePos {
			gap := variant.Pos - basePos
			m.appendInvariant(chrom, basePos, persPos, gap)
			basePos += gap
			persPos += gap
		}

		picked, err := PickedAllele(variant)
		if err != nil {
			return nil, err
		}
		if picked == 0 {
			m.appendInvariant(chrom, basePos, persPos, int64(len(variant.Ref)))
			basePos += int64(len(variant.Ref))
			persPos += int64(len(variant.Ref))
			continue
		}

		alt := variant.Alt[picked-1]
		region := Region{
			BaseStart: basePos,
			PersStart: persPos,
			Length:    int64(len(alt)),
			Ref:       variant.Ref,
			Alt:       alt,
		}
		m.regions[chrom] = append(m.regions[chrom], region)
		basePos += region.BaseLength()
		persPos += region.Length
	}

	if seen == 0 {
		return nil, ErrNoRecords
	}
	finishContig()

	for _, size := range sizes {
		if _, ok := m.regions[size.Name]; ok {
			continue
		}
		m.contigs = append(m.contigs, size.Name)
		m.regions[size.Name] = []Region{{BaseStart: 1, PersStart: 1, Length: size.Length}}
	}
	return m, nil
}

func (m *Map) appendInvariant(chrom string, basePos, persPos, length int64) {
	if length <= 0 {
		return
	}
	list := m.regions[chrom]
	if n := len(list); n > 0 && !list[n-1].IsVariant() {
		list[n-1].Length += length
		return
	}
	m.regions[chrom] = append(list, Region{BaseStart: basePos, PersStart: persPos, Length: length})
}

// PickedAllele returns the first called GT allele of the first sample, or 0
// when no allele is called.
func PickedAllele(variant *vcf.Variant) (int, error) {
	gt, err := variant.Genotype("")
	if err != nil {
		return 0, err
	}
	for _, allele := range gt {
		if allele == vcf.NoCall {
			continue
		}
		if allele > len(variant.Alt) {
			return 0, fmt.Errorf("%w: genotype allele %d of %s:%d has no ALT", vcf.ErrMalformed, allele, variant.Chromosome, variant.Pos)
		}
		return allele, nil
	}
	return 0, nil
}

// Contigs returns the contig names in map order.
func (m *Map) Contigs() []string {
	return m.contigs
}

// Regions returns the regions of chrom.
func (m *Map) Regions(chrom string) ([]Region, bool) {
	list, ok := m.regions[chrom]
	return list, ok
}

// PersLength is the length of the personalised contig.
func (m *Map) PersLength(chrom string) int64 {
	list := m.regions[chrom]
	if len(list) == 0 {
		return 0
	}
	return list[len(list)-1].PersEnd() - 1
}

// Bisect returns the index of the region of chrom whose start on side is the
// greatest start not above pos.
func (m *Map) Bisect(chrom string, pos int64, side Side) (int, error) {
	list, ok := m.regions[chrom]
	if !ok {
		return 0, fmt.Errorf("%w: %s is not in the region map", ErrMissingContig, chrom)
	}
	idx := sort.Search(len(list), func(i int) bool {
		if side == BaseRef {
			return list[i].BaseStart > pos
		}
		return list[i].PersStart > pos
	}) - 1
	if idx < 0 {
		return 0, fmt.Errorf("%w: %s:%d", ErrOutOfRange, chrom, pos)
	}
	return idx, nil
}

// Equal compares two maps contig by contig, ignoring contig order.
func (m *Map) Equal(other *Map) bool {
	if len(m.regions) != len(other.regions) {
		return false
	}
	for chrom, list := range m.regions {
		otherList, ok := other.regions[chrom]
		if !ok || !reflect.DeepEqual(list, otherList) {
			return false
		}
	}
	return true
}

// WithoutSequences returns a copy of the map with REF and ALT cleared.
func (m *Map) WithoutSequences() *Map {
	clone := &Map{contigs: append([]string(nil), m.contigs...), regions: make(map[string][]Region, len(m.regions))}
	for chrom, list := range m.regions {
		stripped := make([]Region, len(list))
		for i, region := range list {
			stripped[i] = Region{BaseStart: region.BaseStart, PersStart: region.PersStart, Length: region.Length}
		}
		clone.regions[chrom] = stripped
	}
	return clone
}
