package prg

import (
	"strings"
)

// RegionKind tells invariant stretches from variant sites.
type RegionKind int

const (
	Invariant RegionKind = iota
	Site
)

// Region is a top-level stretch of a PRG.
type Region struct {
	Kind RegionKind
	// Nucleotides of an invariant region
	Sequence []uint32
	// Site marker of a variant region
	Marker uint32
	// Alleles of a variant region in order, allele 0 being the reference.
	// Nested sites are kept verbatim inside their enclosing allele.
	Alleles [][]uint32
}

// Parse splits prg into its top-level invariant and variant regions.
func Parse(prg []uint32) ([]Region, error) {
	cursor, err := NewCursor(prg)
	if err != nil {
		return nil, err
	}

	regions := []Region{}
	previous := 0
	for cursor.Next() {
		state := cursor.State()
		v := state.Value
		switch {
		case previous == 0 && state.Depth == 0:
			if n := len(regions); n == 0 || regions[n-1].Kind != Invariant {
				regions = append(regions, Region{Kind: Invariant})
			}
			last := &regions[len(regions)-1]
			last.Sequence = append(last.Sequence, v)
		case previous == 0:
			regions = append(regions, Region{Kind: Site, Marker: v, Alleles: [][]uint32{{}}})
		case state.Depth == 0:
			// the enclosing site closed on this marker
		default:
			site := &regions[len(regions)-1]
			if previous == 1 && state.Depth == 1 && v == site.Marker+1 {
				site.Alleles = append(site.Alleles, []uint32{})
				break
			}
			allele := &site.Alleles[len(site.Alleles)-1]
			*allele = append(*allele, v)
		}
		previous = state.Depth
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return regions, nil
}

// Sequence decodes the reference path of prg, taking allele 0 at every site.
func Sequence(prg []uint32) (string, error) {
	var sb strings.Builder
	if _, err := Personalise(prg, nil, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ReferenceSequence concatenates the invariant regions and the first allele
// of every site.
func ReferenceSequence(regions []Region) (string, error) {
	var sb strings.Builder
	for _, region := range regions {
		part := region.Sequence
		if region.Kind == Site {
			part = region.Alleles[0]
		}
		seq, err := Sequence(part)
		if err != nil {
			return "", err
		}
		sb.WriteString(seq)
	}
	return sb.String(), nil
}
