// Package prg encodes a reference plus non-overlapping variants as a linear
// population reference graph and walks such encodings.
//
// Nucleotides are encoded as 1..4. Every variant site is opened by an odd
// site marker S (starting at 5) and its alleles are separated by S+1. In the
// normal encoding a site reads S a0 S+1 a1 S+1 ... an S+1, in the legacy
// encoding the last separator is replaced by S.
package prg

import (
	"errors"
	"fmt"
)

var (
	// ErrEncoding reports a character or integer that is not a nucleotide.
	ErrEncoding = errors.New("encoding error")
	// ErrMissingContig reports a record on a contig absent from the reference.
	ErrMissingContig = errors.New("missing contig")
	// ErrMarker reports an illegal site or allele marker sequence.
	ErrMarker = errors.New("illegal marker sequence")
)

// FirstSiteMarker is the marker of the first variant site.
const FirstSiteMarker uint32 = 5

const nucleotides = "ACGT"

// EncodeBase maps A, C, G, T (any case) to 1..4.
func EncodeBase(b byte) (uint32, error) {
	switch b {
	case 'A', 'a':
		return 1, nil
	case 'C', 'c':
		return 2, nil
	case 'G', 'g':
		return 3, nil
	case 'T', 't':
		return 4, nil
	}
	return 0, fmt.Errorf("%w: unknown nucleotide %q", ErrEncoding, b)
}

// DecodeBase maps 1..4 back to A, C, G, T.
func DecodeBase(v uint32) (byte, error) {
	if v < 1 || v > 4 {
		return 0, fmt.Errorf("%w: %d is not a nucleotide", ErrEncoding, v)
	}
	return nucleotides[v-1], nil
}

// IsMarker reports whether v is a site or allele marker.
func IsMarker(v uint32) bool {
	return v >= FirstSiteMarker
}

// IsSiteMarker reports whether v opens (or, in legacy encoding, closes) a site.
func IsSiteMarker(v uint32) bool {
	return v >= FirstSiteMarker && v%2 == 1
}

// IsAlleleMarker reports whether v separates the alleles of site v-1.
func IsAlleleMarker(v uint32) bool {
	return v > FirstSiteMarker && v%2 == 0
}

// SiteOf returns the site marker a marker belongs to.
func SiteOf(marker uint32) uint32 {
	if marker%2 == 0 {
		return marker - 1
	}
	return marker
}

// encodeSequence appends the encoding of seq to out.
func encodeSequence[S ~string | ~[]byte](out []uint32, seq S) ([]uint32, error) {
	for i := 0; i < len(seq); i++ {
		v, err := EncodeBase(seq[i])
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
