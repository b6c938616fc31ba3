package prg

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteBinary writes prg as unsigned 4-byte little-endian integers without a header.
func WriteBinary(w io.Writer, prg []uint32) error {
	out := bufio.NewWriter(w)
	var buf [4]byte
	for _, v := range prg {
		binary.LittleEndian.PutUint32(buf[:], v)
		if _, err := out.Write(buf[:]); err != nil {
			return err
		}
	}
	return out.Flush()
}

// ReadBinary reads a PRG written by WriteBinary.
func ReadBinary(r io.Reader) ([]uint32, error) {
	in := bufio.NewReader(r)
	prg := []uint32{}
	var buf [4]byte
	for {
		n, err := io.ReadFull(in, buf[:])
		if err == io.EOF {
			return prg, nil
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: trailing %d bytes after %d integers", ErrEncoding, n, len(prg))
		}
		if err != nil {
			return nil, err
		}
		prg = append(prg, binary.LittleEndian.Uint32(buf[:]))
	}
}

// Read reads a binary or text PRG, telling them apart by the first byte.
func Read(r io.Reader) ([]uint32, error) {
	in := bufio.NewReader(r)
	first, err := in.Peek(1)
	if err == io.EOF {
		return []uint32{}, nil
	}
	if err != nil {
		return nil, err
	}
	if first[0] >= ' ' {
		text, err := io.ReadAll(in)
		if err != nil {
			return nil, err
		}
		return ParseText(string(text))
	}
	return ReadBinary(in)
}

// FormatText renders nucleotides as ACGT and markers as decimal numbers
// without separators.
func FormatText(prg []uint32) string {
	var sb strings.Builder
	for _, v := range prg {
		if IsMarker(v) {
			sb.WriteString(strconv.FormatUint(uint64(v), 10))
			continue
		}
		b, err := DecodeBase(v)
		if err != nil {
			sb.WriteByte('?')
			continue
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

// ParseText parses the text form. Runs of digits are split into the markers
// that can legally occur at that point: the next unseen site marker or the
// site and allele markers of sites already opened and not closed by a second
// site marker.
func ParseText(text string) ([]uint32, error) {
	text = strings.TrimSpace(text)
	p := &textParser{next: FirstSiteMarker, candidates: map[string]uint32{}}
	prg := make([]uint32, 0, len(text))
	for i := 0; i < len(text); {
		c := text[i]
		if c >= '0' && c <= '9' {
			j := i
			for j < len(text) && text[j] >= '0' && text[j] <= '9' {
				j++
			}
			markers, ok := p.split(text[i:j])
			if !ok {
				return nil, fmt.Errorf("%w: cannot split marker digits '%s' at offset %d", ErrMarker, text[i:j], i)
			}
			prg = append(prg, markers...)
			i = j
			continue
		}
		v, err := EncodeBase(c)
		if err != nil {
			return nil, fmt.Errorf("offset %d: %w", i, err)
		}
		prg = append(prg, v)
		i++
	}
	return prg, nil
}

type textParser struct {
	next       uint32
	candidates map[string]uint32
}

type textParserState struct {
	next   uint32
	added  []string
	closed map[string]uint32
}

const maxMarkerDigits = 10

func (p *textParser) split(run string) ([]uint32, bool) {
	if run == "" {
		return nil, true
	}
	longest := len(run)
	if longest > maxMarkerDigits {
		longest = maxMarkerDigits
	}
	for n := longest; n > 0; n-- {
		marker, ok := p.lookup(run[:n])
		if !ok {
			continue
		}
		undo := p.apply(marker)
		if rest, ok := p.split(run[n:]); ok {
			return append([]uint32{marker}, rest...), true
		}
		p.revert(undo)
	}
	return nil, false
}

func (p *textParser) lookup(digits string) (uint32, bool) {
	if marker, ok := p.candidates[digits]; ok {
		return marker, true
	}
	if digits == strconv.FormatUint(uint64(p.next), 10) {
		return p.next, true
	}
	return 0, false
}

func (p *textParser) apply(marker uint32) textParserState {
	undo := textParserState{next: p.next, closed: map[string]uint32{}}
	switch {
	case marker == p.next:
		site := strconv.FormatUint(uint64(marker), 10)
		separator := strconv.FormatUint(uint64(marker+1), 10)
		p.candidates[site] = marker
		p.candidates[separator] = marker + 1
		undo.added = []string{site, separator}
		p.next += 2
	case IsSiteMarker(marker):
		// second occurrence of a site marker closes a legacy site
		for _, m := range []uint32{marker, marker + 1} {
			key := strconv.FormatUint(uint64(m), 10)
			undo.closed[key] = m
			delete(p.candidates, key)
		}
	}
	return undo
}

func (p *textParser) revert(undo textParserState) {
	p.next = undo.next
	for _, key := range undo.added {
		delete(p.candidates, key)
	}
	for key, marker := range undo.closed {
		p.candidates[key] = marker
	}
}
