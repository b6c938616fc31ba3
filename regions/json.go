package regions

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

type taggedRegion struct {
	SeqRegion Region `json:"SeqRegion"`
}

// Dump writes the map as a JSON object from contig to regions, keeping the
// contig order. Without sequences only coordinates and lengths are written.
func (m *Map) Dump(w io.Writer, withSequences bool) error {
	source := m
	if !withSequences {
		source = m.WithoutSequences()
	}

	out := bufio.NewWriter(w)
	out.WriteString("{")
	for i, chrom := range source.contigs {
		if i > 0 {
			out.WriteString(",")
		}
		key, err := json.Marshal(chrom)
		if err != nil {
			return err
		}
		list := source.regions[chrom]
		tagged := make([]taggedRegion, len(list))
		for j, region := range list {
			tagged[j] = taggedRegion{SeqRegion: region}
		}
		value, err := json.Marshal(tagged)
		if err != nil {
			return err
		}
		out.Write(key)
		out.WriteString(":")
		out.Write(value)
	}
	out.WriteString("}\n")
	return out.Flush()
}

// Load reads a map written by Dump, with or without sequences.
func Load(r io.Reader) (*Map, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	m := &Map{regions: map[string][]Region{}}
	for dec.More() {
		token, err := dec.Token()
		if err != nil {
			return nil, err
		}
		chrom, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("region map: expected a contig name, got %v", token)
		}
		var tagged []taggedRegion
		if err := dec.Decode(&tagged); err != nil {
			return nil, fmt.Errorf("region map contig %s: %w", chrom, err)
		}
		if _, ok := m.regions[chrom]; ok {
			return nil, fmt.Errorf("region map: contig %s listed twice", chrom)
		}
		list := make([]Region, len(tagged))
		for i, t := range tagged {
			list[i] = t.SeqRegion
		}
		m.contigs = append(m.contigs, chrom)
		m.regions[chrom] = list
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return m, nil
}

func expectDelim(dec *json.Decoder, delim json.Delim) error {
	token, err := dec.Token()
	if err != nil {
		return fmt.Errorf("region map: %w", err)
	}
	if d, ok := token.(json.Delim); !ok || d != delim {
		return fmt.Errorf("region map: expected %v, got %v", delim, token)
	}
	return nil
}
