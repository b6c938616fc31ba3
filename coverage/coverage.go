// Package coverage loads per-site allele coverage produced by mapping reads
// to a PRG.
package coverage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bits-and-blooms/bitset"
)

// ErrMalformed reports coverage that does not describe a consistent set of sites.
var ErrMalformed = errors.New("malformed coverage")

// AlleleGroups maps a group key to the set of allele indices it stands for.
type AlleleGroups map[string]*bitset.BitSet

// UnmarshalJSON reads groups written as lists of allele indices.
func (g *AlleleGroups) UnmarshalJSON(data []byte) error {
	var raw map[string][]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	groups := make(AlleleGroups, len(raw))
	for key, alleles := range raw {
		set := bitset.New(8)
		for _, allele := range alleles {
			if allele < 0 {
				return fmt.Errorf("%w: group %s holds negative allele %d", ErrMalformed, key, allele)
			}
			set.Set(uint(allele))
		}
		groups[key] = set
	}
	*g = groups
	return nil
}

// MarshalJSON writes groups as sorted lists of allele indices.
func (g AlleleGroups) MarshalJSON() ([]byte, error) {
	raw := make(map[string][]int, len(g))
	for key, set := range g {
		alleles := []int{}
		for i, ok := set.NextSet(0); ok; i, ok = set.NextSet(i + 1) {
			alleles = append(alleles, int(i))
		}
		raw[key] = alleles
	}
	return json.Marshal(raw)
}

// Grouped holds the equivalence-class counts of every site.
type Grouped struct {
	AlleleGroups AlleleGroups     `json:"allele_groups"`
	SiteCounts   []map[string]int `json:"site_counts"`
}

// Coverage is the coverage of every site of a PRG in marker order.
type Coverage struct {
	AlleleBaseCounts [][][]int `json:"allele_base_counts"`
	Grouped          Grouped   `json:"grouped_allele_counts"`
}

// Site is the coverage of a single variant site.
type Site struct {
	// Per allele, one count per base of the allele
	PerBase [][]int

	// Count per group key
	Counts map[string]int

	// Alleles of every group key
	Groups AlleleGroups
}

// Load reads coverage JSON and checks that both structures agree.
func Load(r io.Reader) (*Coverage, error) {
	cov := &Coverage{}
	if err := json.NewDecoder(bufio.NewReader(r)).Decode(cov); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := cov.validate(); err != nil {
		return nil, err
	}
	return cov, nil
}

func (c *Coverage) validate() error {
	if len(c.AlleleBaseCounts) != len(c.Grouped.SiteCounts) {
		return fmt.Errorf("%w: %d sites of per-base coverage but %d sites of grouped coverage", ErrMalformed, len(c.AlleleBaseCounts), len(c.Grouped.SiteCounts))
	}
	for site, counts := range c.Grouped.SiteCounts {
		for key, count := range counts {
			set, ok := c.Grouped.AlleleGroups[key]
			if !ok {
				return fmt.Errorf("%w: site %d uses unknown group %s", ErrMalformed, site, key)
			}
			if count < 0 {
				return fmt.Errorf("%w: site %d has negative count for group %s", ErrMalformed, site, key)
			}
			if last, ok := lastAllele(set); ok && last >= uint(len(c.AlleleBaseCounts[site])) {
				return fmt.Errorf("%w: group %s names allele %d but site %d has %d alleles", ErrMalformed, key, last, site, len(c.AlleleBaseCounts[site]))
			}
		}
	}
	return nil
}

func lastAllele(set *bitset.BitSet) (uint, bool) {
	var (
		last  uint
		found bool
	)
	for i, ok := set.NextSet(0); ok; i, ok = set.NextSet(i + 1) {
		last, found = i, true
	}
	return last, found
}

// NumSites is the number of sites covered.
func (c *Coverage) NumSites() int {
	return len(c.AlleleBaseCounts)
}

// Site returns the coverage of site i, counted from 0 in marker order.
func (c *Coverage) Site(i int) (Site, error) {
	if i < 0 || i >= c.NumSites() {
		return Site{}, fmt.Errorf("%w: site %d requested, %d sites available", ErrMalformed, i, c.NumSites())
	}
	return Site{
		PerBase: c.AlleleBaseCounts[i],
		Counts:  c.Grouped.SiteCounts[i],
		Groups:  c.Grouped.AlleleGroups,
	}, nil
}

// Total is the sum of the group counts of the site.
func (s Site) Total() int {
	total := 0
	for _, count := range s.Counts {
		total += count
	}
	return total
}

// MeanDepth estimates the expected read depth: the mean, over sites with any
// coverage, of the best per-base mean of an allele. It is 0 without coverage.
func (c *Coverage) MeanDepth() float64 {
	var (
		sum   float64
		sites int
	)
	for _, alleles := range c.AlleleBaseCounts {
		best := 0.0
		for _, bases := range alleles {
			if len(bases) == 0 {
				continue
			}
			total := 0
			for _, count := range bases {
				total += count
			}
			if mean := float64(total) / float64(len(bases)); mean > best {
				best = mean
			}
		}
		if best > 0 {
			sum += best
			sites++
		}
	}
	if sites == 0 {
		return 0
	}
	return sum / float64(sites)
}
