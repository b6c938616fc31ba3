// Package genotype calls genotypes at PRG variant sites from allele coverage
// under a Poisson read-depth model.
package genotype

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/bits-and-blooms/bitset"

	"github.com/nvnieuwk/gramkit/coverage"
)

var (
	// ErrInvalidSite reports coverage that cannot be genotyped.
	ErrInvalidSite = errors.New("invalid site coverage")
	// ErrParams reports out of range model parameters.
	ErrParams = errors.New("invalid genotyping parameters")
)

// Ploidy is the number of alleles in a call.
type Ploidy int

const (
	Haploid Ploidy = 1
	Diploid Ploidy = 2
)

// ParsePloidy reads haploid or diploid.
func ParsePloidy(s string) (Ploidy, error) {
	switch s {
	case "haploid":
		return Haploid, nil
	case "diploid":
		return Diploid, nil
	}
	return 0, fmt.Errorf("%w: unknown ploidy '%s'", ErrParams, s)
}

func (p Ploidy) String() string {
	if p == Haploid {
		return "haploid"
	}
	return "diploid"
}

// Params are the model parameters shared by every site.
type Params struct {
	MeanDepth float64
	ErrorRate float64
	Ploidy    Ploidy
}

// Validate checks that the parameters describe a usable model.
func (p Params) Validate() error {
	if !(p.MeanDepth > 0) || math.IsInf(p.MeanDepth, 0) {
		return fmt.Errorf("%w: mean depth must be positive, got %v", ErrParams, p.MeanDepth)
	}
	if !(p.ErrorRate > 0 && p.ErrorRate < 1) {
		return fmt.Errorf("%w: error rate must lie in (0, 1), got %v", ErrParams, p.ErrorRate)
	}
	if p.Ploidy != Haploid && p.Ploidy != Diploid {
		return fmt.Errorf("%w: unsupported ploidy %d", ErrParams, p.Ploidy)
	}
	return nil
}

// Candidate is a genotype with its log-likelihood.
type Candidate struct {
	Genotype      []int
	LogLikelihood float64
}

// Call is the outcome of genotyping one site.
type Call struct {
	// Allele indices of the call, nil for a no-call
	Genotype []int

	// Log-likelihood difference between the best and second best genotype
	Confidence float64

	// Coverage of every group containing the allele, per allele
	AlleleCoverage []int

	// Sum of all group counts
	TotalDepth int

	// Coverage of the group made of only the allele, per allele
	SingletonCoverage []int

	// Best single allele of the call, -1 for a no-call
	HaploidAllele int

	// Every genotype considered, best first
	Candidates []Candidate
}

// NoCall reports whether the site could not be called.
func (c *Call) NoCall() bool {
	return c.Genotype == nil
}

// Genotyper calls sites with fixed parameters.
type Genotyper struct {
	params      Params
	logDepth    float64
	logHalf     float64
	logError    float64
	logPresent  float64
	logHalfPres float64
}

// New returns a genotyper after validating params.
func New(params Params) (*Genotyper, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Genotyper{
		params:      params,
		logDepth:    math.Log(params.MeanDepth),
		logHalf:     math.Log(params.MeanDepth / 2),
		logError:    math.Log(params.ErrorRate),
		logPresent:  logOneMinusExp(params.MeanDepth),
		logHalfPres: logOneMinusExp(params.MeanDepth / 2),
	}, nil
}

// logOneMinusExp is ln(1 - e^-x).
func logOneMinusExp(x float64) float64 {
	if x >= 10 {
		return math.Log(1 - math.Exp(-x))
	}
	return math.Log(-math.Expm1(-x))
}

func lnGamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

type siteStats struct {
	total     int
	alleles   int
	lengths   []int
	nonZero   []int
	singleton []int
	haploid   []int
	groups    []group
}

type group struct {
	alleles *bitset.BitSet
	count   int
}

func summarise(site coverage.Site) (*siteStats, error) {
	k := len(site.PerBase)
	if k == 0 {
		return nil, fmt.Errorf("%w: site has no alleles", ErrInvalidSite)
	}
	stats := &siteStats{
		alleles:   k,
		lengths:   make([]int, k),
		nonZero:   make([]int, k),
		singleton: make([]int, k),
		haploid:   make([]int, k),
	}
	for i, bases := range site.PerBase {
		stats.lengths[i] = len(bases)
		for _, count := range bases {
			if count != 0 {
				stats.nonZero[i]++
			}
		}
	}

	keys := make([]string, 0, len(site.Counts))
	for key := range site.Counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		count := site.Counts[key]
		set, ok := site.Groups[key]
		if !ok {
			return nil, fmt.Errorf("%w: unknown allele group %s", ErrInvalidSite, key)
		}
		stats.total += count
		stats.groups = append(stats.groups, group{alleles: set, count: count})
		for i, ok := set.NextSet(0); ok; i, ok = set.NextSet(i + 1) {
			if int(i) >= k {
				return nil, fmt.Errorf("%w: group %s names allele %d of %d", ErrInvalidSite, key, i, k)
			}
			stats.haploid[i] += count
		}
		if set.Count() == 1 {
			first, _ := set.NextSet(0)
			stats.singleton[first] += count
		}
	}
	return stats, nil
}

// pairDepths splits groups holding both i and j in proportion to the
// singleton coverage of i and j.
func (s *siteStats) pairDepths(i, j int) (float64, float64) {
	var di, dj float64
	share := float64(s.singleton[i]) / float64(s.singleton[i]+s.singleton[j])
	for _, g := range s.groups {
		hasI, hasJ := g.alleles.Test(uint(i)), g.alleles.Test(uint(j))
		switch {
		case hasI && hasJ:
			di += float64(g.count) * share
			dj += float64(g.count) * (1 - share)
		case hasI:
			di += float64(g.count)
		case hasJ:
			dj += float64(g.count)
		}
	}
	return di, dj
}

func (g *Genotyper) homozygous(s *siteStats, i int) float64 {
	lambda := g.params.MeanDepth
	depth := float64(s.haploid[i])
	z := float64(s.nonZero[i])
	return -lambda*(1+float64(s.lengths[i])-z) +
		depth*g.logDepth -
		lnGamma(depth+1) +
		(float64(s.total)-depth)*g.logError +
		z*g.logPresent
}

func (g *Genotyper) heterozygous(s *siteStats, i, j int) float64 {
	lambda := g.params.MeanDepth
	di, dj := s.pairDepths(i, j)
	missing := float64(s.lengths[i] + s.lengths[j] - s.nonZero[i] - s.nonZero[j])
	return -lambda*(1+missing/2) +
		(di+dj)*g.logHalf -
		lnGamma(di+1) -
		lnGamma(dj+1) +
		(float64(s.total)-di-dj)*g.logError +
		float64(s.nonZero[i]+s.nonZero[j])*g.logHalfPres
}

func (s *siteStats) noCall() *Call {
	return &Call{
		AlleleCoverage:    s.haploid,
		TotalDepth:        s.total,
		SingletonCoverage: s.singleton,
		HaploidAllele:     -1,
	}
}

// Uncalled summarises the coverage of a site as a no-call, for runs without a
// usable depth model.
func Uncalled(site coverage.Site) (*Call, error) {
	stats, err := summarise(site)
	if err != nil {
		return nil, err
	}
	return stats.noCall(), nil
}

// Call genotypes one site.
func (g *Genotyper) Call(site coverage.Site) (*Call, error) {
	stats, err := summarise(site)
	if err != nil {
		return nil, err
	}
	call := stats.noCall()
	if stats.total == 0 {
		return call, nil
	}

	for i := 0; i < stats.alleles; i++ {
		gt := []int{i}
		if g.params.Ploidy == Diploid {
			gt = []int{i, i}
		}
		call.Candidates = append(call.Candidates, Candidate{Genotype: gt, LogLikelihood: g.homozygous(stats, i)})
	}
	if g.params.Ploidy == Diploid {
		for i := 0; i < stats.alleles; i++ {
			for j := i + 1; j < stats.alleles; j++ {
				if stats.singleton[i] == 0 || stats.singleton[j] == 0 {
					continue
				}
				call.Candidates = append(call.Candidates, Candidate{Genotype: []int{i, j}, LogLikelihood: g.heterozygous(stats, i, j)})
			}
		}
	}
	sort.SliceStable(call.Candidates, func(a, b int) bool {
		return call.Candidates[a].LogLikelihood > call.Candidates[b].LogLikelihood
	})

	best := call.Candidates[0]
	if len(call.Candidates) > 1 {
		call.Confidence = math.Round((best.LogLikelihood-call.Candidates[1].LogLikelihood)*100) / 100
	}

	call.HaploidAllele = best.Genotype[0]
	if len(best.Genotype) == 2 && best.Genotype[0] != best.Genotype[1] {
		i, j := best.Genotype[0], best.Genotype[1]
		if stats.singleton[j] > stats.singleton[i] {
			call.HaploidAllele = j
		}
		other := i
		if call.HaploidAllele == i {
			other = j
		}
		call.Genotype = []int{call.HaploidAllele, other}
	} else {
		call.Genotype = append([]int(nil), best.Genotype...)
	}
	return call, nil
}
