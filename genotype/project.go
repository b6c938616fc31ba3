package genotype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nvnieuwk/gramkit/vcf"
)

// OutputMode selects which ALT alleles survive projection.
type OutputMode int

const (
	// Single drops ALTs without singleton coverage that are not called.
	Single OutputMode = iota
	// Population keeps every ALT.
	Population
)

// ParseOutputMode reads single or population.
func ParseOutputMode(s string) (OutputMode, error) {
	switch s {
	case "single":
		return Single, nil
	case "population":
		return Population, nil
	}
	return 0, fmt.Errorf("%w: unknown output mode '%s'", ErrParams, s)
}

func (m OutputMode) String() string {
	if m == Population {
		return "population"
	}
	return "single"
}

// AddHeaderLines declares the FORMAT fields written by Project.
func AddHeaderLines(header *vcf.Header) {
	header.Format["GT"] = vcf.HeaderLineIdNumberTypeDescription{Id: "GT", Number: "1", Type: "String", Description: "Genotype"}
	header.Format["DP"] = vcf.HeaderLineIdNumberTypeDescription{Id: "DP", Number: "1", Type: "Integer", Description: "Total read depth on the site"}
	header.Format["COV"] = vcf.HeaderLineIdNumberTypeDescription{Id: "COV", Number: "R", Type: "Integer", Description: "Read coverage of every allele"}
	header.Format["GT_CONF"] = vcf.HeaderLineIdNumberTypeDescription{Id: "GT_CONF", Number: "1", Type: "Float", Description: "Log-likelihood difference between the called and the next best genotype"}
}

// Project returns a copy of v carrying the call for sample. ALT alleles are
// kept according to mode and the genotype is renumbered to match them.
func Project(v *vcf.Variant, call *Call, mode OutputMode, sample string, ploidy Ploidy) (*vcf.Variant, error) {
	if len(call.AlleleCoverage) != len(v.Alt)+1 {
		return nil, fmt.Errorf("%w: %s:%d has %d alleles but coverage for %d", ErrInvalidSite, v.Chromosome, v.Pos, len(v.Alt)+1, len(call.AlleleCoverage))
	}

	called := map[int]bool{}
	for _, allele := range call.Genotype {
		called[allele] = true
	}

	// position of every kept allele in the new allele list, reference included
	renumber := map[int]int{0: 0}
	kept := []int{0}
	alts := []string{}
	for i, alt := range v.Alt {
		allele := i + 1
		if mode == Single && call.SingletonCoverage[allele] == 0 && !called[allele] {
			continue
		}
		renumber[allele] = len(kept)
		kept = append(kept, allele)
		alts = append(alts, alt)
	}

	gt := make([]int, 0, ploidy)
	if call.NoCall() {
		for i := 0; i < int(ploidy); i++ {
			gt = append(gt, vcf.NoCall)
		}
	} else {
		for _, allele := range call.Genotype {
			gt = append(gt, renumber[allele])
		}
	}

	cov := make([]string, len(kept))
	for i, allele := range kept {
		cov[i] = strconv.Itoa(call.AlleleCoverage[allele])
	}

	projected := v.Clone()
	projected.Alt = alts
	projected.FormatKeys = []string{"GT", "DP", "COV", "GT_CONF"}
	projected.Format = map[string]vcf.VariantFormat{
		sample: {
			Sample: sample,
			Content: map[string][]string{
				"GT":      {vcf.FormatGenotype(gt)},
				"DP":      {strconv.Itoa(call.TotalDepth)},
				"COV":     {strings.Join(cov, ",")},
				"GT_CONF": {vcf.FloatToString(call.Confidence)},
			},
		},
	}
	return projected, nil
}
