package vcf

import (
	"fmt"
	"strconv"
	"strings"
)

// NoCall marks an uncalled allele in a parsed genotype.
const NoCall = -1

// Passes reports whether the FILTER column is PASS or missing.
func (v *Variant) Passes() bool {
	return v.Filter == "PASS" || v.Filter == "." || v.Filter == ""
}

// End is the 1-based inclusive end of the REF allele.
func (v *Variant) End() int64 {
	return v.Pos + int64(len(v.Ref)) - 1
}

// Genotype parses the GT field of a sample. Uncalled alleles are reported as NoCall.
// An empty sample name selects the first sample of the record.
func (v *Variant) Genotype(sample string) ([]int, error) {
	if sample == "" {
		if v.Header != nil && len(v.Header.Samples) > 0 {
			sample = v.Header.Samples[0]
		} else {
			for name := range v.Format {
				sample = name
				break
			}
		}
	}
	format, ok := v.Format[sample]
	if !ok {
		return nil, nil
	}
	gt, ok := format.Content["GT"]
	if !ok || len(gt) == 0 {
		return nil, nil
	}
	return ParseGenotype(gt[0])
}

// ParseGenotype parses a GT string such as 0/1, 1|0, ./. or 2.
func ParseGenotype(gt string) ([]int, error) {
	fields := strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' })
	alleles := make([]int, 0, len(fields))
	for _, field := range fields {
		if field == "." {
			alleles = append(alleles, NoCall)
			continue
		}
		allele, err := strconv.Atoi(field)
		if err != nil || allele < 0 {
			return nil, fmt.Errorf("%w: invalid genotype '%s'", ErrMalformed, gt)
		}
		alleles = append(alleles, allele)
	}
	return alleles, nil
}

// FormatGenotype renders alleles as an unphased GT string.
func FormatGenotype(alleles []int) string {
	parts := make([]string, len(alleles))
	for i, allele := range alleles {
		if allele == NoCall {
			parts[i] = "."
			continue
		}
		parts[i] = strconv.Itoa(allele)
	}
	return strings.Join(parts, "/")
}

// Clone returns a deep copy of the variant sharing only the header pointer.
func (v *Variant) Clone() *Variant {
	clone := *v
	clone.Alt = append([]string(nil), v.Alt...)
	clone.InfoOrder = append([]string(nil), v.InfoOrder...)
	clone.FormatKeys = append([]string(nil), v.FormatKeys...)
	clone.Info = make(map[string][]string, len(v.Info))
	for key, value := range v.Info {
		if value == nil {
			clone.Info[key] = nil
			continue
		}
		clone.Info[key] = append([]string{}, value...)
	}
	clone.Format = make(map[string]VariantFormat, len(v.Format))
	for sample, format := range v.Format {
		content := make(map[string][]string, len(format.Content))
		for key, value := range format.Content {
			content[key] = append([]string{}, value...)
		}
		clone.Format[sample] = VariantFormat{Sample: format.Sample, Content: content}
	}
	return &clone
}
