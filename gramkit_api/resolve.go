package gramkit_api

import (
	"fmt"
	"strings"
)

// Resolve the description template of a personalised FASTA record
func ResolveDescription(input string, chrom string, sample string, length int64) string {
	// Replace CHROM fields
	input = strings.ReplaceAll(input, "$CHROM", chrom)

	// Replace SAMPLE fields
	input = strings.ReplaceAll(input, "$SAMPLE", sample)

	// Replace LENGTH fields
	input = strings.ReplaceAll(input, "$LENGTH", fmt.Sprint(length))

	return strings.TrimSpace(input)
}
