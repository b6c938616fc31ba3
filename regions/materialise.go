package regions

import (
	"fmt"
	"io"
)

// Materialise writes the personalised sequence of chrom, taking invariant
// stretches from base and variant regions from their chosen ALT.
func (m *Map) Materialise(chrom string, base []byte, w io.Writer) error {
	list, ok := m.regions[chrom]
	if !ok {
		return fmt.Errorf("%w: %s is not in the region map", ErrMissingContig, chrom)
	}
	for _, region := range list {
		if region.IsVariant() {
			if _, err := io.WriteString(w, region.Alt); err != nil {
				return err
			}
			continue
		}
		start := region.BaseStart - 1
		end := start + region.Length
		if start < 0 || end > int64(len(base)) {
			return fmt.Errorf("%w: region %s:%d-%d lies outside the base contig of length %d", ErrOutOfRange, chrom, region.BaseStart, end, len(base))
		}
		if _, err := w.Write(base[start:end]); err != nil {
			return err
		}
	}
	return nil
}
