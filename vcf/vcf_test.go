package vcf

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVcf = `##fileformat=VCFv4.2
##fileDate=20240101
##source=caller
##INFO=<ID=DP,Number=1,Type=integer,Description="Total depth">
##INFO=<ID=SOMATIC,Number=0,Type=Flag,Description="Somatic, maybe">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FILTER=<ID=LowQual,Description="Low quality">
##contig=<ID=chr1,length=100>
##contig=<ID=chr2>
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	s1	s2
chr1	5	rs1	A	G,T	50	PASS	DP=10;SOMATIC	GT	1/2	./.
chr1	9	.	CT	.	.	LowQual	.	GT	0|0	1
`

func TestReaderParsesHeaderAndRecords(t *testing.T) {
	reader, err := NewReader(strings.NewReader(testVcf))
	require.NoError(t, err)

	header := reader.Header
	assert.Equal(t, []string{"s1", "s2"}, header.Samples)
	assert.Equal(t, []HeaderLineIdLength{{Id: "chr1", Length: 100}, {Id: "chr2"}}, header.Contig)
	assert.Equal(t, "integer", header.Info["DP"].Type)
	assert.Equal(t, `"Somatic, maybe"`, header.Info["SOMATIC"].Description)
	assert.Equal(t, []string{"##source=caller"}, header.Other)

	first, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, "chr1", first.Chromosome)
	assert.Equal(t, int64(5), first.Pos)
	assert.Equal(t, []string{"G", "T"}, first.Alt)
	assert.True(t, first.Passes())
	assert.Equal(t, []string{"DP", "SOMATIC"}, first.InfoOrder)
	assert.Nil(t, first.Info["SOMATIC"])

	gt, err := first.Genotype("")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, gt)
	gt, err = first.Genotype("s2")
	require.NoError(t, err)
	assert.Equal(t, []int{NoCall, NoCall}, gt)

	second, err := reader.Read()
	require.NoError(t, err)
	assert.Empty(t, second.Alt)
	assert.False(t, second.Passes())
	assert.Equal(t, int64(10), second.End())

	_, err = reader.Read()
	assert.Equal(t, io.EOF, err)
}

func TestParseVariantErrors(t *testing.T) {
	_, err := ParseVariant("chr1\t5\t.\tA", nil)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseVariant("chr1\tx\t.\tA\tG\t.\t.\t.", nil)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseGenotype("0/a")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestWriterRoundTrip(t *testing.T) {
	reader, err := NewReader(strings.NewReader(testVcf))
	require.NoError(t, err)
	variants, err := ReadAll(reader)
	require.NoError(t, err)

	var out bytes.Buffer
	writer := NewWriter(&out, reader.Header)
	writer.NoDate = true
	for _, variant := range variants {
		require.NoError(t, writer.Write(variant))
	}
	require.NoError(t, writer.Flush())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, "##fileformat=VCFv4.2", lines[0])
	assert.Contains(t, lines, `##INFO=<ID=DP,Number=1,Type=Integer,Description="Total depth">`)
	assert.Contains(t, lines, `##INFO=<ID=SOMATIC,Number=0,Type=Flag,Description="Somatic, maybe">`)
	assert.Contains(t, lines, "##contig=<ID=chr1,length=100>")
	assert.NotContains(t, out.String(), "fileDate")
	assert.Equal(t, "chr1\t5\trs1\tA\tG,T\t50\tPASS\tDP=10;SOMATIC\tGT\t1/2\t./.", lines[len(lines)-2])
	assert.Equal(t, "chr1\t9\t.\tCT\t.\t.\tLowQual\t.\tGT\t0|0\t1", lines[len(lines)-1])
}

func TestCloneIsDeep(t *testing.T) {
	variant, err := ParseVariant("chr1\t5\t.\tA\tG\t.\tPASS\tDP=3\tGT\t0/1", &Header{Samples: []string{"s"}})
	require.NoError(t, err)

	clone := variant.Clone()
	clone.Alt[0] = "T"
	clone.Info["DP"][0] = "4"
	clone.Format["s"].Content["GT"][0] = "1/1"

	assert.Equal(t, "G", variant.Alt[0])
	assert.Equal(t, "3", variant.Info["DP"][0])
	assert.Equal(t, "0/1", variant.Format["s"].Content["GT"][0])
}

func TestFormatGenotype(t *testing.T) {
	assert.Equal(t, "0/1", FormatGenotype([]int{0, 1}))
	assert.Equal(t, "./.", FormatGenotype([]int{NoCall, NoCall}))
	assert.Equal(t, "2", FormatGenotype([]int{2}))
}
