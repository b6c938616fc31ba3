package gramkit_api

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v2"

	"github.com/nvnieuwk/gramkit/prg"
	"github.com/nvnieuwk/gramkit/regions"
	"github.com/nvnieuwk/gramkit/vcf"
)

const (
	baseFasta = ">JAC test contig\nTTATCGGTA\n"

	baseVcf = "##fileformat=VCFv4.2\n" +
		"##contig=<ID=JAC,length=9>\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"JAC\t2\t.\tTAT\tG\t.\tPASS\t.\n" +
		"JAC\t5\t.\tC\tA\t.\tLowQual\t.\n" +
		"JAC\t8\t.\tT\tTCTGC\t.\tPASS\t.\n"

	siteCoverage = `{
  "allele_base_counts": [[[0, 0, 0], [20]], [[0], [20, 20, 20, 20, 20]]],
  "grouped_allele_counts": {
    "allele_groups": {"0": [0], "1": [1]},
    "site_counts": [{"1": 20}, {"1": 20}]
  }
}`

	derivedVcf = "##fileformat=VCFv4.2\n" +
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		"JAC\t9\tsnp\tG\tA\t.\tPASS\t.\n" +
		"JAC\t3\tbad\tT\tA\t.\tPASS\t.\n"
)

func testApp() *cli.App {
	flags := func(names ...string) []cli.Flag {
		out := []cli.Flag{}
		for _, name := range names {
			out = append(out, &cli.StringFlag{Name: name})
		}
		return out
	}
	return &cli.App{
		Name:           "gramkit",
		Flags:          []cli.Flag{&cli.BoolFlag{Name: "nodate"}},
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{Name: "build", Action: Build, Flags: append(flags("ref", "vcf", "config", "output", "text"), &cli.BoolFlag{Name: "legacy"})},
			{Name: "infer", Action: Infer, Flags: append(flags("ref", "vcf", "coverage", "config", "output-vcf", "output-fasta", "output-map", "sample", "ploidy", "output-mode"), &cli.Float64Flag{Name: "mean-depth"})},
			{Name: "personalise", Action: Personalise, Flags: flags("prg", "choices", "vcf", "ref", "output", "name", "config")},
			{Name: "rebase", Action: Rebase, Flags: flags("input", "map", "pers-vcf", "ref", "pers-fasta", "output")},
		},
	}
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	log.SetOutput(io.Discard)
	return testApp().Run(append([]string{"gramkit", "--nodate"}, args...))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, "ref.fa", baseFasta)
	variants := writeFile(t, "base.vcf", baseVcf)
	binary := filepath.Join(dir, "prg.bin")
	text := filepath.Join(dir, "prg.txt")

	require.NoError(t, run(t, "build", "--ref", ref, "--vcf", variants, "--output", binary, "--text", text))
	assert.Equal(t, "T5TAT6G6CGG7T8TCTGC8A\n", readFile(t, text))

	input, err := os.Open(binary)
	require.NoError(t, err)
	defer input.Close()
	encoded, err := prg.ReadBinary(input)
	require.NoError(t, err)
	assert.Equal(t, "T5TAT6G6CGG7T8TCTGC8A", prg.FormatText(encoded))

	legacy := filepath.Join(dir, "legacy.txt")
	require.NoError(t, run(t, "build", "--ref", ref, "--vcf", variants, "--output", legacy, "--legacy"))
	assert.Equal(t, "T5TAT6G5CGG7T8TCTGC7A\n", readFile(t, legacy))
}

func TestBuildCompressedText(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, "ref.fa", baseFasta)
	variants := writeFile(t, "base.vcf", baseVcf)
	compressed := filepath.Join(dir, "prg.txt.gz")

	require.NoError(t, run(t, "build", "--ref", ref, "--vcf", variants, "--output", filepath.Join(dir, "prg.bin"), "--text", compressed))

	input, err := openInput(compressed)
	require.NoError(t, err)
	content, err := io.ReadAll(input)
	require.NoError(t, input.Close())
	require.NoError(t, err)
	assert.Equal(t, "T5TAT6G6CGG7T8TCTGC8A\n", string(content))

	// the compressed text form is also accepted as the main output
	require.NoError(t, run(t, "build", "--ref", ref, "--vcf", variants, "--output", compressed))
	input, err = openInput(compressed)
	require.NoError(t, err)
	defer input.Close()
	encoded, err := prg.Read(input)
	require.NoError(t, err)
	assert.Equal(t, "T5TAT6G6CGG7T8TCTGC8A", prg.FormatText(encoded))
}

func TestInferPersonaliseAndRebase(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, "ref.fa", baseFasta)
	variants := writeFile(t, "base.vcf", baseVcf)
	cov := writeFile(t, "coverage.json", siteCoverage)
	calls := filepath.Join(dir, "calls.vcf")
	personalised := filepath.Join(dir, "personalised.fa")
	mapPath := filepath.Join(dir, "map.json")

	require.NoError(t, run(t, "infer",
		"--ref", ref, "--vcf", variants, "--coverage", cov, "--mean-depth", "20",
		"--output-vcf", calls, "--output-fasta", personalised, "--output-map", mapPath, "--sample", "NA1",
	))

	assert.Equal(t, ">JAC personalised JAC for NA1\nTGCGGTCTGCA\n", readFile(t, personalised))

	reader, err := vcf.Open(calls)
	require.NoError(t, err)
	records, err := vcf.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"NA1"}, reader.Header.Samples)
	for _, record := range records {
		gt, err := record.Genotype("NA1")
		require.NoError(t, err)
		assert.Equal(t, []int{1, 1}, gt)
		assert.Equal(t, []string{"20"}, record.Format["NA1"].Content["DP"])
	}

	mapFile, err := os.Open(mapPath)
	require.NoError(t, err)
	m, err := regions.Load(mapFile)
	mapFile.Close()
	require.NoError(t, err)
	list, _ := m.Regions("JAC")
	assert.Equal(t, []regions.Region{
		{BaseStart: 1, PersStart: 1, Length: 1},
		{BaseStart: 2, PersStart: 2, Length: 1, Ref: "TAT", Alt: "G"},
		{BaseStart: 5, PersStart: 3, Length: 3},
		{BaseStart: 8, PersStart: 6, Length: 5, Ref: "T", Alt: "TCTGC"},
		{BaseStart: 9, PersStart: 11, Length: 1},
	}, list)

	t.Run("personalise", func(t *testing.T) {
		binary := filepath.Join(dir, "prg.bin")
		require.NoError(t, run(t, "build", "--ref", ref, "--vcf", variants, "--output", binary))

		fromChoices := filepath.Join(dir, "choices.fa")
		require.NoError(t, run(t, "personalise", "--prg", binary, "--choices", "1,1", "--name", "JAC", "--output", fromChoices))
		assert.True(t, strings.HasSuffix(readFile(t, fromChoices), "\nTGCGGTCTGCA\n"))

		fromVcf := filepath.Join(dir, "vcf.fa")
		require.NoError(t, run(t, "personalise", "--prg", binary, "--vcf", calls, "--ref", ref, "--name", "JAC", "--output", fromVcf))
		assert.Equal(t, readFile(t, fromChoices), readFile(t, fromVcf))

		reference := filepath.Join(dir, "reference.fa")
		require.NoError(t, run(t, "personalise", "--prg", binary, "--output", reference))
		assert.True(t, strings.HasSuffix(readFile(t, reference), "\nTTATCGGTA\n"))

		config := writeFile(t, "config.yaml", "fasta:\n  description: \"$SAMPLE length $LENGTH\"\n")
		withLength := filepath.Join(dir, "length.fa")
		require.NoError(t, run(t, "personalise", "--prg", binary, "--choices", "1,1", "--name", "JAC", "--config", config, "--output", withLength))
		assert.Equal(t, ">JAC sample length 11\nTGCGGTCTGCA\n", readFile(t, withLength))
	})

	t.Run("rebase with map", func(t *testing.T) {
		derived := writeFile(t, "derived.vcf", derivedVcf)
		out := filepath.Join(dir, "rebased.vcf")
		require.NoError(t, run(t, "rebase", "--input", derived, "--map", mapPath, "--pers-fasta", personalised, "--output", out))

		content := readFile(t, out)
		assert.Contains(t, content, "JAC\t8\tsnp\tT\tTCTAC\t.\tPASS\t.\n")
		assert.NotContains(t, content, "\tbad\t")
	})

	t.Run("rebase with personalised vcf", func(t *testing.T) {
		derived := writeFile(t, "derived.vcf", derivedVcf)
		out := filepath.Join(dir, "rebased-from-vcf.vcf")
		require.NoError(t, run(t, "rebase", "--input", derived, "--pers-vcf", calls, "--ref", ref, "--output", out))

		content := readFile(t, out)
		assert.Contains(t, content, "##contig=<ID=JAC,length=9>\n")
		assert.Contains(t, content, "JAC\t8\tsnp\tT\tTCTAC\t.\tPASS\t.\n")
		// no personalised reference to check against
		assert.Contains(t, content, "\tbad\t")
	})
}

func TestInferWithoutCoverageWritesNoCalls(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, "ref.fa", baseFasta)
	variants := writeFile(t, "base.vcf", baseVcf)
	cov := writeFile(t, "coverage.json", `{
  "allele_base_counts": [[[0, 0, 0], [0]], [[0], [0, 0, 0, 0, 0]]],
  "grouped_allele_counts": {"allele_groups": {"0": [0], "1": [1]}, "site_counts": [{}, {}]}
}`)
	calls := filepath.Join(dir, "calls.vcf")
	personalised := filepath.Join(dir, "personalised.fa")

	require.NoError(t, run(t, "infer",
		"--ref", ref, "--vcf", variants, "--coverage", cov,
		"--output-vcf", calls, "--output-fasta", personalised, "--sample", "NA1",
	))

	reader, err := vcf.Open(calls)
	require.NoError(t, err)
	records, err := vcf.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		gt, err := record.Genotype("NA1")
		require.NoError(t, err)
		assert.Equal(t, []int{vcf.NoCall, vcf.NoCall}, gt)
		assert.Equal(t, []string{"0"}, record.Format["NA1"].Content["DP"])
		assert.Empty(t, record.Alt)
	}
	assert.Equal(t, ">JAC personalised JAC for NA1\nTTATCGGTA\n", readFile(t, personalised))
}

func TestInferRejectsSiteMismatch(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, "ref.fa", baseFasta)
	variants := writeFile(t, "base.vcf", baseVcf)
	cov := writeFile(t, "coverage.json", `{"allele_base_counts": [], "grouped_allele_counts": {"allele_groups": {}, "site_counts": []}}`)

	err := run(t, "infer",
		"--ref", ref, "--vcf", variants, "--coverage", cov, "--mean-depth", "20",
		"--output-vcf", filepath.Join(dir, "calls.vcf"), "--output-fasta", filepath.Join(dir, "pers.fa"),
	)
	assert.Error(t, err)
}

func TestInferRejectsUnknownPloidy(t *testing.T) {
	dir := t.TempDir()
	err := run(t, "infer",
		"--ref", writeFile(t, "ref.fa", baseFasta), "--vcf", writeFile(t, "base.vcf", baseVcf),
		"--coverage", writeFile(t, "coverage.json", siteCoverage), "--ploidy", "triploid",
		"--output-vcf", filepath.Join(dir, "calls.vcf"), "--output-fasta", filepath.Join(dir, "pers.fa"),
	)
	assert.ErrorIs(t, err, ErrConfig)
	assert.NoFileExists(t, filepath.Join(dir, "calls.vcf"))
}

func TestRebaseNeedsAMap(t *testing.T) {
	derived := writeFile(t, "derived.vcf", derivedVcf)
	assert.Error(t, run(t, "rebase", "--input", derived))
}
