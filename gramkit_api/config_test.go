package gramkit_api

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadConfigDefaults(t *testing.T) {
	config, err := ReadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "normal", config.Prg.Encoding)
	assert.Equal(t, "diploid", config.Genotyper.Ploidy)
	assert.Equal(t, 0.01, config.Genotyper.ErrorRate)
	assert.Equal(t, 0.0, config.Genotyper.MeanDepth)
	assert.Equal(t, "single", config.Genotyper.OutputMode)
	assert.Equal(t, 60, config.Fasta.LineWidth)
	assert.Equal(t, "sample", config.Sample)
	assert.NoError(t, config.Validate())
}

func TestReadConfigFileAndEnvironment(t *testing.T) {
	path := writeFile(t, "config.yaml", `
prg:
  encoding: legacy
genotyper:
  ploidy: haploid
  error_rate: 0.001
  mean_depth: 30
fasta:
  line_width: 80
sample: NA12878
`)
	t.Setenv("GRAMKIT_GENOTYPER_ERROR_RATE", "0.05")
	t.Setenv("GRAMKIT_GENOTYPER_OUTPUT_MODE", "population")

	config, err := ReadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "legacy", config.Prg.Encoding)
	assert.Equal(t, "haploid", config.Genotyper.Ploidy)
	assert.Equal(t, 0.05, config.Genotyper.ErrorRate)
	assert.Equal(t, 30.0, config.Genotyper.MeanDepth)
	assert.Equal(t, "population", config.Genotyper.OutputMode)
	assert.Equal(t, 80, config.Fasta.LineWidth)
	assert.Equal(t, "NA12878", config.Sample)
}

func TestReadConfigErrors(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ReadConfig(writeFile(t, "config.yaml", "genotyper:\n  unknown_key: 1\n"))
	assert.Error(t, err)

	t.Setenv("GRAMKIT_FASTA_LINE_WIDTH", "wide")
	_, err = ReadConfig("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"encoding":    func(c *Config) { c.Prg.Encoding = "compact" },
		"ploidy":      func(c *Config) { c.Genotyper.Ploidy = "triploid" },
		"output mode": func(c *Config) { c.Genotyper.OutputMode = "cohort" },
		"error rate":  func(c *Config) { c.Genotyper.ErrorRate = 1.5 },
		"mean depth":  func(c *Config) { c.Genotyper.MeanDepth = -1 },
		"line width":  func(c *Config) { c.Fasta.LineWidth = -60 },
	}
	for name, breakConfig := range tests {
		t.Run(name, func(t *testing.T) {
			config, err := ReadConfig("")
			require.NoError(t, err)
			breakConfig(config)
			assert.ErrorIs(t, config.Validate(), ErrConfig)
		})
	}
}

func TestResolveDescription(t *testing.T) {
	assert.Equal(t, "personalised chr1 for NA12878", ResolveDescription("personalised $CHROM for $SAMPLE", "chr1", "NA12878", 10))
	assert.Equal(t, "LN:248956422", ResolveDescription("LN:$LENGTH ", "chr1", "s", 248956422))
}

func TestParseChoices(t *testing.T) {
	alleles, err := parseChoices("0, 2,1,")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, alleles)

	_, err = parseChoices("0,x")
	assert.ErrorIs(t, err, ErrConfig)
	_, err = parseChoices("-1")
	assert.ErrorIs(t, err, ErrConfig)
}
