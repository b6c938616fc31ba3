package gramkit_api

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	cli "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"

	"github.com/nvnieuwk/gramkit/fasta"
	"github.com/nvnieuwk/gramkit/genotype"
	"github.com/nvnieuwk/gramkit/prg"
)

// ErrConfig reports an invalid configuration value.
var ErrConfig = errors.New("invalid configuration")

// The prefix of every environment variable overriding the configuration,
// e.g. GRAMKIT_GENOTYPER_ERROR_RATE
const envPrefix = "GRAMKIT"

type Config struct {
	Prg       PrgConfig       `yaml:"prg"`
	Genotyper GenotyperConfig `yaml:"genotyper"`
	Fasta     FastaConfig     `yaml:"fasta"`
	Sample    string          `yaml:"sample"`
}

type PrgConfig struct {
	// normal or legacy
	Encoding string `yaml:"encoding"`
}

type GenotyperConfig struct {
	// haploid or diploid
	Ploidy    string  `yaml:"ploidy"`
	ErrorRate float64 `yaml:"error_rate" split_words:"true"`
	// 0 estimates the depth from the coverage
	MeanDepth float64 `yaml:"mean_depth" split_words:"true"`
	// single or population
	OutputMode string `yaml:"output_mode" split_words:"true"`
}

type FastaConfig struct {
	LineWidth int `yaml:"line_width" split_words:"true"`
	// Template for the description of personalised records, see ResolveDescription
	Description string `yaml:"description"`
}

// Read the configuration file if there is one, overlay the environment and
// fill in the defaults
func ReadConfig(path string) (*Config, error) {
	var config Config

	if path != "" {
		configFile, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open the config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(configFile, &config); err != nil {
			return nil, fmt.Errorf("failed to parse the config file: %w", err)
		}
	}

	if err := envconfig.Process(envPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to read the environment: %w", err)
	}

	config.defineMissing()
	return &config, nil
}

// Define all missing fields
func (config *Config) defineMissing() {
	if config.Prg.Encoding == "" {
		config.Prg.Encoding = prg.Normal.String()
	}
	if config.Genotyper.Ploidy == "" {
		config.Genotyper.Ploidy = genotype.Diploid.String()
	}
	if config.Genotyper.ErrorRate == 0 {
		config.Genotyper.ErrorRate = 0.01
	}
	if config.Genotyper.OutputMode == "" {
		config.Genotyper.OutputMode = genotype.Single.String()
	}
	if config.Fasta.LineWidth == 0 {
		config.Fasta.LineWidth = fasta.DefaultLineWidth
	}
	if config.Fasta.Description == "" {
		config.Fasta.Description = "personalised $CHROM for $SAMPLE"
	}
	if config.Sample == "" {
		config.Sample = "sample"
	}
}

// Override the configuration with the flags set on the command line
func (config *Config) applyFlags(Cctx *cli.Context) {
	if Cctx.IsSet("sample") {
		config.Sample = Cctx.String("sample")
	}
	if Cctx.IsSet("ploidy") {
		config.Genotyper.Ploidy = Cctx.String("ploidy")
	}
	if Cctx.IsSet("error-rate") {
		config.Genotyper.ErrorRate = Cctx.Float64("error-rate")
	}
	if Cctx.IsSet("mean-depth") {
		config.Genotyper.MeanDepth = Cctx.Float64("mean-depth")
	}
	if Cctx.IsSet("output-mode") {
		config.Genotyper.OutputMode = Cctx.String("output-mode")
	}
	if Cctx.IsSet("line-width") {
		config.Fasta.LineWidth = Cctx.Int("line-width")
	}
	if Cctx.Bool("legacy") {
		config.Prg.Encoding = prg.Legacy.String()
	}
}

// Validate checks every value that has a restricted range
func (config *Config) Validate() error {
	if _, err := prg.ParseMode(config.Prg.Encoding); err != nil {
		return fmt.Errorf("%w: prg.encoding: %v", ErrConfig, err)
	}
	if _, err := genotype.ParsePloidy(config.Genotyper.Ploidy); err != nil {
		return fmt.Errorf("%w: genotyper.ploidy: %v", ErrConfig, err)
	}
	if _, err := genotype.ParseOutputMode(config.Genotyper.OutputMode); err != nil {
		return fmt.Errorf("%w: genotyper.output_mode: %v", ErrConfig, err)
	}
	if !(config.Genotyper.ErrorRate > 0 && config.Genotyper.ErrorRate < 1) {
		return fmt.Errorf("%w: genotyper.error_rate must lie in (0, 1), got %v", ErrConfig, config.Genotyper.ErrorRate)
	}
	if config.Genotyper.MeanDepth < 0 {
		return fmt.Errorf("%w: genotyper.mean_depth must not be negative, got %v", ErrConfig, config.Genotyper.MeanDepth)
	}
	if config.Fasta.LineWidth <= 0 {
		return fmt.Errorf("%w: fasta.line_width must be positive, got %d", ErrConfig, config.Fasta.LineWidth)
	}
	return nil
}

// Load the configuration of a command: file, environment, defaults and flags
func commandConfig(Cctx *cli.Context) (*Config, error) {
	config, err := ReadConfig(Cctx.String("config"))
	if err != nil {
		return nil, err
	}
	config.applyFlags(Cctx)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
