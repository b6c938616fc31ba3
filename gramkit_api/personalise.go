package gramkit_api

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/nvnieuwk/gramkit/fasta"
	"github.com/nvnieuwk/gramkit/prg"
	"github.com/nvnieuwk/gramkit/regions"
	"github.com/nvnieuwk/gramkit/vcf"
)

// Walk a PRG and write the sequence made of the chosen allele of every site
func Personalise(Cctx *cli.Context) error {
	config, err := commandConfig(Cctx)
	if err != nil {
		return err
	}

	input, err := openInput(Cctx.String("prg"))
	if err != nil {
		return err
	}
	encoded, err := prg.Read(input)
	input.Close()
	if err != nil {
		return err
	}

	// nil walks the reference allele of every site
	var alleles []int
	switch {
	case Cctx.IsSet("choices"):
		alleles, err = parseChoices(Cctx.String("choices"))
		if err != nil {
			return err
		}
	case Cctx.IsSet("vcf"):
		if !Cctx.IsSet("ref") {
			return cli.Exit("--vcf needs the --ref the PRG was built from", 1)
		}
		alleles, err = choicesFromVcf(Cctx.String("vcf"), Cctx.String("ref"))
		if err != nil {
			return err
		}
	}

	name := Cctx.String("name")
	var length int64
	if strings.Contains(config.Fasta.Description, "$LENGTH") {
		length, err = prg.Personalise(encoded, prg.Choices(alleles...), io.Discard)
		if err != nil {
			return err
		}
	}

	output, err := createOutput(Cctx.String("output"), false)
	if err != nil {
		return err
	}
	writer := fasta.NewWriter(output, config.Fasta.LineWidth)
	if err := writer.WriteHeader(name, ResolveDescription(config.Fasta.Description, name, config.Sample, length)); err != nil {
		output.Close()
		return err
	}
	written, err := prg.Personalise(encoded, prg.Choices(alleles...), writer)
	if err != nil {
		output.Close()
		return err
	}
	if err := writer.Flush(); err != nil {
		output.Close()
		return err
	}
	log.WithFields(log.Fields{"path": Cctx.String("output"), "length": written}).Info("wrote personalised sequence")
	return output.Close()
}

// Parse a comma separated list of allele indices
func parseChoices(input string) ([]int, error) {
	alleles := []int{}
	for _, field := range strings.Split(input, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		allele, err := strconv.Atoi(field)
		if err != nil || allele < 0 {
			return nil, fmt.Errorf("%w: invalid allele choice '%s'", ErrConfig, field)
		}
		alleles = append(alleles, allele)
	}
	return alleles, nil
}

// The called allele of every record of a genotyped VCF that became a site of
// the PRG built from ref
func choicesFromVcf(path string, refPath string) ([]int, error) {
	ref, err := readReference(refPath)
	if err != nil {
		return nil, err
	}
	reader, err := vcf.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	filter := prg.NewSiteFilter(ref)
	alleles := []int{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		keep, err := filter.Accept(record)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}
		allele, err := regions.PickedAllele(record)
		if err != nil {
			return nil, err
		}
		alleles = append(alleles, allele)
	}
	log.WithFields(log.Fields{"path": path, "sites": len(alleles)}).Info("read allele choices")
	return alleles, nil
}
