package gramkit_api

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/nvnieuwk/gramkit/coverage"
	"github.com/nvnieuwk/gramkit/fasta"
	"github.com/nvnieuwk/gramkit/genotype"
	"github.com/nvnieuwk/gramkit/prg"
	"github.com/nvnieuwk/gramkit/regions"
	"github.com/nvnieuwk/gramkit/vcf"
)

// Genotype every site of a PRG from its coverage, then write the calls, the
// personalised reference and optionally its region map
func Infer(Cctx *cli.Context) error {
	config, err := commandConfig(Cctx)
	if err != nil {
		return err
	}
	ploidy, err := genotype.ParsePloidy(config.Genotyper.Ploidy)
	if err != nil {
		return err
	}
	mode, err := genotype.ParseOutputMode(config.Genotyper.OutputMode)
	if err != nil {
		return err
	}

	var (
		ref     *fasta.Reference
		cov     *coverage.Coverage
		records []*vcf.Variant
		header  *vcf.Header
	)
	var group errgroup.Group
	group.Go(func() error {
		var err error
		ref, err = readReference(Cctx.String("ref"))
		return err
	})
	group.Go(func() error {
		var err error
		cov, err = readCoverage(Cctx.String("coverage"))
		return err
	})
	group.Go(func() error {
		reader, err := vcf.Open(Cctx.String("vcf"))
		if err != nil {
			return err
		}
		defer reader.Close()
		header = reader.Header
		records, err = vcf.ReadAll(reader)
		return err
	})
	if err := group.Wait(); err != nil {
		return err
	}

	sites, err := pairSites(ref, records)
	if err != nil {
		return err
	}
	if len(sites) != cov.NumSites() {
		return fmt.Errorf("%w: %d variant sites in the PRG but %d sites of coverage", coverage.ErrMalformed, len(sites), cov.NumSites())
	}

	// without a depth every site is written as a no-call
	var genotyper *genotype.Genotyper
	depth := config.Genotyper.MeanDepth
	if depth == 0 {
		depth = cov.MeanDepth()
		log.WithField("mean_depth", depth).Info("estimated mean depth from coverage")
	}
	if depth > 0 {
		genotyper, err = genotype.New(genotype.Params{MeanDepth: depth, ErrorRate: config.Genotyper.ErrorRate, Ploidy: ploidy})
		if err != nil {
			return err
		}
	} else {
		log.Warn("no per-base coverage to estimate the mean depth from, writing every site as a no-call")
	}

	outHeader := personalisedHeader(header, ref, config.Sample)
	calls := make([]*vcf.Variant, 0, len(sites))
	noCalls := 0
	for i, record := range sites {
		site, err := cov.Site(i)
		if err != nil {
			return err
		}
		var call *genotype.Call
		if genotyper != nil {
			call, err = genotyper.Call(site)
		} else {
			call, err = genotype.Uncalled(site)
		}
		if err != nil {
			return fmt.Errorf("site %d at %s:%d: %w", i, record.Chromosome, record.Pos, err)
		}
		if call.NoCall() {
			noCalls++
			log.WithFields(log.Fields{"chrom": record.Chromosome, "pos": record.Pos, "depth": site.Total()}).Debug("no call on site")
		}
		projected, err := genotype.Project(record, call, mode, config.Sample, ploidy)
		if err != nil {
			return err
		}
		projected.Header = outHeader
		calls = append(calls, projected)
	}
	log.WithFields(log.Fields{"sites": len(calls), "no_calls": noCalls, "mode": mode, "ploidy": ploidy}).Info("genotyped sites")

	if err := writeCalls(Cctx.String("output-vcf"), outHeader, calls, Cctx.Bool("nodate")); err != nil {
		return err
	}

	m, err := regions.Build(vcf.FromSlice(calls), ref.Sizes())
	if err != nil {
		return err
	}
	if err := writePersonalised(Cctx.String("output-fasta"), ref, m, config); err != nil {
		return err
	}
	if path := Cctx.String("output-map"); path != "" {
		if err := writeMap(path, m); err != nil {
			return err
		}
	}
	return nil
}

// Keep the records that became variant sites of the PRG, in marker order
func pairSites(ref *fasta.Reference, records []*vcf.Variant) ([]*vcf.Variant, error) {
	filter := prg.NewSiteFilter(ref)
	sites := []*vcf.Variant{}
	for _, record := range records {
		keep, err := filter.Accept(record)
		if err != nil {
			return nil, err
		}
		if keep {
			sites = append(sites, record)
		}
	}
	logStats(filter.Stats())
	return sites, nil
}

func readCoverage(path string) (*coverage.Coverage, error) {
	input, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer input.Close()

	cov, err := coverage.Load(input)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"path": path, "sites": cov.NumSites()}).Info("read coverage")
	return cov, nil
}

// The header of the personalised VCF: the input INFO, FILTER and ALT lines,
// contigs of the base reference and a single sample
func personalisedHeader(input *vcf.Header, ref *fasta.Reference, sample string) *vcf.Header {
	header := vcf.NewHeader()
	header.Info = input.Info
	header.Filter = input.Filter
	header.Alt = input.Alt
	header.Other = append(header.Other, "##source=gramkit")
	for _, size := range ref.Sizes() {
		header.Contig = append(header.Contig, vcf.HeaderLineIdLength{Id: size.Name, Length: size.Length})
	}
	header.Samples = []string{sample}
	genotype.AddHeaderLines(header)
	return header
}

func writeCalls(path string, header *vcf.Header, calls []*vcf.Variant, noDate bool) error {
	output, err := createOutput(path, true)
	if err != nil {
		return err
	}
	writer := vcf.NewWriter(output, header)
	writer.NoDate = noDate
	for _, call := range calls {
		if err := writer.Write(call); err != nil {
			output.Close()
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		output.Close()
		return err
	}
	log.WithFields(log.Fields{"path": path, "records": len(calls)}).Info("wrote personalised VCF")
	return output.Close()
}

// Write one personalised record per base contig
func writePersonalised(path string, ref *fasta.Reference, m *regions.Map, config *Config) error {
	output, err := createOutput(path, false)
	if err != nil {
		return err
	}
	writer := fasta.NewWriter(output, config.Fasta.LineWidth)
	for _, contig := range ref.Contigs() {
		description := ResolveDescription(config.Fasta.Description, contig.Name, config.Sample, m.PersLength(contig.Name))
		if err := writer.WriteHeader(contig.Name, description); err != nil {
			output.Close()
			return err
		}
		if err := m.Materialise(contig.Name, contig.Seq, writer); err != nil {
			output.Close()
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		output.Close()
		return err
	}
	log.WithFields(log.Fields{"path": path, "contigs": len(ref.Contigs())}).Info("wrote personalised reference")
	return output.Close()
}

func writeMap(path string, m *regions.Map) error {
	output, err := createOutput(path, false)
	if err != nil {
		return err
	}
	if err := m.Dump(output, true); err != nil {
		output.Close()
		return err
	}
	log.WithField("path", path).Info("wrote region map")
	return output.Close()
}
