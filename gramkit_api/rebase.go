package gramkit_api

import (
	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/nvnieuwk/gramkit/fasta"
	"github.com/nvnieuwk/gramkit/rebase"
	"github.com/nvnieuwk/gramkit/regions"
	"github.com/nvnieuwk/gramkit/vcf"
)

// Move variants called against a personalised reference onto the base reference
func Rebase(Cctx *cli.Context) error {
	if !Cctx.IsSet("map") && !(Cctx.IsSet("pers-vcf") && Cctx.IsSet("ref")) {
		return cli.Exit("either --map or both --pers-vcf and --ref are required", 1)
	}

	var (
		m   *regions.Map
		ref *fasta.Reference
		err error
	)
	if Cctx.IsSet("map") {
		m, err = readMap(Cctx.String("map"))
		if err != nil {
			return err
		}
	} else {
		ref, err = readReference(Cctx.String("ref"))
		if err != nil {
			return err
		}
		m, err = mapFromVcf(Cctx.String("pers-vcf"), ref)
		if err != nil {
			return err
		}
	}

	// the personalised reference is streamed one contig at a time
	var personalised rebase.Sequences
	if path := Cctx.String("pers-fasta"); path != "" {
		input, err := openInput(path)
		if err != nil {
			return err
		}
		defer input.Close()
		personalised = fasta.NewStream(input)
	}

	reader, err := vcf.Open(Cctx.String("input"))
	if err != nil {
		return err
	}
	defer reader.Close()

	header := reader.Header
	if ref != nil {
		header.Contig = header.Contig[:0]
		for _, size := range ref.Sizes() {
			header.Contig = append(header.Contig, vcf.HeaderLineIdLength{Id: size.Name, Length: size.Length})
		}
	}

	output, err := createOutput(Cctx.String("output"), true)
	if err != nil {
		return err
	}
	writer := vcf.NewWriter(output, header)
	writer.NoDate = Cctx.Bool("nodate")

	rebased := 0
	skipped, err := rebase.New(m, personalised).Run(reader, func(variant *vcf.Variant) error {
		rebased++
		return writer.Write(variant)
	})
	if err == nil {
		err = writer.Flush()
	}
	if err != nil {
		output.Close()
		return err
	}

	for _, skip := range skipped {
		log.WithFields(log.Fields{
			"chrom": skip.Variant.Chromosome,
			"pos":   skip.Variant.Pos,
			"ref":   skip.Variant.Ref,
		}).Warn(skip.Reason)
	}
	if len(skipped) > 0 {
		log.WithField("records", len(skipped)).Warn("skipped records whose REF does not match the personalised reference")
	}
	log.WithFields(log.Fields{"path": Cctx.String("output"), "records": rebased}).Info("wrote rebased VCF")
	return output.Close()
}

func readMap(path string) (*regions.Map, error) {
	input, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer input.Close()

	m, err := regions.Load(input)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"path": path, "contigs": len(m.Contigs())}).Info("read region map")
	return m, nil
}

// Build the region map from the genotyped VCF the personalised reference was made from
func mapFromVcf(path string, ref *fasta.Reference) (*regions.Map, error) {
	reader, err := vcf.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	m, err := regions.Build(reader, ref.Sizes())
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"path": path, "contigs": len(m.Contigs())}).Info("built region map")
	return m, nil
}
