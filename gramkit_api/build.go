package gramkit_api

import (
	"strings"

	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/nvnieuwk/gramkit/prg"
	"github.com/nvnieuwk/gramkit/vcf"
)

// Encode the variants of a VCF against a reference into a PRG
func Build(Cctx *cli.Context) error {
	config, err := commandConfig(Cctx)
	if err != nil {
		return err
	}
	mode, err := prg.ParseMode(config.Prg.Encoding)
	if err != nil {
		return err
	}

	ref, err := readReference(Cctx.String("ref"))
	if err != nil {
		return err
	}

	reader, err := vcf.Open(Cctx.String("vcf"))
	if err != nil {
		return err
	}
	defer reader.Close()

	result, err := prg.Encode(ref, reader, mode)
	if err != nil {
		return err
	}
	logStats(result.Stats)

	if err := writePrg(Cctx.String("output"), result.PRG); err != nil {
		return err
	}
	log.WithFields(log.Fields{"path": Cctx.String("output"), "encoding": mode, "length": len(result.PRG)}).Info("wrote PRG")

	if text := Cctx.String("text"); text != "" {
		if err := writePrgText(text, result.PRG); err != nil {
			return err
		}
		log.WithField("path", text).Info("wrote text PRG")
	}
	return nil
}

// Write the PRG in text form when the path ends in .txt or .txt.gz, binary otherwise
func writePrg(path string, encoded []uint32) error {
	if strings.HasSuffix(strings.TrimSuffix(path, ".gz"), ".txt") {
		return writePrgText(path, encoded)
	}
	output, err := createOutput(path, false)
	if err != nil {
		return err
	}
	if err := prg.WriteBinary(output, encoded); err != nil {
		output.Close()
		return err
	}
	return output.Close()
}

func writePrgText(path string, encoded []uint32) error {
	output, err := createOutput(path, false)
	if err != nil {
		return err
	}
	if _, err := output.Write([]byte(prg.FormatText(encoded) + "\n")); err != nil {
		output.Close()
		return err
	}
	return output.Close()
}

func logStats(stats prg.Stats) {
	log.WithFields(log.Fields{
		"sites":    stats.Sites,
		"filtered": stats.Filtered,
		"no_alt":   stats.NoAlt,
	}).Info("encoded variant sites")
	if stats.OutOfOrder > 0 {
		log.WithField("records", stats.OutOfOrder).Warn("dropped records that overlap an earlier site or revisit a finished contig")
	}
}
