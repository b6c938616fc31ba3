package main

import (
	"os"
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/nvnieuwk/gramkit/gramkit_api"
)

func oneOf(valid ...string) func(*cli.Context, string) error {
	return func(c *cli.Context, input string) error {
		if slices.Contains(valid, input) {
			return nil
		}
		return cli.Exit("Invalid value '"+input+"', must be one of: "+strings.Join(valid, ", "), 1)
	}
}

func main() {
	configFlag := &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Configuration file (YAML), values can also be set with GRAMKIT_* environment variables",
		Category: "Optional",
	}
	refFlag := &cli.StringFlag{
		Name:     "ref",
		Aliases:  []string{"r"},
		Usage:    "The base reference FASTA file, optionally gzipped",
		Required: true,
		Category: "Required",
	}
	vcfFlag := &cli.StringFlag{
		Name:     "vcf",
		Aliases:  []string{"v"},
		Usage:    "The VCF file with the variants of the PRG, optionally bgzipped",
		Required: true,
		Category: "Required",
	}

	app := &cli.App{
		Name:            "gramkit",
		Usage:           "Build genome graphs from VCF files, genotype them and project calls back onto the reference",
		HideHelpCommand: true,
		Version:         "0.1.0dev",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:     "nodate",
				Aliases:  []string{"nd"},
				Usage:    "Don't add the current date to output VCF headers",
				Category: "Optional",
			},
			&cli.BoolFlag{
				Name:     "verbose",
				Usage:    "Log debug messages",
				Category: "Optional",
			},
		},
		Before: func(Cctx *cli.Context) error {
			log.SetOutput(os.Stderr)
			if Cctx.Bool("verbose") {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Encode the variants of a VCF against a reference into a PRG",
				Action: gramkit_api.Build,
				Flags: []cli.Flag{
					refFlag,
					vcfFlag,
					configFlag,
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "The location of the PRG, binary unless the path ends in .txt or .txt.gz, defaults to stdout",
						Category: "Optional",
					},
					&cli.StringFlag{
						Name:     "text",
						Aliases:  []string{"t"},
						Usage:    "Also write the PRG in text form to this location",
						Category: "Optional",
					},
					&cli.BoolFlag{
						Name:     "legacy",
						Usage:    "Close every site with its site marker instead of its allele separator",
						Category: "Optional",
					},
				},
			},
			{
				Name:   "infer",
				Usage:  "Genotype the sites of a PRG and write the personalised VCF and reference",
				Action: gramkit_api.Infer,
				Flags: []cli.Flag{
					refFlag,
					&cli.StringFlag{
						Name:     "vcf",
						Aliases:  []string{"v"},
						Usage:    "The VCF file the PRG was built from, optionally bgzipped",
						Required: true,
						Category: "Required",
					},
					&cli.StringFlag{
						Name:     "coverage",
						Usage:    "The coverage JSON of the PRG sites, optionally gzipped",
						Required: true,
						Category: "Required",
					},
					&cli.StringFlag{
						Name:     "output-vcf",
						Usage:    "The location of the genotyped VCF, bgzipped when it ends in .gz",
						Required: true,
						Category: "Required",
					},
					&cli.StringFlag{
						Name:     "output-fasta",
						Usage:    "The location of the personalised reference, gzipped when it ends in .gz",
						Required: true,
						Category: "Required",
					},
					configFlag,
					&cli.StringFlag{
						Name:     "output-map",
						Usage:    "Also write the region map between the personalised and base reference",
						Category: "Optional",
					},
					&cli.StringFlag{
						Name:     "sample",
						Aliases:  []string{"s"},
						Usage:    "The sample name of the genotyped VCF",
						Category: "Optional",
					},
					&cli.StringFlag{
						Name:     "ploidy",
						Usage:    "The ploidy of the sample. Must be one of: haploid, diploid",
						Category: "Optional",
						Action:   oneOf("haploid", "diploid"),
					},
					&cli.StringFlag{
						Name:     "output-mode",
						Usage:    "Which ALT alleles to keep. Must be one of: single, population",
						Category: "Optional",
						Action:   oneOf("single", "population"),
					},
					&cli.Float64Flag{
						Name:     "error-rate",
						Usage:    "The per-base sequencing error rate",
						Category: "Optional",
					},
					&cli.Float64Flag{
						Name:     "mean-depth",
						Usage:    "The expected read depth, estimated from the coverage when not given",
						Category: "Optional",
					},
					&cli.IntFlag{
						Name:     "line-width",
						Usage:    "The line width of the personalised reference",
						Category: "Optional",
					},
				},
			},
			{
				Name:   "personalise",
				Usage:  "Write the sequence of a PRG that takes the chosen allele of every site",
				Action: gramkit_api.Personalise,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "prg",
						Aliases:  []string{"p"},
						Usage:    "The PRG in binary or text form",
						Required: true,
						Category: "Required",
					},
					&cli.StringFlag{
						Name:     "choices",
						Usage:    "Comma separated allele index per site, unlisted sites take the reference allele",
						Category: "Optional",
					},
					&cli.StringFlag{
						Name:     "vcf",
						Aliases:  []string{"v"},
						Usage:    "Take the choices from the GT of this genotyped VCF, needs --ref",
						Category: "Optional",
					},
					&cli.StringFlag{
						Name:     "ref",
						Aliases:  []string{"r"},
						Usage:    "The reference the PRG was built from",
						Category: "Optional",
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "The location of the FASTA output, defaults to stdout",
						Category: "Optional",
					},
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "The name of the FASTA record",
						Value:    "personalised",
						Category: "Optional",
					},
					configFlag,
					&cli.IntFlag{
						Name:     "line-width",
						Usage:    "The line width of the FASTA output",
						Category: "Optional",
					},
				},
			},
			{
				Name:   "rebase",
				Usage:  "Move variants called against a personalised reference onto the base reference",
				Action: gramkit_api.Rebase,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "The VCF with variants on the personalised reference",
						Required: true,
						Category: "Required",
					},
					&cli.StringFlag{
						Name:     "map",
						Aliases:  []string{"m"},
						Usage:    "The region map written by infer, with sequences",
						Category: "Optional",
					},
					&cli.StringFlag{
						Name:     "pers-vcf",
						Usage:    "The genotyped VCF the personalised reference was made from, used instead of --map",
						Category: "Optional",
					},
					&cli.StringFlag{
						Name:     "ref",
						Aliases:  []string{"r"},
						Usage:    "The base reference, used with --pers-vcf",
						Category: "Optional",
					},
					&cli.StringFlag{
						Name:     "pers-fasta",
						Usage:    "The personalised reference, records whose REF does not match it are skipped. Records must follow its contig order",
						Category: "Optional",
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "The location of the rebased VCF, defaults to stdout",
						Category: "Optional",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
