package vcf

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Writer writes a header followed by records.
type Writer struct {
	w      *bufio.Writer
	header *Header
	NoDate bool
	wrote  bool
}

// NewWriter returns a Writer emitting header before the first record.
func NewWriter(w io.Writer, header *Header) *Writer {
	return &Writer{w: bufio.NewWriter(w), header: header}
}

var descriptionRegex = regexp.MustCompile(`["']?([^"']*)["']?`)

// WriteHeader writes the header lines. It is called implicitly by the first Write.
func (writer *Writer) WriteHeader() error {
	if writer.wrote {
		return nil
	}
	writer.wrote = true
	header := writer.header

	// VCF version
	writer.writeLine("##fileformat=VCFv4.2")

	// Date of file creation
	if !writer.NoDate {
		cT := time.Now()
		writer.writeLine(fmt.Sprintf("##fileDate=%d%02d%02d", cT.Year(), cT.Month(), cT.Day()))
	}

	for _, line := range header.Other {
		writer.writeLine(line)
	}

	for _, id := range sortedKeys(header.Alt) {
		alt := header.Alt[id]
		writer.writeLine(fmt.Sprintf("##ALT=<ID=%s,Description=\"%s\">", alt.Id, cleanDescription(alt.Description)))
	}

	for _, id := range sortedKeys(header.Filter) {
		filter := header.Filter[id]
		writer.writeLine(fmt.Sprintf("##FILTER=<ID=%s,Description=\"%s\">", filter.Id, cleanDescription(filter.Description)))
	}

	for _, id := range sortedKeys(header.Info) {
		info := header.Info[id]
		writer.writeLine(fmt.Sprintf("##INFO=<ID=%s,Number=%s,Type=%s,Description=\"%s\">", info.Id, info.Number, normalizeType(info.Type), cleanDescription(info.Description)))
	}

	for _, id := range sortedKeys(header.Format) {
		format := header.Format[id]
		writer.writeLine(fmt.Sprintf("##FORMAT=<ID=%s,Number=%s,Type=%s,Description=\"%s\">", format.Id, format.Number, normalizeType(format.Type), cleanDescription(format.Description)))
	}

	for _, contig := range header.Contig {
		if contig.Length > 0 {
			writer.writeLine(fmt.Sprintf("##contig=<ID=%s,length=%d>", contig.Id, contig.Length))
			continue
		}
		writer.writeLine(fmt.Sprintf("##contig=<ID=%s>", contig.Id))
	}

	// Write the column headers
	columnHeaders := []string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}
	if len(header.Samples) > 0 {
		columnHeaders = append(columnHeaders, "FORMAT")
		columnHeaders = append(columnHeaders, header.Samples...)
	}
	return writer.writeLine(strings.Join(columnHeaders, "\t"))
}

// Write writes one record
func (writer *Writer) Write(variant *Variant) error {
	if err := writer.WriteHeader(); err != nil {
		return err
	}
	return writer.writeLine(variant.String())
}

// Flush flushes buffered output, writing the header if no record was written.
func (writer *Writer) Flush() error {
	if err := writer.WriteHeader(); err != nil {
		return err
	}
	return writer.w.Flush()
}

func (writer *Writer) writeLine(line string) error {
	_, err := writer.w.WriteString(line + "\n")
	return err
}

// Convert a variant to a record line
func (v *Variant) String() string {
	alt := "."
	if len(v.Alt) > 0 {
		alt = strings.Join(v.Alt, ",")
	}

	infoSlice := []string{}
	for _, key := range v.InfoOrder {
		value, ok := v.Info[key]
		if !ok {
			continue
		}
		if value == nil {
			infoSlice = append(infoSlice, key)
			continue
		}
		infoSlice = append(infoSlice, fmt.Sprintf("%s=%s", key, strings.Join(value, ",")))
	}
	info := "."
	if len(infoSlice) > 0 {
		info = strings.Join(infoSlice, ";")
	}

	columns := []string{
		v.Chromosome,
		strconv.FormatInt(v.Pos, 10),
		orMissing(v.Id),
		v.Ref,
		alt,
		orMissing(v.Qual),
		orMissing(v.Filter),
		info,
	}

	if len(v.FormatKeys) > 0 {
		columns = append(columns, strings.Join(v.FormatKeys, ":"))
		for _, sample := range v.samples() {
			sampleArray := []string{}
			for _, key := range v.FormatKeys {
				value, ok := v.Format[sample].Content[key]
				if !ok {
					sampleArray = append(sampleArray, ".")
					continue
				}
				sampleArray = append(sampleArray, strings.Join(value, ","))
			}
			columns = append(columns, strings.Join(sampleArray, ":"))
		}
	}

	return strings.Join(columns, "\t")
}

// samples returns the sample columns in header order, falling back to sorted names
func (v *Variant) samples() []string {
	if v.Header != nil && len(v.Header.Samples) > 0 {
		return v.Header.Samples
	}
	return sortedKeys(v.Format)
}

// FloatToString renders a float without trailing zeros
func FloatToString(input float64) string {
	return strconv.FormatFloat(input, 'f', -1, 64)
}

func orMissing(value string) string {
	if value == "" {
		return "."
	}
	return value
}

func cleanDescription(description string) string {
	return descriptionRegex.FindStringSubmatch(description)[1]
}

func normalizeType(t string) string {
	return cases.Title(language.English, cases.Compact).String(strings.ToLower(t))
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
