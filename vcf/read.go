package vcf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/biogo/hts/bgzf"
)

// ErrMalformed is returned for lines that cannot be parsed as VCF.
var ErrMalformed = errors.New("malformed VCF")

// Source yields variant records one at a time and returns io.EOF when exhausted.
type Source interface {
	Read() (*Variant, error)
}

// Reader streams records from a plain or BGZF compressed VCF.
type Reader struct {
	Header *Header

	r       *bufio.Reader
	closers []io.Closer
	pending string
	line    int
}

// Open opens the VCF file at path, BGZF decompressing it when the name ends in .gz
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var input io.Reader = file
	closers := []io.Closer{file}
	if strings.HasSuffix(path, ".gz") {
		bgReader, err := bgzf.NewReader(file, 1)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		input = bgReader
		closers = append([]io.Closer{bgReader}, closers...)
	}

	reader, err := NewReader(input)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	reader.closers = closers
	return reader, nil
}

// NewReader reads the header from r and returns a Reader positioned on the first record.
func NewReader(r io.Reader) (*Reader, error) {
	const maxCapacity = 8 * 1000000 // 8 MB
	reader := &Reader{
		Header: NewHeader(),
		r:      bufio.NewReaderSize(r, maxCapacity),
	}

	for {
		line, err := reader.readLine()
		if err == io.EOF {
			return reader, nil
		}
		if err != nil {
			return nil, err
		}
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			reader.pending = line
			return reader, nil
		}
		if err := reader.Header.parse(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", reader.line, err)
		}
	}
}

// Read returns the next record, or io.EOF at the end of the input.
func (reader *Reader) Read() (*Variant, error) {
	for {
		line := reader.pending
		reader.pending = ""
		if line == "" {
			var err error
			line, err = reader.readLine()
			if err != nil {
				return nil, err
			}
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		variant, err := ParseVariant(line, reader.Header)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", reader.line, err)
		}
		return variant, nil
	}
}

// Close closes the underlying file when the Reader was created by Open.
func (reader *Reader) Close() error {
	var first error
	for _, c := range reader.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// readLine reads one line without its line terminator
func (reader *Reader) readLine() (string, error) {
	b, err := reader.r.ReadString('\n')
	if err == io.EOF && b == "" {
		return "", io.EOF
	}
	if err != nil && err != io.EOF {
		return "", err
	}
	reader.line++
	return strings.TrimRight(b, "\r\n"), nil
}

// ReadAll drains a source into a slice.
func ReadAll(src Source) ([]*Variant, error) {
	variants := []*Variant{}
	for {
		variant, err := src.Read()
		if err == io.EOF {
			return variants, nil
		}
		if err != nil {
			return nil, err
		}
		variants = append(variants, variant)
	}
}

type sliceSource struct {
	variants []*Variant
	next     int
}

// FromSlice returns a Source over an in-memory list of records.
func FromSlice(variants []*Variant) Source {
	return &sliceSource{variants: variants}
}

func (s *sliceSource) Read() (*Variant, error) {
	if s.next >= len(s.variants) {
		return nil, io.EOF
	}
	s.next++
	return s.variants[s.next-1], nil
}

// ParseVariant parses one tab separated record line.
func ParseVariant(line string, header *Header) (*Variant, error) {
	data := strings.Split(line, "\t")
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: expected at least 8 columns, got %d", ErrMalformed, len(data))
	}

	variant := NewVariant()
	variant.Header = header
	variant.Chromosome = data[0]

	pos, err := strconv.ParseInt(data[1], 10, 64)
	if err != nil || pos < 1 {
		return nil, fmt.Errorf("%w: invalid position '%s'", ErrMalformed, data[1])
	}
	variant.Pos = pos
	variant.Id = data[2]
	variant.Ref = data[3]
	if data[4] != "." && data[4] != "" {
		variant.Alt = strings.Split(data[4], ",")
	}
	variant.Qual = data[5]
	variant.Filter = data[6]

	if data[7] != "." && data[7] != "" {
		for _, i := range strings.Split(data[7], ";") {
			split := strings.SplitN(i, "=", 2)
			field := split[0]
			variant.InfoOrder = append(variant.InfoOrder, field)
			if len(split) == 1 {
				variant.Info[field] = nil
				continue
			}
			variant.Info[field] = strings.Split(split[1], ",")
		}
	}

	if len(data) < 9 {
		return variant, nil
	}
	variant.FormatKeys = strings.Split(data[8], ":")
	formatValues := data[9:]
	for index, value := range formatValues {
		sample := fmt.Sprintf("sample%d", index+1)
		if header != nil && index < len(header.Samples) {
			sample = header.Samples[index]
		}
		format := VariantFormat{
			Sample:  sample,
			Content: map[string][]string{},
		}
		for idx, val := range strings.Split(value, ":") {
			if idx >= len(variant.FormatKeys) {
				return nil, fmt.Errorf("%w: sample %s has more values than FORMAT keys", ErrMalformed, sample)
			}
			format.Content[variant.FormatKeys[idx]] = strings.Split(val, ",")
		}
		variant.Format[sample] = format
	}

	return variant, nil
}

var headerLineRegex = regexp.MustCompile(`^##(?P<headerType>[^=]*)=<(?P<content>.*)>$`)

// Parse the header line and add it to the Header struct
func (header *Header) parse(line string) error {
	if strings.HasPrefix(line, "#CHROM") {
		columns := strings.Split(line, "\t")
		if len(columns) > 9 {
			header.Samples = columns[9:]
		}
		return nil
	}

	if strings.HasPrefix(line, "##fileformat=") || strings.HasPrefix(line, "##fileDate=") {
		return nil
	}

	matches := headerLineRegex.FindStringSubmatch(line)
	if len(matches) == 0 {
		header.Other = append(header.Other, line)
		return nil
	}

	headerType := matches[1]
	content := matches[2]
	contentMap := convertLineToMap(content)

	switch headerType {
	case "INFO":
		header.Info[contentMap["id"]] = HeaderLineIdNumberTypeDescription{
			Id:          contentMap["id"],
			Number:      contentMap["number"],
			Type:        contentMap["type"],
			Description: contentMap["description"],
		}
	case "FORMAT":
		header.Format[contentMap["id"]] = HeaderLineIdNumberTypeDescription{
			Id:          contentMap["id"],
			Number:      contentMap["number"],
			Type:        contentMap["type"],
			Description: contentMap["description"],
		}
	case "ALT":
		header.Alt[contentMap["id"]] = HeaderLineIdDescription{
			Id:          contentMap["id"],
			Description: contentMap["description"],
		}
	case "FILTER":
		header.Filter[contentMap["id"]] = HeaderLineIdDescription{
			Id:          contentMap["id"],
			Description: contentMap["description"],
		}
	case "contig":
		var length int64
		if raw, ok := contentMap["length"]; ok {
			var err error
			length, err = strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: could not convert contig length to an integer: %v", ErrMalformed, err)
			}
		}
		header.Contig = append(header.Contig, HeaderLineIdLength{
			Id:     contentMap["id"],
			Length: length,
		})
	default:
		header.Other = append(header.Other, line)
	}
	return nil
}

// convertLineToMap converts the header line contents to a map suitable to transform to a struct
func convertLineToMap(line string) map[string]string {
	data := map[string]string{}
	word := ""
	key := ""
	quote := ""
	for _, letter := range strings.Split(line, "") {
		if letter == "=" && quote == "" && key == "" {
			key = strings.ToLower(word)
			word = ""
			continue
		} else if letter == "," && quote == "" {
			data[key] = word
			key = ""
			word = ""
			continue
		}

		word += letter

		if letter == quote {
			quote = ""
		} else if quote == "" && (letter == "\"" || letter == "'") {
			quote = letter
		}
	}
	data[key] = word

	return data
}

// NewHeader creates an empty header
func NewHeader() *Header {
	return &Header{
		Info:    map[string]HeaderLineIdNumberTypeDescription{},
		Format:  map[string]HeaderLineIdNumberTypeDescription{},
		Alt:     map[string]HeaderLineIdDescription{},
		Filter:  map[string]HeaderLineIdDescription{},
		Contig:  []HeaderLineIdLength{},
		Other:   []string{},
		Samples: []string{},
	}
}

// NewVariant initializes an empty Variant
func NewVariant() *Variant {
	return &Variant{
		Info:   map[string][]string{},
		Format: map[string]VariantFormat{},
	}
}
