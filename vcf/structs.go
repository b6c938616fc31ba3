package vcf

// The struct representing the header of a VCF file in a parseable format
type Header struct {
	// Object containing the INFO fields with their ID, Number, Type and Description
	// The ID is the key of the map
	Info map[string]HeaderLineIdNumberTypeDescription

	// Object containing the FORMAT fields with their ID, Number, Type and Description
	// The ID is the key of the map
	Format map[string]HeaderLineIdNumberTypeDescription

	// Object containing the ALT fields with their ID and Description
	Alt map[string]HeaderLineIdDescription

	// Object containing the FILTER fields with their ID and Description
	Filter map[string]HeaderLineIdDescription

	// List of all contigs in the VCF file with their ID and Length, in file order
	Contig []HeaderLineIdLength

	// List of all other meta lines, without the fileformat and fileDate lines
	Other []string

	// List of all samples in the VCF file
	Samples []string
}

// A struct representing a header line in the VCF file with its ID and Description
type HeaderLineIdDescription struct {
	// The ID of the header line
	Id string

	// The description of the header line
	Description string
}

// A struct representing a header line in the VCF file with its ID, Number, Type and Description
type HeaderLineIdNumberTypeDescription struct {
	// The ID of the header line
	Id string

	// The number of values in the header line
	// Can be any integer, "A", "G", "R" or "."
	Number string

	// The type of the header line
	// Can be "Integer", "Float", "Flag", "String" or "Character"
	Type string

	// The description of the header line
	Description string
}

// A struct representing a header line in the VCF file with its ID and Length
type HeaderLineIdLength struct {
	// The ID of the contig
	Id string

	// The length of the contig, 0 when unknown
	Length int64
}

// A struct representing a variant record
type Variant struct {
	// The chromosome of the variant
	Chromosome string

	// The 1-based position of the variant
	Pos int64

	// The ID of the variant
	Id string

	// The reference allele of the variant
	Ref string

	// The alternate alleles of the variant, empty when the ALT column is "."
	Alt []string

	// The Phred-scaled quality score of the variant
	Qual string

	// The filter status of the variant
	Filter string

	// The INFO values of the variant, a nil value marks a flag
	Info map[string][]string

	// The order in which the INFO keys appeared
	InfoOrder []string

	// The FORMAT keys in column order
	FormatKeys []string

	// The FORMAT values of the variant, keyed by sample name
	Format map[string]VariantFormat

	// A pointer to the header of the VCF that contains this variant
	Header *Header
}

// A struct representing the format of a variant for one sample
type VariantFormat struct {
	// The sample name
	Sample string

	// The content of the format field
	Content map[string][]string
}
