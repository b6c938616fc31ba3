package gramkit_api

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bgzf"
	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"

	"github.com/nvnieuwk/gramkit/fasta"
)

func isStd(path string) bool {
	return path == "" || path == "-"
}

// stack closes a chain of readers or writers from the outermost inwards
type stack []io.Closer

func (s stack) Close() error {
	var first error
	for _, closer := range s {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type readCloser struct {
	io.Reader
	stack
}

type writeCloser struct {
	io.Writer
	stack
}

// Open a plain or gzip compressed input, stdin for "" and "-"
func openInput(path string) (io.ReadCloser, error) {
	if isStd(path) {
		return io.NopCloser(bufio.NewReader(os.Stdin)), nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return file, nil
	}
	gz, err := pgzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return readCloser{Reader: gz, stack: stack{gz, file}}, nil
}

// Create an output, stdout for "" and "-". Paths ending in .gz are compressed,
// with BGZF when blocked is set so the output can be indexed.
func createOutput(path string, blocked bool) (io.WriteCloser, error) {
	if isStd(path) {
		return writeCloser{Writer: os.Stdout, stack: stack{}}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return file, nil
	}
	if blocked {
		bg := bgzf.NewWriter(file, 1)
		return writeCloser{Writer: bg, stack: stack{bg, file}}, nil
	}
	gz := pgzip.NewWriter(file)
	return writeCloser{Writer: gz, stack: stack{gz, file}}, nil
}

// Read a FASTA file into memory
func readReference(path string) (*fasta.Reference, error) {
	input, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer input.Close()

	ref, err := fasta.Read(input)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"path": path, "contigs": len(ref.Contigs())}).Info("read reference")
	return ref, nil
}
