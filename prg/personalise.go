package prg

import (
	"bufio"
	"io"
)

// ChoiceStream yields the chosen allele of each site in site marker order.
type ChoiceStream interface {
	Next() (allele int, ok bool)
}

type sliceChoices struct {
	alleles []int
	next    int
}

// Choices returns a ChoiceStream over a fixed list of alleles.
func Choices(alleles ...int) ChoiceStream {
	return &sliceChoices{alleles: alleles}
}

func (s *sliceChoices) Next() (int, bool) {
	if s.next >= len(s.alleles) {
		return 0, false
	}
	s.next++
	return s.alleles[s.next-1], true
}

// Personalise writes the nucleotides of prg lying outside every site or on the
// chosen allele of each enclosing site. Sites beyond the end of choices take
// allele 0, so a nil ChoiceStream reproduces the reference.
func Personalise(prg []uint32, choices ChoiceStream, w io.Writer) (int64, error) {
	cursor, err := NewCursor(prg)
	if err != nil {
		return 0, err
	}
	cursor.choices = choices

	out := bufio.NewWriter(w)
	var written int64
	for cursor.Next() {
		state := cursor.State()
		if state.OnMarker {
			continue
		}
		if state.WithinAllele && !cursor.selected() {
			continue
		}
		b, err := DecodeBase(state.Value)
		if err != nil {
			return written, err
		}
		if err := out.WriteByte(b); err != nil {
			return written, err
		}
		written++
	}
	if err := cursor.Err(); err != nil {
		return written, err
	}
	return written, out.Flush()
}
