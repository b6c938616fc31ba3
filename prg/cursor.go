package prg

import "fmt"

// State describes the PRG element a Cursor is positioned on.
type State struct {
	// The element itself
	Value uint32
	// The element is a site or allele marker
	OnMarker bool
	// The element is a nucleotide inside some site
	WithinAllele bool
	// 0-based allele index within the innermost site
	AlleleID int
	// The odd marker of the innermost enclosing site
	SiteMarker uint32
	// The element immediately follows the end of a site
	JustLeftSite bool
	// Number of sites enclosing the element
	Depth int
}

type frame struct {
	marker uint32
	allele int
	chosen int
	legacy bool
}

// Cursor visits every element of a PRG once, tracking site membership.
// Normal and legacy encoded sites may be mixed and nested.
type Cursor struct {
	prg     []uint32
	index   int
	closeAt map[uint32]int
	legacy  map[uint32]bool
	opened  map[uint32]bool
	last    uint32
	stack   []frame
	leaving bool
	state   State
	err     error

	choices ChoiceStream
}

// NewCursor validates the marker layout of prg and returns a Cursor positioned
// before its first element.
func NewCursor(prg []uint32) (*Cursor, error) {
	siteCount := map[uint32]int{}
	siteFirst := map[uint32]int{}
	lastSeparator := map[uint32]int{}
	for i, v := range prg {
		switch {
		case v == 0:
			return nil, fmt.Errorf("%w: 0 at position %d", ErrEncoding, i)
		case IsSiteMarker(v):
			if siteCount[v] == 0 {
				siteFirst[v] = i
			}
			siteCount[v]++
			if siteCount[v] > 2 {
				return nil, fmt.Errorf("%w: site marker %d occurs more than twice", ErrMarker, v)
			}
		case IsAlleleMarker(v):
			site := SiteOf(v)
			if siteCount[site] == 0 {
				return nil, fmt.Errorf("%w: allele marker %d at position %d before any site marker %d", ErrMarker, v, i, site)
			}
			lastSeparator[site] = i
		}
	}

	c := &Cursor{
		prg:     prg,
		index:   -1,
		closeAt: map[uint32]int{},
		legacy:  map[uint32]bool{},
		opened:  map[uint32]bool{},
	}
	for site, count := range siteCount {
		separator, ok := lastSeparator[site]
		if !ok {
			return nil, fmt.Errorf("%w: site %d has no allele marker", ErrMarker, site)
		}
		if count == 2 {
			c.legacy[site] = true
			continue
		}
		if separator < siteFirst[site] {
			return nil, fmt.Errorf("%w: site %d ends before it starts", ErrMarker, site)
		}
		c.closeAt[site] = separator
	}
	return c, nil
}

// Next advances to the next element. It returns false at the end of the PRG
// or on error; check Err afterwards.
func (c *Cursor) Next() bool {
	if c.err != nil {
		return false
	}
	c.index++
	if c.index >= len(c.prg) {
		if len(c.stack) > 0 {
			c.err = fmt.Errorf("%w: site %d is never closed", ErrMarker, c.stack[len(c.stack)-1].marker)
		}
		return false
	}

	v := c.prg[c.index]
	state := State{Value: v, JustLeftSite: c.leaving}
	c.leaving = false

	switch {
	case !IsMarker(v):
		if top := c.top(); top != nil {
			state.WithinAllele = true
			state.AlleleID = top.allele
			state.SiteMarker = top.marker
		}

	case IsSiteMarker(v):
		state.OnMarker = true
		state.SiteMarker = v
		if top := c.top(); top != nil && top.marker == v {
			state.AlleleID = top.allele
			c.stack = c.stack[:len(c.stack)-1]
			c.leaving = true
			break
		}
		if c.opened[v] {
			c.err = fmt.Errorf("%w: site marker %d at position %d starts a site twice", ErrMarker, v, c.index)
			return false
		}
		if v <= c.last {
			c.err = fmt.Errorf("%w: site marker %d at position %d follows site %d", ErrMarker, v, c.index, c.last)
			return false
		}
		c.opened[v] = true
		c.last = v
		f := frame{marker: v, legacy: c.legacy[v]}
		if c.choices != nil {
			if chosen, ok := c.choices.Next(); ok {
				f.chosen = chosen
			}
		}
		c.stack = append(c.stack, f)

	default:
		site := SiteOf(v)
		state.OnMarker = true
		state.SiteMarker = site
		top := c.top()
		if top == nil || top.marker != site {
			c.err = fmt.Errorf("%w: allele marker %d at position %d outside site %d", ErrMarker, v, c.index, site)
			return false
		}
		top.allele++
		state.AlleleID = top.allele
		if !top.legacy && c.closeAt[site] == c.index {
			c.stack = c.stack[:len(c.stack)-1]
			c.leaving = true
		}
	}

	state.Depth = len(c.stack)
	c.state = state
	return true
}

// State returns the flags of the current element.
func (c *Cursor) State() State {
	return c.state
}

// Err returns the first error met while walking.
func (c *Cursor) Err() error {
	return c.err
}

func (c *Cursor) top() *frame {
	if len(c.stack) == 0 {
		return nil
	}
	return &c.stack[len(c.stack)-1]
}

// selected reports whether the current position lies on the chosen allele of
// every enclosing site.
func (c *Cursor) selected() bool {
	for _, f := range c.stack {
		if f.allele != f.chosen {
			return false
		}
	}
	return true
}
