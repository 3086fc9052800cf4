package wiki

// Mode selects which API generator backs a feed stream.
type Mode int

const (
	ModeRandom Mode = iota
	ModeCategory
	ModeSearch
)

func (m Mode) String() string {
	switch m {
	case ModeRandom:
		return "random"
	case ModeCategory:
		return "category"
	case ModeSearch:
		return "search"
	default:
		return "unknown"
	}
}

// Query identifies one logical feed stream. Two queries are the same
// stream iff mode and parameter both match; cursors are never shared
// across different queries.
type Query struct {
	Mode  Mode
	Param string
}

func Random() Query               { return Query{Mode: ModeRandom} }
func Category(name string) Query  { return Query{Mode: ModeCategory, Param: name} }
func SearchFor(term string) Query { return Query{Mode: ModeSearch, Param: term} }
