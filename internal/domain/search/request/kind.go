package request

// Kind is the clause composition of a request.
type Kind string

// Kind constants.
const (
	// KindLexical carries only a lexical clause.
	KindLexical Kind = "lexical"
	// KindVector carries only a vector clause.
	KindVector Kind = "vector"
	// KindHybrid carries one clause of each kind.
	KindHybrid Kind = "hybrid"
)

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	return k == KindLexical || k == KindVector || k == KindHybrid
}

func (k Kind) String() string { return string(k) }
