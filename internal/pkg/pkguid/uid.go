package pkguid

// StringID produces unique string identifiers.
type StringID interface {
	Generate() string
}

// NumberID produces unique, roughly time-ordered int64 identifiers.
type NumberID interface {
	Generate() int64
}
