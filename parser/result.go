// Package parser turns raw field text into typed values.
//
// Every parser returns a Result instead of an error: a field that cannot be
// read is expected noise on listing pages, and callers pick a default per
// field with Or.
package parser

// Outcome classifies how a field parse went.
type Outcome int

const (
	// OutcomeMissing means the field was not present at all.
	OutcomeMissing Outcome = iota
	// OutcomeMalformed means the field was present but could not be read.
	OutcomeMalformed
	// OutcomeParsed means Value holds a usable value.
	OutcomeParsed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeParsed:
		return "parsed"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "missing"
	}
}

// Result is the typed outcome of parsing one field.
type Result[T any] struct {
	Value   T
	Outcome Outcome
}

// Parsed wraps a successfully parsed value.
func Parsed[T any](v T) Result[T] {
	return Result[T]{Value: v, Outcome: OutcomeParsed}
}

// Missing reports an absent field.
func Missing[T any]() Result[T] {
	return Result[T]{Outcome: OutcomeMissing}
}

// Malformed reports a field that was present but unreadable.
func Malformed[T any]() Result[T] {
	return Result[T]{Outcome: OutcomeMalformed}
}

// Ok reports whether the result carries a parsed value.
func (r Result[T]) Ok() bool {
	return r.Outcome == OutcomeParsed
}

// Or returns the parsed value, or fallback on Missing and Malformed.
func (r Result[T]) Or(fallback T) T {
	if r.Ok() {
		return r.Value
	}
	return fallback
}

// FirstOf evaluates candidates in order and returns the first Parsed
// result. If none parse, it reports Malformed when any candidate found the
// field but failed to read it, and Missing otherwise.
func FirstOf[T any](candidates ...func() Result[T]) Result[T] {
	sawMalformed := false
	for _, candidate := range candidates {
		r := candidate()
		switch r.Outcome {
		case OutcomeParsed:
			return r
		case OutcomeMalformed:
			sawMalformed = true
		}
	}
	if sawMalformed {
		return Malformed[T]()
	}
	return Missing[T]()
}
