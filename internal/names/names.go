// Package names infers bare symbol names from D declaration signatures.
package names

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phobologic/ddoc/internal/model"
)

var (
	// ErrMalformedSignature means the signature lacks the tokens a name is read from.
	ErrMalformedSignature = errors.New("malformed signature")
	// ErrNameInferenceUnsupported means the kind needs an explicit name.
	ErrNameInferenceUnsupported = errors.New("name inference unsupported")
)

// Strategy reads a bare name out of a signature line.
type Strategy func(signature string) (string, error)

var strategies = map[model.SymbolKind]Strategy{
	model.Variable:  SecondToken,
	model.Class:     ClassLike,
	model.Struct:    ClassLike,
	model.Interface: ClassLike,
}

// For returns the inference strategy for kind, or nil if the kind has none.
func For(kind model.SymbolKind) Strategy {
	return strategies[kind]
}

// Extract returns the bare name declared by signature.
func Extract(kind model.SymbolKind, signature string) (string, error) {
	s := For(kind)
	if s == nil {
		return "", fmt.Errorf("%s: %w", kind, ErrNameInferenceUnsupported)
	}
	return s(signature)
}

// SecondToken handles "<type> <name>" signatures.
func SecondToken(signature string) (string, error) {
	fields := strings.Fields(signature)
	if len(fields) < 2 {
		return "", fmt.Errorf("%q: want \"<type> <name>\": %w", signature, ErrMalformedSignature)
	}
	return fields[1], nil
}

// ClassLike handles "class Name(Args) : Base" style signatures, dropping any
// template argument list glued to the name.
func ClassLike(signature string) (string, error) {
	name, err := SecondToken(signature)
	if err != nil {
		return "", err
	}
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	return name, nil
}
