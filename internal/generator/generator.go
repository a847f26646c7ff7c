package generator

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator is an interface that defines a method to generate a new value of type T.
// This can be used to generate unique identifiers, lazily iterate, etc.
type Generator[T any] interface {
	Next() (T, error)
}

// UUIDV4Generator is a generator that produces UUIDv4 strings.
// It implements the Generator interface.
type UUIDV4Generator struct{}

func (g *UUIDV4Generator) Next() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var _ Generator[string] = &UUIDV4Generator{}

// KeyGenerator wraps another generator and decorates its values, e.g. to
// produce object keys like "tts/<uuid>.mp3" or consumer names like "worker-<uuid>".
type KeyGenerator struct {
	Prefix string
	Suffix string
	Inner  Generator[string]
}

func (g *KeyGenerator) Next() (string, error) {
	inner := g.Inner
	if inner == nil {
		inner = &UUIDV4Generator{}
	}
	id, err := inner.Next()
	if err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return g.Prefix + id + g.Suffix, nil
}

var _ Generator[string] = &KeyGenerator{}
