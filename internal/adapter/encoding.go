package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// JSON defines an interface for JSON operations to enable mocking
//
//go:generate mockgen -source=encoding.go -destination=../mocks/encoding.go -package=mocks -mock_names=JSON=MockJSON,Canonicalizer=MockCanonicalizer
type JSON interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// Canonicalizer produces RFC 8785 canonical JSON so digests do not depend on key order
type Canonicalizer interface {
	Canonicalize(v interface{}) ([]byte, error)
}

// RealJSON implements JSON using the standard encoding/json package
type RealJSON struct{}

// NewJSON creates a new real JSON implementation
func NewJSON() JSON {
	return &RealJSON{}
}

func (j *RealJSON) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (j *RealJSON) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// JCSCanonicalizer implements Canonicalizer with gowebpki/jcs
type JCSCanonicalizer struct {
	json JSON
}

// NewCanonicalizer creates a canonicalizer that marshals with the given JSON adapter
func NewCanonicalizer(jsonAdapter JSON) Canonicalizer {
	return &JCSCanonicalizer{json: jsonAdapter}
}

func (c *JCSCanonicalizer) Canonicalize(v interface{}) ([]byte, error) {
	raw, err := c.json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize json: %w", err)
	}

	return canonical, nil
}
