package assoc

import (
	"fmt"

	"github.com/pkg/errors"
)

// Embedding is the network that maps samples to the space where they are associated.
type Embedding byte

const (
	// LinearEmbedding projects each sample with a single weight matrix.
	LinearEmbedding Embedding = iota
	// ConvEmbedding reads each sample as a (C, H, W) image and runs it through two conv/batchnorm/ReLU
	// blocks, each followed by max pooling, and a fully connected layer.
	ConvEmbedding

	MAXEMBEDDING
)

func (e Embedding) String() string {
	switch e {
	case LinearEmbedding:
		return "linear"
	case ConvEmbedding:
		return "conv"
	}
	return fmt.Sprintf("Embedding(%d)", byte(e))
}

// ParseEmbedding is the inverse of String.
func ParseEmbedding(s string) (Embedding, error) {
	for e := LinearEmbedding; e < MAXEMBEDDING; e++ {
		if e.String() == s {
			return e, nil
		}
	}
	return MAXEMBEDDING, errors.Errorf("unknown embedding %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (e Embedding) MarshalText() ([]byte, error) {
	if e >= MAXEMBEDDING {
		return nil, errors.Errorf("unknown embedding %d", byte(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (e *Embedding) UnmarshalText(text []byte) error {
	parsed, err := ParseEmbedding(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
