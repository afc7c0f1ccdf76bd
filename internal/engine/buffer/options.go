package buffer

import "github.com/dshills/scenepad/internal/engine/indent"

// Option is a functional option for configuring a Buffer.
type Option func(*Buffer)

// WithIndentUnit sets the width in columns of one indentation level.
func WithIndentUnit(width int) Option {
	return func(b *Buffer) {
		if width > 0 {
			b.unit = width
		}
	}
}

// defaultUnit is used when no option overrides it.
const defaultUnit = indent.DefaultUnit
