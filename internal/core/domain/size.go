package domain

import (
	"fmt"
	"math"
)

// NormalizeSize validates a requested width against the source and derives the height
// that keeps the source aspect ratio.
func NormalizeSize(srcWidth, srcHeight, width int) (int, int, error) {
	if srcWidth <= 0 || srcHeight <= 0 {
		return 0, 0, fmt.Errorf("%w: unknown source dimensions %dx%d", ErrInvalidWidth, srcWidth, srcHeight)
	}

	if width <= 0 || width >= srcWidth {
		return 0, 0, fmt.Errorf("%w: %d must be between 1 and %d", ErrInvalidWidth, width, srcWidth-1)
	}

	height := int(math.Round(float64(srcHeight) * float64(width) / float64(srcWidth)))
	if height < 1 {
		height = 1
	}

	return width, height, nil
}
