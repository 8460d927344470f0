package processor

import (
	"fmt"
	"math"
)

// TargetDimensions scales width and height by sqrt(budget/size), assuming the
// encoded size grows with pixel area. Results are floored and never below 1.
func TargetDimensions(width, height int, size, budget int64) (int, int, error) {
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidImage, width, height)
	}
	if size <= 0 || budget <= 0 {
		return 0, 0, fmt.Errorf("%w: size %d, budget %d", ErrInvalidImage, size, budget)
	}

	scale := math.Sqrt(float64(budget) / float64(size))
	w := int(math.Floor(float64(width) * scale))
	h := int(math.Floor(float64(height) * scale))

	return max(w, 1), max(h, 1), nil
}

// Limits bound a resize: MaxBytes is the size budget, MaxPixels caps the
// decoded bitmap (DefaultMaxPixels when <= 0).
type Limits struct {
	MaxBytes  int64
	MaxPixels int64
}

// ResizeToBudget re-encodes data so that it is expected to fit into
// limits.MaxBytes. size is the current encoded size as reported by the object
// store. Data already within budget is returned as is. A single resize pass is
// made; the result is not checked against the budget.
func ResizeToBudget(data []byte, size int64, limits Limits) ([]byte, error) {
	if size <= limits.MaxBytes {
		return data, nil
	}

	buf, err := DecodeLimited(data, limits.MaxPixels)
	if err != nil {
		return nil, err
	}

	buf.Normalize()

	w, h := buf.GetBounds()
	newW, newH, err := TargetDimensions(w, h, size, limits.MaxBytes)
	if err != nil {
		return nil, err
	}
	buf.Resize(newW, newH)

	return buf.Encode()
}
