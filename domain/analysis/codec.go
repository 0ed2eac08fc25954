package analysis

import (
	"bufio"
	"io"
)

// SpillCodec adapts the binary result encoding to the external sorter's
// codec contract.
type SpillCodec struct{}

func (SpillCodec) Encode(w io.Writer, r CorrelationResult) error {
	return EncodeResult(w, r)
}

func (SpillCodec) Decode(r *bufio.Reader) (CorrelationResult, error) {
	return DecodeResult(r)
}

// ByPValueDesc orders results by descending raw p-value: the aggregation
// order that lets the step-up adjustments run rank m down to 1 in a single
// forward pass.
func ByPValueDesc(a, b CorrelationResult) bool {
	return *a.PValue > *b.PValue
}
