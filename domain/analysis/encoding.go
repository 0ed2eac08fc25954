package analysis

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Binary spill encoding for CorrelationResult: identifiers as
// uvarint-length-prefixed UTF-8, optional fields behind a presence byte,
// floats as little-endian IEEE 754 bits. The layout is version-stable and
// supports streaming decode: a clean io.EOF before the first byte of a
// record marks the end of a run.

const (
	fieldAbsent  byte = 0
	fieldPresent byte = 1
)

// EncodeResult writes one result record to w.
func EncodeResult(w io.Writer, r CorrelationResult) error {
	if err := writeString(w, r.Gene); err != nil {
		return err
	}
	if err := writeString(w, r.Gem); err != nil {
		return err
	}
	if err := writeOptionalString(w, r.CpGSiteID); err != nil {
		return err
	}
	if err := writeOptionalFloat(w, r.Correlation); err != nil {
		return err
	}
	if err := writeOptionalFloat(w, r.PValue); err != nil {
		return err
	}
	return writeOptionalFloat(w, r.AdjustedPValue)
}

// RecordReader is the reader a streaming decode needs; *bufio.Reader satisfies it.
type RecordReader interface {
	io.Reader
	io.ByteReader
}

// DecodeResult reads the next result record from r. It returns io.EOF at a
// clean end of stream and io.ErrUnexpectedEOF on a truncated record.
func DecodeResult(r RecordReader) (CorrelationResult, error) {
	var out CorrelationResult

	gene, err := readString(r)
	if err != nil {
		// EOF before the first field is a clean end of run
		return out, err
	}
	out.Gene = gene

	if out.Gem, err = readStringStrict(r); err != nil {
		return out, err
	}
	if out.CpGSiteID, err = readOptionalString(r); err != nil {
		return out, err
	}
	if out.Correlation, err = readOptionalFloat(r); err != nil {
		return out, err
	}
	if out.PValue, err = readOptionalFloat(r); err != nil {
		return out, err
	}
	if out.AdjustedPValue, err = readOptionalFloat(r); err != nil {
		return out, err
	}
	return out, nil
}

func writeString(w io.Writer, s string) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], uint64(len(s)))
	if _, err := w.Write(buf[:n]); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func writeOptionalString(w io.Writer, s *string) error {
	if s == nil {
		_, err := w.Write([]byte{fieldAbsent})
		return err
	}
	if _, err := w.Write([]byte{fieldPresent}); err != nil {
		return err
	}
	return writeString(w, *s)
}

func writeOptionalFloat(w io.Writer, f *float64) error {
	if f == nil {
		_, err := w.Write([]byte{fieldAbsent})
		return err
	}
	var buf [9]byte
	buf[0] = fieldPresent
	binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(*f))
	_, err := w.Write(buf[:])
	return err
}

func readString(r RecordReader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", truncated(err)
	}
	return string(buf), nil
}

func readStringStrict(r RecordReader) (string, error) {
	s, err := readString(r)
	return s, truncated(err)
}

func readOptionalString(r RecordReader) (*string, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, truncated(err)
	}
	switch tag {
	case fieldAbsent:
		return nil, nil
	case fieldPresent:
		s, err := readStringStrict(r)
		if err != nil {
			return nil, err
		}
		return &s, nil
	}
	return nil, fmt.Errorf("invalid presence tag %#x", tag)
}

func readOptionalFloat(r RecordReader) (*float64, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, truncated(err)
	}
	switch tag {
	case fieldAbsent:
		return nil, nil
	case fieldPresent:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, truncated(err)
		}
		f := math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))
		return &f, nil
	}
	return nil, fmt.Errorf("invalid presence tag %#x", tag)
}

func truncated(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
