// Package structio packs and unpacks the fixed-width little-endian
// binary records an AFF4 container's ZIP64 volume and map stream use
// (local file headers, central directory records, Zip64 end-of-
// central-directory records, aff4map's persisted records).
// Grounded on the other_examples forensic-format codecs (zchee/go-qcow2
// types.go, deploymenttheory/go-apfs's volume header types,
// rstms/iso-kit's descriptor types): each defines a plain struct of
// fixed-width fields and drives it through encoding/binary rather than
// a reflection-based struct-tag library, so that idiom is kept here.
package structio

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Pack writes v (a pointer to a fixed-width struct of only
// fixed-size numeric fields and byte arrays) to w in little-endian
// byte order.
func Pack(w io.Writer, v interface{}) error {
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return errors.Wrap(err, "structio: packing record")
	}
	return nil
}

// Unpack reads a fixed-width record from r into v (a pointer),
// little-endian.
func Unpack(r io.Reader, v interface{}) error {
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		return errors.Wrap(err, "structio: unpacking record")
	}
	return nil
}

// Sizeof returns the packed byte size of v.
func Sizeof(v interface{}) int {
	return binary.Size(v)
}

// PackToBytes is a convenience wrapper returning the packed bytes
// directly, used when a record must be hashed or embedded inline
// rather than written straight to a stream.
func PackToBytes(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := Pack(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
