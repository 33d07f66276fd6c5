package encoding

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"touchmon/pkg/utils"
)

// Timestamps keep their zone offset and sub-second part across a round trip
var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// MarshalCBOR encodes data to CBOR format
func MarshalCBOR(v interface{}) ([]byte, error) {
	return encMode.Marshal(v)
}

// UnmarshalCBOR decodes CBOR data
func UnmarshalCBOR(data []byte, v interface{}) error {
	return cbor.Unmarshal(data, v)
}

// WriteCBORFile encodes v and replaces path atomically
func WriteCBORFile(path string, v interface{}) error {
	data, err := MarshalCBOR(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return utils.WriteFileAtomic(path, data, 0644)
}

// ReadCBORFile decodes the CBOR document stored at path into v
func ReadCBORFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := UnmarshalCBOR(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
