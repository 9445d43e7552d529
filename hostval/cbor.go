package hostval

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/value"
)

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("hostval: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels: maxDepth,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("hostval: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// MarshalCBOR encodes v as canonical CBOR. Named aggregates become maps,
// so their members come back ordered by name; other aggregates become
// arrays and lose any member names.
func MarshalCBOR(v value.Value) ([]byte, error) {
	b, err := cborEncMode.Marshal(ToGo(v))
	if err != nil {
		return nil, errors.Wrap(errors.PhasePack, errors.KindInvalidInput, err, "encode CBOR")
	}
	return b, nil
}

// UnmarshalCBOR decodes CBOR produced by MarshalCBOR or any other encoder
// using integers, floats, byte and text strings, arrays, maps with text
// keys, booleans and null.
func UnmarshalCBOR(data []byte) (value.Value, error) {
	var x any
	if err := cborDecMode.Unmarshal(data, &x); err != nil {
		return value.Nil, errors.Wrap(errors.PhaseUnpack, errors.KindInvalidData, err, "decode CBOR")
	}
	return FromGo(x)
}
