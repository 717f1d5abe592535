// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package clone performs the value-copy step at the producer/consumer
// isolation boundary. A body is serialized to CBOR and decoded back so the
// copy shares no mutable state with the original, the same guarantee a
// structured-clone boundary gives: maps, slices, strings, numbers, byte
// slices and timestamps cross it; functions and channels do not.
package clone

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	cloneEncOpts = cbor.EncOptions{
		Sort:        cbor.SortNone,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeUnixDynamic,
	}
	cloneDecOpts = cbor.DecOptions{
		MaxNestedLevels: 64,
		IndefLength:     cbor.IndefLengthForbidden,
		UTF8:            cbor.UTF8DecodeInvalid,
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
	}

	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	encMode, _ = cloneEncOpts.EncMode()
	decMode, _ = cloneDecOpts.DecMode()
}

// Body deep-copies v through a CBOR round trip. Mutating v after Body returns
// does not affect the copy. Values CBOR cannot represent (functions, channels,
// complex numbers) yield an error.
//
// The copy is decoded into generic Go shapes (map, slice, string, numeric),
// not back into v's concrete type — consumers on the other side of the
// boundary see data, not the producer's types.
func Body(v any) (any, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("body of type %T cannot be cloned: %w", v, err)
	}

	var out any
	if err := decMode.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cloned body cannot be decoded: %w", err)
	}
	return out, nil
}
