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

package compression

import (
	"bytes"
	"io"
	"sync"

	"github.com/andybalholm/brotli"

	"github.com/tochemey/edgesim/internal/bufferpool"
)

// Brotli is the name of the Brotli compression algorithm.
// Reference: https://www.iana.org/assignments/http-parameters/http-parameters.xml#content-coding
const Brotli = "br"

var brotliWriterPool = sync.Pool{
	New: func() any {
		return brotli.NewWriterLevel(nil, brotli.DefaultCompression)
	},
}

var brotliReaderPool = sync.Pool{
	New: func() any {
		return brotli.NewReader(nil)
	},
}

type brotliCodec struct{}

var _ Codec = brotliCodec{}

// NewBrotli creates a Brotli codec backed by pooled writers and readers.
func NewBrotli() Codec {
	return brotliCodec{}
}

func (brotliCodec) Name() string {
	return Brotli
}

func (brotliCodec) Compress(data []byte) ([]byte, error) {
	writer := brotliWriterPool.Get().(*brotli.Writer)
	defer brotliWriterPool.Put(writer)

	buf := bufferpool.Pool.Get()
	defer bufferpool.Pool.Put(buf)

	writer.Reset(buf)
	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	// The buffer goes back to the pool, so the compressed bytes are detached.
	return bytes.Clone(buf.Bytes()), nil
}

func (brotliCodec) Decompress(data []byte) ([]byte, error) {
	reader := brotliReaderPool.Get().(*brotli.Reader)
	defer brotliReaderPool.Put(reader)

	if err := reader.Reset(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}
