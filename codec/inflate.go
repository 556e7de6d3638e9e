package codec

import (
	"bufio"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// InflateGzip wraps a gzip-compressed stream with an inflating reader.
func InflateGzip(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	return zr, nil
}

// InflateDeflate wraps a deflate-compressed stream. Servers disagree on
// whether "deflate" means zlib-wrapped or raw; sniff the zlib magic
// byte and fall back to raw deflate.
func InflateDeflate(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(1)
	if err != nil {
		return nil, fmt.Errorf("open deflate stream: %w", err)
	}
	if head[0] == 0x78 {
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open zlib stream: %w", err)
		}
		return zr, nil
	}
	return flate.NewReader(br), nil
}
