// Package input reads the files the unparser works on. Ruby sources (.rb)
// and tree files (.sexp) may be stored gzip- or zstd-compressed; ReadFile
// decompresses them transparently.
package input

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	uerrors "github.com/sambeau/unparser/pkg/unparser/errors"
)

// Kind is the content type of an input file
type Kind string

const (
	Ruby    Kind = "ruby"
	Sexp    Kind = "sexp"
	Unknown Kind = "unknown"
)

// Compression suffixes recognised after the content extension
const (
	GzipExt = ".gz"
	ZstdExt = ".zst"
)

// MaxFileSize bounds the decompressed size of an input file
const MaxFileSize = 64 << 20

// SourceKind classifies path by its extension, ignoring a compression suffix.
func SourceKind(path string) Kind {
	name := strings.ToLower(stripCompression(path))
	switch filepath.Ext(name) {
	case ".rb":
		return Ruby
	case ".sexp":
		return Sexp
	default:
		return Unknown
	}
}

// IsCompressed reports whether path carries a compression suffix
func IsCompressed(path string) bool {
	return stripCompression(path) != path
}

func stripCompression(path string) string {
	lower := strings.ToLower(path)
	for _, ext := range []string{GzipExt, ZstdExt} {
		if strings.HasSuffix(lower, ext) {
			return path[:len(path)-len(ext)]
		}
	}
	return path
}

// ReadFile reads path, decompressing it when its name ends in .gz or .zst.
// Errors are *errors.UnparserError with the IO class.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, uerrors.New("IO-0001", map[string]any{"Path": path, "Reason": reason(err)}).WithFile(path)
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, GzipExt):
		data, err = gunzip(data)
	case strings.HasSuffix(lower, ZstdExt):
		data, err = unzstd(data)
	default:
		return data, nil
	}
	if err != nil {
		return nil, uerrors.New("IO-0003", map[string]any{"Path": path, "Reason": err.Error()}).WithFile(path)
	}
	return data, nil
}

// Read reads r whole; name decides whether the content is decompressed.
func Read(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, uerrors.New("IO-0001", map[string]any{"Path": name, "Reason": err.Error()})
	}
	if len(data) > MaxFileSize {
		return nil, uerrors.New("IO-0001", map[string]any{"Path": name, "Reason": "file too large"})
	}

	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, GzipExt):
		data, err = gunzip(data)
	case strings.HasSuffix(lower, ZstdExt):
		data, err = unzstd(data)
	}
	if err != nil {
		return nil, uerrors.New("IO-0003", map[string]any{"Path": name, "Reason": err.Error()})
	}
	return data, nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return readLimited(zr)
}

func unzstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return readLimited(dec)
}

// readLimited reads a decompressing reader, refusing output larger than
// MaxFileSize.
func readLimited(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxFileSize {
		return nil, errTooLarge
	}
	return out, nil
}

var errTooLarge = uerrors.NewSimple(uerrors.ClassIO, "decompressed size exceeds limit")

func reason(err error) string {
	if os.IsNotExist(err) {
		return "no such file"
	}
	if os.IsPermission(err) {
		return "permission denied"
	}
	return err.Error()
}

// Compress encodes data the way its target name asks for: gzip for .gz,
// zstd for .zst, unchanged otherwise.
func Compress(name string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, GzipExt):
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	case strings.HasSuffix(lower, ZstdExt):
		enc, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	default:
		return data, nil
	}
	return buf.Bytes(), nil
}
