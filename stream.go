// stream.go: io.Writer and io.Reader adapters over cryptor contexts.
//
// The adapters let any Cryptor, GCMCryptor or CCMCryptor be driven with
// io.Copy. Input is fed to the context in chunks of at most the configured
// chunk size; whatever Finalize returns (the last padded block, or the AEAD
// tag when encrypting) is emitted after the last chunk.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package crypto

import (
	"errors"
	"io"

	goerrors "github.com/agilira/go-errors"
)

// DefaultChunkSize is the chunk size used by NewCryptWriter and NewCryptReader (64KB).
const DefaultChunkSize = 64 * 1024

const maxChunkSize = 10 * 1024 * 1024

// StreamContext is the lifecycle shared by every cryptor in the package.
type StreamContext interface {
	Update(data []byte) ([]byte, error)
	Finalize() ([]byte, error)
	Release() error
}

// Stream adapter errors.
var (
	ErrStreamClosed    = goerrors.New("STREAM_001", "stream already closed")
	ErrInvalidChunk    = goerrors.New("STREAM_002", "chunk size must be between 1 byte and 10MB")
	ErrNilStreamTarget = goerrors.New("STREAM_003", "stream target and context cannot be nil")
)

// CryptWriter transforms everything written to it and forwards the output to
// the underlying writer. Close must be called to flush the final block or
// tag; it also releases the context.
//
// Example:
//
//	enc, _ := crypto.CBC(crypto.AES, key, iv, crypto.PaddingPKCS7).NewEncryptor()
//	w, _ := crypto.NewCryptWriter(file, enc)
//	if _, err := io.Copy(w, input); err != nil {
//		log.Fatal(err)
//	}
//	if err := w.Close(); err != nil {
//		log.Fatal(err)
//	}
type CryptWriter struct {
	writer    io.Writer
	ctx       StreamContext
	chunkSize int
	written   int64
	closed    bool
}

// NewCryptWriter wraps ctx with the default chunk size.
func NewCryptWriter(w io.Writer, ctx StreamContext) (*CryptWriter, error) {
	return NewCryptWriterWithChunkSize(w, ctx, DefaultChunkSize)
}

// NewCryptWriterWithChunkSize wraps ctx with a custom chunk size.
func NewCryptWriterWithChunkSize(w io.Writer, ctx StreamContext, chunkSize int) (*CryptWriter, error) {
	if w == nil || ctx == nil {
		return nil, ErrNilStreamTarget
	}
	if chunkSize <= 0 || chunkSize > maxChunkSize {
		return nil, ErrInvalidChunk
	}
	return &CryptWriter{writer: w, ctx: ctx, chunkSize: chunkSize}, nil
}

// Write implements io.Writer.
func (cw *CryptWriter) Write(data []byte) (int, error) {
	if cw.closed {
		return 0, ErrStreamClosed
	}

	total := 0
	for len(data) > 0 {
		n := len(data)
		if n > cw.chunkSize {
			n = cw.chunkSize
		}
		out, err := cw.ctx.Update(data[:n])
		if err != nil {
			return total, err
		}
		if err := cw.emit(out); err != nil {
			return total, err
		}
		data = data[n:]
		total += n
	}
	return total, nil
}

// Close finalizes the context, writes its last output and releases it.
// Closing twice is a no-op.
func (cw *CryptWriter) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true

	out, err := cw.ctx.Finalize()
	if err == nil {
		err = cw.emit(out)
	}
	if relErr := cw.ctx.Release(); relErr != nil && err == nil {
		err = relErr
	}
	return err
}

// BytesWritten returns the number of transformed bytes passed to the
// underlying writer.
func (cw *CryptWriter) BytesWritten() int64 { return cw.written }

func (cw *CryptWriter) emit(out []byte) error {
	if len(out) == 0 {
		return nil
	}
	n, err := cw.writer.Write(out)
	cw.written += int64(n)
	if err != nil {
		return goerrors.Wrap(err, "STREAM_WRITE_FAILED", "failed to write transformed chunk")
	}
	return nil
}

// CryptReader reads from the underlying reader and returns the transformed
// bytes. When the source is exhausted the context is finalized: a failed
// padding check or tag verification surfaces as the Read error instead of
// io.EOF. Decrypted bytes from AEAD contexts are only authentic once Read
// has returned io.EOF.
type CryptReader struct {
	reader  io.Reader
	ctx     StreamContext
	chunk   []byte
	pending []byte
	eof     bool
	err     error
	closed  bool
}

// NewCryptReader wraps ctx with the default chunk size.
func NewCryptReader(r io.Reader, ctx StreamContext) (*CryptReader, error) {
	return NewCryptReaderWithChunkSize(r, ctx, DefaultChunkSize)
}

// NewCryptReaderWithChunkSize wraps ctx with a custom chunk size.
func NewCryptReaderWithChunkSize(r io.Reader, ctx StreamContext, chunkSize int) (*CryptReader, error) {
	if r == nil || ctx == nil {
		return nil, ErrNilStreamTarget
	}
	if chunkSize <= 0 || chunkSize > maxChunkSize {
		return nil, ErrInvalidChunk
	}
	return &CryptReader{reader: r, ctx: ctx, chunk: make([]byte, chunkSize)}, nil
}

// Read implements io.Reader.
func (cr *CryptReader) Read(p []byte) (int, error) {
	if cr.closed {
		return 0, ErrStreamClosed
	}

	for len(cr.pending) == 0 {
		if cr.err != nil {
			return 0, cr.err
		}
		if cr.eof {
			return 0, io.EOF
		}
		cr.fill()
	}

	n := copy(p, cr.pending)
	cr.pending = cr.pending[n:]
	return n, nil
}

// fill reads the next chunk from the source and transforms it, finalizing the
// context at end of input.
func (cr *CryptReader) fill() {
	n, err := io.ReadFull(cr.reader, cr.chunk)
	if n > 0 {
		out, uerr := cr.ctx.Update(cr.chunk[:n])
		clearBuffer(cr.chunk[:n])
		if uerr != nil {
			cr.fail(uerr)
			return
		}
		cr.pending = out
	}

	switch {
	case err == nil:
		return
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		last, ferr := cr.ctx.Finalize()
		if ferr != nil {
			Zeroize(cr.pending)
			cr.pending = nil
			cr.fail(ferr)
			return
		}
		cr.pending = append(cr.pending, last...)
		cr.eof = true
		cr.release()
	default:
		cr.fail(goerrors.Wrap(err, "STREAM_READ_FAILED", "failed to read source chunk"))
	}
}

func (cr *CryptReader) fail(err error) {
	cr.err = err
	cr.release()
}

func (cr *CryptReader) release() {
	if cr.ctx != nil {
		_ = cr.ctx.Release()
		cr.ctx = nil
	}
}

// Close releases the context if the stream was not read to the end.
func (cr *CryptReader) Close() error {
	if cr.closed {
		return nil
	}
	cr.closed = true
	Zeroize(cr.pending)
	cr.pending = nil
	cr.release()
	return nil
}
