package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// maxFrameSize bounds how much a single frame may decompress to.
const maxFrameSize = 64 << 20

// Pack marshals m and compresses it with zstd.
func Pack(m Message) ([]byte, error) {
	compressed := bytes.NewBuffer(nil)
	compWriter, err := zstd.NewWriter(compressed, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %v", err)
	}
	if _, err := compWriter.Write(Marshal(m)); err != nil {
		return nil, fmt.Errorf("failed to compress message: %v", err)
	}
	if err := compWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zstd writer: %v", err)
	}
	return compressed.Bytes(), nil
}

// Unpack decompresses data and decodes it into m.
func Unpack(data []byte, m Message) error {
	compReader, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderMaxMemory(maxFrameSize))
	if err != nil {
		return fmt.Errorf("failed to create zstd reader: %v: %w", err, ErrMalformed)
	}
	defer compReader.Close()

	b, err := io.ReadAll(io.LimitReader(compReader, maxFrameSize+1))
	if err != nil {
		return fmt.Errorf("failed to read decompressed message: %w", ErrMalformed)
	}
	if len(b) > maxFrameSize {
		return fmt.Errorf("frame exceeds %d bytes: %w", maxFrameSize, ErrMalformed)
	}
	return Unmarshal(b, m)
}

// EncodeRequest packs a request envelope around an inner message.
func EncodeRequest(token string, payload Message) ([]byte, error) {
	if payload == nil {
		payload = &Empty{}
	}
	return Pack(&Request{Token: token, Payload: Marshal(payload)})
}

// EncodeResponse packs a response envelope. A nil payload sends none.
func EncodeResponse(status int, errMsg string, payload Message) ([]byte, error) {
	resp := &Response{Status: status, Error: errMsg}
	if payload != nil {
		resp.Payload = Marshal(payload)
	}
	return Pack(resp)
}
