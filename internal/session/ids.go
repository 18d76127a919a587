package session

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// IDLength is the length of game ids and login tokens.
const IDLength = 8

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomID returns an IDLength character alphanumeric string from
// crypto/rand. Bytes that would bias the distribution are discarded.
func RandomID() (string, error) {
	const limit = 256 - 256%len(alphabet)
	out := make([]byte, 0, IDLength)
	buf := make([]byte, IDLength*2)
	for len(out) < IDLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == IDLength {
				break
			}
		}
	}
	return string(out), nil
}

func randomSeed() (int64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1), nil
}
