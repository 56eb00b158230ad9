package security

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"time"
)

// Block and key size of AES-128.
const (
	KeySize = 16
	IVSize  = aes.BlockSize
)

// Parameters of the encryption benchmark loop.
const (
	LoopKey        = "fecoreencryption"
	LoopMessage    = "hello world"
	LoopIterations = 10000
)

// EncryptCTR encrypts plaintext with AES-128 in CTR mode. The output has
// the same length as the input and is deterministic for a given key and
// iv. Applying it twice with the same key and iv yields the plaintext.
func EncryptCTR(plaintext []byte, key [KeySize]byte, iv [IVSize]byte) []byte {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		// unreachable: the key length is fixed by the type
		panic(fmt.Sprintf("security: aes cipher: %v", err))
	}
	out := make([]byte, len(plaintext))
	cipher.NewCTR(block, iv[:]).XORKeyStream(out, plaintext)
	return out
}

// LoopResult is the outcome of EncryptLoop.
type LoopResult struct {
	Iterations int
	Elapsed    time.Duration
	Ciphertext []byte
}

// PerOp returns the mean time of one encryption.
func (r LoopResult) PerOp() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Elapsed / time.Duration(r.Iterations)
}

// EncryptLoop encrypts LoopMessage under LoopKey and a zero iv the given
// number of times and reports the elapsed time. Non-positive iterations
// fall back to LoopIterations. The context is checked every 1024 rounds.
func EncryptLoop(ctx context.Context, iterations int) (LoopResult, error) {
	if iterations <= 0 {
		iterations = LoopIterations
	}
	var key [KeySize]byte
	copy(key[:], LoopKey)
	var iv [IVSize]byte
	msg := []byte(LoopMessage)

	var last []byte
	start := time.Now()
	for i := 0; i < iterations; i++ {
		if i&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return LoopResult{Iterations: i, Elapsed: time.Since(start), Ciphertext: last}, err
			}
		}
		last = EncryptCTR(msg, key, iv)
	}
	return LoopResult{Iterations: iterations, Elapsed: time.Since(start), Ciphertext: last}, nil
}
