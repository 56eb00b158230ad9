package security

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex16(t *testing.T, s string) [16]byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	require.Len(t, b, 16)
	var out [16]byte
	copy(out[:], b)
	return out
}

// NIST SP 800-38A F.5.1, first block.
func TestEncryptCTRKnownAnswer(t *testing.T) {
	key := mustHex16(t, "2b7e151628aed2a6abf7158809cf4f3c")
	iv := mustHex16(t, "f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff")
	plain, _ := hex.DecodeString("6bc1bee22e409f96e93d7e117393172a")

	got := EncryptCTR(plain, key, iv)
	assert.Equal(t, "874d6191b620e3261bef6864990db6ce", hex.EncodeToString(got))
}

func TestEncryptCTRProperties(t *testing.T) {
	var key [KeySize]byte
	copy(key[:], LoopKey)
	var iv [IVSize]byte
	msg := []byte(LoopMessage)

	a := EncryptCTR(msg, key, iv)
	b := EncryptCTR(msg, key, iv)
	assert.Len(t, a, len(msg))
	assert.Equal(t, a, b)
	assert.NotEqual(t, msg, a)
	assert.Equal(t, msg, EncryptCTR(a, key, iv))
	assert.Equal(t, "hello world", string(msg), "input is not modified")

	assert.Empty(t, EncryptCTR(nil, key, iv))
}

func TestEncryptLoop(t *testing.T) {
	res, err := EncryptLoop(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Iterations)
	assert.Len(t, res.Ciphertext, len(LoopMessage))
	assert.Equal(t, res.Elapsed/50, res.PerOp())

	res, err = EncryptLoop(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, LoopIterations, res.Iterations)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err = EncryptLoop(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Iterations)
}

func TestHeaders(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	Headers(HeadersConfig{Enabled: true, HSTS: true, CSP: "default-src 'none'"})(ok).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	Headers(HeadersConfig{})(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("X-Content-Type-Options"))
}

func BenchmarkEncryptCTR(b *testing.B) {
	var key [KeySize]byte
	copy(key[:], LoopKey)
	var iv [IVSize]byte
	msg := []byte(LoopMessage)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		EncryptCTR(msg, key, iv)
	}
}
