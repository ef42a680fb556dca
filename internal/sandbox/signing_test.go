package sandbox

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignRequestVerifies(t *testing.T) {
	body := []byte(`{"repo": "acme/app"}`)
	req, err := http.NewRequest("POST", "http://sandbox/create", nil)
	require.NoError(t, err)

	signRequest(req, "secret-key", body)

	nonce := req.Header.Get("X-Client-Nonce")
	ts := req.Header.Get("X-Client-Timestamp")
	sig := req.Header.Get("X-Client-Signature")
	require.NotEmpty(t, nonce)
	require.NotEmpty(t, ts)
	require.True(t, VerifySignature("secret-key", nonce, ts, sha256Hex(body), sig))

	// Wrong key, tampered body, tampered nonce all fail.
	require.False(t, VerifySignature("other-key", nonce, ts, sha256Hex(body), sig))
	require.False(t, VerifySignature("secret-key", nonce, ts, sha256Hex([]byte("x")), sig))
	require.False(t, VerifySignature("secret-key", "ffff", ts, sha256Hex(body), sig))
}

func TestNoncesAreUnique(t *testing.T) {
	require.NotEqual(t, generateNonce(), generateNonce())
}

func TestCapOutput(t *testing.T) {
	require.Equal(t, "short", capOutput("short", 10, "stdout"))

	long := capOutput("aaaaaaaaaa bbbbb", 10, "stdout")
	require.Contains(t, long, "[stdout truncated]")
	require.Equal(t, "aaaaaaaaaa", long[:10])
}

func TestOutputCapsMatchService(t *testing.T) {
	// The execution service truncates at these decimal limits; local mode
	// must not hand the model more than remote mode would.
	require.Equal(t, 10_000, MaxStdout)
	require.Equal(t, 5_000, MaxStderr)
	require.Equal(t, 50_000, MaxReadSize)
	require.Equal(t, 20_000, MaxDiffSize)
}
