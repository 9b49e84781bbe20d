package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hs256Token(t *testing.T, secret string, claims map[string]any) string {
	t.Helper()
	hdr, _ := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	pl, _ := json.Marshal(claims)
	signing := base64.RawURLEncoding.EncodeToString(hdr) + "." + base64.RawURLEncoding.EncodeToString(pl)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signing))
	return signing + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyDevTokens(t *testing.T) {
	v := &Verifier{Mode: "dev"}

	p, err := v.Verify("t_acme:Planner")
	require.NoError(t, err)
	assert.Equal(t, "t_acme", p.Tenant)
	assert.Equal(t, "planner", p.Role)
	assert.Empty(t, p.DriverID)

	p, err = v.Verify("t_acme:driver:drv_9")
	require.NoError(t, err)
	assert.Equal(t, "drv_9", p.DriverID)

	_, err = v.Verify("junk")
	assert.Error(t, err)
}

func TestVerifyHS256(t *testing.T) {
	v := &Verifier{
		Mode:        "hmac",
		HMACSecret:  []byte("top-secret"),
		TenantClaim: "tenant",
		RoleClaim:   "role",
		DriverClaim: "sub",
	}

	tok := hs256Token(t, "top-secret", map[string]any{"tenant": "t_acme", "role": "Admin", "sub": "drv_1"})
	p, err := v.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "t_acme", p.Tenant)
	assert.Equal(t, "admin", p.Role)
	assert.Equal(t, "drv_1", p.DriverID)

	_, err = v.Verify(tok + "x")
	assert.Error(t, err, "tampered signature must not verify")

	_, err = v.Verify(hs256Token(t, "wrong-secret", map[string]any{"tenant": "t_acme"}))
	assert.Error(t, err)
}

func TestVerifyClaimDefaults(t *testing.T) {
	v := &Verifier{Mode: "hmac", HMACSecret: []byte("s"), TenantClaim: "tenant", RoleClaim: "role", DriverClaim: "sub"}

	_, err := v.Verify(hs256Token(t, "s", map[string]any{"role": "admin"}))
	assert.Error(t, err, "tenant claim is required")

	p, err := v.Verify(hs256Token(t, "s", map[string]any{"tenant": "t_x"}))
	require.NoError(t, err)
	assert.Equal(t, "planner", p.Role)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := &Verifier{Mode: "hmac", HMACSecret: []byte("s"), TenantClaim: "tenant", RoleClaim: "role", DriverClaim: "sub"}

	tok := hs256Token(t, "s", map[string]any{"tenant": "t_x", "exp": time.Now().Add(-time.Minute).Unix()})
	_, err := v.Verify(tok)
	assert.ErrorContains(t, err, "expired")

	tok = hs256Token(t, "s", map[string]any{"tenant": "t_x", "exp": time.Now().Add(time.Hour).Unix()})
	_, err = v.Verify(tok)
	assert.NoError(t, err)
}

func TestVerifyJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	doc := map[string]any{"keys": []map[string]string{{
		"kty": "RSA",
		"kid": "k1",
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString([]byte{1, 0, 1}),
		"alg": "RS256",
	}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(doc)
	}))
	defer srv.Close()

	hdr, _ := json.Marshal(map[string]string{"alg": "RS256", "kid": "k1"})
	pl, _ := json.Marshal(map[string]any{"tenant": "t_acme", "role": "planner"})
	signing := base64.RawURLEncoding.EncodeToString(hdr) + "." + base64.RawURLEncoding.EncodeToString(pl)
	h := sha256.Sum256([]byte(signing))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, h[:])
	require.NoError(t, err)

	v := &Verifier{
		Mode:        "jwks",
		JWKSURL:     srv.URL,
		TenantClaim: "tenant",
		RoleClaim:   "role",
		DriverClaim: "sub",
		http:        srv.Client(),
		cacheTTL:    10 * time.Minute,
	}
	p, err := v.Verify(signing + "." + base64.RawURLEncoding.EncodeToString(sig))
	require.NoError(t, err)
	assert.Equal(t, "t_acme", p.Tenant)
	assert.Equal(t, "planner", p.Role)

	_, err = v.Verify(signing + "." + base64.RawURLEncoding.EncodeToString(sig[:len(sig)-1]))
	assert.Error(t, err)
}
