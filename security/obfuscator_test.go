package security

import (
	"context"
	"strings"
	"testing"
)

func TestParamObfuscator_XORRoundTrip(t *testing.T) {
	codec, err := NewParamObfuscator([]byte("shared-key"), AlgorithmXORStream)
	if err != nil {
		t.Fatalf("new obfuscator: %v", err)
	}

	values := []string{
		"usr_12345",
		"",
		"hello world",
		"!@#$%^&*()_+-=[]{};':\",./<>?",
		strings.Repeat("long-value-", 50),
	}
	for _, value := range values {
		encoded, err := codec.EncodeValue("uid", value)
		if err != nil {
			t.Fatalf("encode %q: %v", value, err)
		}
		if !strings.HasPrefix(encoded, "hostbridge.param.v1:") {
			t.Fatalf("missing envelope prefix: %q", encoded)
		}
		if value != "" && strings.Contains(encoded, value) {
			t.Fatalf("encoded output leaks plaintext: %q", encoded)
		}
		decoded, err := codec.DecodeValue("uid", encoded)
		if err != nil {
			t.Fatalf("decode %q: %v", value, err)
		}
		if decoded != value {
			t.Fatalf("round trip mismatch: got %q want %q", decoded, value)
		}
	}
}

func TestParamObfuscator_AESGCMRoundTrip(t *testing.T) {
	codec, err := NewParamObfuscator([]byte("shared-key"), AlgorithmAESGCM)
	if err != nil {
		t.Fatalf("new obfuscator: %v", err)
	}
	encoded, err := codec.EncodeValue("token", "tok_abc123")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := codec.DecodeValue("token", encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != "tok_abc123" {
		t.Fatalf("round trip mismatch: %q", decoded)
	}
}

func TestParamObfuscator_NameBindsValue(t *testing.T) {
	for _, algorithm := range []string{AlgorithmXORStream, AlgorithmAESGCM} {
		codec, err := NewParamObfuscator([]byte("shared-key"), algorithm)
		if err != nil {
			t.Fatalf("new obfuscator: %v", err)
		}
		encoded, err := codec.EncodeValue("uid", "usr_1")
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := codec.DecodeValue("uname", encoded)
		if algorithm == AlgorithmAESGCM {
			if err == nil {
				t.Fatalf("%s: swapped param name must not decode", algorithm)
			}
			continue
		}
		if err == nil && decoded == "usr_1" {
			t.Fatalf("%s: swapped param name must not yield the plaintext", algorithm)
		}
	}
}

func TestParamObfuscator_GCMTamperFails(t *testing.T) {
	codec, err := NewParamObfuscator([]byte("shared-key"), AlgorithmAESGCM)
	if err != nil {
		t.Fatalf("new obfuscator: %v", err)
	}
	encoded, err := codec.EncodeValue("uid", "usr_1")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	tampered := strings.Replace(encoded, "\"ciphertext\":\"", "\"ciphertext\":\"A", 1)
	if _, err := codec.DecodeValue("uid", tampered); err == nil {
		t.Fatalf("tampered ciphertext must not decode")
	}
}

func TestParamObfuscator_RejectsForeignPayloads(t *testing.T) {
	codec, err := NewParamObfuscator([]byte("shared-key"), AlgorithmXORStream)
	if err != nil {
		t.Fatalf("new obfuscator: %v", err)
	}
	if _, err := codec.DecodeValue("uid", "plain-value"); err == nil {
		t.Fatalf("missing prefix must be rejected")
	}
	if _, err := codec.DecodeValue("uid", "hostbridge.param.v1:not-json"); err == nil {
		t.Fatalf("malformed envelope must be rejected")
	}
}

func TestParamObfuscator_CrossAlgorithmDecode(t *testing.T) {
	// Decode follows the envelope's algorithm tag, not the codec default.
	gcmCodec, err := NewParamObfuscator([]byte("shared-key"), AlgorithmAESGCM)
	if err != nil {
		t.Fatalf("new obfuscator: %v", err)
	}
	xorCodec, err := NewParamObfuscator([]byte("shared-key"), AlgorithmXORStream)
	if err != nil {
		t.Fatalf("new obfuscator: %v", err)
	}

	encoded, err := gcmCodec.EncodeValue("uid", "usr_1")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := xorCodec.DecodeValue("uid", encoded)
	if err != nil {
		t.Fatalf("cross decode: %v", err)
	}
	if decoded != "usr_1" {
		t.Fatalf("cross decode mismatch: %q", decoded)
	}
}

func TestNewParamObfuscator_Validation(t *testing.T) {
	if _, err := NewParamObfuscator(nil, AlgorithmXORStream); err == nil {
		t.Fatalf("expected missing key failure")
	}
	if _, err := NewParamObfuscator([]byte("k"), "rot13"); err == nil {
		t.Fatalf("expected unsupported algorithm failure")
	}
}

func TestAppKeySecretProvider_RoundTrip(t *testing.T) {
	provider, err := NewAppKeySecretProviderFromString("master-key", WithKeyID("k1"), WithVersion(2))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	ctx := context.Background()
	sealed, err := provider.Encrypt(ctx, []byte("signing-secret"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !strings.HasPrefix(string(sealed), "hostbridge.secret.v1:") {
		t.Fatalf("missing secret envelope prefix")
	}
	plain, err := provider.Decrypt(ctx, sealed)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(plain) != "signing-secret" {
		t.Fatalf("round trip mismatch: %q", plain)
	}
}

func TestAppKeySecretProvider_KeyMismatch(t *testing.T) {
	ctx := context.Background()
	first, _ := NewAppKeySecretProviderFromString("master-key", WithKeyID("k1"))
	second, _ := NewAppKeySecretProviderFromString("master-key", WithKeyID("k2"))

	sealed, err := first.Encrypt(ctx, []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := second.Decrypt(ctx, sealed); err == nil {
		t.Fatalf("key id mismatch must fail")
	}
}
