// Package security holds the reversible URL-parameter obfuscation and the
// app-key secret provider. The obfuscation is advisory concealment against
// casual inspection, not a cryptographic boundary: anyone with the client
// binary can recover the key.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-hostbridge/core"
)

const (
	paramEnvelopePrefix = "hostbridge.param.v1:"

	AlgorithmXORStream = "xor-stream"
	AlgorithmAESGCM    = "aes-256-gcm"

	paramNonceSize = 12
)

type paramEnvelope struct {
	Algorithm  string `json:"alg"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// ParamObfuscator implements the reversible codec for allow-listed URL
// parameters. Both algorithms share the envelope format, so values encoded
// with either decode as long as the key matches.
type ParamObfuscator struct {
	key       []byte
	algorithm string
	rand      io.Reader
}

func NewParamObfuscator(keyMaterial []byte, algorithm string) (*ParamObfuscator, error) {
	if len(keyMaterial) == 0 {
		return nil, fmt.Errorf("security: key material is required")
	}
	algorithm = strings.TrimSpace(strings.ToLower(algorithm))
	if algorithm == "" {
		algorithm = AlgorithmXORStream
	}
	if algorithm != AlgorithmXORStream && algorithm != AlgorithmAESGCM {
		return nil, fmt.Errorf("security: unsupported obfuscation algorithm %q", algorithm)
	}
	return &ParamObfuscator{
		key:       normalizeKey(keyMaterial),
		algorithm: algorithm,
		rand:      rand.Reader,
	}, nil
}

// FromConfig builds the codec from the resolved session configuration.
func FromConfig(cfg core.ObfuscationConfig, keyMaterial []byte) (*ParamObfuscator, error) {
	return NewParamObfuscator(keyMaterial, cfg.Algorithm)
}

func (o *ParamObfuscator) Algorithm() string {
	if o == nil {
		return ""
	}
	return o.algorithm
}

func (o *ParamObfuscator) EncodeValue(name string, value string) (string, error) {
	if o == nil {
		return "", fmt.Errorf("security: obfuscator is nil")
	}
	nonce := make([]byte, paramNonceSize)
	if _, err := io.ReadFull(o.reader(), nonce); err != nil {
		return "", fmt.Errorf("security: nonce generation failed: %w", err)
	}

	var sealed []byte
	switch o.algorithm {
	case AlgorithmAESGCM:
		gcm, err := o.gcm()
		if err != nil {
			return "", err
		}
		sealed = gcm.Seal(nil, nonce, []byte(value), []byte(name))
	default:
		sealed = xorStream(o.key, name, nonce, []byte(value))
	}

	data, err := json.Marshal(paramEnvelope{
		Algorithm:  o.algorithm,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	})
	if err != nil {
		return "", fmt.Errorf("security: encode envelope: %w", err)
	}
	return paramEnvelopePrefix + string(data), nil
}

func (o *ParamObfuscator) DecodeValue(name string, value string) (string, error) {
	if o == nil {
		return "", fmt.Errorf("security: obfuscator is nil")
	}
	payload := strings.TrimSpace(value)
	if !strings.HasPrefix(payload, paramEnvelopePrefix) {
		return "", fmt.Errorf("security: invalid param envelope prefix")
	}
	payload = strings.TrimPrefix(payload, paramEnvelopePrefix)

	var parsed paramEnvelope
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return "", fmt.Errorf("security: decode envelope: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(parsed.Nonce)
	if err != nil {
		return "", fmt.Errorf("security: decode nonce: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(parsed.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("security: decode ciphertext payload: %w", err)
	}

	switch strings.TrimSpace(strings.ToLower(parsed.Algorithm)) {
	case AlgorithmAESGCM:
		gcm, err := o.gcm()
		if err != nil {
			return "", err
		}
		plain, err := gcm.Open(nil, nonce, sealed, []byte(name))
		if err != nil {
			return "", fmt.Errorf("security: decrypt param: %w", err)
		}
		return string(plain), nil
	case AlgorithmXORStream, "":
		return string(xorStream(o.key, name, nonce, sealed)), nil
	default:
		return "", fmt.Errorf("security: unsupported obfuscation algorithm %q", parsed.Algorithm)
	}
}

func (o *ParamObfuscator) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(o.key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: create gcm: %w", err)
	}
	return gcm, nil
}

func (o *ParamObfuscator) reader() io.Reader {
	if o != nil && o.rand != nil {
		return o.rand
	}
	return rand.Reader
}

// xorStream applies a keystream derived from sha256(key || name || nonce ||
// counter). The transform is its own inverse; the param name is mixed in so
// a value swapped between params does not decode.
func xorStream(key []byte, name string, nonce []byte, input []byte) []byte {
	output := make([]byte, len(input))
	var counter uint32
	offset := 0
	for offset < len(input) {
		h := sha256.New()
		h.Write(key)
		h.Write([]byte(name))
		h.Write(nonce)
		var counterBytes [4]byte
		binary.BigEndian.PutUint32(counterBytes[:], counter)
		h.Write(counterBytes[:])
		block := h.Sum(nil)
		for i := 0; i < len(block) && offset < len(input); i++ {
			output[offset] = input[offset] ^ block[i]
			offset++
		}
		counter++
	}
	return output
}

func normalizeKey(value []byte) []byte {
	if len(value) == 16 || len(value) == 24 || len(value) == 32 {
		key := make([]byte, len(value))
		copy(key, value)
		return key
	}
	sum := sha256.Sum256(value)
	key := make([]byte, len(sum))
	copy(key, sum[:])
	return key
}

var _ core.ParamCodec = (*ParamObfuscator)(nil)
