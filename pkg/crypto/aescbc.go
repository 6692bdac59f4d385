// Package crypto opens credentials that are stored sealed in the
// configuration file.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrMalformed is returned for input that is not a well formed sealed
// value under the given key.
var ErrMalformed = errors.New("malformed sealed value")

// Open decodes base64(IV || ciphertext) and decrypts it with AES-CBC under
// key, stripping PKCS#7 padding. The key length selects AES-128, -192 or
// -256.
func Open(sealed, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", fmt.Errorf("sealing key: %w", err)
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: %d bytes", ErrMalformed, len(raw))
	}

	iv, body := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	n := int(plain[len(plain)-1])
	if n == 0 || n > aes.BlockSize {
		return "", fmt.Errorf("%w: bad padding", ErrMalformed)
	}
	for _, b := range plain[len(plain)-n:] {
		if int(b) != n {
			return "", fmt.Errorf("%w: bad padding", ErrMalformed)
		}
	}
	return string(plain[:len(plain)-n]), nil
}
