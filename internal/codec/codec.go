// Package codec encrypts and decrypts sensitive scalar fields before they
// are written to the database. Values are stored as "ivHex:cipherHex" text
// so the schema only ever deals in plain string columns.
//
// Decryption degrades gracefully: any malformed input is returned verbatim
// so that legacy unencrypted rows keep working.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const keyLength = 32 // AES-256

// Codec performs symmetric field encryption with a per-call random IV.
type Codec struct {
	key []byte
}

// New derives a Codec from the configured secret. Secrets shorter than the
// AES-256 key length are right-padded with zero bytes; longer ones are
// truncated.
func New(secret string) *Codec {
	key := make([]byte, keyLength)
	copy(key, secret)
	return &Codec{key: key}
}

// Encrypt encrypts a scalar value and returns "ivHex:cipherHex".
// Numeric values are formatted the way strconv renders them so that
// Decrypt(Encrypt(x)) round-trips to the string form of x.
func (c *Codec) Encrypt(value any) (string, error) {
	if value == nil {
		return "", nil
	}
	return c.encryptString(stringify(value))
}

// EncryptString encrypts a plain string field.
func (c *Codec) EncryptString(value string) (string, error) {
	return c.encryptString(value)
}

// EncryptDecimal encrypts a decimal amount in its canonical string form.
func (c *Codec) EncryptDecimal(value decimal.Decimal) (string, error) {
	return c.encryptString(value.String())
}

func (c *Codec) encryptString(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt decrypts an "ivHex:cipherHex" value. Malformed input (wrong part
// count, bad hex, bad length, bad padding) is returned unchanged rather
// than producing an error, to tolerate historical unencrypted data.
func (c *Codec) Decrypt(cipherText string) string {
	parts := strings.Split(cipherText, ":")
	if len(parts) != 2 {
		return cipherText
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return cipherText
	}

	data, err := hex.DecodeString(parts[1])
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return cipherText
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return cipherText
	}

	plaintext := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, data)

	unpadded, ok := pkcs7Unpad(plaintext, aes.BlockSize)
	if !ok {
		return cipherText
	}
	return string(unpadded)
}

// DecryptToNumber decrypts a value and parses it as a float. Nil or
// non-numeric input yields 0, never NaN.
func (c *Codec) DecryptToNumber(cipherText *string) float64 {
	if cipherText == nil {
		return 0
	}
	n, err := strconv.ParseFloat(c.Decrypt(*cipherText), 64)
	if err != nil {
		return 0
	}
	return n
}

// DecryptToDecimal decrypts a value and parses it as a decimal amount.
// Non-numeric input yields decimal.Zero.
func (c *Codec) DecryptToDecimal(cipherText string) decimal.Decimal {
	d, err := decimal.NewFromString(c.Decrypt(cipherText))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case decimal.Decimal:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, false
		}
	}
	return data[:len(data)-padding], true
}
