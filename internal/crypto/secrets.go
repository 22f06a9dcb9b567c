package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	blobVersion = "v1"
	saltSize    = 16
	keySize     = 32
	iterations  = 100_000
)

// Error is returned for any cryptographic failure: tampered ciphertext,
// wrong key, or a malformed blob. Decryption fails closed and never returns
// partial plaintext.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("crypto: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("crypto: %s", e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

// EncryptedBlob is one encrypted credential field. Salt and IV are freshly
// random per encryption, so encrypting identical plaintext twice yields
// different blobs. The GCM tag is appended to Ciphertext by Seal.
type EncryptedBlob struct {
	Salt       []byte
	IV         []byte
	Ciphertext []byte
}

// String serializes the blob as "v1:salt:iv:ciphertext" with base64 parts,
// suitable for a text column.
func (b EncryptedBlob) String() string {
	enc := base64.StdEncoding
	return strings.Join([]string{
		blobVersion,
		enc.EncodeToString(b.Salt),
		enc.EncodeToString(b.IV),
		enc.EncodeToString(b.Ciphertext),
	}, ":")
}

// ParseBlob parses the serialized form produced by String.
func ParseBlob(s string) (EncryptedBlob, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 || parts[0] != blobVersion {
		return EncryptedBlob{}, &Error{Op: "parse blob", Err: fmt.Errorf("malformed blob")}
	}
	enc := base64.StdEncoding
	salt, err := enc.DecodeString(parts[1])
	if err != nil {
		return EncryptedBlob{}, &Error{Op: "parse blob salt", Err: err}
	}
	iv, err := enc.DecodeString(parts[2])
	if err != nil {
		return EncryptedBlob{}, &Error{Op: "parse blob iv", Err: err}
	}
	ct, err := enc.DecodeString(parts[3])
	if err != nil {
		return EncryptedBlob{}, &Error{Op: "parse blob ciphertext", Err: err}
	}
	return EncryptedBlob{Salt: salt, IV: iv, Ciphertext: ct}, nil
}

// deriveKey binds a key to a single ciphertext: the master secret alone is
// insufficient to decrypt without the blob's stored salt.
func deriveKey(masterSecret string, salt []byte) []byte {
	return pbkdf2.Key([]byte(masterSecret), salt, iterations, keySize, sha256.New)
}

// Encrypt encrypts plaintext under a key derived from the master secret and
// a fresh random salt, returning the serialized blob.
func Encrypt(plaintext []byte, masterSecret string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", &Error{Op: "generate salt", Err: err}
	}

	gcm, err := newGCM(masterSecret, salt)
	if err != nil {
		return "", err
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", &Error{Op: "generate iv", Err: err}
	}

	ct := gcm.Seal(nil, iv, plaintext, nil)
	return EncryptedBlob{Salt: salt, IV: iv, Ciphertext: ct}.String(), nil
}

// Decrypt authenticates and decrypts a serialized blob. Any bit flip in the
// ciphertext, IV, or salt causes an Error.
func Decrypt(blob string, masterSecret string) ([]byte, error) {
	b, err := ParseBlob(blob)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(masterSecret, b.Salt)
	if err != nil {
		return nil, err
	}
	if len(b.IV) != gcm.NonceSize() {
		return nil, &Error{Op: "decrypt", Err: fmt.Errorf("bad iv length %d", len(b.IV))}
	}

	plaintext, err := gcm.Open(nil, b.IV, b.Ciphertext, nil)
	if err != nil {
		return nil, &Error{Op: "decrypt", Err: err}
	}
	return plaintext, nil
}

// EncryptFields encrypts the named fields of m in place, leaving all other
// fields untouched. Absent or empty fields are skipped.
func EncryptFields(m map[string]string, names []string, masterSecret string) error {
	for _, name := range names {
		v, ok := m[name]
		if !ok || v == "" {
			continue
		}
		blob, err := Encrypt([]byte(v), masterSecret)
		if err != nil {
			return fmt.Errorf("encrypt field %s: %w", name, err)
		}
		m[name] = blob
	}
	return nil
}

// DecryptFields decrypts the named fields of m in place.
func DecryptFields(m map[string]string, names []string, masterSecret string) error {
	for _, name := range names {
		v, ok := m[name]
		if !ok || v == "" {
			continue
		}
		plaintext, err := Decrypt(v, masterSecret)
		if err != nil {
			return fmt.Errorf("decrypt field %s: %w", name, err)
		}
		m[name] = string(plaintext)
	}
	return nil
}

func newGCM(masterSecret string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(masterSecret, salt))
	if err != nil {
		return nil, &Error{Op: "new cipher", Err: err}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &Error{Op: "new gcm", Err: err}
	}
	return gcm, nil
}
