// Package rsacrypt implements the legacy RSA header-decryption scheme
// used by the oldest BHD5 generations (spec section 4.4): the header
// blob is "decrypted" by running the raw RSA primitive with the
// *public* key, block by block, left-padding short results with zero
// bytes. This is not PKCS#1 — preserving that quirk is required for
// file-format compatibility (design notes, open question iii) — so it
// is implemented directly against math/big rather than crypto/rsa's
// decrypt path, which assumes a private key and PKCS#1 padding.
package rsacrypt

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/cockroachdb/errors"

	"github.com/ashenhollow/bhd5kit/internal/errs"
)

var errBadPEM = errors.New("rsacrypt: no PEM block found")
var errBadKey = errors.New("rsacrypt: not an RSA public key")

// DecryptStream decrypts encrypted using the RSA public key in pemKey,
// returning the concatenated, left-padded plaintext blocks as an
// in-memory, positioned-at-0 reader.
func DecryptStream(encrypted []byte, pemKey []byte) (*bytes.Reader, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errs.Crypto(errBadPEM)
	}

	pub, err := parsePublicKey(block.Bytes)
	if err != nil {
		return nil, errs.Crypto(err)
	}

	inputBlockSize := (pub.N.BitLen() + 7) / 8
	outputBlockSize := inputBlockSize

	if len(encrypted) == 0 || len(encrypted)%inputBlockSize != 0 {
		return nil, errs.IO(fmt.Errorf("rsacrypt: encrypted length %d is not a multiple of block size %d",
			len(encrypted), inputBlockSize))
	}

	e := big.NewInt(int64(pub.E))
	out := make([]byte, 0, len(encrypted))
	padded := make([]byte, outputBlockSize)
	for off := 0; off < len(encrypted); off += inputBlockSize {
		c := new(big.Int).SetBytes(encrypted[off : off+inputBlockSize])
		m := new(big.Int).Exp(c, e, pub.N)
		raw := m.Bytes()

		for i := range padded {
			padded[i] = 0
		}
		copy(padded[outputBlockSize-len(raw):], raw)
		out = append(out, padded...)
	}
	return bytes.NewReader(out), nil
}

func parsePublicKey(der []byte) (*rsa.PublicKey, error) {
	if k, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return k, nil
	}
	if k, err := x509.ParsePKIXPublicKey(der); err == nil {
		if rk, ok := k.(*rsa.PublicKey); ok {
			return rk, nil
		}
	}
	return nil, errBadKey
}
