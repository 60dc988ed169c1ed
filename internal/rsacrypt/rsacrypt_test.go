package rsacrypt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"math/big"
	"testing"
)

func TestDecryptStreamRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatal(err)
	}
	pub := &priv.PublicKey
	pemKey := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(pub),
	})

	blockSize := (pub.N.BitLen() + 7) / 8
	plain := make([]byte, blockSize-1) // deliberately short, exercises left-pad
	for i := range plain {
		plain[i] = byte(i + 1)
	}

	// Emulate the legacy scheme's encrypt side directly: c = m^d mod n,
	// the inverse of the public-key "decrypt" operation under test.
	m := new(big.Int).SetBytes(plain)
	c := new(big.Int).Exp(m, priv.D, priv.N)
	encrypted := make([]byte, blockSize)
	c.FillBytes(encrypted)

	r, err := DecryptStream(encrypted, pemKey)
	if err != nil {
		t.Fatal(err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != blockSize {
		t.Fatalf("got %d bytes, want %d (left-padded)", len(got), blockSize)
	}
	// Left-pad: the leading zero byte accounts for the one-byte-short plaintext.
	want := append([]byte{0}, plain...)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestDecryptStreamRejectsBadLength(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 512)
	if err != nil {
		t.Fatal(err)
	}
	pemKey := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(&priv.PublicKey),
	})
	if _, err := DecryptStream([]byte{1, 2, 3}, pemKey); err == nil {
		t.Fatal("expected an error for a mis-sized input")
	}
}
