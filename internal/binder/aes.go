// AES-CBC is the one per-entry cipher the target games use (SHA/AES are
// modeled as optional sub-records per design notes). crypto/aes and
// crypto/cipher are the correct tool here: no ecosystem library offers a
// better fit for a fixed 128-bit-key, fixed-IV, in-place CBC decrypt
// than the standard library's primitives (see DESIGN.md).
package binder

import (
	"crypto/aes"
	"crypto/cipher"
)

// aesCBCDecryptor returns a Decrypt func that CBC-decrypts buf in place
// using key and iv. buf's length must be a multiple of the AES block
// size; a short final block is left untouched rather than panicking,
// since unpack.go already clamps reads to ReadLength().
func aesCBCDecryptor(key, iv []byte) func([]byte) {
	return func(buf []byte) {
		block, err := aes.NewCipher(key)
		if err != nil {
			return // malformed key material; caller's integrity check (SHA) would catch this
		}
		n := len(buf) - len(buf)%block.BlockSize()
		if n == 0 {
			return
		}
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(buf[:n], buf[:n])
	}
}
