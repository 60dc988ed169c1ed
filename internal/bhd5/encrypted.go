package bhd5

import (
	"io"

	"github.com/ashenhollow/bhd5kit/internal/errs"
	"github.com/ashenhollow/bhd5kit/internal/rsacrypt"
)

// ReadEncrypted parses a BHD5 header that the oldest generation (spec
// section 4.4, DemonsSouls) wrapped with the legacy RSA-public-key
// scheme: the whole file body is read, decrypted block by block against
// pemKey, and the plaintext handed to Read.
func ReadEncrypted(r io.Reader, pemKey []byte) (*Header, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.IO(err)
	}
	plain, err := rsacrypt.DecryptStream(raw, pemKey)
	if err != nil {
		return nil, err
	}
	return Read(plain)
}
