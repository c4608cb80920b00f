package hook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// VerifySignature authenticates a raw webhook body against the provider's
// shared secret: the header must equal the hex HMAC-SHA512 of the exact raw
// bytes. It must run before any JSON decoding; re-encoding the body would
// make the comparison meaningless.
//
// An empty secret is the documented permissive mode (environments that have
// not provisioned one yet): verification always succeeds.
func VerifySignature(body []byte, header, secret string) bool {
	if secret == "" {
		return true
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(header))
}
