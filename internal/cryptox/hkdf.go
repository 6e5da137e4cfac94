package cryptox

import (
	"crypto/hkdf"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
)

const (
	registrationInfo = "mible-setup-info"
	loginInfo        = "mible-login-info"
	expandLen        = 64

	TokenLen   = 12
	BindKeyLen = 16
	AKeyLen    = 16

	SessionKeyLen = 16
	SessionIVLen  = 4
)

// RegistrationKeys is the first 44 of the 64 bytes HKDF-expand yields
// during registration, split per spec.md §4.2: token, bind_key (unused past this handshake, kept
// so a future firmware revision's rebind flow has somewhere to live), and
// a_key (used for the one-shot did_ct CCM encryption).
type RegistrationKeys struct {
	Token   [TokenLen]byte
	BindKey [BindKeyLen]byte
	AKey    [AKeyLen]byte
}

// DeriveRegistrationKeys runs the registration HKDF ceremony: extract with
// an empty salt over the ECDH shared secret, then expand under
// "mible-setup-info".
func DeriveRegistrationKeys(sharedSecret []byte) (RegistrationKeys, error) {
	prk, err := hkdf.Extract(sha256.New, sharedSecret, nil)
	if err != nil {
		return RegistrationKeys{}, fmt.Errorf("cryptox: hkdf extract (registration): %w", err)
	}
	okm, err := hkdf.Expand(sha256.New, prk, registrationInfo, expandLen)
	if err != nil {
		return RegistrationKeys{}, fmt.Errorf("cryptox: hkdf expand (registration): %w", err)
	}

	var out RegistrationKeys
	copy(out.Token[:], okm[0:12])
	copy(out.BindKey[:], okm[12:28])
	copy(out.AKey[:], okm[28:44])
	return out, nil
}

// SessionKeys is the first 40 of the 64 bytes HKDF-expand yields during
// login, split per
// spec.md §4.2 into the per-direction key and IV bundle.
type SessionKeys struct {
	DevKey [SessionKeyLen]byte // decrypt scooter -> client
	AppKey [SessionKeyLen]byte // encrypt client -> scooter
	DevIV  [SessionIVLen]byte
	AppIV  [SessionIVLen]byte
}

// DeriveSessionKeys runs the login HKDF ceremony: extract with salt
// client_rand||scooter_rand over ikm=token, then expand under
// "mible-login-info".
func DeriveSessionKeys(token, clientRand, scooterRand []byte) (SessionKeys, error) {
	salt := make([]byte, 0, len(clientRand)+len(scooterRand))
	salt = append(salt, clientRand...)
	salt = append(salt, scooterRand...)

	prk, err := hkdf.Extract(sha256.New, token, salt)
	if err != nil {
		return SessionKeys{}, fmt.Errorf("cryptox: hkdf extract (login): %w", err)
	}
	okm, err := hkdf.Expand(sha256.New, prk, loginInfo, expandLen)
	if err != nil {
		return SessionKeys{}, fmt.Errorf("cryptox: hkdf expand (login): %w", err)
	}

	var out SessionKeys
	copy(out.DevKey[:], okm[0:16])
	copy(out.AppKey[:], okm[16:32])
	copy(out.DevIV[:], okm[32:36])
	copy(out.AppIV[:], okm[36:40])
	return out, nil
}

// HMACSHA256 computes the login-info-exchange MAC over key and msg.
func HMACSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// ConstantTimeEqual reports whether a and b are identical, in time
// independent of where they first differ.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
