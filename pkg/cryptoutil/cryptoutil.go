// Package cryptoutil is the crypto façade of the core: a narrow, opaque
// wrapper around the NaCl-compatible primitives Salt Channel v2 needs —
// sha512, Ed25519 attached-signature sign/verify, and X25519 box
// precompute/seal/open. No other package in this module imports a
// crypto backend directly.
package cryptoutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"errors"

	"golang.org/x/crypto/nacl/box"
)

const (
	// SigningPublicKeySize is the size of an Ed25519 public key.
	SigningPublicKeySize = ed25519.PublicKeySize
	// SigningSecretKeySize is the size of an Ed25519 secret key (seed || public).
	SigningSecretKeySize = ed25519.PrivateKeySize
	// SigningSeedSize is the size of the seed an Ed25519 key pair is derived from.
	SigningSeedSize = ed25519.SeedSize
	// SignatureSize is the size of a detached Ed25519 signature.
	SignatureSize = ed25519.SignatureSize

	// BoxPublicKeySize is the size of an X25519 public key.
	BoxPublicKeySize = 32
	// BoxSecretKeySize is the size of an X25519 secret key.
	BoxSecretKeySize = 32
	// BoxSharedKeySize is the size of a precomputed shared key.
	BoxSharedKeySize = 32
	// BoxNonceSize is the size of a box nonce.
	BoxNonceSize = 24
	// BoxOverhead is the Poly1305 authenticator length added by Seal.
	BoxOverhead = box.Overhead

	// HashSize is the size of a SHA-512 digest.
	HashSize = sha512.Size
)

// ErrBadSignature is returned by SignOpen when the signature does not
// verify against the message and public key.
var ErrBadSignature = errors.New("cryptoutil: bad signature")

// ErrBadEncryptedData is returned by BoxOpenAfterNM when the AEAD
// authenticator does not verify.
var ErrBadEncryptedData = errors.New("cryptoutil: bad encrypted data")

// SigningKeyPair is an Ed25519 key pair: a 64-byte secret
// (seed||public) and a 32-byte public key.
type SigningKeyPair struct {
	Public ed25519.PublicKey
	Secret ed25519.PrivateKey
}

// GenerateSigningKeyPair draws a fresh Ed25519 key pair from crypto/rand.
func GenerateSigningKeyPair() (SigningKeyPair, error) {
	pub, sec, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return SigningKeyPair{}, err
	}
	return SigningKeyPair{Public: pub, Secret: sec}, nil
}

// SigningKeyPairFromSeed deterministically derives a key pair from a
// 32-byte seed, used by cmd/saltecho's --sig-seed flag to give a demo
// peer a reproducible identity.
func SigningKeyPairFromSeed(seed []byte) (SigningKeyPair, error) {
	if len(seed) != SigningSeedSize {
		return SigningKeyPair{}, errors.New("cryptoutil: signing seed must be 32 bytes")
	}
	sec := ed25519.NewKeyFromSeed(seed)
	return SigningKeyPair{Public: sec.Public().(ed25519.PublicKey), Secret: sec}, nil
}

// BoxKeyPair is an X25519 key pair used for the ephemeral encryption
// key negotiated once per session.
type BoxKeyPair struct {
	Public [BoxPublicKeySize]byte
	Secret [BoxSecretKeySize]byte
}

// GenerateBoxKeyPair draws a fresh X25519 key pair from crypto/rand.
func GenerateBoxKeyPair() (BoxKeyPair, error) {
	pub, sec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return BoxKeyPair{}, err
	}
	return BoxKeyPair{Public: *pub, Secret: *sec}, nil
}

// SHA512 hashes m, used to build the handshake transcript (m1Hash, m2Hash).
func SHA512(m []byte) [HashSize]byte {
	return sha512.Sum512(m)
}

// Sign returns m with a 64-byte Ed25519 signature appended: m||sig64.
func Sign(m []byte, sk ed25519.PrivateKey) []byte {
	sig := ed25519.Sign(sk, m)
	out := make([]byte, 0, len(m)+SignatureSize)
	out = append(out, m...)
	return append(out, sig...)
}

// SignOpen verifies a detached signature over m against pk. Unlike
// NaCl's crypto_sign_open it takes the message and signature
// separately, which is how M3/M4 carry them on the wire; callers pass
// m=the signed transcript and sig=the packet's 64-byte signature field.
func SignOpen(m, sig []byte, pk ed25519.PublicKey) error {
	if len(sig) != SignatureSize {
		return ErrBadSignature
	}
	if !ed25519.Verify(pk, m, sig) {
		return ErrBadSignature
	}
	return nil
}

// BoxBeforeNM precomputes the shared key used for the lifetime of a
// session: X25519(mySecret, peerPublic).
func BoxBeforeNM(peerPublic, mySecret *[BoxPublicKeySize]byte) [BoxSharedKeySize]byte {
	var shared [BoxSharedKeySize]byte
	box.Precompute(&shared, peerPublic, mySecret)
	return shared
}

// BoxAfterNM seals plaintext under the precomputed shared key and
// nonce, returning ciphertext len(plaintext)+16 bytes long.
func BoxAfterNM(plaintext []byte, nonce *[BoxNonceSize]byte, sharedKey *[BoxSharedKeySize]byte) []byte {
	return box.SealAfterPrecomputation(nil, plaintext, nonce, sharedKey)
}

// BoxOpenAfterNM opens ciphertext sealed by BoxAfterNM, or fails with
// ErrBadEncryptedData if the authenticator does not verify.
func BoxOpenAfterNM(ciphertext []byte, nonce *[BoxNonceSize]byte, sharedKey *[BoxSharedKeySize]byte) ([]byte, error) {
	plaintext, ok := box.OpenAfterPrecomputation(nil, ciphertext, nonce, sharedKey)
	if !ok {
		return nil, ErrBadEncryptedData
	}
	return plaintext, nil
}

// Zero overwrites b with zeroes. Used to scrub secret material
// (ephemeral private keys, the derived session key) before release.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
