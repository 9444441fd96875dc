// Package identity abstracts over signing identities: keypairs that hold a
// raw private key directly, and wallet-style identities that delegate
// signing without ever exposing the key. Consumers dispatch on the
// capability interfaces rather than concrete types.
package identity

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"solana-nft-kit/internal/solana"
)

// Identity is any signing identity addressable by public key.
type Identity interface {
	PublicKey() solana.PublicKey
}

// DirectSigner is an identity holding its raw private key. Clients that can
// use the key directly (local signing) should prefer this capability.
type DirectSigner interface {
	Identity
	PrivateKey() ed25519.PrivateKey
	Sign(message []byte) ([]byte, error)
}

// DelegatedSigner is an identity that signs through an external agent, such
// as a browser wallet. The key never leaves the delegate.
type DelegatedSigner interface {
	Identity
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// KeypairIdentity wraps a raw ed25519 keypair.
type KeypairIdentity struct {
	priv ed25519.PrivateKey
	pub  solana.PublicKey
}

// Compile-time capability check.
var _ DirectSigner = (*KeypairIdentity)(nil)

// NewKeypairIdentity creates an identity from a raw private key.
func NewKeypairIdentity(priv ed25519.PrivateKey) (*KeypairIdentity, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length %d, want %d", len(priv), ed25519.PrivateKeySize)
	}
	pub, err := solana.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	return &KeypairIdentity{priv: priv, pub: pub}, nil
}

// PublicKey returns the identity's address.
func (k *KeypairIdentity) PublicKey() solana.PublicKey {
	return k.pub
}

// PrivateKey exposes the raw key for clients that sign locally.
func (k *KeypairIdentity) PrivateKey() ed25519.PrivateKey {
	return k.priv
}

// Sign signs the message with the raw key.
func (k *KeypairIdentity) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(k.priv, message), nil
}

// SignFunc signs a message on behalf of a wallet identity.
type SignFunc func(ctx context.Context, message []byte) ([]byte, error)

// WalletIdentity delegates signing to a callback, modeling wallet adapters
// that keep the private key out of process.
type WalletIdentity struct {
	pub  solana.PublicKey
	sign SignFunc
}

// Compile-time capability check.
var _ DelegatedSigner = (*WalletIdentity)(nil)

// NewWalletIdentity creates a delegated-signing identity.
func NewWalletIdentity(pub solana.PublicKey, sign SignFunc) *WalletIdentity {
	return &WalletIdentity{pub: pub, sign: sign}
}

// PublicKey returns the identity's address.
func (w *WalletIdentity) PublicKey() solana.PublicKey {
	return w.pub
}

// SignMessage forwards the message to the delegate.
func (w *WalletIdentity) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	return w.sign(ctx, message)
}
