// Package stealth implements a dual-key (view/spend) stealth address scheme over
// secp256k1.
//
// A sender holding a recipient's public view key V and spend key S picks an
// ephemeral key r and publishes R = rG. The shared secret is the x coordinate of
// rV (equivalently vR). With h = H(shared) the one-time address belongs to the
// public key S + hG, whose private key s + h only the spend key holder can compute.
// Label and note are sealed with XChaCha20-Poly1305 under a key derived from the
// same secret, and a one byte view tag lets scanners reject most events cheaply.
package stealth

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/chris/stealth-ledger/pkg/models"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/sha3"
)

var (
	viewDomain   = []byte("stealth/view")
	spendDomain  = []byte("stealth/spend")
	tweakDomain  = []byte("stealth/tweak")
	cipherDomain = []byte("stealth/cipher")
)

// ErrMalformedEvent is returned when an event cannot be interpreted at all,
// as opposed to simply not being addressed to the keys.
var ErrMalformedEvent = errors.New("malformed stealth event")

// Keys is a recipient's key pair set.
type Keys struct {
	View  *btcec.PrivateKey
	Spend *btcec.PrivateKey
}

// MetaAddress is the public half of Keys that senders pay to.
type MetaAddress struct {
	View  *btcec.PublicKey
	Spend *btcec.PublicKey
}

// DeriveStealthKeys derives view and spend keys from a seed of at least 32 bytes.
func DeriveStealthKeys(seed []byte) (*Keys, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("seed too short: %d bytes", len(seed))
	}
	view, err := scalarKey(viewDomain, seed)
	if err != nil {
		return nil, err
	}
	spend, err := scalarKey(spendDomain, seed)
	if err != nil {
		return nil, err
	}
	return &Keys{View: view, Spend: spend}, nil
}

// ParseKeys builds Keys from hex encoded 32 byte private keys.
func ParseKeys(viewHex, spendHex string) (*Keys, error) {
	view, err := parsePrivateKey(viewHex)
	if err != nil {
		return nil, fmt.Errorf("invalid view key: %w", err)
	}
	spend, err := parsePrivateKey(spendHex)
	if err != nil {
		return nil, fmt.Errorf("invalid spend key: %w", err)
	}
	return &Keys{View: view, Spend: spend}, nil
}

// Meta returns the public meta address for k.
func (k *Keys) Meta() MetaAddress {
	return MetaAddress{View: k.View.PubKey(), Spend: k.Spend.PubKey()}
}

func parsePrivateKey(s string) (*btcec.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, err
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("want 32 bytes, got %d", len(raw))
	}
	var k btcec.ModNScalar
	if overflow := k.SetByteSlice(raw); overflow || k.IsZero() {
		return nil, errors.New("key out of range")
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return priv, nil
}

func scalarKey(domain, seed []byte) (*btcec.PrivateKey, error) {
	sum := sha256.Sum256(append(append([]byte{}, domain...), seed...))
	var k btcec.ModNScalar
	k.SetByteSlice(sum[:])
	if k.IsZero() {
		return nil, errors.New("derived zero key")
	}
	b := k.Bytes()
	priv, _ := btcec.PrivKeyFromBytes(b[:])
	return priv, nil
}

// Address returns the on-chain address controlled by pub.
func Address(pub *btcec.PublicKey) string {
	digest := sha3.Sum256(pub.SerializeCompressed())
	return "0x" + hex.EncodeToString(digest[:])
}

func tweak(shared []byte) btcec.ModNScalar {
	sum := sha256.Sum256(append(append([]byte{}, tweakDomain...), shared...))
	var h btcec.ModNScalar
	h.SetByteSlice(sum[:])
	return h
}

func viewTag(shared []byte) byte {
	sum := sha256.Sum256(shared)
	return sum[0]
}

func stealthPublicKey(spend *btcec.PublicKey, h *btcec.ModNScalar) *btcec.PublicKey {
	var spendPoint, tweakPoint, result btcec.JacobianPoint
	spend.AsJacobian(&spendPoint)
	btcec.ScalarBaseMultNonConst(h, &tweakPoint)
	btcec.AddNonConst(&spendPoint, &tweakPoint, &result)
	result.ToAffine()
	return btcec.NewPublicKey(&result.X, &result.Y)
}

func cipherKey(shared []byte) []byte {
	sum := sha256.Sum256(append(append([]byte{}, cipherDomain...), shared...))
	return sum[:]
}

func seal(shared []byte, plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}
	aead, err := chacha20poly1305.NewX(cipherKey(shared))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func open(shared, ciphertext []byte) (string, error) {
	if len(ciphertext) == 0 {
		return "", nil
	}
	aead, err := chacha20poly1305.NewX(cipherKey(shared))
	if err != nil {
		return "", err
	}
	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return "", errors.New("ciphertext too short")
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Outgoing is what a sender publishes in a payment event.
type Outgoing struct {
	StealthAddress  string
	EphemeralPubkey []byte
	ViewTag         []byte
	Label           []byte
	Note            []byte
}

// NewPayment generates a one-time address for meta and seals label and note to it.
func NewPayment(meta MetaAddress, label, note string) (*Outgoing, error) {
	ephemeral, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	shared := btcec.GenerateSharedSecret(ephemeral, meta.View)
	h := tweak(shared)

	sealedLabel, err := seal(shared, label)
	if err != nil {
		return nil, fmt.Errorf("failed to seal label: %w", err)
	}
	sealedNote, err := seal(shared, note)
	if err != nil {
		return nil, fmt.Errorf("failed to seal note: %w", err)
	}

	return &Outgoing{
		StealthAddress:  Address(stealthPublicKey(meta.Spend, &h)),
		EphemeralPubkey: ephemeral.PubKey().SerializeCompressed(),
		ViewTag:         []byte{viewTag(shared)},
		Label:           sealedLabel,
		Note:            sealedNote,
	}, nil
}

// ScanEvent runs the ownership test for event. It returns nil, nil when the event
// is addressed to someone else, and ErrMalformedEvent when its ephemeral key
// cannot be parsed. A label or note that fails to decrypt is returned empty.
func ScanEvent(event models.PaymentEvent, viewKey, spendKey *btcec.PrivateKey) (*models.ScannedPayment, error) {
	if viewKey == nil || spendKey == nil {
		return nil, errors.New("view and spend keys are required")
	}
	ephemeral, err := btcec.ParsePubKey(event.EphemeralPubkey)
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral key: %v", ErrMalformedEvent, err)
	}

	shared := btcec.GenerateSharedSecret(viewKey, ephemeral)
	if len(event.Payload) > 0 && event.Payload[0] != viewTag(shared) {
		return nil, nil
	}

	h := tweak(shared)
	if !strings.EqualFold(Address(stealthPublicKey(spendKey.PubKey(), &h)), normalizeAddress(event.StealthOwner)) {
		return nil, nil
	}

	var k btcec.ModNScalar
	k.Set(&spendKey.Key)
	k.Add(&h)
	stealthKey := k.Bytes()

	// Label and note come from the payer. One that fails to decrypt is left
	// empty; the payment is still owned.
	label, err := open(shared, event.Label)
	if err != nil {
		label = ""
	}
	note, err := open(shared, event.Note)
	if err != nil {
		note = ""
	}

	return &models.ScannedPayment{
		StealthAddress:    normalizeAddress(event.StealthOwner),
		Payer:             event.Payer,
		Amount:            event.Amount,
		DecryptedLabel:    label,
		DecryptedNote:     note,
		StealthPrivateKey: stealthKey[:],
		EphemeralPubkey:   bytes.Clone(event.EphemeralPubkey),
		TxHash:            event.TxHash,
		EventIndex:        event.EventIndex,
		Version:           event.Version,
	}, nil
}

// normalizeAddress lowercases and left pads a hex address to 32 bytes, since
// nodes strip leading zeros.
func normalizeAddress(addr string) string {
	trimmed := strings.TrimPrefix(strings.ToLower(addr), "0x")
	if len(trimmed) < 64 {
		trimmed = strings.Repeat("0", 64-len(trimmed)) + trimmed
	}
	return "0x" + trimmed
}
