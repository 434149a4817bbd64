package stealth

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/chris/stealth-ledger/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys(t *testing.T, fill byte) *Keys {
	t.Helper()
	keys, err := DeriveStealthKeys(bytes.Repeat([]byte{fill}, 32))
	require.NoError(t, err)
	return keys
}

func eventFor(out *Outgoing) models.PaymentEvent {
	return models.PaymentEvent{
		StealthOwner:    out.StealthAddress,
		Payer:           "0xpayer",
		Amount:          500,
		Label:           out.Label,
		EphemeralPubkey: out.EphemeralPubkey,
		Payload:         out.ViewTag,
		Note:            out.Note,
		TxHash:          "0xh1",
		EventIndex:      2,
		Version:         77,
	}
}

func TestDeriveStealthKeys(t *testing.T) {
	a := testKeys(t, 7)
	b := testKeys(t, 7)

	assert.Equal(t, a.View.Serialize(), b.View.Serialize())
	assert.NotEqual(t, a.View.Serialize(), a.Spend.Serialize())

	_, err := DeriveStealthKeys([]byte("short"))
	assert.Error(t, err)
}

func TestScanEvent(t *testing.T) {
	recipient := testKeys(t, 1)
	stranger := testKeys(t, 2)

	t.Run("Owned Payment", func(t *testing.T) {
		out, err := NewPayment(recipient.Meta(), "villa-1#r1", "thanks")
		require.NoError(t, err)

		scanned, err := ScanEvent(eventFor(out), recipient.View, recipient.Spend)

		require.NoError(t, err)
		require.NotNil(t, scanned)
		assert.Equal(t, "villa-1#r1", scanned.DecryptedLabel)
		assert.Equal(t, "thanks", scanned.DecryptedNote)
		assert.Equal(t, uint64(500), scanned.Amount)
		assert.Equal(t, "0xh1", scanned.TxHash)

		// the derived key must control the one-time address
		_, pub := btcec.PrivKeyFromBytes(scanned.StealthPrivateKey)
		assert.Equal(t, out.StealthAddress, Address(pub))
	})

	t.Run("Someone Else's Payment", func(t *testing.T) {
		out, err := NewPayment(recipient.Meta(), "", "")
		require.NoError(t, err)

		scanned, err := ScanEvent(eventFor(out), stranger.View, stranger.Spend)

		assert.NoError(t, err)
		assert.Nil(t, scanned)
	})

	t.Run("No View Tag", func(t *testing.T) {
		out, err := NewPayment(recipient.Meta(), "label", "")
		require.NoError(t, err)
		event := eventFor(out)
		event.Payload = nil

		scanned, err := ScanEvent(event, recipient.View, recipient.Spend)

		require.NoError(t, err)
		assert.Equal(t, "label", scanned.DecryptedLabel)
	})

	t.Run("Unprefixed Address", func(t *testing.T) {
		out, err := NewPayment(recipient.Meta(), "", "")
		require.NoError(t, err)
		event := eventFor(out)
		event.StealthOwner = strings.ToUpper(out.StealthAddress[2:])

		scanned, err := ScanEvent(event, recipient.View, recipient.Spend)

		require.NoError(t, err)
		assert.Equal(t, out.StealthAddress, scanned.StealthAddress)
	})

	t.Run("Bad Ephemeral Key", func(t *testing.T) {
		event := models.PaymentEvent{StealthOwner: "0x01", EphemeralPubkey: []byte{1, 2, 3}}

		_, err := ScanEvent(event, recipient.View, recipient.Spend)

		assert.ErrorIs(t, err, ErrMalformedEvent)
	})

	t.Run("Tampered Label Keeps Payment", func(t *testing.T) {
		out, err := NewPayment(recipient.Meta(), "villa-1", "thanks")
		require.NoError(t, err)
		event := eventFor(out)
		event.Label[len(event.Label)-1] ^= 0xff

		scanned, err := ScanEvent(event, recipient.View, recipient.Spend)

		require.NoError(t, err)
		require.NotNil(t, scanned)
		assert.Equal(t, out.StealthAddress, scanned.StealthAddress)
		assert.Empty(t, scanned.DecryptedLabel)
		assert.Equal(t, "thanks", scanned.DecryptedNote)
	})

	t.Run("Truncated Note Keeps Payment", func(t *testing.T) {
		out, err := NewPayment(recipient.Meta(), "villa-1", "thanks")
		require.NoError(t, err)
		event := eventFor(out)
		event.Note = event.Note[:3]

		scanned, err := ScanEvent(event, recipient.View, recipient.Spend)

		require.NoError(t, err)
		require.NotNil(t, scanned)
		assert.Equal(t, "villa-1", scanned.DecryptedLabel)
		assert.Empty(t, scanned.DecryptedNote)
	})
}

func TestParseKeys(t *testing.T) {
	keys := testKeys(t, 3)
	viewHex := hex.EncodeToString(keys.View.Serialize())
	spendHex := "0x" + hex.EncodeToString(keys.Spend.Serialize())

	parsed, err := ParseKeys(viewHex, spendHex)
	require.NoError(t, err)
	assert.Equal(t, keys.Spend.Serialize(), parsed.Spend.Serialize())

	_, err = ParseKeys("zz", spendHex)
	assert.Error(t, err)

	zero := hex.EncodeToString(make([]byte, 32))
	_, err = ParseKeys(viewHex, zero)
	assert.Error(t, err)

	sum := sha256.Sum256([]byte("x"))
	_, err = ParseKeys(hex.EncodeToString(sum[:16]), spendHex)
	assert.Error(t, err)
}
