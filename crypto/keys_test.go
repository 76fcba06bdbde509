package crypto

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatAndDecodeWithPrefix(t *testing.T) {
	var raw [20]byte
	raw[0], raw[19] = 0x42, 0x24

	peer := FormatPeer(raw)
	decoded, err := DecodeWithPrefix(peer, PeerPrefix)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)

	_, err = DecodeWithPrefix(peer, TokenPrefix)
	require.ErrorContains(t, err, "expected prefix")

	token := FormatToken(raw)
	decoded, err = DecodeWithPrefix(token, TokenPrefix)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)

	_, err = DecodeAddress("not-bech32")
	require.Error(t, err)
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "keys", "identity.json")

	require.NoError(t, SaveKeystore(path, key, "hunter2"))
	require.ErrorIs(t, SaveKeystore(path, key, "hunter2"), ErrKeystoreExists)

	loaded, err := LoadKeystore(path, "hunter2")
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().String(), loaded.PubKey().Address().String())

	_, err = LoadKeystore(path, "wrong")
	require.Error(t, err)
}

func TestPublicKeyAddressIsPeerIdentity(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()
	require.Equal(t, PeerPrefix, addr.Prefix())

	decoded, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.Array(), decoded.Array())
	require.Equal(t, PeerPrefix, decoded.Prefix())
}
