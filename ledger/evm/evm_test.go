package evm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftlabs/oceanpost/ledger"
)

// Well-known hardhat test key, never used on a real network.
const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testConfig() Config {
	return Config{
		RPCURL:          "http://127.0.0.1:8545",
		ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		PrivateKeyHex:   testKey,
		ChainID:         31337,
	}
}

func TestDialValidatesConfig(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	cfg.RPCURL = ""
	_, err := Dial(ctx, cfg)
	require.Error(t, err)

	cfg = testConfig()
	cfg.ContractAddress = "not-an-address"
	_, err = Dial(ctx, cfg)
	require.Error(t, err)

	cfg = testConfig()
	cfg.PrivateKeyHex = "zz"
	_, err = Dial(ctx, cfg)
	require.Error(t, err)
}

func TestDialAcceptsPrefixedKey(t *testing.T) {
	cfg := testConfig()
	cfg.PrivateKeyHex = "0x" + testKey

	c, err := Dial(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", c.from.Hex())
}

func TestRecordEngagementRejectsNonAddressActor(t *testing.T) {
	c, err := Dial(context.Background(), testConfig())
	require.NoError(t, err)
	defer c.Close()

	err = c.RecordEngagement(context.Background(), 1, "alice")
	require.ErrorIs(t, err, ledger.ErrCallFailed)
}

func TestUpdateContentPointerRejectsInvalidHash(t *testing.T) {
	c, err := Dial(context.Background(), testConfig())
	require.NoError(t, err)
	defer c.Close()

	err = c.UpdateContentPointer(context.Background(), 1, "")
	require.ErrorIs(t, err, ledger.ErrCallFailed)
}
