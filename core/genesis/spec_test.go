package genesis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"nftmarket/native/assets"
)

const sampleGenesis = `
accounts:
  - address: "0x00000000000000000000000000000000000000b0"
    balance: "1000000"
collections:
  - name: Art
    kind: erc721
    owner: "0x0000000000000000000000000000000000000001"
    mints:
      - to: "0x0000000000000000000000000000000000000002"
        uri: "ipfs://1"
  - name: Items
    kind: erc1155
    owner: "0x0000000000000000000000000000000000000001"
    mints:
      - to: "0x0000000000000000000000000000000000000005"
        id: "5"
        amount: "50"
`

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleGenesis), 0o600))

	spec, err := Load(path)
	require.NoError(t, err)
	require.Len(t, spec.Accounts, 1)
	require.Equal(t, "1000000", spec.Accounts[0].Amount().String())
	require.Equal(t, byte(0xb0), spec.Accounts[0].Addr()[19])

	require.Len(t, spec.Collections, 2)
	require.Equal(t, assets.KindSingleUnit, spec.Collections[0].KindValue())
	require.Equal(t, assets.KindMultiUnit, spec.Collections[1].KindValue())
	mint := spec.Collections[1].Mints[0]
	require.Equal(t, "5", mint.TokenID().String())
	require.Equal(t, "50", mint.Units().String())
	require.Nil(t, spec.Collections[0].Mints[0].TokenID())
}

func TestParseRejectsInvalidSpecs(t *testing.T) {
	cases := map[string]string{
		"unknown field": "bogus: true\n",
		"bad address": `
accounts:
  - address: "nope"
    balance: "1"
`,
		"zero balance": `
accounts:
  - address: "0x00000000000000000000000000000000000000b0"
    balance: "0"
`,
		"unknown kind": `
collections:
  - name: X
    kind: erc20
    owner: "0x0000000000000000000000000000000000000001"
`,
		"single with amount": `
collections:
  - name: X
    kind: single
    owner: "0x0000000000000000000000000000000000000001"
    mints:
      - to: "0x0000000000000000000000000000000000000002"
        id: "1"
        amount: "2"
`,
	}
	for name, raw := range cases {
		_, err := Parse([]byte(raw))
		require.Error(t, err, name)
	}
}
