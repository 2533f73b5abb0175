package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNVRAM_JSON(t *testing.T) {
	doc := `{
  "nwk": {
    "PANID": "3412",
    "EXTADDR": "0123456789abcdef",
    "NIB": "00"
  },
  "osal": {
    "TCLK_TABLE": "ff00"
  }
}`

	nv, err := ParseNVRAM([]byte(doc))
	require.NoError(t, err)

	require.Len(t, nv.Network, 3)
	assert.Equal(t, "PANID", nv.Network[0].Name)
	assert.Equal(t, "EXTADDR", nv.Network[1].Name)
	assert.Equal(t, "NIB", nv.Network[2].Name)
	assert.Equal(t, 3, nv.Network[0].Line)

	require.Len(t, nv.Osal, 1)
	assert.Equal(t, Entry{Name: "TCLK_TABLE", Value: "ff00", Line: 8}, nv.Osal[0])
	assert.Equal(t, 4, nv.Len())

	b, err := nv.Network[1].Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}, b)
}

func TestParseNVRAM_YAML(t *testing.T) {
	doc := `
nwk:
  PANID: "3412"
  STARTUP_OPTION: 00
osal: {}
`
	nv, err := ParseNVRAM([]byte(doc))
	require.NoError(t, err)

	require.Len(t, nv.Network, 2)
	assert.Equal(t, "00", nv.Network[1].Value)
	assert.Empty(t, nv.Osal)
}

func TestParseNVRAM_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"not a mapping", `["nwk", "osal"]`},
		{"missing nwk", `{"osal": {}}`},
		{"missing osal", `{"nwk": {}}`},
		{"namespace not a mapping", `{"nwk": [], "osal": {}}`},
		{"nested value", `{"nwk": {"NIB": {"a": "b"}}, "osal": {}}`},
		{"null value", `{"nwk": {"NIB": null}, "osal": {}}`},
		{"duplicate item", `{"nwk": {"NIB": "00", "NIB": "01"}, "osal": {}}`},
		{"malformed", `{"nwk": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNVRAM([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseNVRAM_IgnoresOtherKeys(t *testing.T) {
	nv, err := ParseNVRAM([]byte(`{"version": 1, "nwk": {"NIB": "00"}, "osal": {}}`))
	require.NoError(t, err)
	assert.Len(t, nv.Network, 1)
}

func TestEntryBytes(t *testing.T) {
	tests := []struct {
		value   string
		want    []byte
		wantErr bool
	}{
		{"0a0b", []byte{0x0a, 0x0b}, false},
		{"0A0B", []byte{0x0a, 0x0b}, false},
		{" 0a0b\n", []byte{0x0a, 0x0b}, false},
		{"", []byte{}, false},
		{"zz", nil, true},
		{"abc", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := Entry{Name: "foo", Value: tt.value}.Bytes()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadNVRAM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvram.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nwk": {"foo": "0a0b"}, "osal": {}}`), 0o644))

	nv, err := LoadNVRAM(path)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Name: "foo", Value: "0a0b", Line: 1}}, nv.Network)

	_, err = LoadNVRAM(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
