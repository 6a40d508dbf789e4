package raptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTreeSnapshot(t *testing.T) (string, *Data) {
	t.Helper()
	s := treeNetwork(t)
	s.SetMinimalTransferTime("G", "G", 90)
	s.Stop("A").Attributes = map[string]string{"accessLinkIdOverride": "link-a"}
	d := mustCompile(t, s, DefaultStaticConfig())

	path := filepath.Join(t.TempDir(), "tree.raptor")
	require.NoError(t, WriteSnapshot(path, d))
	return path, d
}

func TestSnapshot_RoundTrip(t *testing.T) {
	path, want := writeTreeSnapshot(t)

	got, err := ReadSnapshot(path)
	require.NoError(t, err)

	assert.Equal(t, want.Stats(), got.Stats())
	assert.Equal(t, want.Config, got.Config)
	assert.Equal(t, want.Modes, got.Modes)
	assert.Equal(t, want.Departures, got.Departures)
	assert.Equal(t, want.Transfers, got.Transfers)
	assert.Equal(t, want.RouteStops, got.RouteStops)
	assert.Equal(t, want.Projection, got.Projection)
	require.Len(t, got.Stops, len(want.Stops))
	for i := range want.Stops {
		assert.Equal(t, *want.Stops[i], *got.Stops[i])
	}
	for i := range want.Routes {
		assert.Equal(t, want.Routes[i].Line.ID, got.Routes[i].Line.ID)
		assert.Equal(t, want.Routes[i].Route.ID, got.Routes[i].Route.ID)
		assert.Equal(t, want.Routes[i].Route.Departures, got.Routes[i].Route.Departures)
		assert.Len(t, got.Routes[i].Route.Stops, int(want.Routes[i].CountRouteStops))
	}
	assert.Equal(t, want.Spatial().Len(), got.Spatial().Len())

	// The loaded data answers queries exactly like the compiled one.
	access := []InitialStop{{Stop: want.StopByID("A")}}
	wantTree, err := NewSearchCore(want).FindTree(hms(7, 40, 0), access, DefaultParameters())
	require.NoError(t, err)
	access = []InitialStop{{Stop: got.StopByID("A")}}
	gotTree, err := NewSearchCore(got).FindTree(hms(7, 40, 0), access, DefaultParameters())
	require.NoError(t, err)
	assert.Equal(t, wantTree, gotTree)
}

func TestSnapshot_Corrupt(t *testing.T) {
	path, _ := writeTreeSnapshot(t)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		errMsg string
	}{
		{name: "flipped payload byte", mutate: func(b []byte) []byte {
			b[len(b)-5] ^= 0xff
			return b
		}, errMsg: "CRC32 mismatch"},
		{name: "bad magic", mutate: func(b []byte) []byte {
			b[0] = 'X'
			return b
		}, errMsg: "invalid magic"},
		{name: "truncated", mutate: func(b []byte) []byte {
			return b[:len(b)/2]
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "broken.raptor")
			require.NoError(t, os.WriteFile(p, tt.mutate(append([]byte(nil), raw...)), 0o644))
			_, err := ReadSnapshot(p)
			require.Error(t, err)
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestSnapshot_MissingFile(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.raptor"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
