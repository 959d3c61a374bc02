package wifi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_LoadMissing(t *testing.T) {
	store := NewConfigStore(filepath.Join(t.TempDir(), "wifi.json"), logr.Discard())

	doc := store.Load()

	require.NotNil(t, doc)
	assert.Nil(t, doc.AccessPoint)
	assert.NotNil(t, doc.Stations)
	assert.Empty(t, doc.Stations)
}

func TestConfigStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	doc := NewConfigStore(path, logr.Discard()).Load()

	assert.Nil(t, doc.AccessPoint)
	assert.Empty(t, doc.Stations)
}

func TestConfigStore_RoundTrip(t *testing.T) {
	for _, name := range []string{"wifi.json", "wifi.yaml", "wifi.yml"} {
		t.Run(name, func(t *testing.T) {
			store := NewConfigStore(filepath.Join(t.TempDir(), "conf", name), logr.Discard())
			doc := NewDocument()
			doc.AccessPoint = &AccessPointProfile{SSID: "Test-AP", IP: "192.168.0.254"}
			doc.Stations["AA:BB:CC:DD:EE:01"] = StationProfile{SSID: "Home", Key: "secret"}
			doc.Stations["AA:BB:CC:DD:EE:02"] = StationProfile{SSID: "Home", Key: "secret"}

			require.NoError(t, store.Save(doc))

			assert.Equal(t, doc, store.Load())
		})
	}
}

func TestConfigStore_JSONLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi.json")
	store := NewConfigStore(path, logr.Discard())
	doc := NewDocument()
	doc.AccessPoint = &AccessPointProfile{SSID: "Test-AP", IP: "192.168.0.254"}
	require.NoError(t, store.Save(doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"AP":{"ssid":"Test-AP","key":"","ip":"192.168.0.254"},"STA":{}}`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestConfigStore_LoadsNullKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi.json")
	content := `{"AP": {"ssid": "Test-AP", "key": null, "ip": "192.168.0.254"},
		"STA": {"aa:bb:cc:dd:ee:01": {"ssid": "Cafe", "key": null}}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	doc := NewConfigStore(path, logr.Discard()).Load()

	require.NotNil(t, doc.AccessPoint)
	assert.Equal(t, "", doc.AccessPoint.Key)
	assert.Equal(t, StationProfile{SSID: "Cafe"}, doc.Stations["aa:bb:cc:dd:ee:01"])
}

func TestConfigStore_LoadWithoutStations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"STA": null}`), 0o600))

	doc := NewConfigStore(path, logr.Discard()).Load()

	assert.NotNil(t, doc.Stations)
}

func TestConfigStore_SaveError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	store := NewConfigStore(filepath.Join(blocker, "wifi.json"), logr.Discard())
	err := store.Save(NewDocument())

	var ioErr *ConfigIOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "ConfigIOError", ErrorKind(err))
}
