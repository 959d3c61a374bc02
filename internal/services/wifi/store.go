package wifi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"
)

// AccessPointProfile is the persisted access point. At most one exists.
type AccessPointProfile struct {
	SSID string `json:"ssid" yaml:"ssid"`
	Key  string `json:"key" yaml:"key"`
	IP   string `json:"ip" yaml:"ip"`
}

// StationProfile holds the credentials of a known network.
type StationProfile struct {
	SSID string `json:"ssid" yaml:"ssid"`
	Key  string `json:"key" yaml:"key"`
}

// Document is the persisted configuration. Stations are keyed by BSSID so
// several access points broadcasting one SSID stay individually addressable.
type Document struct {
	AccessPoint *AccessPointProfile       `json:"AP,omitempty" yaml:"AP,omitempty"`
	Stations    map[string]StationProfile `json:"STA" yaml:"STA"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Stations: map[string]StationProfile{}}
}

// ConfigStore loads and saves the Document. Files ending in .yaml or .yml are
// YAML, anything else is JSON.
type ConfigStore struct {
	path string
	log  logr.Logger
}

// NewConfigStore creates a store for the document at path.
func NewConfigStore(path string, log logr.Logger) *ConfigStore {
	return &ConfigStore{path: path, log: log.WithName("config-store")}
}

// Path returns the location of the document.
func (s *ConfigStore) Path() string {
	return s.path
}

// Load reads the document. Missing or corrupt storage yields an empty
// document so the caller always has a usable configuration.
func (s *ConfigStore) Load() *Document {
	doc, err := s.read()
	if err != nil {
		if os.IsNotExist(err) {
			s.log.V(1).Info("No configuration found, starting empty", "path", s.path)
		} else {
			s.log.Error(err, "Configuration unreadable, starting empty", "path", s.path)
		}
		return NewDocument()
	}
	return doc
}

func (s *ConfigStore) read() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	if s.isYAML() {
		err = yaml.Unmarshal(data, doc)
	} else {
		err = json.Unmarshal(data, doc)
	}
	if err != nil {
		return nil, &ConfigIOError{Op: "parse", Path: s.path, Err: err}
	}
	if doc.Stations == nil {
		doc.Stations = map[string]StationProfile{}
	}
	return doc, nil
}

// Save writes the document, creating the containing directory if needed.
// The file is replaced by rename so readers never observe a partial write.
func (s *ConfigStore) Save(doc *Document) error {
	var data []byte
	var err error
	if s.isYAML() {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return &ConfigIOError{Op: "encode", Path: s.path, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &ConfigIOError{Op: "mkdir", Path: s.path, Err: err}
	}
	if err := atomicWriteFile(s.path, data, 0o600); err != nil {
		return &ConfigIOError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

func (s *ConfigStore) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(s.path))
	return ext == ".yaml" || ext == ".yml"
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
