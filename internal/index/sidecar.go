package index

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/semcs/ck/internal/core"
	ckerrors "github.com/semcs/ck/internal/errors"
)

// sidecarFormatVersion is the leading byte of every sidecar so future
// encodings can co-exist.
const sidecarFormatVersion = 1

// SaveEntry writes an IndexEntry to its sidecar path atomically: encode to a
// sibling tmp file, then rename into place.
func SaveEntry(path string, entry *core.IndexEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ckerrors.Wrap(ckerrors.KindIO, err, "create sidecar directory")
	}

	var buf bytes.Buffer
	buf.WriteByte(sidecarFormatVersion)
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return ckerrors.Wrap(ckerrors.KindParse, err, "encode sidecar")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return ckerrors.Wrap(ckerrors.KindIO, err, "write sidecar")
	}
	if err := os.Rename(tmp, path); err != nil {
		return ckerrors.Wrap(ckerrors.KindIO, err, "rename sidecar into place")
	}
	return nil
}

// LoadEntry deserializes one sidecar.
func LoadEntry(path string) (*core.IndexEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ckerrors.Wrap(ckerrors.KindIO, err, "read sidecar")
	}
	if len(data) == 0 {
		return nil, ckerrors.New(ckerrors.KindParse, "sidecar %s is empty", path)
	}
	if data[0] != sidecarFormatVersion {
		return nil, ckerrors.New(ckerrors.KindParse,
			"sidecar %s has unsupported format version %d", path, data[0])
	}

	var entry core.IndexEntry
	if err := gob.NewDecoder(bytes.NewReader(data[1:])).Decode(&entry); err != nil {
		return nil, ckerrors.Wrap(ckerrors.KindParse, err, "decode sidecar %s", path)
	}
	return &entry, nil
}

// loadManifest reads the manifest, returning a fresh one when absent. A
// malformed manifest is treated as missing so the next update rebuilds it.
func loadManifest(path string) *core.IndexManifest {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.NewManifest()
	}
	m, err := decodeManifest(data)
	if err != nil {
		return core.NewManifest()
	}
	return m
}

// saveManifest writes the manifest atomically as pretty JSON.
func saveManifest(path string, m *core.IndexManifest) error {
	data, err := encodeManifest(m)
	if err != nil {
		return ckerrors.Wrap(ckerrors.KindParse, err, "encode manifest")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ckerrors.Wrap(ckerrors.KindIO, err, "create index directory")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ckerrors.Wrap(ckerrors.KindIO, err, "write manifest")
	}
	if err := os.Rename(tmp, path); err != nil {
		return ckerrors.Wrap(ckerrors.KindIO, err, "rename manifest into place")
	}
	return nil
}

func encodeManifest(m *core.IndexManifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func decodeManifest(data []byte) (*core.IndexManifest, error) {
	var m core.IndexManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Files == nil {
		m.Files = make(map[string]core.FileMetadata)
	}
	return &m, nil
}
