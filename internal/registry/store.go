package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/frantjc/port-registry/internal/flock"
	"github.com/frantjc/port-registry/internal/logutil"
)

// DefaultPath is the registry file used when no other path is configured.
const DefaultPath = "portreg.json"

// ErrNotArray is returned by Decode when the document is valid JSON
// but not an array of Records.
var ErrNotArray = errors.New("registry is not an array of mappings")

// Decode strictly decodes a registry document.
func Decode(b []byte) ([]Record, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, io.ErrUnexpectedEOF
	}

	var records []Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, err
	} else if records == nil {
		return nil, ErrNotArray
	}

	return records, nil
}

// Encode encodes records as an indented JSON array.
func Encode(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}

	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(b, '\n'), nil
}

// Store persists an ordered list of Records to a flat JSON file.
// It assumes it is the only writer unless callers hold Lock.
type Store struct {
	Path string
}

// NewStore returns a Store backed by the file at path,
// or DefaultPath if path is empty.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}

	return &Store{Path: path}
}

// Read returns the raw contents of the backing file, creating
// an empty one if it does not exist.
func (s *Store) Read(_ context.Context) ([]byte, error) {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(s.Path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// Load reads and decodes the registry. Content that fails to decode
// is treated as an empty registry; only I/O errors are returned.
func (s *Store) Load(ctx context.Context) ([]Record, error) {
	b, err := s.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	records, err := Decode(b)
	if err != nil {
		if len(bytes.TrimSpace(b)) > 0 {
			logutil.SloggerFrom(ctx).Debug("treating undecodable registry as empty", "path", s.Path, "err", err)
		}

		return []Record{}, nil
	}

	return records, nil
}

// Save replaces the backing file with the encoded records.
func (s *Store) Save(_ context.Context, records []Record) error {
	b, err := Encode(records)
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	if err := writeFileReplace(s.Path, b); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}

	return nil
}

// Lock takes an exclusive advisory lock guarding the registry. The
// returned func releases it.
func (s *Store) Lock(ctx context.Context) (func() error, error) {
	f, err := flock.Lock(ctx, s.Path+".lock")
	if err != nil {
		return nil, fmt.Errorf("lock registry: %w", err)
	}

	return func() error {
		return flock.Unlock(f)
	}, nil
}

func writeFileReplace(path string, b []byte) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err = tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}

	if err = tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}

	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
