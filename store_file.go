package querycache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"time"
)

var fileRecordMagic = []byte("QSR1")

// fileStore persists snapshots as one file per key, written atomically
// via temp file plus rename. Record layout: 4-byte magic, 8-byte
// big-endian expiry (unix nanos), payload.
type fileStore struct {
	dir        string
	defaultTTL time.Duration
}

func newFileStore(dir string, defaultTTL time.Duration) SnapshotStore {
	if dir == "" {
		dir = defaultFileDir()
	}
	if defaultTTL <= 0 {
		defaultTTL = defaultSnapshotTTL
	}
	_ = os.MkdirAll(dir, 0o755)
	return &fileStore{
		dir:        dir,
		defaultTTL: defaultTTL,
	}
}

func (s *fileStore) Driver() Driver { return DriverFile }

func (s *fileStore) Ready(context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

func (s *fileStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	path := s.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	expiresAt, value, err := decodeFileRecord(data)
	if err != nil {
		_ = os.Remove(path)
		return nil, false, err
	}
	if expiresAt > 0 && time.Now().UnixNano() > expiresAt {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return value, true, nil
}

func (s *fileStore) Save(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	expiresAt := time.Now().Add(ttl).UnixNano()

	tmp, err := os.CreateTemp(s.dir, "snapshot-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	var header [12]byte
	copy(header[:4], fileRecordMagic)
	binary.BigEndian.PutUint64(header[4:], uint64(expiresAt))

	if _, err := tmp.Write(header[:]); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, s.path(key))
}

func (s *fileStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) Flush(context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		_ = os.Remove(filepath.Join(s.dir, entry.Name()))
	}
	return nil
}

func (s *fileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".snapshot")
}

func decodeFileRecord(data []byte) (int64, []byte, error) {
	if len(data) < 12 || !bytes.Equal(data[:4], fileRecordMagic) {
		return 0, nil, errors.New("querycache: corrupt snapshot record")
	}
	expiresAt := int64(binary.BigEndian.Uint64(data[4:12]))
	return expiresAt, data[12:], nil
}
