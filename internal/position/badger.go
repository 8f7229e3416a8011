// SPDX-License-Identifier: MIT

package position

import (
	"context"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore is the default durable backend: a local badger database under
// the data directory, so positions survive restarts on the same device.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) the database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Save(ctx context.Context, movieID string, seconds float64) error {
	return s.put(positionKey(movieID), seconds)
}

func (s *BadgerStore) Load(ctx context.Context, movieID string) (float64, error) {
	return s.get(positionKey(movieID))
}

func (s *BadgerStore) SaveSubtitleOffset(ctx context.Context, movieID, language string, seconds float64) error {
	return s.put(subtitleKey(movieID, language), seconds)
}

func (s *BadgerStore) LoadSubtitleOffset(ctx context.Context, movieID, language string) (float64, error) {
	return s.get(subtitleKey(movieID, language))
}

func (s *BadgerStore) put(key string, seconds float64) error {
	buf := strconv.FormatFloat(seconds, 'f', -1, 64)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(buf))
	})
}

func (s *BadgerStore) get(key string) (float64, error) {
	var out float64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			f, err := strconv.ParseFloat(string(val), 64)
			if err != nil {
				return err
			}
			out = f
			return nil
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil // never saved, default 0
		}
		return 0, err
	}
	return out, nil
}

var _ Store = (*BadgerStore)(nil)
