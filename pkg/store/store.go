// Package store remembers which documents the user worked on, across runs.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mitchellh/go-homedir"
	bolt "go.etcd.io/bbolt"

	"collabtext/pkg/errors"
)

// DefaultPath is where the store lives when no other path is configured.
const DefaultPath = "~/.collabtext/state.db"

// MaxRecent bounds the number of documents kept in the recent list.
const MaxRecent = 20

var (
	settingsBucket = []byte("settings")
	recentBucket   = []byte("recent")
	lastDocKey     = []byte("last_document")
)

// Entry is a document the user opened.
type Entry struct {
	DocID    string    `json:"docId"`
	Server   string    `json:"server"`
	OpenedAt time.Time `json:"openedAt"`
}

// Store is a small bbolt database of client state.
type Store struct {
	db *bolt.DB
}

// Open opens the store at path, creating it if needed. A leading "~" is
// expanded to the home directory.
func Open(path string) (*Store, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.WithContext(err, "expand store path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.WithContext(err, "create store directory")
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.WithContext(err, "open store "+path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{settingsBucket, recentBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.WithContext(err, "initialize store")
	}
	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// LastDocument returns the most recently opened document, or false if there
// is none.
func (s *Store) LastDocument() (Entry, bool, error) {
	var entry Entry
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(settingsBucket).Get(lastDocKey)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return Entry{}, false, errors.WithContext(err, "read last document")
	}
	return entry, found, nil
}

// SetLastDocument records entry as the most recently opened document and adds
// it to the recent list.
func (s *Store) SetLastDocument(entry Entry) error {
	if entry.DocID == "" {
		return errors.MissingFieldError{Field: "docId"}
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(settingsBucket).Put(lastDocKey, data); err != nil {
			return err
		}

		recent := tx.Bucket(recentBucket)
		if err := recent.Put([]byte(entry.DocID), data); err != nil {
			return err
		}

		entries, err := readRecent(recent)
		if err != nil {
			return err
		}
		for _, old := range entries[min(len(entries), MaxRecent):] {
			if err := recent.Delete([]byte(old.DocID)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Recent returns up to n recently opened documents, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		entries, err = readRecent(tx.Bucket(recentBucket))
		return err
	})
	if err != nil {
		return nil, errors.WithContext(err, "read recent documents")
	}
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func readRecent(bucket *bolt.Bucket) ([]Entry, error) {
	var entries []Entry
	err := bucket.ForEach(func(k, v []byte) error {
		var entry Entry
		if err := json.Unmarshal(v, &entry); err != nil {
			return errors.WithContext(err, "decode entry "+string(k))
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].OpenedAt.After(entries[j].OpenedAt)
	})
	return entries, nil
}
