// Package bolt is a durable single-node LedgerStore on top of bbolt. Each
// document is stored as one JSON value keyed by its id.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/brandonwu32/financedashboard/internal/core"
	ports "github.com/brandonwu32/financedashboard/internal/sheets"
)

const bucketDocuments = "documents"

// Store wraps the bbolt database.
type Store struct {
	db *bolt.DB
}

var _ ports.LedgerStore = (*Store)(nil)

// Open creates or opens the database at path and initializes buckets.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketDocuments)); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketDocuments, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a document, replacing any previous version.
func (s *Store) Put(d *ports.Document) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, d)
	})
}

// EnsureDocument stores d only if no document with its id exists yet.
func (s *Store) EnsureDocument(d *ports.Document) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucketDocuments)).Get([]byte(d.ID)) != nil {
			return nil
		}
		return put(tx, d)
	})
}

func (s *Store) ReadRange(_ context.Context, docID, a1 string) ([][]string, error) {
	r, err := ports.ParseA1(a1)
	if err != nil {
		return nil, err
	}
	var out [][]string
	err = s.db.View(func(tx *bolt.Tx) error {
		d, err := get(tx, docID)
		if err != nil {
			return err
		}
		out, err = d.Read(r)
		return err
	})
	return out, err
}

func (s *Store) AppendRows(_ context.Context, docID, a1 string, rows [][]any) error {
	r, err := ports.ParseA1(a1)
	if err != nil {
		return err
	}
	return s.modify(docID, func(d *ports.Document) error {
		return d.Append(r, rows)
	})
}

func (s *Store) UpdateCell(_ context.Context, docID, cell string, value any) error {
	r, err := ports.ParseA1(cell)
	if err != nil {
		return err
	}
	return s.modify(docID, func(d *ports.Document) error {
		return d.Set(r, value)
	})
}

func (s *Store) SectionNames(_ context.Context, docID string) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		d, err := get(tx, docID)
		if err != nil {
			return err
		}
		names = d.SectionNames()
		return nil
	})
	return names, err
}

func (s *Store) CopyDocument(_ context.Context, templateID, title string) (string, error) {
	id := uuid.NewString()
	err := s.db.Update(func(tx *bolt.Tx) error {
		tpl, err := get(tx, templateID)
		if err != nil {
			return err
		}
		tpl.ID = id
		tpl.Title = title
		tpl.SharedWith = nil
		return put(tx, tpl)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ShareDocument(_ context.Context, docID, email string) error {
	return s.modify(docID, func(d *ports.Document) error {
		for _, e := range d.SharedWith {
			if strings.EqualFold(e, email) {
				return nil
			}
		}
		d.SharedWith = append(d.SharedWith, email)
		return nil
	})
}

// modify loads, mutates and stores a document in one write transaction.
func (s *Store) modify(docID string, fn func(*ports.Document) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		d, err := get(tx, docID)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
		return put(tx, d)
	})
}

func get(tx *bolt.Tx, id string) (*ports.Document, error) {
	data := tx.Bucket([]byte(bucketDocuments)).Get([]byte(id))
	if data == nil {
		return nil, core.E(core.ErrUpstreamPermanent, "document "+strconv.Quote(id), ports.ErrNotFound)
	}
	var d ports.Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return &d, nil
}

func put(tx *bolt.Tx, d *ports.Document) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", d.ID, err)
	}
	return tx.Bucket([]byte(bucketDocuments)).Put([]byte(d.ID), data)
}
