package memory

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/brandonwu32/financedashboard/internal/core"
	ports "github.com/brandonwu32/financedashboard/internal/sheets"
)

// Store keeps documents in process memory.
type Store struct {
	mu   sync.Mutex
	docs map[string]*ports.Document
}

var _ ports.LedgerStore = (*Store)(nil)

// Seed is the YAML fixture format accepted by NewFromFile.
type Seed struct {
	Documents []ports.Document `yaml:"documents"`
}

func New(docs ...*ports.Document) *Store {
	s := &Store{docs: make(map[string]*ports.Document)}
	for _, d := range docs {
		s.docs[d.ID] = d.Clone()
	}
	return s
}

// NewFromFile loads a YAML seed. A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	docs := make([]*ports.Document, 0, len(seed.Documents))
	for i := range seed.Documents {
		if seed.Documents[i].ID == "" {
			return nil, fmt.Errorf("seed document %d has no id", i)
		}
		docs = append(docs, &seed.Documents[i])
	}
	return New(docs...), nil
}

// Put adds or replaces a document.
func (s *Store) Put(d *ports.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.ID] = d.Clone()
}

// Document returns a copy of a stored document.
func (s *Store) Document(id string) (*ports.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

func (s *Store) ReadRange(_ context.Context, docID, a1 string) ([][]string, error) {
	r, err := ports.ParseA1(a1)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.doc(docID)
	if err != nil {
		return nil, err
	}
	return d.Read(r)
}

func (s *Store) AppendRows(_ context.Context, docID, a1 string, rows [][]any) error {
	r, err := ports.ParseA1(a1)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.doc(docID)
	if err != nil {
		return err
	}
	return d.Append(r, rows)
}

func (s *Store) UpdateCell(_ context.Context, docID, cell string, value any) error {
	r, err := ports.ParseA1(cell)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.doc(docID)
	if err != nil {
		return err
	}
	return d.Set(r, value)
}

func (s *Store) SectionNames(_ context.Context, docID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.doc(docID)
	if err != nil {
		return nil, err
	}
	return d.SectionNames(), nil
}

// CopyDocument clones a template under a fresh id.
func (s *Store) CopyDocument(_ context.Context, templateID, title string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tpl, err := s.doc(templateID)
	if err != nil {
		return "", err
	}
	c := tpl.Clone()
	c.ID = uuid.NewString()
	c.Title = title
	c.SharedWith = nil
	s.docs[c.ID] = c
	return c.ID, nil
}

func (s *Store) ShareDocument(_ context.Context, docID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.doc(docID)
	if err != nil {
		return err
	}
	for _, e := range d.SharedWith {
		if strings.EqualFold(e, email) {
			return nil
		}
	}
	d.SharedWith = append(d.SharedWith, email)
	return nil
}

func (s *Store) doc(id string) (*ports.Document, error) {
	d, ok := s.docs[id]
	if !ok {
		return nil, core.E(core.ErrUpstreamPermanent, "document "+strconv.Quote(id), ports.ErrNotFound)
	}
	return d, nil
}
