package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/fundora/internal/domain/model"
)

// Catalog serves subject snapshots and profiles by id.
type Catalog interface {
	// Get returns the subject or ErrSubjectNotFound.
	Get(ctx context.Context, id string) (model.Subject, error)
	// List returns every subject in catalog order.
	List(ctx context.Context) ([]model.Subject, error)
}

// Ownership resolves which actor owns a subject.
type Ownership interface {
	OwnerOf(ctx context.Context, subjectID string) (string, error)
}

// MemoryCatalog is a Catalog and Ownership held in memory.
type MemoryCatalog struct {
	mu       sync.RWMutex
	order    []string
	subjects map[string]model.Subject
}

// NewMemoryCatalog builds a catalog from subjects. Ids must be unique and
// non-empty.
func NewMemoryCatalog(subjects ...model.Subject) (*MemoryCatalog, error) {
	c := &MemoryCatalog{subjects: make(map[string]model.Subject, len(subjects))}
	for _, s := range subjects {
		id := strings.TrimSpace(s.Snapshot.SubjectID)
		if id == "" {
			return nil, fmt.Errorf("%w: subject without id", ErrInvalidCatalog)
		}
		if _, dup := c.subjects[id]; dup {
			return nil, fmt.Errorf("%w: duplicate subject %q", ErrInvalidCatalog, id)
		}
		s.Snapshot.SubjectID = id
		c.order = append(c.order, id)
		c.subjects[id] = s
	}
	return c, nil
}

// LoadCatalog reads subjects from a YAML file shaped as
//
//	subjects:
//	  - snapshot: {subject_id: acme, total_assets: 1000, ...}
//	    profile: {company_name: Acme, owner_id: u-1, ...}
func LoadCatalog(path string) (*MemoryCatalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	var subjects []model.Subject
	if err := k.UnmarshalWithConf("subjects", &subjects, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return NewMemoryCatalog(subjects...)
}

func (c *MemoryCatalog) Get(_ context.Context, id string) (model.Subject, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.subjects[id]
	if !ok {
		return model.Subject{}, fmt.Errorf("%w: %s", ErrSubjectNotFound, id)
	}
	return s, nil
}

func (c *MemoryCatalog) List(_ context.Context) ([]model.Subject, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Subject, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.subjects[id])
	}
	return out, nil
}

func (c *MemoryCatalog) OwnerOf(ctx context.Context, subjectID string) (string, error) {
	s, err := c.Get(ctx, subjectID)
	if err != nil {
		return "", err
	}
	return s.Profile.OwnerID, nil
}

// Put adds or replaces a subject.
func (c *MemoryCatalog) Put(s model.Subject) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := s.Snapshot.SubjectID
	if _, ok := c.subjects[id]; !ok {
		c.order = append(c.order, id)
	}
	c.subjects[id] = s
}

// Len returns the number of subjects.
func (c *MemoryCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
