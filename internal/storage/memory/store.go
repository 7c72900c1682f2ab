package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/core/ports"
)

// Store is an in-memory implementation of ports.PipelineStore.
type Store struct {
	mu         sync.RWMutex
	pipelines  map[string]*entry
	rules      map[string]map[string]*domain.RuleDefinitions // name -> rev -> rules
	optimistic bool
	now        func() time.Time
}

var _ ports.PipelineStore = (*Store)(nil)

type entry struct {
	info      domain.PipelineInfo
	head      *domain.PipelineConfiguration
	revisions []revision
}

type revision struct {
	info domain.RevisionInfo
	cfg  *domain.PipelineConfiguration
}

// Option configures a Store.
type Option func(*Store)

// WithOptimisticConcurrency makes Save and StoreRules reject documents whose
// uuid does not match the stored one.
func WithOptimisticConcurrency(enabled bool) Option {
	return func(s *Store) {
		s.optimistic = enabled
	}
}

// New creates a new in-memory store
func New(opts ...Option) *Store {
	s := &Store{
		pipelines: make(map[string]*entry),
		rules:     make(map[string]map[string]*domain.RuleDefinitions),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ListPipelines(ctx context.Context) ([]*domain.PipelineInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PipelineInfo, 0, len(s.pipelines))
	for _, e := range s.pipelines {
		info := e.info
		result = append(result, &info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) GetInfo(ctx context.Context, name string) (*domain.PipelineInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.pipelines[name]
	if !ok {
		return nil, domain.ErrPipelineNotFound(name)
	}
	info := e.info
	return &info, nil
}

func (s *Store) GetHistory(ctx context.Context, name string) ([]*domain.RevisionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.pipelines[name]
	if !ok {
		return nil, domain.ErrPipelineNotFound(name)
	}
	history := make([]*domain.RevisionInfo, len(e.revisions))
	for i, r := range e.revisions {
		info := r.info
		history[i] = &info
	}
	return history, nil
}

func (s *Store) Load(ctx context.Context, name, rev string) (*domain.PipelineConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.pipelines[name]
	if !ok {
		return nil, domain.ErrPipelineNotFound(name)
	}
	rev = domain.NormalizeRev(rev)
	if rev == domain.HeadRevision {
		return e.head.Clone(), nil
	}
	for _, r := range e.revisions {
		if r.info.Rev == rev {
			return r.cfg.Clone(), nil
		}
	}
	return nil, domain.ErrRevisionNotFound(name, rev)
}

func (s *Store) Create(ctx context.Context, name, description, user string) (*domain.PipelineConfiguration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pipelines[name]; exists {
		return nil, domain.ErrPipelineExists(name)
	}

	now := s.now()
	info := domain.PipelineInfo{
		Name:         name,
		Description:  description,
		Creator:      user,
		LastModifier: user,
		Created:      now,
		LastModified: now,
		LastRev:      domain.HeadRevision,
		UUID:         uuid.NewString(),
	}
	cfg := &domain.PipelineConfiguration{
		SchemaVersion: domain.SchemaVersion,
		UUID:          info.UUID,
		Description:   description,
		Configuration: []domain.ConfigValue{},
		Stages:        []domain.StageConfiguration{},
	}
	cfgInfo := info
	cfg.Info = &cfgInfo

	s.pipelines[name] = &entry{
		info: info,
		head: cfg,
		revisions: []revision{{
			info: domain.RevisionInfo{Rev: domain.HeadRevision, Tag: domain.HeadRevision, User: user, Date: now},
			cfg:  cfg,
		}},
	}
	return cfg.Clone(), nil
}

func (s *Store) Save(ctx context.Context, name, user, tag, tagDescription string, cfg *domain.PipelineConfiguration) (*domain.PipelineConfiguration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pipelines[name]
	if !ok {
		return nil, domain.ErrPipelineNotFound(name)
	}
	if s.optimistic && cfg.UUID != e.head.UUID {
		return nil, domain.ErrStaleUUID(name)
	}

	now := s.now()
	rev := strconv.Itoa(len(e.revisions))
	e.info.Description = cfg.Description
	e.info.LastModifier = user
	e.info.LastModified = now
	e.info.LastRev = rev
	e.info.UUID = uuid.NewString()

	saved := cfg.Clone()
	saved.UUID = e.info.UUID
	if saved.SchemaVersion == 0 {
		saved.SchemaVersion = domain.SchemaVersion
	}
	info := e.info
	saved.Info = &info

	e.head = saved
	e.revisions = append(e.revisions, revision{
		info: domain.RevisionInfo{Rev: rev, Tag: tag, TagDescription: tagDescription, User: user, Date: now},
		cfg:  saved,
	})
	return saved.Clone(), nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pipelines[name]; !exists {
		return domain.ErrPipelineNotFound(name)
	}
	delete(s.pipelines, name)
	return nil
}

func (s *Store) RetrieveRules(ctx context.Context, name, rev string) (*domain.RuleDefinitions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rev = domain.NormalizeRev(rev)
	if rules, ok := s.rules[name][rev]; ok {
		return rules.Clone(), nil
	}
	// A saved revision without its own document reports the head rules.
	e, ok := s.pipelines[name]
	if !ok || rev == domain.HeadRevision {
		return nil, nil
	}
	for _, r := range e.revisions {
		if r.info.Rev == rev {
			return s.rules[name][domain.HeadRevision].Clone(), nil
		}
	}
	return nil, nil
}

func (s *Store) StoreRules(ctx context.Context, name, rev string, rules *domain.RuleDefinitions) (*domain.RuleDefinitions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pipelines[name]; !exists {
		return nil, domain.ErrPipelineNotFound(name)
	}
	rev = domain.NormalizeRev(rev)
	byRev, ok := s.rules[name]
	if !ok {
		byRev = make(map[string]*domain.RuleDefinitions)
		s.rules[name] = byRev
	}
	if stored := byRev[rev]; s.optimistic && stored != nil && rules.UUID != nil && *rules.UUID != *stored.UUID {
		return nil, domain.ErrStaleUUID(name)
	}

	saved := rules.Clone()
	id := uuid.NewString()
	saved.UUID = &id

	persisted := saved.Clone()
	persisted.RuleIssues = nil
	byRev[rev] = persisted
	return saved, nil
}

func (s *Store) DeleteRules(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rules, name)
	return nil
}

func (s *Store) Close() error {
	return nil
}
