package service

import (
	"context"

	"github.com/hydranet/hydrabill/internal/clock"
	"github.com/hydranet/hydrabill/internal/settings/domain"
	"github.com/hydranet/hydrabill/internal/settings/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  repository.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  repository.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("settings"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Int64(ctx context.Context, key string) (int64, error) {
	def, stored, err := s.load(ctx, key)
	if err != nil {
		return 0, err
	}
	return domain.ParseInt64(def, stored)
}

func (s *Service) Bool(ctx context.Context, key string) (bool, error) {
	def, stored, err := s.load(ctx, key)
	if err != nil {
		return false, err
	}
	return domain.ParseBool(def, stored)
}

func (s *Service) Update(ctx context.Context, key string, raw string) error {
	def, ok := domain.Lookup(key)
	if !ok {
		return domain.ErrUnknownKey
	}
	canonical, err := domain.Validate(def, raw)
	if err != nil {
		return err
	}
	return s.repo.Upsert(ctx, s.db, key, canonical, s.clock.Now().UTC())
}

// EnsureDefaults seeds every registry key that has no stored value yet.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	now := s.clock.Now().UTC()
	for _, def := range domain.Registry {
		if err := s.repo.InsertIfAbsent(ctx, s.db, def.Key, def.Default, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) load(ctx context.Context, key string) (domain.Definition, string, error) {
	def, ok := domain.Lookup(key)
	if !ok {
		return domain.Definition{}, "", domain.ErrUnknownKey
	}
	item, err := s.repo.Find(ctx, s.db, key)
	if err != nil {
		return domain.Definition{}, "", err
	}
	if item == nil {
		return def, def.Default, nil
	}
	return def, item.Value, nil
}
