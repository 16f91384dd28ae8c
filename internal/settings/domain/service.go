package domain

import "context"

type Service interface {
	// Int64 returns the value for an Int, Money, or Percent setting,
	// falling back to the registry default when unset.
	Int64(ctx context.Context, key string) (int64, error)
	Bool(ctx context.Context, key string) (bool, error)
	Update(ctx context.Context, key string, raw string) error
	EnsureDefaults(ctx context.Context) error
}
