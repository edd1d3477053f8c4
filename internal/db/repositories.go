package db

import (
	"context"
	"fmt"

	"coreflow-cms/internal/accounts"
	"coreflow-cms/internal/casestudies"
	"coreflow-cms/internal/comments"
	"coreflow-cms/internal/config"
	"coreflow-cms/internal/taxonomy"

	"gorm.io/gorm"
)

// Repositories bundles the store for every domain package on one backend.
type Repositories struct {
	Terms       taxonomy.Repository
	CaseStudies casestudies.Repository
	Comments    comments.Repository
	Users       accounts.Repository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func (r *Repositories) Ping(ctx context.Context) error {
	return r.ping(ctx)
}

func (r *Repositories) Close(ctx context.Context) error {
	return r.close(ctx)
}

// Open connects to the configured store, prepares its schema and returns the repositories.
func Open(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	if cfg.StoreDriver == config.StoreMongo {
		client, cols, err := Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := EnsureIndexes(ctx, cols); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return &Repositories{
			Terms:       taxonomy.NewRepository(cols.Terms),
			CaseStudies: casestudies.NewRepository(cols.CaseStudies, cols.Comments),
			Comments:    comments.NewRepository(cols.Comments),
			Users:       accounts.NewRepository(cols.Users, cols.Comments),
			ping:        func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:       client.Disconnect,
		}, nil
	}

	gdb, err := OpenSQL(cfg.StoreDriver, cfg.DatabaseURL, cfg.LogLevel == "debug")
	if err != nil {
		return nil, err
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return NewGormRepositories(gdb)
}

func NewGormRepositories(gdb *gorm.DB) (*Repositories, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Terms:       taxonomy.NewGormRepository(gdb),
		CaseStudies: casestudies.NewGormRepository(gdb),
		Comments:    comments.NewGormRepository(gdb),
		Users:       accounts.NewGormRepository(gdb),
		ping:        sqlDB.PingContext,
		close:       func(context.Context) error { return sqlDB.Close() },
	}, nil
}
