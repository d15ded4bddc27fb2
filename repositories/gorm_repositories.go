package repositories

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type GormTxManager struct {
	db *gorm.DB
}

func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

func (m *GormTxManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}

type GormRepositories struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewGormRepositories(db *gorm.DB, redisClient *redis.Client) *GormRepositories {
	return &GormRepositories{db: db, redis: redisClient}
}

func (r *GormRepositories) BuildContainer() Container {
	container := Container{
		TxManager:    NewGormTxManager(r.db),
		Files:        NewGormFileRepository(r.db),
		Folders:      NewGormFolderRepository(r.db),
		Versions:     NewGormFileVersionRepository(r.db),
		FileShares:   NewGormFileShareRepository(r.db),
		FolderShares: NewGormFolderShareRepository(r.db),
		UserShares:   NewGormUserShareRepository(r.db),
		Activity:     NewGormActivityRepository(r.db),
		Intents:      NewGormIntentRepository(r.db),
		Preferences:  NewGormPreferenceRepository(r.db),
	}
	// Without redis the password attempt limiter is disabled.
	if r.redis != nil {
		container.ShareAttempts = NewRedisShareAttemptRepository(r.redis)
	}
	return container
}

func useTx(db *gorm.DB, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
