package repository

import (
	"slotwise/cmd/internal/domain/entity"
	"time"

	"github.com/maypok86/otter/v2"
	"gorm.io/gorm"
)

// CachedUserRepository keeps recently resolved users keyed by Cognito sub.
// Every authenticated request resolves its caller by sub, so this is the hot path.
type CachedUserRepository struct {
	*DefaultUserRepository
	bySub *otter.Cache[string, entity.User]
}

func NewCachedUserRepository(db *gorm.DB, ttl time.Duration) *CachedUserRepository {
	cache := otter.Must(&otter.Options[string, entity.User]{
		MaximumSize:      10_000,
		ExpiryCalculator: otter.ExpiryWriting[string, entity.User](ttl),
	})
	return &CachedUserRepository{
		DefaultUserRepository: NewUserRepository(db),
		bySub:                 cache,
	}
}

func (c *CachedUserRepository) FindBySub(sub string) (*entity.User, error) {
	if user, ok := c.bySub.GetIfPresent(sub); ok {
		return &user, nil
	}

	user, err := c.DefaultUserRepository.FindBySub(sub)
	if err != nil || user == nil {
		return user, err
	}
	c.bySub.Set(sub, *user)
	return user, nil
}

func (c *CachedUserRepository) Save(user *entity.User) error {
	c.bySub.Invalidate(user.SubUUID)
	return c.DefaultUserRepository.Save(user)
}
