package memory

import (
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ActiveSessionRepository maps a user id to that user's open session.
// Entries never expire; they are removed when the session is ended.
type ActiveSessionRepository struct {
	cache *cache.Cache
}

func NewActiveSessionRepository() *ActiveSessionRepository {
	return &ActiveSessionRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *ActiveSessionRepository) Save(userID string, sessionID uuid.UUID) {
	r.cache.Set(userID, sessionID, cache.NoExpiration)
}

func (r *ActiveSessionRepository) Get(userID string) (uuid.UUID, bool) {
	if x, found := r.cache.Get(userID); found {
		return x.(uuid.UUID), true
	}
	return uuid.Nil, false
}

func (r *ActiveSessionRepository) Delete(userID string) {
	r.cache.Delete(userID)
}

// DeleteSession drops whichever user currently maps to sessionID.
func (r *ActiveSessionRepository) DeleteSession(sessionID uuid.UUID) (string, bool) {
	for user, item := range r.cache.Items() {
		if id, ok := item.Object.(uuid.UUID); ok && id == sessionID {
			r.cache.Delete(user)
			return user, true
		}
	}
	return "", false
}

func (r *ActiveSessionRepository) Count() int {
	return r.cache.ItemCount()
}
