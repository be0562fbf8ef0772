package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"

	"github.com/zeromicro/go-zero/core/collection"
)

const (
	languagesCacheKey     = "problem:languages"
	defaultLanguageTTL    = time.Hour
	defaultLocalLangTTL   = time.Minute
	languageLocalCacheKey = "all"
)

var ErrLanguageNotFound = errors.New("language not found")

// LanguageRepository reads the language table. The table is small and rarely changes,
// so it is kept in process memory in front of Redis.
type LanguageRepository struct {
	db    db.Database
	cache cache.Cache
	local *collection.Cache
	ttl   time.Duration
}

// NewLanguageRepository creates a language repository. cacheClient may be nil.
func NewLanguageRepository(database db.Database, cacheClient cache.Cache, localTTL time.Duration) (*LanguageRepository, error) {
	if localTTL <= 0 {
		localTTL = defaultLocalLangTTL
	}
	local, err := collection.NewCache(localTTL, collection.WithName("languages"))
	if err != nil {
		return nil, err
	}
	return &LanguageRepository{db: database, cache: cacheClient, local: local, ttl: defaultLanguageTTL}, nil
}

// List returns every language ordered by name.
func (r *LanguageRepository) List(ctx context.Context) ([]model.Language, error) {
	v, err := r.local.Take(languageLocalCacheKey, func() (any, error) {
		return r.listShared(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Language), nil
}

// GetLanguage resolves a language by public id.
func (r *LanguageRepository) GetLanguage(ctx context.Context, publicID string) (*model.Language, error) {
	languages, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range languages {
		if languages[i].PublicID == publicID {
			lang := languages[i]
			return &lang, nil
		}
	}
	return nil, ErrLanguageNotFound
}

// Invalidate drops both cache tiers.
func (r *LanguageRepository) Invalidate(ctx context.Context) {
	r.local.Del(languageLocalCacheKey)
	cache.Invalidate(ctx, r.cache, languagesCacheKey)
}

func (r *LanguageRepository) listShared(ctx context.Context) ([]model.Language, error) {
	if r.cache == nil {
		return r.listFromDB(ctx)
	}
	return cache.GetWithCached[[]model.Language](
		ctx,
		r.cache,
		languagesCacheKey,
		cache.JitterTTL(r.ttl),
		time.Minute,
		func(l []model.Language) bool { return len(l) == 0 },
		marshalLanguages,
		unmarshalLanguages,
		r.listFromDB,
	)
}

func (r *LanguageRepository) listFromDB(ctx context.Context) ([]model.Language, error) {
	rows, err := r.db.Query(ctx, "SELECT id, public_id, name, judge_id FROM languages ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Language
	for rows.Next() {
		var l model.Language
		if err := rows.Scan(&l.ID, &l.PublicID, &l.Name, &l.BackendID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type cachedLanguage struct {
	ID        int64  `json:"id"`
	PublicID  string `json:"public_id"`
	Name      string `json:"name"`
	BackendID int    `json:"judge_id"`
}

func marshalLanguages(languages []model.Language) string {
	out := make([]cachedLanguage, len(languages))
	for i, l := range languages {
		out[i] = cachedLanguage{ID: l.ID, PublicID: l.PublicID, Name: l.Name, BackendID: l.BackendID}
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return ""
	}
	return string(payload)
}

func unmarshalLanguages(data string) ([]model.Language, error) {
	var in []cachedLanguage
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return nil, err
	}
	out := make([]model.Language, len(in))
	for i, l := range in {
		out[i] = model.Language{ID: l.ID, PublicID: l.PublicID, Name: l.Name, BackendID: l.BackendID}
	}
	return out, nil
}
