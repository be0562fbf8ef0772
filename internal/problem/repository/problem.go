package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
)

const (
	defaultProblemTTL      = 30 * time.Minute
	defaultProblemEmptyTTL = 5 * time.Minute
	problemKeyPrefix       = "problem:detail:"
	defaultPageSize        = 50
	maxPageSize            = 200
)

var (
	ErrProblemNotFound = errors.New("problem not found")
	ErrProblemExists   = errors.New("problem already exists")
)

// ListFilter narrows the catalogue listing. Zero values do not filter.
type ListFilter struct {
	Difficulty *model.Difficulty
	Search     string
	Tags       []string
	Limit      int
	Offset     int
}

// ProblemRepository reads and writes the problem catalogue.
type ProblemRepository interface {
	List(ctx context.Context, filter ListFilter) ([]model.Problem, error)
	// GetByPublicID returns the problem with tags and every testcase.
	GetByPublicID(ctx context.Context, publicID string) (*model.Problem, error)
	ListTags(ctx context.Context) ([]string, error)
	Vote(ctx context.Context, publicID string, like bool) error
	Create(ctx context.Context, tx db.Transaction, problem *model.Problem) error
	CountByDifficulty(ctx context.Context) (map[model.Difficulty]int, error)
}

type MySQLProblemRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

func NewProblemRepository(database db.Database, cacheClient cache.Cache) *MySQLProblemRepository {
	return NewProblemRepositoryWithTTL(database, cacheClient, defaultProblemTTL, defaultProblemEmptyTTL)
}

func NewProblemRepositoryWithTTL(database db.Database, cacheClient cache.Cache, ttl, emptyTTL time.Duration) *MySQLProblemRepository {
	if ttl <= 0 {
		ttl = defaultProblemTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultProblemEmptyTTL
	}
	return &MySQLProblemRepository{
		db:       database,
		cache:    cacheClient,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}
}

func (r *MySQLProblemRepository) List(ctx context.Context, filter ListFilter) ([]model.Problem, error) {
	query, args := buildListQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var problems []model.Problem
	for rows.Next() {
		var (
			p          model.Problem
			difficulty int
		)
		if err := rows.Scan(&p.ID, &p.PublicID, &p.Name, &difficulty, &p.Likes, &p.Dislikes, &p.Published); err != nil {
			return nil, err
		}
		p.Difficulty = model.Difficulty(difficulty)
		p.Tags = []string{}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(problems) == 0 {
		return problems, nil
	}

	ids := make([]interface{}, len(problems))
	index := make(map[int64]int, len(problems))
	for i, p := range problems {
		ids[i] = p.ID
		index[p.ID] = i
	}
	tagRows, err := r.db.Query(ctx, `
		SELECT pt.problem_id, t.name
		FROM problem_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.problem_id IN (`+placeholders(len(ids))+`)
		ORDER BY t.name`, ids...)
	if err != nil {
		return nil, err
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var (
			problemID int64
			name      string
		)
		if err := tagRows.Scan(&problemID, &name); err != nil {
			return nil, err
		}
		if i, ok := index[problemID]; ok {
			problems[i].Tags = append(problems[i].Tags, name)
		}
	}
	return problems, tagRows.Err()
}

func buildListQuery(filter ListFilter) (string, []interface{}) {
	var (
		b    strings.Builder
		args []interface{}
	)
	b.WriteString(`
		SELECT p.id, p.public_id, p.name, p.difficulty, p.likes, p.dislikes, p.published
		FROM problems p
		WHERE p.published = 1`)
	if filter.Difficulty != nil {
		b.WriteString(" AND p.difficulty = ?")
		args = append(args, int(*filter.Difficulty))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		b.WriteString(" AND p.name LIKE ?")
		args = append(args, "%"+escapeLike(s)+"%")
	}
	if len(filter.Tags) > 0 {
		b.WriteString(` AND EXISTS (
			SELECT 1 FROM problem_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.problem_id = p.id AND t.name IN (` + placeholders(len(filter.Tags)) + `))`)
		for _, tag := range filter.Tags {
			args = append(args, tag)
		}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY p.id LIMIT ? OFFSET ?")
	args = append(args, limit, offset)
	return b.String(), args
}

func (r *MySQLProblemRepository) GetByPublicID(ctx context.Context, publicID string) (*model.Problem, error) {
	if publicID == "" {
		return nil, ErrProblemNotFound
	}
	if r.cache == nil {
		return r.getFromDB(ctx, publicID)
	}
	problem, err := cache.GetWithCached[*model.Problem](
		ctx,
		r.cache,
		problemKeyPrefix+publicID,
		cache.JitterTTL(r.ttl),
		cache.JitterTTL(r.emptyTTL),
		func(p *model.Problem) bool { return p == nil },
		marshalProblem,
		unmarshalProblem,
		func(ctx context.Context) (*model.Problem, error) {
			p, err := r.getFromDB(ctx, publicID)
			if errors.Is(err, ErrProblemNotFound) {
				return nil, nil
			}
			return p, err
		},
	)
	if err != nil {
		return nil, err
	}
	if problem == nil {
		return nil, ErrProblemNotFound
	}
	return problem, nil
}

func (r *MySQLProblemRepository) getFromDB(ctx context.Context, publicID string) (*model.Problem, error) {
	var (
		p          model.Problem
		difficulty int
	)
	row := r.db.QueryRow(ctx, `
		SELECT id, public_id, name, difficulty, description, constraints_text, likes, dislikes, published
		FROM problems WHERE public_id = ?`, publicID)
	if err := row.Scan(&p.ID, &p.PublicID, &p.Name, &difficulty, &p.Description, &p.Constraints, &p.Likes, &p.Dislikes, &p.Published); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrProblemNotFound
		}
		return nil, err
	}
	p.Difficulty = model.Difficulty(difficulty)

	tags, err := r.problemTags(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Tags = tags

	testcases, err := r.testcases(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.TestCases = testcases
	return &p, nil
}

func (r *MySQLProblemRepository) problemTags(ctx context.Context, problemID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT t.name FROM problem_tags pt JOIN tags t ON t.id = pt.tag_id
		WHERE pt.problem_id = ? ORDER BY t.name`, problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// testcases loads testcases in position order with their fields in declaration order.
func (r *MySQLProblemRepository) testcases(ctx context.Context, problemID int64) ([]model.TestCase, error) {
	rows, err := r.db.Query(ctx, `
		SELECT tc.id, tc.public_id, tc.is_sample, f.name, f.type, f.value
		FROM testcases tc
		JOIN testcase_fields f ON f.testcase_id = tc.id
		WHERE tc.problem_id = ?
		ORDER BY tc.position, tc.id, f.position`, problemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TestCase
	for rows.Next() {
		var (
			id        int64
			publicID  string
			isSample  bool
			name      string
			fieldType int
			value     string
		)
		if err := rows.Scan(&id, &publicID, &isSample, &name, &fieldType, &value); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, model.TestCase{ID: id, PublicID: publicID, IsSample: isSample})
		}
		last := &out[len(out)-1]
		last.Inputs = append(last.Inputs, model.ValueField{Name: name, Type: model.FieldType(fieldType), Value: value})
	}
	return out, rows.Err()
}

func (r *MySQLProblemRepository) ListTags(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, "SELECT name FROM tags ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

func (r *MySQLProblemRepository) Vote(ctx context.Context, publicID string, like bool) error {
	query := "UPDATE problems SET dislikes = dislikes + 1 WHERE public_id = ?"
	if like {
		query = "UPDATE problems SET likes = likes + 1 WHERE public_id = ?"
	}
	result, err := r.db.Exec(ctx, query, publicID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProblemNotFound
	}
	cache.Invalidate(ctx, r.cache, problemKeyPrefix+publicID)
	return nil
}

// Create inserts the problem, its tags and its testcases. Run it inside a transaction.
func (r *MySQLProblemRepository) Create(ctx context.Context, tx db.Transaction, problem *model.Problem) error {
	if problem == nil {
		return errors.New("problem is nil")
	}
	q := db.GetQuerier(r.db, tx)

	result, err := q.Exec(ctx, `
		INSERT INTO problems (public_id, name, difficulty, description, constraints_text, published)
		VALUES (?, ?, ?, ?, ?, ?)`,
		problem.PublicID, problem.Name, int(problem.Difficulty), problem.Description, problem.Constraints, problem.Published)
	if err != nil {
		if _, dup := db.UniqueViolation(err); dup {
			return ErrProblemExists
		}
		return err
	}
	problemID, err := result.LastInsertId()
	if err != nil {
		return err
	}
	problem.ID = problemID

	for _, tag := range problem.Tags {
		if _, err := q.Exec(ctx, "INSERT IGNORE INTO tags (name) VALUES (?)", tag); err != nil {
			return err
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO problem_tags (problem_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?`, problemID, tag); err != nil {
			return err
		}
	}

	for i := range problem.TestCases {
		tc := &problem.TestCases[i]
		res, err := q.Exec(ctx, `
			INSERT INTO testcases (public_id, problem_id, is_sample, position)
			VALUES (?, ?, ?, ?)`, tc.PublicID, problemID, tc.IsSample, i)
		if err != nil {
			return err
		}
		tcID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		tc.ID = tcID
		for pos, f := range tc.Inputs {
			if _, err := q.Exec(ctx, `
				INSERT INTO testcase_fields (testcase_id, position, name, type, value)
				VALUES (?, ?, ?, ?, ?)`, tcID, pos, f.Name, int(f.Type), f.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *MySQLProblemRepository) CountByDifficulty(ctx context.Context) (map[model.Difficulty]int, error) {
	rows, err := r.db.Query(ctx, "SELECT difficulty, COUNT(*) FROM problems WHERE published = 1 GROUP BY difficulty")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[model.Difficulty]int, len(model.Difficulties))
	for rows.Next() {
		var difficulty, count int
		if err := rows.Scan(&difficulty, &count); err != nil {
			return nil, err
		}
		counts[model.Difficulty(difficulty)] = count
	}
	return counts, rows.Err()
}

// cachedProblem keeps the internal id that the API representation hides.
type cachedProblem struct {
	*model.Problem
	ID int64 `json:"internal_id"`
}

func marshalProblem(p *model.Problem) string {
	payload, err := json.Marshal(cachedProblem{Problem: p, ID: p.ID})
	if err != nil {
		return ""
	}
	return string(payload)
}

func unmarshalProblem(data string) (*model.Problem, error) {
	var c cachedProblem
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, err
	}
	if c.Problem == nil {
		return nil, errors.New("empty cached problem")
	}
	c.Problem.ID = c.ID
	return c.Problem, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
