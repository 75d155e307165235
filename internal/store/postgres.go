package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tkd-registrar/internal/db"
	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	pgInsertTeam    = `INSERT INTO teams (id, name, coach, email, created_at) VALUES ($1, $2, $3, $4, $5)`
	pgGetTeam       = `SELECT id, name, coach, email, created_at FROM teams WHERE id = $1`
	pgInsertPlayer  = `INSERT INTO players (id, team_id, first_name, last_name, sex, birth_date, belt, height, weight, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	pgGetPlayer     = `SELECT id, team_id, first_name, last_name, sex, birth_date, belt, height, weight, created_at, updated_at FROM players WHERE id = $1`
	pgGetComp       = `SELECT id, name, location, event_date, registration_open, created_at FROM competitions WHERE id = $1`
	pgInsertReg     = `INSERT INTO registrations (id, competition_id, player_id, team_id, category, grp, level, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	pgGetReg        = `SELECT id, competition_id, player_id, team_id, category, grp, level, status, review_note, reviewed_by, created_at, updated_at FROM registrations WHERE id = $1`
	pgReviewReg     = `UPDATE registrations SET status = $1, reviewed_by = $2, review_note = $3, updated_at = $4 WHERE id = $5 AND status = 'pending'`
	pgUpdateRegGrp  = `UPDATE registrations SET grp = $1, level = $2, updated_at = $3 WHERE id = $4`
	pgRegExists     = `SELECT EXISTS (SELECT 1 FROM registrations WHERE id = $1)`
	pgSetCompOpen   = `UPDATE competitions SET registration_open = $1 WHERE id = $2`
	pgInsertComp    = `INSERT INTO competitions (id, name, location, event_date, registration_open, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	pgUniqueViolate = "23505"
)

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_team":       pgGetTeam,
	"get_player":     pgGetPlayer,
	"get_comp":       pgGetComp,
	"insert_reg":     pgInsertReg,
	"get_reg":        pgGetReg,
	"review_reg":     pgReviewReg,
	"update_reg_grp": pgUpdateRegGrp,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS teams (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	coach      TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS players (
	id         TEXT PRIMARY KEY,
	team_id    TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	first_name TEXT NOT NULL,
	last_name  TEXT NOT NULL DEFAULT '',
	sex        TEXT NOT NULL,
	birth_date DATE NOT NULL,
	belt       TEXT NOT NULL DEFAULT '',
	height     DOUBLE PRECISION,
	weight     DOUBLE PRECISION,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (team_id, first_name, last_name, birth_date)
);

CREATE TABLE IF NOT EXISTS competitions (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	location          TEXT NOT NULL DEFAULT '',
	event_date        DATE NOT NULL,
	registration_open BOOLEAN NOT NULL DEFAULT false,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS registrations (
	id             TEXT PRIMARY KEY,
	competition_id TEXT NOT NULL REFERENCES competitions(id) ON DELETE CASCADE,
	player_id      TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
	team_id        TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	category       TEXT NOT NULL,
	grp            TEXT NOT NULL DEFAULT '',
	level          TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'pending',
	review_note    TEXT NOT NULL DEFAULT '',
	reviewed_by    TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (competition_id, player_id, category)
);

CREATE INDEX IF NOT EXISTS idx_players_team_id ON players(team_id);
CREATE INDEX IF NOT EXISTS idx_registrations_competition ON registrations(competition_id);
CREATE INDEX IF NOT EXISTS idx_registrations_status ON registrations(status);
CREATE INDEX IF NOT EXISTS idx_registrations_team ON registrations(team_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// pgErr classifies driver errors into the store's sentinel errors.
func pgErr(err error, action string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrap(ErrNotFound, "postgres: "+action)
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) && pe.Code == pgUniqueViolate {
		return eris.Wrapf(ErrDuplicate, "postgres: %s: %s", action, pe.ConstraintName)
	}
	return eris.Wrap(err, "postgres: "+action)
}

func requireAffected(tag pgconn.CommandTag, entity, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

// --- Teams ---

func (s *PostgresStore) CreateTeam(ctx context.Context, team model.Team) (*model.Team, error) {
	team.ID = uuid.New().String()
	team.CreatedAt = time.Now().UTC()

	if _, err := s.pool.Exec(ctx, pgInsertTeam, team.ID, team.Name, team.Coach, team.Email, team.CreatedAt); err != nil {
		return nil, pgErr(err, "insert team")
	}
	return &team, nil
}

func (s *PostgresStore) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	var t model.Team
	err := s.pool.QueryRow(ctx, pgGetTeam, id).Scan(&t.ID, &t.Name, &t.Coach, &t.Email, &t.CreatedAt)
	if err != nil {
		return nil, pgErr(err, "get team "+id)
	}
	return &t, nil
}

func (s *PostgresStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, coach, email, created_at FROM teams ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list teams")
	}
	defer rows.Close()

	var teams []model.Team
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Coach, &t.Email, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan team")
		}
		teams = append(teams, t)
	}
	return teams, eris.Wrap(rows.Err(), "postgres: iterate teams")
}

func (s *PostgresStore) DeleteTeam(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete team %s", id)
	}
	return requireAffected(tag, "team", id)
}

// --- Players ---

var playerColumns = []string{"id", "team_id", "first_name", "last_name", "sex", "birth_date", "belt", "height", "weight", "created_at", "updated_at"}

func playerRow(p model.Player) []any {
	return []any{p.ID, p.TeamID, p.FirstName, p.LastName, string(p.Sex), p.BirthDate, string(p.Belt), p.Height, p.Weight, p.CreatedAt, p.UpdatedAt}
}

func (s *PostgresStore) CreatePlayer(ctx context.Context, p model.Player) (*model.Player, error) {
	now := time.Now().UTC()
	p.ID = uuid.New().String()
	p.CreatedAt, p.UpdatedAt = now, now

	if _, err := s.pool.Exec(ctx, pgInsertPlayer, playerRow(p)...); err != nil {
		return nil, pgErr(err, "insert player")
	}
	return &p, nil
}

// UpsertPlayers merges a roster into players keyed by team, name and birth
// date. Existing rows keep their id and created_at.
func (s *PostgresStore) UpsertPlayers(ctx context.Context, players []model.Player) (int, error) {
	now := time.Now().UTC()
	rows := make([][]any, len(players))
	for i, p := range players {
		p.ID = uuid.New().String()
		p.CreatedAt, p.UpdatedAt = now, now
		rows[i] = playerRow(p)
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "players",
		Columns:      playerColumns,
		ConflictKeys: []string{"team_id", "first_name", "last_name", "birth_date"},
		UpdateCols:   []string{"sex", "belt", "height", "weight", "updated_at"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert players")
	}
	return int(n), nil
}

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	var sex, belt string
	if err := row.Scan(&p.ID, &p.TeamID, &p.FirstName, &p.LastName, &sex, &p.BirthDate, &belt, &p.Height, &p.Weight, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Sex, p.Belt = division.Sex(sex), division.Belt(belt)
	return &p, nil
}

func (s *PostgresStore) GetPlayer(ctx context.Context, id string) (*model.Player, error) {
	p, err := scanPlayer(s.pool.QueryRow(ctx, pgGetPlayer, id))
	if err != nil {
		return nil, pgErr(err, "get player "+id)
	}
	return p, nil
}

func (s *PostgresStore) UpdatePlayer(ctx context.Context, p model.Player) (*model.Player, error) {
	p.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE players SET first_name = $1, last_name = $2, sex = $3, birth_date = $4, belt = $5, height = $6, weight = $7, updated_at = $8 WHERE id = $9`,
		p.FirstName, p.LastName, string(p.Sex), p.BirthDate, string(p.Belt), p.Height, p.Weight, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return nil, pgErr(err, "update player "+p.ID)
	}
	if err := requireAffected(tag, "player", p.ID); err != nil {
		return nil, err
	}
	return s.GetPlayer(ctx, p.ID)
}

func (s *PostgresStore) ListPlayers(ctx context.Context, filter PlayerFilter) ([]model.Player, error) {
	query := `SELECT id, team_id, first_name, last_name, sex, birth_date, belt, height, weight, created_at, updated_at FROM players WHERE true`
	args := []any{}
	argIdx := 1

	if filter.TeamID != "" {
		query += fmt.Sprintf(` AND team_id = $%d`, argIdx)
		args = append(args, filter.TeamID)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY last_name, first_name, id LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, listLimit(filter.Limit), filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list players")
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan player")
		}
		players = append(players, *p)
	}
	return players, eris.Wrap(rows.Err(), "postgres: iterate players")
}

func (s *PostgresStore) DeletePlayer(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete player %s", id)
	}
	return requireAffected(tag, "player", id)
}

// --- Competitions ---

func (s *PostgresStore) CreateCompetition(ctx context.Context, c model.Competition) (*model.Competition, error) {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	if _, err := s.pool.Exec(ctx, pgInsertComp, c.ID, c.Name, c.Location, c.EventDate, c.RegistrationOpen, c.CreatedAt); err != nil {
		return nil, pgErr(err, "insert competition")
	}
	return &c, nil
}

func (s *PostgresStore) GetCompetition(ctx context.Context, id string) (*model.Competition, error) {
	var c model.Competition
	err := s.pool.QueryRow(ctx, pgGetComp, id).Scan(&c.ID, &c.Name, &c.Location, &c.EventDate, &c.RegistrationOpen, &c.CreatedAt)
	if err != nil {
		return nil, pgErr(err, "get competition "+id)
	}
	return &c, nil
}

func (s *PostgresStore) ListCompetitions(ctx context.Context) ([]model.Competition, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, location, event_date, registration_open, created_at FROM competitions ORDER BY event_date DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list competitions")
	}
	defer rows.Close()

	var comps []model.Competition
	for rows.Next() {
		var c model.Competition
		if err := rows.Scan(&c.ID, &c.Name, &c.Location, &c.EventDate, &c.RegistrationOpen, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan competition")
		}
		comps = append(comps, c)
	}
	return comps, eris.Wrap(rows.Err(), "postgres: iterate competitions")
}

func (s *PostgresStore) SetCompetitionOpen(ctx context.Context, id string, open bool) error {
	tag, err := s.pool.Exec(ctx, pgSetCompOpen, open, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: set competition open %s", id)
	}
	return requireAffected(tag, "competition", id)
}

// --- Registrations ---

func (s *PostgresStore) CreateRegistration(ctx context.Context, r model.Registration) (*model.Registration, error) {
	now := time.Now().UTC()
	r.ID = uuid.New().String()
	r.Status = model.RegistrationPending
	r.CreatedAt, r.UpdatedAt = now, now

	_, err := s.pool.Exec(ctx, pgInsertReg,
		r.ID, r.CompetitionID, r.PlayerID, r.TeamID, string(r.Category), r.Group, string(r.Level), string(r.Status), now, now,
	)
	if err != nil {
		return nil, pgErr(err, "insert registration")
	}
	return &r, nil
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var r model.Registration
	var category, level, status string
	if err := row.Scan(&r.ID, &r.CompetitionID, &r.PlayerID, &r.TeamID, &category, &r.Group, &level, &status, &r.ReviewNote, &r.ReviewedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Category = division.Category(category)
	r.Level = division.Level(level)
	r.Status = model.RegistrationStatus(status)
	return &r, nil
}

func (s *PostgresStore) GetRegistration(ctx context.Context, id string) (*model.Registration, error) {
	r, err := scanRegistration(s.pool.QueryRow(ctx, pgGetReg, id))
	if err != nil {
		return nil, pgErr(err, "get registration "+id)
	}
	return r, nil
}

func (s *PostgresStore) ListRegistrations(ctx context.Context, filter RegistrationFilter) ([]model.Registration, error) {
	query := `SELECT id, competition_id, player_id, team_id, category, grp, level, status, review_note, reviewed_by, created_at, updated_at FROM registrations WHERE true`
	args := []any{}
	argIdx := 1

	add := func(col, val string) {
		if val == "" {
			return
		}
		query += fmt.Sprintf(` AND %s = $%d`, col, argIdx)
		args = append(args, val)
		argIdx++
	}
	add("competition_id", filter.CompetitionID)
	add("team_id", filter.TeamID)
	add("player_id", filter.PlayerID)
	add("status", string(filter.Status))
	add("category", string(filter.Category))

	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, listLimit(filter.Limit), filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list registrations")
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan registration")
		}
		regs = append(regs, *r)
	}
	return regs, eris.Wrap(rows.Err(), "postgres: iterate registrations")
}

func (s *PostgresStore) ReviewRegistration(ctx context.Context, id string, review Review) error {
	tag, err := s.pool.Exec(ctx, pgReviewReg,
		string(review.Status), review.ReviewedBy, review.Note, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: review registration %s", id)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, pgRegExists, id).Scan(&exists); err != nil {
		return eris.Wrapf(err, "postgres: check registration %s", id)
	}
	if exists {
		return eris.Wrapf(ErrConflict, "registration %s", id)
	}
	return eris.Wrapf(ErrNotFound, "registration %s", id)
}

func (s *PostgresStore) UpdateRegistrationGroup(ctx context.Context, id, group string, level division.Level) error {
	tag, err := s.pool.Exec(ctx, pgUpdateRegGrp, group, string(level), time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update registration group %s", id)
	}
	return requireAffected(tag, "registration", id)
}
