package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// foreign_keys is per connection; a single connection keeps it in force.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS teams (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	coach      TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS players (
	id         TEXT PRIMARY KEY,
	team_id    TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	first_name TEXT NOT NULL,
	last_name  TEXT NOT NULL DEFAULT '',
	sex        TEXT NOT NULL,
	birth_date TEXT NOT NULL,
	belt       TEXT NOT NULL DEFAULT '',
	height     REAL,
	weight     REAL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (team_id, first_name, last_name, birth_date)
);

CREATE TABLE IF NOT EXISTS competitions (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	location          TEXT NOT NULL DEFAULT '',
	event_date        TEXT NOT NULL,
	registration_open INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
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
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (competition_id, player_id, category)
);

CREATE INDEX IF NOT EXISTS idx_players_team_id ON players(team_id);
CREATE INDEX IF NOT EXISTS idx_registrations_competition ON registrations(competition_id);
CREATE INDEX IF NOT EXISTS idx_registrations_status ON registrations(status);
CREATE INDEX IF NOT EXISTS idx_registrations_team ON registrations(team_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqliteErr classifies driver errors into the store's sentinel errors.
func sqliteErr(err error, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrap(ErrNotFound, "sqlite: "+action)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return eris.Wrapf(ErrDuplicate, "sqlite: %s", action)
	}
	return eris.Wrap(err, "sqlite: "+action)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// --- Teams ---

func (s *SQLiteStore) CreateTeam(ctx context.Context, team model.Team) (*model.Team, error) {
	team.ID = uuid.New().String()
	team.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teams (id, name, coach, email, created_at) VALUES (?, ?, ?, ?, ?)`,
		team.ID, team.Name, team.Coach, team.Email, team.CreatedAt,
	)
	if err != nil {
		return nil, sqliteErr(err, "insert team")
	}
	return &team, nil
}

func (s *SQLiteStore) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	var t model.Team
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, coach, email, created_at FROM teams WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Coach, &t.Email, &t.CreatedAt)
	if err != nil {
		return nil, sqliteErr(err, "get team "+id)
	}
	return &t, nil
}

func (s *SQLiteStore) ListTeams(ctx context.Context) ([]model.Team, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, coach, email, created_at FROM teams ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list teams")
	}
	defer rows.Close()

	var teams []model.Team
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Coach, &t.Email, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan team")
		}
		teams = append(teams, t)
	}
	return teams, eris.Wrap(rows.Err(), "sqlite: iterate teams")
}

func (s *SQLiteStore) DeleteTeam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete team %s", id)
	}
	return checkRowsAffected(res, "team", id)
}

// --- Players ---

const sqlitePlayerColumns = `id, team_id, first_name, last_name, sex, birth_date, belt, height, weight, created_at, updated_at`

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func scanSQLitePlayer(row scannable) (*model.Player, error) {
	var p model.Player
	var sex, belt, birth string
	var height, weight sql.NullFloat64
	if err := row.Scan(&p.ID, &p.TeamID, &p.FirstName, &p.LastName, &sex, &birth, &belt, &height, &weight, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	bd, err := time.Parse(model.DateLayout, birth)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse birth date %q", birth)
	}
	p.BirthDate = bd
	p.Sex, p.Belt = division.Sex(sex), division.Belt(belt)
	p.Height, p.Weight = floatPtr(height), floatPtr(weight)
	return &p, nil
}

func (s *SQLiteStore) CreatePlayer(ctx context.Context, p model.Player) (*model.Player, error) {
	now := time.Now().UTC()
	p.ID = uuid.New().String()
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (`+sqlitePlayerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TeamID, p.FirstName, p.LastName, string(p.Sex), p.BirthDate.Format(model.DateLayout),
		string(p.Belt), nullFloat(p.Height), nullFloat(p.Weight), now, now,
	)
	if err != nil {
		return nil, sqliteErr(err, "insert player")
	}
	return &p, nil
}

// UpsertPlayers merges a roster into players keyed by team, name and birth
// date inside one transaction. Existing rows keep their id and created_at.
func (s *SQLiteStore) UpsertPlayers(ctx context.Context, players []model.Player) (int, error) {
	if len(players) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert players: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO players (`+sqlitePlayerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (team_id, first_name, last_name, birth_date) DO UPDATE SET
			sex = excluded.sex, belt = excluded.belt, height = excluded.height,
			weight = excluded.weight, updated_at = excluded.updated_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert players: prepare")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range players {
		_, err := stmt.ExecContext(ctx,
			uuid.New().String(), p.TeamID, p.FirstName, p.LastName, string(p.Sex), p.BirthDate.Format(model.DateLayout),
			string(p.Belt), nullFloat(p.Height), nullFloat(p.Weight), now, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert player %s", p.FullName())
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert players: commit")
	}
	return len(players), nil
}

func (s *SQLiteStore) GetPlayer(ctx context.Context, id string) (*model.Player, error) {
	p, err := scanSQLitePlayer(s.db.QueryRowContext(ctx,
		`SELECT `+sqlitePlayerColumns+` FROM players WHERE id = ?`, id,
	))
	if err != nil {
		return nil, sqliteErr(err, "get player "+id)
	}
	return p, nil
}

func (s *SQLiteStore) UpdatePlayer(ctx context.Context, p model.Player) (*model.Player, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE players SET first_name = ?, last_name = ?, sex = ?, birth_date = ?, belt = ?, height = ?, weight = ?, updated_at = ? WHERE id = ?`,
		p.FirstName, p.LastName, string(p.Sex), p.BirthDate.Format(model.DateLayout), string(p.Belt),
		nullFloat(p.Height), nullFloat(p.Weight), time.Now().UTC(), p.ID,
	)
	if err != nil {
		return nil, sqliteErr(err, "update player "+p.ID)
	}
	if err := checkRowsAffected(res, "player", p.ID); err != nil {
		return nil, err
	}
	return s.GetPlayer(ctx, p.ID)
}

func (s *SQLiteStore) ListPlayers(ctx context.Context, filter PlayerFilter) ([]model.Player, error) {
	query := `SELECT ` + sqlitePlayerColumns + ` FROM players WHERE 1=1`
	args := []any{}
	if filter.TeamID != "" {
		query += ` AND team_id = ?`
		args = append(args, filter.TeamID)
	}
	query += ` ORDER BY last_name, first_name, id LIMIT ? OFFSET ?`
	args = append(args, listLimit(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list players")
	}
	defer rows.Close()

	var players []model.Player
	for rows.Next() {
		p, err := scanSQLitePlayer(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan player")
		}
		players = append(players, *p)
	}
	return players, eris.Wrap(rows.Err(), "sqlite: iterate players")
}

func (s *SQLiteStore) DeletePlayer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete player %s", id)
	}
	return checkRowsAffected(res, "player", id)
}

// --- Competitions ---

func scanSQLiteCompetition(row scannable) (*model.Competition, error) {
	var c model.Competition
	var eventDate string
	if err := row.Scan(&c.ID, &c.Name, &c.Location, &eventDate, &c.RegistrationOpen, &c.CreatedAt); err != nil {
		return nil, err
	}
	d, err := time.Parse(model.DateLayout, eventDate)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse event date %q", eventDate)
	}
	c.EventDate = d
	return &c, nil
}

func (s *SQLiteStore) CreateCompetition(ctx context.Context, c model.Competition) (*model.Competition, error) {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO competitions (id, name, location, event_date, registration_open, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Location, c.EventDate.Format(model.DateLayout), c.RegistrationOpen, c.CreatedAt,
	)
	if err != nil {
		return nil, sqliteErr(err, "insert competition")
	}
	return &c, nil
}

func (s *SQLiteStore) GetCompetition(ctx context.Context, id string) (*model.Competition, error) {
	c, err := scanSQLiteCompetition(s.db.QueryRowContext(ctx,
		`SELECT id, name, location, event_date, registration_open, created_at FROM competitions WHERE id = ?`, id,
	))
	if err != nil {
		return nil, sqliteErr(err, "get competition "+id)
	}
	return c, nil
}

func (s *SQLiteStore) ListCompetitions(ctx context.Context) ([]model.Competition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, location, event_date, registration_open, created_at FROM competitions ORDER BY event_date DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list competitions")
	}
	defer rows.Close()

	var comps []model.Competition
	for rows.Next() {
		c, err := scanSQLiteCompetition(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan competition")
		}
		comps = append(comps, *c)
	}
	return comps, eris.Wrap(rows.Err(), "sqlite: iterate competitions")
}

func (s *SQLiteStore) SetCompetitionOpen(ctx context.Context, id string, open bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE competitions SET registration_open = ? WHERE id = ?`, open, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set competition open %s", id)
	}
	return checkRowsAffected(res, "competition", id)
}

// --- Registrations ---

const sqliteRegColumns = `id, competition_id, player_id, team_id, category, grp, level, status, review_note, reviewed_by, created_at, updated_at`

func scanSQLiteRegistration(row scannable) (*model.Registration, error) {
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

func (s *SQLiteStore) CreateRegistration(ctx context.Context, r model.Registration) (*model.Registration, error) {
	now := time.Now().UTC()
	r.ID = uuid.New().String()
	r.Status = model.RegistrationPending
	r.CreatedAt, r.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registrations (id, competition_id, player_id, team_id, category, grp, level, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CompetitionID, r.PlayerID, r.TeamID, string(r.Category), r.Group, string(r.Level), string(r.Status), now, now,
	)
	if err != nil {
		return nil, sqliteErr(err, "insert registration")
	}
	return &r, nil
}

func (s *SQLiteStore) GetRegistration(ctx context.Context, id string) (*model.Registration, error) {
	r, err := scanSQLiteRegistration(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRegColumns+` FROM registrations WHERE id = ?`, id,
	))
	if err != nil {
		return nil, sqliteErr(err, "get registration "+id)
	}
	return r, nil
}

func (s *SQLiteStore) ListRegistrations(ctx context.Context, filter RegistrationFilter) ([]model.Registration, error) {
	query := `SELECT ` + sqliteRegColumns + ` FROM registrations WHERE 1=1`
	args := []any{}
	add := func(col, val string) {
		if val == "" {
			return
		}
		query += ` AND ` + col + ` = ?`
		args = append(args, val)
	}
	add("competition_id", filter.CompetitionID)
	add("team_id", filter.TeamID)
	add("player_id", filter.PlayerID)
	add("status", string(filter.Status))
	add("category", string(filter.Category))

	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, listLimit(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list registrations")
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		r, err := scanSQLiteRegistration(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan registration")
		}
		regs = append(regs, *r)
	}
	return regs, eris.Wrap(rows.Err(), "sqlite: iterate registrations")
}

func (s *SQLiteStore) ReviewRegistration(ctx context.Context, id string, review Review) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE registrations SET status = ?, reviewed_by = ?, review_note = ?, updated_at = ? WHERE id = ? AND status = 'pending'`,
		string(review.Status), review.ReviewedBy, review.Note, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: review registration %s", id)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE id = ?)`, id).Scan(&exists); err != nil {
		return eris.Wrapf(err, "sqlite: check registration %s", id)
	}
	if exists {
		return eris.Wrapf(ErrConflict, "registration %s", id)
	}
	return eris.Wrapf(ErrNotFound, "registration %s", id)
}

func (s *SQLiteStore) UpdateRegistrationGroup(ctx context.Context, id, group string, level division.Level) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE registrations SET grp = ?, level = ?, updated_at = ? WHERE id = ?`,
		group, string(level), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update registration group %s", id)
	}
	return checkRowsAffected(res, "registration", id)
}
