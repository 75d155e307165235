package registration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/model"
	"github.com/sells-group/tkd-registrar/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	require.NoError(t, err)
	return d
}

type env struct {
	svc    *Service
	st     *store.SQLiteStore
	team   *model.Team
	player *model.Player
	comp   *model.Competition
}

// newEnv seeds a 12-year-old blue belt girl (41.5 kg) and an open
// competition on 2025-03-15.
func newEnv(t *testing.T, opts ...Option) env {
	t.Helper()
	ctx := context.Background()
	st := newTestStore(t)

	team, err := st.CreateTeam(ctx, model.Team{Name: "Tigers"})
	require.NoError(t, err)
	player, err := st.CreatePlayer(ctx, model.Player{
		TeamID:    team.ID,
		FirstName: "Ana",
		LastName:  "Reyes",
		Sex:       division.Female,
		BirthDate: date(t, "2012-05-01"),
		Belt:      division.Blue,
		Height:    division.Float(150),
		Weight:    division.Float(41.5),
	})
	require.NoError(t, err)
	comp, err := st.CreateCompetition(ctx, model.Competition{
		Name:             "City Open",
		EventDate:        date(t, "2025-03-15"),
		RegistrationOpen: true,
	})
	require.NoError(t, err)

	return env{svc: NewService(st, opts...), st: st, team: team, player: player, comp: comp}
}

func TestRegister_OneRecordPerCategory(t *testing.T) {
	e := newEnv(t)

	regs, err := e.svc.Register(context.Background(), RegisterRequest{
		CompetitionID: e.comp.ID,
		PlayerID:      e.player.ID,
		Categories:    []division.Category{division.Kyorugi, division.Poomsae, "poomsae_team", division.Poomsae},
	})
	require.NoError(t, err)
	require.Len(t, regs, 3)

	assert.Equal(t, division.Kyorugi, regs[0].Category)
	assert.Equal(t, "CADET GIRLS LIGHT", regs[0].Group)
	assert.Equal(t, division.Poomsae, regs[1].Category)
	assert.Equal(t, "Group 2", regs[1].Group)
	assert.Equal(t, division.PoomsaeTeam, regs[2].Category)
	assert.Equal(t, "Group 2", regs[2].Group)

	for _, r := range regs {
		assert.Equal(t, model.RegistrationPending, r.Status)
		assert.Equal(t, division.Novice, r.Level)
		assert.Equal(t, e.team.ID, r.TeamID)
	}

	stored, err := e.st.ListRegistrations(context.Background(), store.RegistrationFilter{CompetitionID: e.comp.ID})
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestRegister_Validation(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing ids", RegisterRequest{Categories: []division.Category{division.Poomsae}}},
		{"no categories", RegisterRequest{CompetitionID: e.comp.ID, PlayerID: e.player.ID}},
		{"unknown category", RegisterRequest{CompetitionID: e.comp.ID, PlayerID: e.player.ID, Categories: []division.Category{"Breaking"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Register(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegister_ClosedCompetition(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.st.SetCompetitionOpen(context.Background(), e.comp.ID, false))

	_, err := e.svc.Register(context.Background(), RegisterRequest{
		CompetitionID: e.comp.ID, PlayerID: e.player.ID, Categories: []division.Category{division.Poomsae},
	})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRegister_NotFound(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Register(context.Background(), RegisterRequest{
		CompetitionID: "missing", PlayerID: e.player.ID, Categories: []division.Category{division.Poomsae},
	})
	assert.True(t, store.IsNotFound(err))

	_, err = e.svc.Register(context.Background(), RegisterRequest{
		CompetitionID: e.comp.ID, PlayerID: "missing", Categories: []division.Category{division.Poomsae},
	})
	assert.True(t, store.IsNotFound(err))
}

func TestRegister_IncompleteKyorugiWritesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := *e.player
	p.Weight = nil
	_, err := e.st.UpdatePlayer(ctx, p)
	require.NoError(t, err)

	_, err = e.svc.Register(ctx, RegisterRequest{
		CompetitionID: e.comp.ID,
		PlayerID:      e.player.ID,
		Categories:    []division.Category{division.Poomsae, division.Kyorugi},
	})
	assert.ErrorIs(t, err, ErrIncompleteData)

	regs, err := e.st.ListRegistrations(ctx, store.RegistrationFilter{CompetitionID: e.comp.ID})
	require.NoError(t, err)
	assert.Empty(t, regs)
}

func TestRegister_AdultPoomsae(t *testing.T) {
	ctx := context.Background()

	e := newEnv(t)
	adult, err := e.st.CreatePlayer(ctx, model.Player{
		TeamID: e.team.ID, FirstName: "Min", Sex: division.Male, BirthDate: date(t, "1990-01-01"), Belt: division.Black,
	})
	require.NoError(t, err)

	_, err = e.svc.Register(ctx, RegisterRequest{
		CompetitionID: e.comp.ID, PlayerID: adult.ID, Categories: []division.Category{division.Poomsae},
	})
	assert.ErrorIs(t, err, ErrUnclassified)

	svc := NewService(e.st, WithClassifierOptions(division.Options{AdultPoomsaeGroup: true}))
	regs, err := svc.Register(ctx, RegisterRequest{
		CompetitionID: e.comp.ID, PlayerID: adult.ID, Categories: []division.Category{division.Poomsae},
	})
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, division.AdultGroup, regs[0].Group)
	assert.Equal(t, division.Advanced, regs[0].Level)
}

func TestRegister_DuplicateCategory(t *testing.T) {
	e := newEnv(t)
	req := RegisterRequest{CompetitionID: e.comp.ID, PlayerID: e.player.ID, Categories: []division.Category{division.Poomsae}}

	_, err := e.svc.Register(context.Background(), req)
	require.NoError(t, err)
	_, err = e.svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestRegister_AlreadyRegisteredCategoryWritesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, RegisterRequest{
		CompetitionID: e.comp.ID, PlayerID: e.player.ID,
		Categories: []division.Category{division.Poomsae},
	})
	require.NoError(t, err)

	regs, err := e.svc.Register(ctx, RegisterRequest{
		CompetitionID: e.comp.ID, PlayerID: e.player.ID,
		Categories: []division.Category{division.Kyorugi, division.Poomsae},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Contains(t, err.Error(), "already registered in Poomsae")
	assert.Empty(t, regs)

	all, err := e.st.ListRegistrations(ctx, store.RegistrationFilter{PlayerID: e.player.ID})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, division.Poomsae, all[0].Category)

	regs, err = e.svc.Register(ctx, RegisterRequest{
		CompetitionID: e.comp.ID, PlayerID: e.player.ID,
		Categories: []division.Category{division.Kyorugi},
	})
	require.NoError(t, err)
	assert.Len(t, regs, 1)
}

// failingCreateStore fails every CreateRegistration after the first n.
type failingCreateStore struct {
	store.Store
	n     int
	calls int
}

func (f *failingCreateStore) CreateRegistration(ctx context.Context, r model.Registration) (*model.Registration, error) {
	f.calls++
	if f.calls > f.n {
		return nil, errors.New("disk full")
	}
	return f.Store.CreateRegistration(ctx, r)
}

func TestRegister_WriteFailureReturnsCreated(t *testing.T) {
	e := newEnv(t)
	svc := NewService(&failingCreateStore{Store: e.st, n: 1})

	regs, err := svc.Register(context.Background(), RegisterRequest{
		CompetitionID: e.comp.ID, PlayerID: e.player.ID,
		Categories: []division.Category{division.Kyorugi, division.Poomsae},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create Poomsae")
	require.Len(t, regs, 1)
	assert.Equal(t, division.Kyorugi, regs[0].Category)
}

func TestPreview(t *testing.T) {
	e := newEnv(t)

	p, err := e.svc.Preview(context.Background(), e.player.ID, e.comp.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, p.Age)
	assert.Equal(t, division.Novice, p.Level)
	assert.Equal(t, "CADET GIRLS LIGHT, Group 2", p.Label)
	require.Len(t, p.Divisions, 3)
	assert.Equal(t, division.Classified, p.Divisions[0].Outcome)

	regs, err := e.st.ListRegistrations(context.Background(), store.RegistrationFilter{})
	require.NoError(t, err)
	assert.Empty(t, regs, "preview must not persist")
}

func TestPreview_UsesClockWithoutCompetition(t *testing.T) {
	e := newEnv(t)
	svc := NewService(e.st, WithClock(func() time.Time { return date(t, "2016-06-01") }))

	p, err := svc.Preview(context.Background(), e.player.ID, "", []division.Category{division.Kyorugi})
	require.NoError(t, err)
	assert.Equal(t, 4, p.Age)
	assert.Equal(t, "GS GIRLS U11 GROUP 5", p.Label)
}

func TestApproveReject(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	regs, err := e.svc.Register(ctx, RegisterRequest{
		CompetitionID: e.comp.ID, PlayerID: e.player.ID,
		Categories: []division.Category{division.Kyorugi, division.Poomsae},
	})
	require.NoError(t, err)

	approved, err := e.svc.Approve(ctx, regs[0].ID, "admin", "weighed in")
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationApproved, approved.Status)
	assert.Equal(t, "admin", approved.ReviewedBy)
	assert.Equal(t, "weighed in", approved.ReviewNote)

	rejected, err := e.svc.Reject(ctx, regs[1].ID, "admin", "")
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationRejected, rejected.Status)

	_, err = e.svc.Reject(ctx, regs[0].ID, "admin", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = e.svc.Approve(ctx, regs[1].ID, "admin", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.svc.Approve(ctx, "missing", "admin", "")
	assert.True(t, store.IsNotFound(err))
}

func TestReclassify(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	regs, err := e.svc.Register(ctx, RegisterRequest{
		CompetitionID: e.comp.ID, PlayerID: e.player.ID,
		Categories: []division.Category{division.Kyorugi, division.Poomsae},
	})
	require.NoError(t, err)

	p := *e.player
	p.Weight = division.Float(45)
	p.Belt = division.Purple
	_, err = e.st.UpdatePlayer(ctx, p)
	require.NoError(t, err)

	report, err := e.svc.Reclassify(ctx, e.comp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 2, report.Updated) // group changes for Kyorugi, level for both
	assert.Empty(t, report.Unresolved)

	k, err := e.st.GetRegistration(ctx, regs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "CADET GIRLS WELTER", k.Group)
	assert.Equal(t, division.Advanced, k.Level)

	// A second run finds nothing to change.
	report, err = e.svc.Reclassify(ctx, e.comp.ID)
	require.NoError(t, err)
	assert.Zero(t, report.Updated)
}

func TestReclassify_SkipsReviewedAndReportsUnresolved(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	regs, err := e.svc.Register(ctx, RegisterRequest{
		CompetitionID: e.comp.ID, PlayerID: e.player.ID,
		Categories: []division.Category{division.Kyorugi, division.Poomsae},
	})
	require.NoError(t, err)
	_, err = e.svc.Approve(ctx, regs[1].ID, "admin", "")
	require.NoError(t, err)

	p := *e.player
	p.Height = nil
	_, err = e.st.UpdatePlayer(ctx, p)
	require.NoError(t, err)

	report, err := e.svc.Reclassify(ctx, e.comp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Zero(t, report.Updated)
	require.Len(t, report.Unresolved, 1)
	assert.Equal(t, regs[0].ID, report.Unresolved[0].RegistrationID)
	assert.Equal(t, division.Incomplete, report.Unresolved[0].Outcome)

	k, err := e.st.GetRegistration(ctx, regs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "CADET GIRLS LIGHT", k.Group)
}

func TestSummarize(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	other, err := e.st.CreatePlayer(ctx, model.Player{
		TeamID: e.team.ID, FirstName: "Eva", Sex: division.Female, BirthDate: date(t, "2012-09-09"),
		Weight: division.Float(43), Height: division.Float(149),
	})
	require.NoError(t, err)

	regs, err := e.svc.Register(ctx, RegisterRequest{
		CompetitionID: e.comp.ID, PlayerID: e.player.ID,
		Categories: []division.Category{division.Kyorugi, division.Poomsae},
	})
	require.NoError(t, err)
	_, err = e.svc.Register(ctx, RegisterRequest{
		CompetitionID: e.comp.ID, PlayerID: other.ID,
		Categories: []division.Category{division.Kyorugi},
	})
	require.NoError(t, err)
	_, err = e.svc.Approve(ctx, regs[0].ID, "admin", "")
	require.NoError(t, err)

	sum, err := e.svc.Summarize(ctx, e.comp.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	require.Len(t, sum.Divisions, 2)

	assert.Equal(t, DivisionCount{Category: division.Kyorugi, Group: "CADET GIRLS LIGHT", Pending: 1, Approved: 1}, sum.Divisions[0])
	assert.Equal(t, 2, sum.Divisions[0].Total())
	assert.Equal(t, division.Poomsae, sum.Divisions[1].Category)

	_, err = e.svc.Summarize(ctx, "missing")
	assert.True(t, store.IsNotFound(err))
}
