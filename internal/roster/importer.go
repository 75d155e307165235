package roster

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/model"
	"github.com/sells-group/tkd-registrar/internal/resilience"
	"github.com/sells-group/tkd-registrar/internal/store"
)

// PlayerUpserter is the store capability the importer needs.
type PlayerUpserter interface {
	UpsertPlayers(ctx context.Context, players []model.Player) (int, error)
}

// Options configures an Importer.
type Options struct {
	Concurrency int                    // parallel batches, default 4
	BatchSize   int                    // players per upsert, default 200
	Classify    division.Options       // used for the per-player preview
	Retry       resilience.RetryConfig // zero value uses the defaults
	DryRun      bool                   // parse and classify without writing
}

// Importer writes parsed rosters into the store.
type Importer struct {
	store      PlayerUpserter
	opts       Options
	classifier division.Classifier
}

// NewImporter creates an Importer.
func NewImporter(st PlayerUpserter, opts Options) *Importer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	return &Importer{store: st, opts: opts, classifier: division.NewClassifier(opts.Classify)}
}

// DryRun returns a copy of im that parses and classifies without writing.
func (im *Importer) DryRun() *Importer {
	cp := *im
	cp.opts.DryRun = true
	return &cp
}

// Line is the outcome for one imported roster row.
type Line struct {
	Row   int            `json:"row"`
	Name  string         `json:"name"`
	Age   int            `json:"age"`
	Level division.Level `json:"level,omitempty"`
	Label string         `json:"label"`
}

// Report summarizes an import.
type Report struct {
	Rows     int        `json:"rows"`
	Imported int        `json:"imported"`
	Rejected []RowError `json:"rejected,omitempty"`
	Lines    []Line     `json:"lines"`
}

// Import parses rows (header first) for teamID and upserts the valid
// players in concurrent batches. Each line of the report carries the
// player's combined division label with age taken on asOf.
func (im *Importer) Import(ctx context.Context, teamID string, rows [][]string, asOf time.Time) (*Report, error) {
	if teamID == "" {
		return nil, eris.New("roster: team id is required")
	}
	entries, rejected, err := Parse(rows, teamID)
	if err != nil {
		return nil, err
	}

	report := &Report{Rows: len(entries) + len(rejected), Rejected: rejected}
	players := make([]model.Player, len(entries))
	for i, e := range entries {
		players[i] = e.Player
		in := e.Player.DivisionInput("", asOf)
		report.Lines = append(report.Lines, Line{
			Row:   e.Row,
			Name:  e.Player.FullName(),
			Age:   in.Age,
			Level: division.BeltLevel(e.Player.Belt),
			Label: im.classifier.ClassifyAll(in, division.Categories),
		})
	}

	if im.opts.DryRun || len(players) == 0 {
		return report, nil
	}

	retry := im.opts.Retry
	retry.OnRetry = resilience.RetryLogger("upsert_players")

	var imported atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.opts.Concurrency)
	for start := 0; start < len(players); start += im.opts.BatchSize {
		batch := players[start:min(start+im.opts.BatchSize, len(players))]
		g.Go(func() error {
			n, err := resilience.DoVal(gctx, retry, func(ctx context.Context) (int, error) {
				return im.store.UpsertPlayers(ctx, batch)
			})
			if err != nil {
				return eris.Wrapf(err, "roster: upsert batch at row %d", entries[start].Row)
			}
			imported.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		report.Imported = int(imported.Load())
		return report, err
	}
	report.Imported = int(imported.Load())

	zap.L().Info("roster imported",
		zap.String("team_id", teamID),
		zap.Int("rows", report.Rows),
		zap.Int("imported", report.Imported),
		zap.Int("rejected", len(report.Rejected)),
	)
	return report, nil
}

var _ PlayerUpserter = (store.Store)(nil)
