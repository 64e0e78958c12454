package logic

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/winmix/prediction-api/internal/models"
)

// assign copies a stub value into a scan destination, converting types
// and wrapping values into pointer destinations. A nil value leaves the
// destination at its zero value (NULL semantics).
func assign(dest any, val any) {
	if val == nil {
		return
	}
	dv := reflect.ValueOf(dest).Elem()
	vv := reflect.ValueOf(val)
	switch {
	case vv.Type().ConvertibleTo(dv.Type()):
		dv.Set(vv.Convert(dv.Type()))
	case dv.Kind() == reflect.Ptr && vv.Type().ConvertibleTo(dv.Type().Elem()):
		p := reflect.New(dv.Type().Elem())
		p.Elem().Set(vv.Convert(dv.Type().Elem()))
		dv.Set(p)
	}
}

// stubRow implements pgx.Row
type stubRow struct {
	vals []any
	err  error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, v := range r.vals {
		if i >= len(dest) {
			break
		}
		assign(dest[i], v)
	}
	return nil
}

// stubRows implements pgx.Rows for testing
type stubRows struct {
	pgx.Rows
	data [][]any
	idx  int
}

func (r *stubRows) Next() bool {
	r.idx++
	return r.idx <= len(r.data)
}

func (r *stubRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	for i, v := range row {
		if i >= len(dest) {
			break
		}
		assign(dest[i], v)
	}
	return nil
}

func (r *stubRows) Close()     {}
func (r *stubRows) Err() error { return nil }

type sqlCall struct {
	sql  string
	args []any
}

// stubPool implements PgPool. Results are produced by the test's rowFunc
// and rowsFunc; every Exec and Query is recorded for assertions.
type stubPool struct {
	rowFunc  func(sql string, args []any) stubRow
	rowsFunc func(sql string, args []any) *stubRows
	execFunc func(sql string, args []any) (pgconn.CommandTag, error)

	execs   []sqlCall
	queries []sqlCall
}

func (p *stubPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if p.rowFunc != nil {
		return p.rowFunc(sql, args)
	}
	return stubRow{err: pgx.ErrNoRows}
}

func (p *stubPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.queries = append(p.queries, sqlCall{sql: sql, args: args})
	if p.rowsFunc != nil {
		return p.rowsFunc(sql, args), nil
	}
	return &stubRows{}, nil
}

func (p *stubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, sqlCall{sql: sql, args: args})
	if p.execFunc != nil {
		return p.execFunc(sql, args)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (p *stubPool) Begin(ctx context.Context) (pgx.Tx, error) {
	return &stubTx{pool: p}, nil
}

// execCount returns how many recorded statements contain the substring.
func (p *stubPool) execCount(substr string) int {
	n := 0
	for _, c := range p.execs {
		if strings.Contains(c.sql, substr) {
			n++
		}
	}
	return n
}

// stubTx implements pgx.Tx by delegating statement execution to the
// pool's recorders.
type stubTx struct {
	pgx.Tx
	pool       *stubPool
	committed  bool
	rolledBack bool
}

func (t *stubTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.pool.Exec(ctx, sql, args...)
}

func (t *stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.pool.Query(ctx, sql, args...)
}

func (t *stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.pool.QueryRow(ctx, sql, args...)
}

func (t *stubTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

// fakeLeagues is a LeagueStats stand-in for feedback and pattern tests.
type fakeLeagues struct {
	avg      float64
	avgErr   error
	archived []string
}

func (f *fakeLeagues) AvgGoalsPerMatch(ctx context.Context, leagueID string) (float64, error) {
	return f.avg, f.avgErr
}

func (f *fakeLeagues) RefreshBaseline(ctx context.Context, leagueID string) (float64, error) {
	return f.avg, f.avgErr
}

func (f *fakeLeagues) ArchiveMatch(ctx context.Context, m *models.Match) error {
	f.archived = append(f.archived, m.ID)
	return nil
}

// fakeHistory is a MatchHistory stand-in for detector-facing services.
type fakeHistory struct {
	team         *models.Team
	teamErr      error
	match        *models.Match
	matchErr     error
	recent       map[string][]models.Match
	headToHead   []models.Match
	nextOpponent string
}

func (f *fakeHistory) ResolveTeam(ctx context.Context, teamID, teamName string) (*models.Team, error) {
	if f.teamErr != nil {
		return nil, f.teamErr
	}
	if f.team == nil {
		return nil, NotFoundf("team not found")
	}
	return f.team, nil
}

func (f *fakeHistory) MatchByID(ctx context.Context, matchID string) (*models.Match, error) {
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	if f.match == nil {
		return nil, NotFoundf("match %s not found", matchID)
	}
	return f.match, nil
}

func (f *fakeHistory) RecentMatches(ctx context.Context, teamID string, limit int) ([]models.Match, error) {
	return f.recent[teamID], nil
}

func (f *fakeHistory) HeadToHead(ctx context.Context, teamID, opponentID string, limit int) ([]models.Match, error) {
	return f.headToHead, nil
}

func (f *fakeHistory) NextScheduledOpponent(ctx context.Context, teamID string) (string, error) {
	return f.nextOpponent, nil
}

// evaluatedAt helper for prediction rows.
func tPtr(t time.Time) *time.Time { return &t }
