package submission

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingRows yields no rows and reports a deferred iteration error, the way
// pgx surfaces a connection drop mid-result.
type failingRows struct {
	err error
}

var _ pgx.Rows = (*failingRows)(nil)

func (r *failingRows) Close()                                       {}
func (r *failingRows) Err() error                                   { return r.err }
func (r *failingRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *failingRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *failingRows) Next() bool                                   { return false }
func (r *failingRows) Scan(dest ...any) error                       { return nil }
func (r *failingRows) Values() ([]any, error)                       { return nil, nil }
func (r *failingRows) RawValues() [][]byte                          { return nil }
func (r *failingRows) Conn() *pgx.Conn                              { return nil }

func TestCollectSubmissionsSurfacesIterationError(t *testing.T) {
	broken := errors.New("connection reset")
	_, err := collectSubmissions(&failingRows{err: broken})
	require.Error(t, err)
	assert.ErrorIs(t, err, broken)
}

func TestCollectSubmissionsEmptyResult(t *testing.T) {
	subs, err := collectSubmissions(&failingRows{})
	require.NoError(t, err)
	assert.Empty(t, subs)
}
