package ledger

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralph-run/ralph/internal/domain/model/attempt"
)

func TestFileLedgerRepository_AppendAndLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := NewFileLedgerRepository(fs, ".ralph/ledger.ndjson", nil)
	ctx := context.Background()

	a1 := attempt.New("S1", 1, attempt.OutcomeParseFailure, "no blocks found")
	a2 := attempt.New("S1", 2, attempt.OutcomeSuccess, "")
	require.NoError(t, repo.Append(ctx, a1))
	require.NoError(t, repo.Append(ctx, a2))

	all, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	assert.Equal(t, "S1", all[0].StoryID)
	assert.Equal(t, 1, all[0].AttemptNumber)
	assert.Equal(t, attempt.OutcomeParseFailure, all[0].Outcome)
	assert.Equal(t, "no blocks found", all[0].Diagnostics)
	assert.Equal(t, attempt.OutcomeSuccess, all[1].Outcome)
	assert.NotEqual(t, all[0].AttemptID, all[1].AttemptID)
}

func TestFileLedgerRepository_AppendNeverRewrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := NewFileLedgerRepository(fs, "ledger.ndjson", nil)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, attempt.New("S1", 1, attempt.OutcomeApplyFailure, "search text not found")))
	first, err := afero.ReadFile(fs, "ledger.ndjson")
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, attempt.New("S2", 1, attempt.OutcomeSuccess, "")))
	second, err := afero.ReadFile(fs, "ledger.ndjson")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(second), string(first)),
		"append must not rewrite prior entries")
}

func TestFileLedgerRepository_Tail(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo := NewFileLedgerRepository(fs, "ledger.ndjson", nil)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Append(ctx, attempt.New("S1", i, attempt.OutcomeValidationFailure, "tests failed")))
	}

	tail, err := repo.Tail(ctx, 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, 4, tail[0].AttemptNumber)
	assert.Equal(t, 5, tail[1].AttemptNumber)

	all, err := repo.Tail(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestFileLedgerRepository_MissingFileIsEmpty(t *testing.T) {
	repo := NewFileLedgerRepository(afero.NewMemMapFs(), "absent.ndjson", nil)

	all, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileLedgerRepository_SkipsCorruptedLines(t *testing.T) {
	fs := afero.NewMemMapFs()
	var warnings []string
	repo := NewFileLedgerRepository(fs, "ledger.ndjson", func(format string, args ...interface{}) {
		warnings = append(warnings, format)
	})
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, attempt.New("S1", 1, attempt.OutcomeSuccess, "")))

	// Simulate a torn write in the middle of the file
	data, _ := afero.ReadFile(fs, "ledger.ndjson")
	data = append(data, []byte("{torn")...)
	data = append(data, '\n')
	require.NoError(t, afero.WriteFile(fs, "ledger.ndjson", data, 0o644))
	require.NoError(t, repo.Append(ctx, attempt.New("S2", 1, attempt.OutcomeSuccess, "")))

	all, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.NotEmpty(t, warnings)
}
