package learning

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ralph-run/ralph/internal/application/port/output"
	"github.com/ralph-run/ralph/internal/domain/model/attempt"
)

// Record kinds stored in the learnings table
const (
	kindDiary      = "diary"
	kindReflection = "reflection"
)

const schema = `
CREATE TABLE IF NOT EXISTS learnings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	story_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	summary TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_learnings_story ON learnings(story_id);
`

// SQLiteLearningGateway stores per-attempt diary entries and per-story
// reflections in a local SQLite database. The loop treats every call as
// best-effort: a broken learning store never fails an iteration.
type SQLiteLearningGateway struct {
	db *sql.DB
}

// NewSQLiteLearningGateway opens (and migrates) the learning database
func NewSQLiteLearningGateway(dbPath string) (*SQLiteLearningGateway, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open learning database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate learning database: %w", err)
	}
	return &SQLiteLearningGateway{db: db}, nil
}

// Close releases the database handle
func (g *SQLiteLearningGateway) Close() error {
	return g.db.Close()
}

// QueryPastLearnings returns summaries related to the story description.
// Relevance is keyword-based: summaries sharing a significant word with
// the description rank first, most recent first, capped at 5.
func (g *SQLiteLearningGateway) QueryPastLearnings(ctx context.Context, storyDescription string) ([]output.LearningSummary, error) {
	keywords := significantWords(storyDescription)

	query := `
		SELECT story_id, kind, summary, created_at
		FROM learnings
		ORDER BY id DESC
		LIMIT 50
	`
	rows, err := g.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query learnings: %w", err)
	}
	defer rows.Close()

	var matched, recent []output.LearningSummary
	for rows.Next() {
		var s output.LearningSummary
		if err := rows.Scan(&s.StoryID, &s.Kind, &s.Summary, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan learning: %w", err)
		}
		if matchesAny(s.Summary, keywords) {
			matched = append(matched, s)
		} else {
			recent = append(recent, s)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating learnings: %w", err)
	}

	results := append(matched, recent...)
	if len(results) > 5 {
		results = results[:5]
	}
	return results, nil
}

// RecordDiary stores one attempt's outcome as a diary entry
func (g *SQLiteLearningGateway) RecordDiary(ctx context.Context, a *attempt.Attempt) error {
	summary := fmt.Sprintf("attempt %d on %s: %s", a.AttemptNumber, a.StoryID, a.Outcome)
	if a.Diagnostics != "" {
		diag := a.Diagnostics
		if len(diag) > 500 {
			diag = diag[:500] + "..."
		}
		summary += ": " + diag
	}

	_, err := g.db.ExecContext(ctx,
		`INSERT INTO learnings (story_id, kind, summary) VALUES (?, ?, ?)`,
		a.StoryID, kindDiary, summary,
	)
	if err != nil {
		return fmt.Errorf("failed to record diary: %w", err)
	}
	return nil
}

// Reflect condenses a resolved story's attempts into one insight row
// and returns it.
func (g *SQLiteLearningGateway) Reflect(ctx context.Context, storyID string, attempts []*attempt.Attempt) (string, error) {
	if len(attempts) == 0 {
		return "", nil
	}

	counts := map[attempt.Outcome]int{}
	for _, a := range attempts {
		counts[a.Outcome]++
	}

	var parts []string
	for outcome, n := range counts {
		parts = append(parts, fmt.Sprintf("%s x%d", outcome, n))
	}
	last := attempts[len(attempts)-1]
	insight := fmt.Sprintf("story %s resolved after %d attempts (%s); final outcome: %s",
		storyID, len(attempts), strings.Join(parts, ", "), last.Outcome)

	_, err := g.db.ExecContext(ctx,
		`INSERT INTO learnings (story_id, kind, summary) VALUES (?, ?, ?)`,
		storyID, kindReflection, insight,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record reflection: %w", err)
	}
	return insight, nil
}

// significantWords picks the description words worth matching on
func significantWords(text string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		if len(w) >= 5 {
			words = append(words, w)
		}
	}
	return words
}

func matchesAny(summary string, keywords []string) bool {
	lower := strings.ToLower(summary)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
