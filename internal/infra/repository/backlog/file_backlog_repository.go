package backlog

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/ralph-run/ralph/internal/domain/model/backlog"
	"github.com/ralph-run/ralph/internal/domain/repository"
	"github.com/ralph-run/ralph/internal/infra/persistence/file"
)

// storyDoc is the on-disk shape of one story
type storyDoc struct {
	ID                 string   `yaml:"id"`
	Title              string   `yaml:"title"`
	Description        string   `yaml:"description,omitempty"`
	AcceptanceCriteria []string `yaml:"acceptanceCriteria,omitempty"`
	Priority           *int     `yaml:"priority"`
	Passes             bool     `yaml:"passes"`
	RetryCount         int      `yaml:"retryCount,omitempty"`
	Metadata           struct {
		Failed bool `yaml:"failed,omitempty"`
	} `yaml:"metadata,omitempty"`
}

// backlogDoc is the on-disk shape of the backlog file
type backlogDoc struct {
	BranchName string     `yaml:"branchName"`
	Stories    []storyDoc `yaml:"stories"`
}

// FileBacklogRepository persists the backlog as a single YAML file.
// Every save writes the complete snapshot atomically.
type FileBacklogRepository struct {
	FS   afero.Fs
	Path string
}

// NewFileBacklogRepository creates a file-based backlog repository
func NewFileBacklogRepository(fs afero.Fs, path string) *FileBacklogRepository {
	return &FileBacklogRepository{FS: fs, Path: path}
}

// Load reads and validates the backlog file. Missing required fields,
// duplicate ids, or unparseable YAML fail fast with ErrMalformedBacklog.
func (r *FileBacklogRepository) Load(ctx context.Context) (*backlog.Backlog, error) {
	data, err := afero.ReadFile(r.FS, r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: backlog file not found at %s", repository.ErrMalformedBacklog, r.Path)
		}
		return nil, fmt.Errorf("%w: cannot read %s: %v", repository.ErrMalformedBacklog, r.Path, err)
	}

	var doc backlogDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid YAML in %s: %v", repository.ErrMalformedBacklog, r.Path, err)
	}

	if doc.BranchName == "" {
		return nil, fmt.Errorf("%w: branchName is required", repository.ErrMalformedBacklog)
	}
	if len(doc.Stories) == 0 {
		return nil, fmt.Errorf("%w: backlog has no stories", repository.ErrMalformedBacklog)
	}

	stories := make([]*backlog.Story, 0, len(doc.Stories))
	for i, sd := range doc.Stories {
		if sd.ID == "" {
			return nil, fmt.Errorf("%w: story %d: id is required", repository.ErrMalformedBacklog, i)
		}
		if sd.Title == "" {
			return nil, fmt.Errorf("%w: story %s: title is required", repository.ErrMalformedBacklog, sd.ID)
		}
		if sd.Priority == nil {
			return nil, fmt.Errorf("%w: story %s: priority is required", repository.ErrMalformedBacklog, sd.ID)
		}

		status := backlog.StatusPending
		if sd.Passes {
			status = backlog.StatusPassed
		} else if sd.Metadata.Failed {
			status = backlog.StatusFailed
		}

		stories = append(stories, &backlog.Story{
			ID:                 norm.NFC.String(sd.ID),
			Title:              norm.NFC.String(sd.Title),
			Description:        sd.Description,
			AcceptanceCriteria: sd.AcceptanceCriteria,
			Priority:           *sd.Priority,
			Status:             status,
			RetryCount:         sd.RetryCount,
		})
	}

	b, err := backlog.NewBacklog(doc.BranchName, stories)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrMalformedBacklog, err)
	}
	return b, nil
}

// Save writes the whole backlog snapshot atomically. Any failure is a
// persistence error: the caller must treat it as fatal.
func (r *FileBacklogRepository) Save(ctx context.Context, b *backlog.Backlog) error {
	doc := backlogDoc{
		BranchName: b.BranchName,
		Stories:    make([]storyDoc, 0, len(b.Stories)),
	}

	for _, s := range b.Stories {
		priority := s.Priority
		sd := storyDoc{
			ID:                 s.ID,
			Title:              s.Title,
			Description:        s.Description,
			AcceptanceCriteria: s.AcceptanceCriteria,
			Priority:           &priority,
			Passes:             s.Status == backlog.StatusPassed,
			RetryCount:         s.RetryCount,
		}
		sd.Metadata.Failed = s.Status == backlog.StatusFailed
		doc.Stories = append(doc.Stories, sd)
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("%w: cannot marshal backlog: %v", repository.ErrPersistence, err)
	}

	if err := file.WriteFileAtomic(r.FS, r.Path, data); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrPersistence, err)
	}
	return nil
}
