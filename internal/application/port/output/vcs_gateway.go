package output

import "context"

// VCSGateway is the version-control collaborator. It is invoked only
// after a story passes validation. A commit failure is fatal for the
// iteration: skipping it silently would desynchronize backlog status
// from the actual code state.
type VCSGateway interface {
	// Commit stages all working tree changes and commits them with
	// the given message.
	Commit(ctx context.Context, message string) error
}
