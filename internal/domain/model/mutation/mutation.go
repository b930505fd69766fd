package mutation

// Kind discriminates the mutation variants
type Kind string

const (
	KindFullFileReplace   Kind = "full_file_replace"
	KindSearchReplaceEdit Kind = "search_replace_edit"
)

// Mutation is a single file-level change derived from a backend response.
// Exactly one variant applies, discriminated by Kind:
//   - FullFileReplace: Content replaces (or creates) the file at Path wholesale.
//   - SearchReplaceEdit: SearchText must match exactly once in the existing
//     file at Path and is substituted with ReplaceText.
type Mutation struct {
	Kind        Kind
	Path        string
	Content     string
	SearchText  string
	ReplaceText string
}

// FullFileReplace builds a whole-file replacement mutation
func FullFileReplace(path, content string) Mutation {
	return Mutation{Kind: KindFullFileReplace, Path: path, Content: content}
}

// SearchReplaceEdit builds an exact-match substitution mutation
func SearchReplaceEdit(path, searchText, replaceText string) Mutation {
	return Mutation{Kind: KindSearchReplaceEdit, Path: path, SearchText: searchText, ReplaceText: replaceText}
}
