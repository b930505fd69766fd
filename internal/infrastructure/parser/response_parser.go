package parser

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/ralph-run/ralph/internal/domain/model/mutation"
)

// ErrParse indicates the backend response could not be converted into
// mutations. Recoverable: the attempt is counted as failed, never as a
// no-op success.
var ErrParse = errors.New("parse error")

// CompletionSentinel is the distinguished marker a backend emits when it
// believes the whole backlog is satisfied.
const CompletionSentinel = "RALPH_BACKLOG_COMPLETE"

// Block delimiters of the patch-block wire protocol
const (
	fileBlockPrefix = "<<<FILE:"
	editBlockPrefix = "<<<EDIT:"
	blockSuffix     = ">>>"
	blockEnd        = "<<<END>>>"
	searchMarker    = "SEARCH:"
	replaceMarker   = "REPLACE:"
)

// ParsedResponse is the typed result of parsing one raw backend response
type ParsedResponse struct {
	Mutations        []mutation.Mutation
	Commentary       string
	CompletionSignal bool
}

// Parse scans a raw backend response for delimited patch blocks and
// converts them into an ordered mutation sequence. Two block kinds exist:
//
//	<<<FILE: relative/path>>>
//	...entire new file content...
//	<<<END>>>
//
//	<<<EDIT: relative/path>>>
//	SEARCH:
//	...exact text to find...
//	REPLACE:
//	...replacement text...
//	<<<END>>>
//
// Text outside blocks is free-form commentary. A response carrying zero
// mutations and no completion sentinel is a parse error: an empty
// response must never be treated as a no-op success.
//
// Parse is pure: no I/O, no backend knowledge, independently testable.
func Parse(raw string) (*ParsedResponse, error) {
	result := &ParsedResponse{}
	var commentary []string

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, fileBlockPrefix):
			path, err := blockPath(trimmed, fileBlockPrefix, lineNum)
			if err != nil {
				return nil, err
			}
			body, err := collectBody(scanner, &lineNum, path)
			if err != nil {
				return nil, err
			}
			result.Mutations = append(result.Mutations, mutation.FullFileReplace(path, strings.Join(body, "\n")))

		case strings.HasPrefix(trimmed, editBlockPrefix):
			path, err := blockPath(trimmed, editBlockPrefix, lineNum)
			if err != nil {
				return nil, err
			}
			body, err := collectBody(scanner, &lineNum, path)
			if err != nil {
				return nil, err
			}
			m, err := parseEditBody(path, body)
			if err != nil {
				return nil, err
			}
			result.Mutations = append(result.Mutations, m)

		case trimmed == blockEnd:
			return nil, fmt.Errorf("%w: stray %s at line %d", ErrParse, blockEnd, lineNum)

		default:
			if strings.Contains(line, CompletionSentinel) {
				result.CompletionSignal = true
			}
			commentary = append(commentary, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrParse, err)
	}

	result.Commentary = strings.TrimSpace(strings.Join(commentary, "\n"))

	if len(result.Mutations) == 0 && !result.CompletionSignal {
		return nil, fmt.Errorf("%w: response contains no mutations and no completion sentinel", ErrParse)
	}

	return result, nil
}

// blockPath extracts and validates the path annotation from a block header
func blockPath(header, prefix string, lineNum int) (string, error) {
	rest := strings.TrimPrefix(header, prefix)
	if !strings.HasSuffix(rest, blockSuffix) {
		return "", fmt.Errorf("%w: malformed block header at line %d: %q", ErrParse, lineNum, header)
	}
	path := strings.TrimSpace(strings.TrimSuffix(rest, blockSuffix))
	if path == "" {
		return "", fmt.Errorf("%w: empty path in block header at line %d", ErrParse, lineNum)
	}
	return path, nil
}

// collectBody reads lines until the block terminator. An unterminated
// block is a parse error, not a silently truncated mutation.
func collectBody(scanner *bufio.Scanner, lineNum *int, path string) ([]string, error) {
	var body []string
	for scanner.Scan() {
		*lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == blockEnd {
			return body, nil
		}
		body = append(body, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrParse, err)
	}
	return nil, fmt.Errorf("%w: unterminated block for %s", ErrParse, path)
}

// parseEditBody splits an edit block body into its SEARCH and REPLACE
// sections. Both section markers are required, in that order.
func parseEditBody(path string, body []string) (mutation.Mutation, error) {
	searchIdx, replaceIdx := -1, -1
	for i, line := range body {
		switch strings.TrimSpace(line) {
		case searchMarker:
			if searchIdx == -1 {
				searchIdx = i
			}
		case replaceMarker:
			if searchIdx != -1 && replaceIdx == -1 {
				replaceIdx = i
			}
		}
	}

	if searchIdx == -1 {
		return mutation.Mutation{}, fmt.Errorf("%w: edit block for %s has no SEARCH: section", ErrParse, path)
	}
	if replaceIdx == -1 {
		return mutation.Mutation{}, fmt.Errorf("%w: edit block for %s has no REPLACE: section", ErrParse, path)
	}

	searchText := strings.Join(body[searchIdx+1:replaceIdx], "\n")
	replaceText := strings.Join(body[replaceIdx+1:], "\n")

	if searchText == "" {
		return mutation.Mutation{}, fmt.Errorf("%w: edit block for %s has empty search text", ErrParse, path)
	}

	return mutation.SearchReplaceEdit(path, searchText, replaceText), nil
}
