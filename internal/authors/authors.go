// Package authors computes the authorship of squash commits: the squash
// author and the deduplicated Co-authored-by trailers of a revision range.
package authors

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"hubsync.dev/hubsync/internal/git"
)

// TrailerKey is the trailer used to credit additional authors
const TrailerKey = "Co-authored-by"

var coAuthorPattern = regexp.MustCompile(`(?im)^co-authored-by:[ \t]*(.+?)[ \t]*$`)

var logSchema = git.FieldSchema{
	"author": "%an <%ae>",
	"body":   "%B",
}

// LogReader is the part of git.Client the aggregator needs
type LogReader interface {
	Log(ctx context.Context, revRange string, schema git.FieldSchema, paths []string) ([]git.Record, error)
}

// Attribution is the authorship of one revision range
type Attribution struct {
	// SquashAuthor is the author of the earliest commit, empty for an empty range
	SquashAuthor string
	// Authors is every author and co-author, deduplicated and sorted
	Authors []string
}

// Aggregator reads authorship from a repository's history
type Aggregator struct {
	log LogReader
}

// New creates an Aggregator over log
func New(log LogReader) *Aggregator {
	return &Aggregator{log: log}
}

// Attribute walks the commits of revRange, optionally restricted to paths,
// and returns both the squash author and the full author set
func (a *Aggregator) Attribute(ctx context.Context, revRange string, paths []string) (Attribution, error) {
	records, err := a.log.Log(ctx, revRange, logSchema, scopeFilter(paths))
	if err != nil {
		return Attribution{}, err
	}

	var attr Attribution
	seen := make(map[string]bool)
	add := func(identity string) {
		identity = strings.TrimSpace(identity)
		if identity == "" || seen[identity] {
			return
		}
		seen[identity] = true
		attr.Authors = append(attr.Authors, identity)
	}

	for i, record := range records {
		if i == 0 {
			attr.SquashAuthor = strings.TrimSpace(record["author"])
		}
		add(record["author"])
		for _, coAuthor := range ParseCoAuthors(record["body"]) {
			add(coAuthor)
		}
	}
	sort.Strings(attr.Authors)
	return attr, nil
}

// GetAuthors returns the deduplicated, sorted authors and co-authors of revRange
func (a *Aggregator) GetAuthors(ctx context.Context, revRange string, paths []string) ([]string, error) {
	attr, err := a.Attribute(ctx, revRange, paths)
	if err != nil {
		return nil, err
	}
	return attr.Authors, nil
}

// PickSquashAuthor returns the author of the earliest commit in revRange
func (a *Aggregator) PickSquashAuthor(ctx context.Context, revRange string, paths []string) (string, error) {
	attr, err := a.Attribute(ctx, revRange, paths)
	if err != nil {
		return "", err
	}
	return attr.SquashAuthor, nil
}

// ParseCoAuthors returns the identities of every Co-authored-by trailer in message
func ParseCoAuthors(message string) []string {
	var out []string
	for _, match := range coAuthorPattern.FindAllStringSubmatch(message, -1) {
		out = append(out, match[1])
	}
	return out
}

// BuildMessage appends a Co-authored-by trailer for every author except the
// squash author and the operator. The message is returned unchanged when no
// trailer remains.
func BuildMessage(baseMessage string, authorList []string, squashAuthor, operator string) string {
	var trailers []string
	for _, author := range authorList {
		if author == squashAuthor || author == operator {
			continue
		}
		trailers = append(trailers, TrailerKey+": "+author)
	}
	if len(trailers) == 0 {
		return baseMessage
	}
	return strings.TrimRight(baseMessage, "\n") + "\n\n" + strings.Join(trailers, "\n")
}

// scopeFilter drops the path filter when one of the paths is the repository root
func scopeFilter(paths []string) []string {
	for _, p := range paths {
		if p == "" {
			return nil
		}
	}
	return paths
}
