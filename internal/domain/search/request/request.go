// Package request holds the validated retrieval request.
package request

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
)

// Retrieval parameter limits. Zero values mean "use the pipeline default".
const (
	// MaxQueryLength is the maximum allowed query length in bytes.
	MaxQueryLength  = 4096
	MaxPoolSize     = 1000
	MaxLimit        = 200
	MaxDisplayCount = 50
)

var scopePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// Params are the raw caller-supplied retrieval options.
type Params struct {
	Query              string
	Scope              string
	Filters            filter.Expression
	PoolSize           int
	Limit              int
	DisplayCount       int
	IncludeUnavailable bool
	SkipRerank         bool
}

// Request is a validated retrieval request.
type Request struct {
	query              string
	scope              string
	filters            filter.Expression
	poolSize           int
	limit              int
	displayCount       int
	includeUnavailable bool
	skipRerank         bool
}

// New validates retrieval parameters. Validation never touches external services.
// Errors wrap domain.ErrScopeRequired or domain.ErrInvalidRequest.
func New(p Params) (Request, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if p.Scope == "" {
		return Request{}, domain.ErrScopeRequired
	}
	if !scopePattern.MatchString(p.Scope) {
		return Request{}, fmt.Errorf("%w: invalid scope %q", domain.ErrInvalidRequest, p.Scope)
	}
	if p.PoolSize < 0 || p.Limit < 0 || p.DisplayCount < 0 {
		return Request{}, fmt.Errorf("%w: sizes must not be negative", domain.ErrInvalidRequest)
	}

	return Request{
		query:              query,
		scope:              p.Scope,
		filters:            p.Filters,
		poolSize:           min(p.PoolSize, MaxPoolSize),
		limit:              min(p.Limit, MaxLimit),
		displayCount:       min(p.DisplayCount, MaxDisplayCount),
		includeUnavailable: p.IncludeUnavailable,
		skipRerank:         p.SkipRerank,
	}, nil
}

// Query returns the trimmed query text.
func (r *Request) Query() string { return r.query }

// Scope returns the scoping identifier (catalog/tenant).
func (r *Request) Scope() string { return r.scope }

// Filters returns the hard filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// PoolSize returns the requested candidate pool size, 0 for default.
func (r *Request) PoolSize() int { return r.poolSize }

// Limit returns the requested search result limit, 0 for default.
func (r *Request) Limit() int { return r.limit }

// DisplayCount returns the requested number of returned items, 0 for default.
func (r *Request) DisplayCount() int { return r.displayCount }

// IncludeUnavailable reports whether out-of-stock items are kept.
func (r *Request) IncludeUnavailable() bool { return r.includeUnavailable }

// SkipRerank reports whether the caller disabled reranking for this request.
func (r *Request) SkipRerank() bool { return r.skipRerank }
