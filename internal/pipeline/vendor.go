package pipeline

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-ai/internal/llm"
)

const (
	// vendorPrefixLen is the number of leading characters used for cache
	// matching. Card processors append per-transaction suffixes (store IDs,
	// reference numbers); matching on the prefix collapses those variants
	// into one cache entry.
	vendorPrefixLen = 10

	// UnknownVendor is the sentinel token for strings the model could not
	// reduce to a brand name.
	UnknownVendor = "unknown-vendor"
)

// VendorCache is the durable prefix-keyed store of previously normalized
// vendors. Lookup matches any entry whose raw vendor starts with the given
// prefix; Upsert stores the full raw string with replace-on-conflict
// semantics.
type VendorCache interface {
	Lookup(ctx context.Context, prefix string) (string, bool, error)
	Upsert(ctx context.Context, rawVendor, normalized string) error
}

var nonBrandCharsRe = regexp.MustCompile(`[^a-z\-]`)

// Normalizer maps raw vendor strings to canonical brand tokens, going to the
// model only on a cache miss. It never fails the caller; any internal error
// degrades to UnknownVendor.
//
// Concurrent statement jobs can race on a first-seen prefix; a per-prefix
// lock serializes the miss-then-write sequence so each new prefix costs one
// model call.
type Normalizer struct {
	llm   llm.Client
	cache VendorCache
	log   zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewNormalizer creates a Normalizer backed by the given model client and
// cache.
func NewNormalizer(client llm.Client, cache VendorCache, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		llm:   client,
		cache: cache,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

// Normalize returns the canonical vendor token for rawVendor.
func (n *Normalizer) Normalize(ctx context.Context, rawVendor string) string {
	raw := strings.TrimSpace(rawVendor)
	if raw == "" {
		return UnknownVendor
	}
	prefix := vendorPrefix(raw)

	lock := n.prefixLock(prefix)
	lock.Lock()
	defer lock.Unlock()

	if normalized, ok, err := n.cache.Lookup(ctx, prefix); err != nil {
		n.log.Warn().Err(err).Str("prefix", prefix).Msg("vendor cache lookup failed")
	} else if ok {
		return normalized
	}

	out, err := n.llm.Generate(ctx, buildVendorPrompt(raw))
	if err != nil {
		// Do not cache transient model failures.
		n.log.Warn().Err(err).Str("vendor_raw", raw).Msg("vendor normalization call failed")
		return UnknownVendor
	}

	normalized := sanitizeVendorToken(out)
	if normalized == "" {
		normalized = UnknownVendor
	}

	if err := n.cache.Upsert(ctx, raw, normalized); err != nil {
		n.log.Warn().Err(err).Str("vendor_raw", raw).Msg("vendor cache upsert failed")
	}
	return normalized
}

func (n *Normalizer) prefixLock(prefix string) *sync.Mutex {
	n.mu.Lock()
	defer n.mu.Unlock()
	lock, ok := n.locks[prefix]
	if !ok {
		lock = &sync.Mutex{}
		n.locks[prefix] = lock
	}
	return lock
}

// sanitizeVendorToken reduces model output to a single lowercase
// letters-and-hyphens token: first line only, everything else stripped.
func sanitizeVendorToken(out string) string {
	line := out
	if idx := strings.IndexByte(line, '\n'); idx != -1 {
		line = line[:idx]
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return nonBrandCharsRe.ReplaceAllString(line, "")
}

func vendorPrefix(raw string) string {
	runes := []rune(raw)
	if len(runes) <= vendorPrefixLen {
		return raw
	}
	return string(runes[:vendorPrefixLen])
}
