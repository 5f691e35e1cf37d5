// Package tagmatch implements the glob matcher used to route batches to
// filters by tag: literal bytes plus a single wildcard character (`*`),
// which matches any run of bytes including the empty run.
package tagmatch

// Match reports whether tag satisfies pattern. An empty pattern matches
// only the empty tag. The algorithm is a two-pointer greedy scan with a
// single remembered wildcard anchor — O(n·m) worst case, no backtracking
// amplification regardless of how many wildcards the pattern contains.
func Match(pattern, tag string) bool {
	var (
		pi, ti         int
		starIdx        = -1
		matchSinceStar int
	)

	for ti < len(tag) {
		switch {
		case pi < len(pattern) && (pattern[pi] == '*' || pattern[pi] == tag[ti]):
			if pattern[pi] == '*' {
				starIdx = pi
				matchSinceStar = ti
				pi++
				continue
			}
			pi++
			ti++
		case starIdx != -1:
			pi = starIdx + 1
			matchSinceStar++
			ti = matchSinceStar
		default:
			return false
		}
	}

	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

// CompiledPattern precompiles a pattern once so a filter never reparses it
// per record, per the "compile regexes/patterns once at start" design note.
type CompiledPattern struct {
	raw string
}

// Compile precompiles pattern. Compilation of a tag glob cannot fail: any
// byte string, including one with multiple `*`, is a valid pattern.
func Compile(pattern string) CompiledPattern {
	return CompiledPattern{raw: pattern}
}

// Match reports whether tag satisfies the compiled pattern.
func (c CompiledPattern) Match(tag string) bool {
	return Match(c.raw, tag)
}

// String returns the original pattern text.
func (c CompiledPattern) String() string { return c.raw }
