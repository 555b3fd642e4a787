package conform

import "sync"

// RuleCache memoizes compiled string rule sets.
//
// Field maps are usually static, so the same rule text is compiled on every
// request. Only string specs are cached: arrays may carry function values
// and are cheap to compile anyway.
//
// The RuleCache is thread-safe and can be shared by many Sessions.
type RuleCache struct {
	mu    sync.RWMutex
	rules map[string][]Rule // rule text -> compiled rules
}

func NewRuleCache() *RuleCache {
	return &RuleCache{
		rules: make(map[string][]Rule),
	}
}

// Compile returns the compiled rules for spec, compiling a string spec only
// once. Callers own the returned rules and their Params. Errors are not
// cached.
func (rc *RuleCache) Compile(spec any) ([]Rule, error) {
	text, ok := spec.(string)
	if !ok || rc == nil {
		return CompileRuleSet(spec)
	}

	rc.mu.RLock()
	rules, exists := rc.rules[text]
	rc.mu.RUnlock()

	if exists {
		return cloneRules(rules), nil
	}

	// DNE. Compile and cache
	rules, err := CompileRuleSet(text)
	if err != nil {
		return nil, err
	}

	rc.mu.Lock()
	rc.rules[text] = rules
	rc.mu.Unlock()

	return cloneRules(rules), nil
}

// Len returns the number of cached rule texts.
func (rc *RuleCache) Len() int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return len(rc.rules)
}

// Clear removes all cached entries
func (rc *RuleCache) Clear() {
	rc.mu.Lock()
	rc.rules = make(map[string][]Rule)
	rc.mu.Unlock()
}

var _gRuleCache = NewRuleCache()
