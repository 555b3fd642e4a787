package conform

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleCache(t *testing.T) {
	t.Run("CachesStringSpecs", func(t *testing.T) {
		rc := NewRuleCache()
		first, err := rc.Compile("f.trim v.filled")
		require.NoError(t, err)
		assert.Equal(t, 1, rc.Len())

		second, err := rc.Compile("f.trim v.filled")
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, rc.Len())
	})

	t.Run("ReturnsCopies", func(t *testing.T) {
		rc := NewRuleCache()
		first, err := rc.Compile("v.range|1;10")
		require.NoError(t, err)
		first[0].Path = "mutated"
		first[0].Params[0] = "mutated"

		second, err := rc.Compile("v.range|1;10")
		require.NoError(t, err)
		assert.Equal(t, "v.range", second[0].Path)
		assert.Equal(t, []any{"1", "10"}, second[0].Params)
	})

	t.Run("ArraysAreNotCached", func(t *testing.T) {
		rc := NewRuleCache()
		rules, err := rc.Compile([]any{"v.int"})
		require.NoError(t, err)
		assert.Len(t, rules, 1)
		assert.Equal(t, 0, rc.Len())
	})

	t.Run("ErrorsAreNotCached", func(t *testing.T) {
		rc := NewRuleCache()
		_, err := rc.Compile([]any{[]any{}})
		assert.ErrorIs(t, err, ErrMalformedRule)
		assert.Equal(t, 0, rc.Len())
	})

	t.Run("Clear", func(t *testing.T) {
		rc := NewRuleCache()
		_, _ = rc.Compile("v.int")
		rc.Clear()
		assert.Equal(t, 0, rc.Len())
	})

	t.Run("NilCacheCompiles", func(t *testing.T) {
		var rc *RuleCache
		rules, err := rc.Compile("v.int")
		require.NoError(t, err)
		assert.Len(t, rules, 1)
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		rc := NewRuleCache()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					rules, err := rc.Compile("f.trim !v.filled v.email")
					assert.NoError(t, err)
					assert.Len(t, rules, 3)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, rc.Len())
	})
}

func BenchmarkRuleCompile(b *testing.B) {
	const spec = "f.trim !v.filled ?v.length_range|2;64 v.email &&d.not_in_table|users;email"

	b.Run("Uncached", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := CompileRuleSet(spec); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("Cached", func(b *testing.B) {
		rc := NewRuleCache()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := rc.Compile(spec); err != nil {
				b.Fatal(err)
			}
		}
	})
}
