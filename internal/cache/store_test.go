package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore returns a Store whose file roots live under the test's temp dir.
func newTestStore(t *testing.T, root string, opts ...Option) *Store {
	t.Helper()

	base := []Option{
		WithTempDir(filepath.Join(root, "temp")),
		WithPersistentDir(filepath.Join(root, "persistent")),
	}

	return NewStore(append(base, opts...)...)
}

// counter is a fetcher that counts invocations and returns successive values.
type counter struct {
	mu     sync.Mutex
	calls  int
	values []float64
}

func (c *counter) fetch() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.calls
	c.calls++
	if i >= len(c.values) {
		i = len(c.values) - 1
	}

	return c.values[i], nil
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// TestGetOrSetHitIsIdempotent verifies a live entry is served without refetching at every location.
func TestGetOrSetHitIsIdempotent(t *testing.T) {
	policies := map[string]Policy{
		"memory":     {Location: LocationMemory, TTL: time.Minute},
		"temp":       {Location: LocationTemp, TTL: time.Minute},
		"persistent": Persistent(time.Minute),
	}

	for name, policy := range policies {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t, t.TempDir())
			c := &counter{values: []float64{1.5, 2.5}}
			key := NewKey[float64]("value")

			first, err := GetOrSetWithPolicy(s, key, policy, c.fetch)
			require.NoError(t, err)
			second, err := GetOrSetWithPolicy(s, key, policy, c.fetch)
			require.NoError(t, err)

			assert.Equal(t, 1.5, first)
			assert.Equal(t, first, second)
			assert.Equal(t, 1, c.count())
		})
	}
}

// TestGetOrSetExpiration verifies an entry older than the TTL is refetched.
func TestGetOrSetExpiration(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestStore(t, t.TempDir(), WithClock(clock.Now))
	c := &counter{values: []float64{1, 2}}
	key := NewKey[float64]("expiring")
	policy := Persistent(time.Second)

	v, err := GetOrSetWithPolicy(s, key, policy, c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	clock.Advance(999 * time.Millisecond)
	v, err = GetOrSetWithPolicy(s, key, policy, c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	assert.Equal(t, 1, c.count())

	// Expiry is inclusive: an entry exactly TTL old is stale.
	clock.Advance(time.Millisecond)
	v, err = GetOrSetWithPolicy(s, key, policy, c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, 2, c.count())
}

// TestReportScenario runs the documented wall-clock scenario for a one second TTL.
func TestReportScenario(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	c := &counter{values: []float64{72.0, 80.0}}
	key := NewKey[float64]("report")
	policy := Persistent(time.Second)

	for range 2 {
		v, err := GetOrSetWithPolicy(s, key, policy, c.fetch)
		require.NoError(t, err)
		assert.Equal(t, 72.0, v)
	}
	assert.Equal(t, 1, c.count())

	time.Sleep(1100 * time.Millisecond)

	v, err := GetOrSetWithPolicy(s, key, policy, c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 80.0, v)
	assert.Equal(t, 2, c.count())
}

// TestNeverExpire verifies a NoExpiry policy never refetches.
func TestNeverExpire(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s := newTestStore(t, t.TempDir(), WithClock(clock.Now))
	key := NewKey[float64]("forever")

	for _, policy := range []Policy{InMemory(), NeverExpire()} {
		t.Run(policy.Location.String(), func(t *testing.T) {
			c := &counter{values: []float64{7, 8}}

			_, err := GetOrSetWithPolicy(s, key, policy, c.fetch)
			require.NoError(t, err)

			time.Sleep(200 * time.Millisecond)
			clock.Advance(100 * 365 * 24 * time.Hour)

			v, err := GetOrSetWithPolicy(s, key, policy, c.fetch)
			require.NoError(t, err)
			assert.Equal(t, 7.0, v)
			assert.Equal(t, 1, c.count())
		})
	}
}

// TestMemoryIsInstanceLocal verifies in-memory entries are invisible to another Store.
func TestMemoryIsInstanceLocal(t *testing.T) {
	root := t.TempDir()
	a := newTestStore(t, root)
	b := newTestStore(t, root)
	c := &counter{values: []float64{1, 2}}
	key := NewKey[float64]("local")

	_, err := GetOrSetWithPolicy(a, key, InMemory(), c.fetch)
	require.NoError(t, err)

	v, err := GetOrSetWithPolicy(b, key, InMemory(), c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, 2, c.count())
}

// TestPersistentIsShared verifies file-backed entries are visible to another Store on the same root.
func TestPersistentIsShared(t *testing.T) {
	root := t.TempDir()
	a := newTestStore(t, root)
	b := newTestStore(t, root)
	c := &counter{values: []float64{3, 4}}
	key := NewKey[float64]("shared")

	_, err := GetOrSetWithPolicy(a, key, NeverExpire(), c.fetch)
	require.NoError(t, err)

	v, err := GetOrSetWithPolicy(b, key, NeverExpire(), c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
	assert.Equal(t, 1, c.count())
}

// TestInvalidateAll verifies every persistent file is counted and later reads refetch.
func TestInvalidateAll(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	const n = 5

	counters := make([]*counter, n)
	for i := range n {
		counters[i] = &counter{values: []float64{float64(i), float64(i + 100)}}
		_, err := GetOrSetWithPolicy(s, NewKey[float64](fmt.Sprintf("key-%d", i)), NeverExpire(), counters[i].fetch)
		require.NoError(t, err)
	}

	removed, err := s.InvalidateAll(true)
	require.NoError(t, err)
	assert.Equal(t, n, removed)

	for i := range n {
		v, err := GetOrSetWithPolicy(s, NewKey[float64](fmt.Sprintf("key-%d", i)), NeverExpire(), counters[i].fetch)
		require.NoError(t, err)
		assert.Equal(t, float64(i+100), v)
		assert.Equal(t, 2, counters[i].count())
	}
}

// TestInvalidateAllMemoryOnly verifies disk files survive when includeOnDisk is false.
func TestInvalidateAllMemoryOnly(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	c := &counter{values: []float64{1, 2}}

	_, err := GetOrSetWithPolicy(s, NewKey[float64]("mem"), InMemory(), c.fetch)
	require.NoError(t, err)
	_, err = GetOrSetWithPolicy(s, NewKey[float64]("disk"), NeverExpire(), c.fetch)
	require.NoError(t, err)

	removed, err := s.InvalidateAll(false)
	require.NoError(t, err)
	assert.Zero(t, removed)

	count, err := s.FileStore(LocationPersistent).Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = GetOrSetWithPolicy(s, NewKey[float64]("mem"), InMemory(), c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 3, c.count())
}

// TestFetchErrorKeepsPreviousValue verifies fetcher failures propagate and do not touch the entry.
func TestFetchErrorKeepsPreviousValue(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s := newTestStore(t, t.TempDir(), WithClock(clock.Now))
	key := NewKey[string]("greeting")
	policy := Persistent(time.Minute)

	_, err := GetOrSetWithPolicy(s, key, policy, func() (string, error) { return "hello", nil })
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	boom := fmt.Errorf("upstream down")
	_, err = GetOrSetWithPolicy(s, key, policy, func() (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)

	entry, err := s.FileStore(LocationPersistent).Get("greeting")
	require.NoError(t, err)
	assert.JSONEq(t, `"hello"`, string(entry.Data))
}

// TestIgnoreCacheRefetchesAndStores verifies the refresh mode bypasses reads but keeps writing.
func TestIgnoreCacheRefetchesAndStores(t *testing.T) {
	root := t.TempDir()
	refreshing := newTestStore(t, root, WithIgnoreCache(true))
	c := &counter{values: []float64{1, 2, 3}}
	key := NewKey[float64]("refresh")

	for range 2 {
		_, err := GetOrSetWithPolicy(refreshing, key, NeverExpire(), c.fetch)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.count())

	// A normal store sees the value written by the last refresh.
	v, err := GetOrSetWithPolicy(newTestStore(t, root), key, NeverExpire(), c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, 2, c.count())
}

// TestSeparatorKeysAreDistinct verifies keys that differ only in a separator character are cached independently.
func TestSeparatorKeysAreDistinct(t *testing.T) {
	s := newTestStore(t, t.TempDir())

	a, err := GetOrSetWithPolicy(s, NewKey[string]("weather/london"), NeverExpire(), func() (string, error) {
		return "london", nil
	})
	require.NoError(t, err)

	fetched := false
	b, err := GetOrSetWithPolicy(s, NewKey[string]("weather_london"), NeverExpire(), func() (string, error) {
		fetched = true
		return "other", nil
	})
	require.NoError(t, err)

	assert.Equal(t, "london", a)
	assert.Equal(t, "other", b)
	assert.True(t, fetched)
}

// TestGlobalPolicy verifies GetOrSet follows SetGlobalPolicy.
func TestGlobalPolicy(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	assert.Equal(t, TempDirectory(), s.GlobalPolicy())

	s.SetGlobalPolicy(InMemory())
	c := &counter{values: []float64{1, 2}}
	key := NewKey[float64]("global")

	_, err := GetOrSet(s, key, c.fetch)
	require.NoError(t, err)
	_, err = GetOrSet(s, key, c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, c.count())

	count, err := s.FileStore(LocationTemp).Count()
	require.NoError(t, err)
	assert.Zero(t, count, "memory policy must not write files")
}

// TestGlobalPolicyKeepsWrittenExpiry verifies a longer global TTL does not extend entries written with a shorter one.
func TestGlobalPolicyKeepsWrittenExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newTestStore(t, t.TempDir(), WithClock(clock.Now))
	key := NewKey[float64]("short")

	for _, loc := range []Location{LocationMemory, LocationTemp} {
		t.Run(loc.String(), func(t *testing.T) {
			c := &counter{values: []float64{1, 2}}
			s.SetGlobalPolicy(Policy{Location: loc, TTL: time.Second})
			_, err := GetOrSet(s, key, c.fetch)
			require.NoError(t, err)

			s.SetGlobalPolicy(Policy{Location: loc, TTL: 24 * time.Hour})
			clock.Advance(2 * time.Second)

			v, err := GetOrSet(s, key, c.fetch)
			require.NoError(t, err)
			assert.Equal(t, 2.0, v)
			assert.Equal(t, 2, c.count())
		})
	}
}

// TestInvalidate verifies a single key is dropped from every location.
func TestInvalidate(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	c := &counter{values: []float64{1, 2, 3, 4}}
	key := NewKey[float64]("drop")

	_, err := GetOrSetWithPolicy(s, key, InMemory(), c.fetch)
	require.NoError(t, err)
	_, err = GetOrSetWithPolicy(s, key, NeverExpire(), c.fetch)
	require.NoError(t, err)

	require.NoError(t, s.Invalidate("drop"))
	require.NoError(t, s.Invalidate("never-stored"))

	_, err = GetOrSetWithPolicy(s, key, InMemory(), c.fetch)
	require.NoError(t, err)
	_, err = GetOrSetWithPolicy(s, key, NeverExpire(), c.fetch)
	require.NoError(t, err)
	assert.Equal(t, 4, c.count())
}

// TestEmptyKey verifies empty keys are rejected before fetching.
func TestEmptyKey(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	called := false

	_, err := GetOrSet(s, NewKey[int](""), func() (int, error) {
		called = true
		return 1, nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidKey))
	assert.False(t, called)
	assert.True(t, errors.Is(s.Invalidate(""), ErrInvalidKey))
}

// TestWriteFailureReturnsValue verifies a storage failure does not lose a fetched value.
func TestWriteFailureReturnsValue(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	s := NewStore(WithPersistentDir(blocker))
	v, err := GetOrSetWithPolicy(s, NewKey[string]("k"), NeverExpire(), func() (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

// TestStructValuesRoundTrip verifies file-backed entries decode into the key's type.
func TestStructValuesRoundTrip(t *testing.T) {
	type snapshot struct {
		Host  string   `json:"host"`
		Cores int      `json:"cores"`
		Tags  []string `json:"tags"`
	}

	root := t.TempDir()
	want := snapshot{Host: "box", Cores: 8, Tags: []string{"a", "b"}}
	key := NewKey[snapshot]("snapshot")

	_, err := GetOrSetWithPolicy(newTestStore(t, root), key, NeverExpire(), func() (snapshot, error) {
		return want, nil
	})
	require.NoError(t, err)

	got, err := GetOrSetWithPolicy(newTestStore(t, root), key, NeverExpire(), func() (snapshot, error) {
		return snapshot{}, fmt.Errorf("should not fetch")
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
