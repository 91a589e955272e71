package artifact

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	tests := []struct {
		target string
		state  State
		want   string
	}{
		{"d33 (pC/N)", Candidate, "candidate_d33_pC_N.model"},
		{"d33 (pC/N)", Production, "production_d33_pC_N.model"},
		{"Tc (C)", Candidate, "candidate_Tc_C.model"},
		{"Tc (C)", Production, "production_Tc_C.model"},
		{"a*b", Candidate, "candidate_a_b.model"},
		{"x.y-z", Production, "production_x.y-z.model"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.target, tt.state))
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	a := &Artifact{
		Family:     "XGBoost",
		Algorithm:  "XGBoost",
		Target:     "d33 (pC/N)",
		Vocabulary: []string{"Ba", "Ti", "O"},
		NFeatures:  3,
		NSamples:   12,
		RunID:      "run-1",
		TrainedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Payload:    []byte{1, 2, 3, 4},
	}
	data, err := Marshal(a)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, got.Version)
	assert.Equal(t, a.Target, got.Target)
	assert.Equal(t, a.Vocabulary, got.Vocabulary)
	assert.Equal(t, a.Payload, got.Payload)
	assert.True(t, a.TrainedAt.Equal(got.TrainedAt))
}

func TestUnmarshalCorrupt(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     nil,
		"no header": []byte("hello"),
		"bad frame": append([]byte("MPRA"), 0xde, 0xad, 0xbe, 0xef),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal(data)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}

	_, err := Marshal(nil)
	assert.Error(t, err)
}

func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	ok, err := s.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, s.Delete(ctx, "missing"))
	assert.ErrorIs(t, s.Rename(ctx, "missing", "other"), ErrNotFound)

	buf := []byte("v1")
	require.NoError(t, s.Put(ctx, "a.model", buf))
	buf[0] = 'X'
	got, err := s.Get(ctx, "a.model")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, s.Put(ctx, "a.model", []byte("v2")))
	got, err = s.Get(ctx, "a.model")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, s.Put(ctx, "b.model", []byte("old")))
	require.NoError(t, s.Rename(ctx, "a.model", "b.model"))
	ok, err = s.Exists(ctx, "a.model")
	require.NoError(t, err)
	assert.False(t, ok)
	got, err = s.Get(ctx, "b.model")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, s.Put(ctx, DatasetName, []byte("Component,d33\n")))
	ok, err = s.Exists(ctx, DatasetName)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "b.model"))
	_, err = s.Get(ctx, "b.model")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestLocalStore(t *testing.T) {
	storeContract(t, NewLocalStore(t.TempDir()))
}

func TestLocalStore_RejectsEscapingNames(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	err := s.Put(context.Background(), "../outside", []byte("x"))
	assert.Error(t, err)
}

func TestLocalStore_CancelledContext(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Put(ctx, "a", nil), context.Canceled)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Put(ctx, "k", []byte("value"))
			if data, err := s.Get(ctx, "k"); err == nil {
				assert.Equal(t, []byte("value"), data)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}
