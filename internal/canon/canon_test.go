package canon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncode_SortsObjectKeys(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]interface{}
		want string
	}{
		{
			name: "already sorted",
			in:   map[string]interface{}{"a": 1, "b": 2},
			want: `{"a":1,"b":2}`,
		},
		{
			name: "reverse order input",
			in:   map[string]interface{}{"zeta": true, "alpha": false},
			want: `{"alpha":false,"zeta":true}`,
		},
		{
			name: "nested objects sorted recursively",
			in: map[string]interface{}{
				"outer": map[string]interface{}{"z": 1, "a": 2},
			},
			want: `{"outer":{"a":2,"z":1}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, string(got))
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	v := map[string]interface{}{
		"tenant":  "t1",
		"project": "p1",
		"tags":    []interface{}{"a", "b"},
		"n":       42,
	}

	first, err := Encode(v)
	require.NoError(t, err)
	second, err := Encode(v)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEncode_TimestampFormat(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	got, err := Encode(ts)
	require.NoError(t, err)
	require.Equal(t, `"2026-01-02T03:04:05.006Z"`, string(got))
}

func TestEncode_TimestampFieldInStruct(t *testing.T) {
	type payload struct {
		When time.Time `json:"when"`
	}
	ts := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	got, err := Encode(payload{When: ts})
	require.NoError(t, err)
	require.Equal(t, `{"when":"2026-05-06T07:08:09.000Z"}`, string(got))
}

func TestHash_KnownVector(t *testing.T) {
	// SHA-256("GENESIS") — the ledger's genesis constant (spec §4.4).
	got := Hash([]byte("GENESIS"))
	require.Equal(t, "901131d838b17aac0f7885b81e03cbdc9f5157a00343d30ab22083685ed1416a", got)
	require.Len(t, got, 64)
}

func TestHashValue_MatchesEncodeThenHash(t *testing.T) {
	v := map[string]interface{}{"a": 1}
	b, err := Encode(v)
	require.NoError(t, err)

	got, err := HashValue(v)
	require.NoError(t, err)
	require.Equal(t, Hash(b), got)
}
