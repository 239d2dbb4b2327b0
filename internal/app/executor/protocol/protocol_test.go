package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSentinelIsUnique(t *testing.T) {
	a := NewSentinel()
	b := NewSentinel()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(string(a), sentinelPrefix))
	assert.True(t, strings.HasSuffix(string(a), sentinelSuffix))
}

func TestExtract(t *testing.T) {
	s := Sentinel("@@FNEXEC-test@@")

	tests := []struct {
		name    string
		output  string
		want    string
		wantErr error
	}{
		{
			name:   "frame only",
			output: string(s.Frame([]byte(`{"a":1}`))),
			want:   `{"a":1}`,
		},
		{
			name:   "noise before and after",
			output: "hello\nworld" + string(s.Frame([]byte(`42`))) + "bye\n",
			want:   `42`,
		},
		{
			name:   "noise that looks like json",
			output: `{"result": 1}` + "\n" + string(s.Frame([]byte(`[1,2]`))),
			want:   `[1,2]`,
		},
		{
			name:   "last frame wins",
			output: string(s.Frame([]byte(`1`))) + string(s.Frame([]byte(`2`))),
			want:   `2`,
		},
		{
			name:    "no frame",
			output:  "just some text\n",
			wantErr: ErrNoFrame,
		},
		{
			name:    "unterminated frame",
			output:  "\n" + string(s) + `{"a":`,
			wantErr: ErrIncompleteFrame,
		},
		{
			name:    "empty frame",
			output:  string(s.Frame(nil)),
			wantErr: ErrEmptyFrame,
		},
		{
			name:    "other sentinel is noise",
			output:  string(Sentinel("@@FNEXEC-other@@").Frame([]byte(`1`))),
			wantErr: ErrNoFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Extract([]byte(tt.output), s)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(payload))
		})
	}
}

func TestDecoderChunkedWrites(t *testing.T) {
	s := NewSentinel()
	output := "noise line 1\n" + string(s.Frame([]byte(`{"value":"x"}`))) + "tail"

	// Feed the output one byte at a time so every sentinel is split across writes.
	var noise bytes.Buffer
	d := NewDecoder(s, &noise, 0)
	for i := 0; i < len(output); i++ {
		n, err := d.Write([]byte{output[i]})
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}
	require.NoError(t, d.Close())

	payload, err := d.Result()
	require.NoError(t, err)
	assert.Equal(t, `{"value":"x"}`, string(payload))
	assert.Equal(t, "noise line 1\n\n\ntail", noise.String())
}

func TestDecoderFrameLimit(t *testing.T) {
	s := NewSentinel()
	d := NewDecoder(s, nil, 8)
	_, _ = d.Write(s.Frame([]byte(`"this payload is too long"`)))
	require.NoError(t, d.Close())

	_, err := d.Result()
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestPartialSuffix(t *testing.T) {
	marker := []byte("@@X@@")
	assert.Equal(t, 0, partialSuffix([]byte("abc"), marker))
	assert.Equal(t, 1, partialSuffix([]byte("abc@"), marker))
	assert.Equal(t, 3, partialSuffix([]byte("abc@@X"), marker))
	assert.Equal(t, 0, partialSuffix(nil, marker))
}
