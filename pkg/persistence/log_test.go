package persistence

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogManager_Append(t *testing.T) {
	dir := t.TempDir()

	l, err := NewLogManager(dir)
	require.NoError(t, err)

	err = l.Append(&Entry{Index: 1, Payload: []byte("first")})
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), l.LastIndex)
}

func TestLogManager_Append_RejectsOutOfOrder(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogManager(dir)
	require.NoError(t, err)

	require.NoError(t, l.Append(&Entry{Index: 5}))
	err = l.Append(&Entry{Index: 5})
	assert.Error(t, err)
	err = l.Append(&Entry{Index: 3})
	assert.Error(t, err)
}

func TestLogManager_ReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogManager(dir)
	require.NoError(t, err)

	require.NoError(t, l.Append(&Entry{Index: 1, Consistency: 2, Payload: []byte("hello")}))

	got, err := l.Read(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Index)
	assert.Equal(t, 2, got.Consistency)
	assert.Equal(t, []byte("hello"), got.Payload)
}

func TestLogManager_New_RequiresDirectory(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "not-a-dir")
	require.NoError(t, err)
	defer f.Close()

	_, err = NewLogManager(f.Name())
	assert.Error(t, err)
}
