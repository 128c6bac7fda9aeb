package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStatus_Valid(t *testing.T) {
	for _, s := range []IdempotencyStatus{IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed} {
		assert.True(t, s.Valid(), s)
	}
	for _, s := range []IdempotencyStatus{"", "paid", "DONE"} {
		assert.False(t, s.Valid(), s)
	}
}

func TestIdempotencyRecord_ExpiresAtTTL(t *testing.T) {
	ttl := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	record := IdempotencyRecord{Key: "checkout-1", TTLAt: ttl}

	assert.False(t, record.Expired(ttl.Add(-time.Second)))
	assert.True(t, record.Expired(ttl), "a record expires exactly at its TTL")
	assert.True(t, record.Expired(ttl.Add(time.Minute)))
}

func TestNewIdempotencyRecord(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("AEDT", 11*3600))

	record, err := NewIdempotencyRecord(" key-1 ", " hash ", time.Time{}, now)
	require.NoError(t, err)
	assert.Equal(t, "key-1", record.Key)
	assert.Equal(t, "hash", record.RequestHash)
	assert.Equal(t, IdempotencyStatusProcessing, record.Status)
	assert.True(t, record.TTLAt.Equal(now.Add(DefaultIdempotencyTTL)))
	assert.Equal(t, time.UTC, record.CreatedAt.Location())
	assert.Equal(t, record.CreatedAt, record.UpdatedAt)

	explicit := now.Add(time.Hour)
	record, err = NewIdempotencyRecord("key-2", "hash", explicit, now)
	require.NoError(t, err)
	assert.True(t, record.TTLAt.Equal(explicit))
	assert.Equal(t, time.UTC, record.TTLAt.Location())

	_, err = NewIdempotencyRecord("", "hash", time.Time{}, now)
	require.ErrorIs(t, err, ErrIdempotencyKeyRequired)
	_, err = NewIdempotencyRecord("key", " ", time.Time{}, now)
	require.ErrorIs(t, err, ErrIdempotencyRequestHashRequired)
}
