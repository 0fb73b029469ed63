package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	signer := NewSigner("test-secret", 6*time.Hour)
	departure := time.Now().Add(24 * time.Hour)

	token, expiresAt, err := signer.Sign("booking-1", "trip-1", "12A", departure)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, departure.Add(6*time.Hour), expiresAt, time.Second)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "booking-1", claims.BookingID)
	assert.Equal(t, "trip-1", claims.TripID)
	assert.Equal(t, "12A", claims.SeatNumber)
	assert.Equal(t, "booking-1", claims.Subject)
}

func TestVerify_WrongSecret(t *testing.T) {
	signer := NewSigner("test-secret", 6*time.Hour)
	token, _, err := signer.Sign("booking-1", "trip-1", "12A", time.Now().Add(time.Hour))
	require.NoError(t, err)

	other := NewSigner("different-secret", 6*time.Hour)
	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestVerify_TamperedToken(t *testing.T) {
	signer := NewSigner("test-secret", 6*time.Hour)
	token, _, err := signer.Sign("booking-1", "trip-1", "12A", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = signer.Verify(token + "x")
	assert.Error(t, err)
}

func TestVerify_ExpiredToken(t *testing.T) {
	// Zero grace and a departure in the past yields an already-expired token.
	signer := NewSigner("test-secret", 0)
	token, _, err := signer.Sign("booking-1", "trip-1", "12A", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	claims, err := signer.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
	// Claims survive expiry so callers can identify the ticket.
	require.NotNil(t, claims)
	assert.Equal(t, "booking-1", claims.BookingID)
}

func TestVerify_ExpiredTokenWrongSecret(t *testing.T) {
	signer := NewSigner("test-secret", 0)
	token, _, err := signer.Sign("booking-1", "trip-1", "12A", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	other := NewSigner("different-secret", 0)
	claims, err := other.Verify(token)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrExpired)
	assert.Nil(t, claims)
}
