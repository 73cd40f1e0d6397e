package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("sched-1", "schedule-sched-1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	scheduleID, filename, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "sched-1", scheduleID)
	require.Equal(t, "schedule-sched-1.csv", filename)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("sched-1", "schedule-sched-1.csv")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	scheduleID, filename, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "sched-1", scheduleID)
	require.Equal(t, "schedule-sched-1.csv", filename)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("sched-1", "schedule-sched-1.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "sched-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.Error(t, err)

	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	require.Error(t, err)
}
