package limiter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Models: map[string]config.Model{
			"coordinator": {
				Name:           "coordinator",
				MaxTPM:         100,
				MaxConnections: 2,
				DailyBudgetUSD: 1.0,
			},
		},
	}
}

func TestReserveTokensExhaustsBucket(t *testing.T) {
	l := New(testConfig())
	require.NoError(t, l.ReserveTokens("coordinator", 60))
	require.NoError(t, l.ReserveTokens("coordinator", 40))
	require.ErrorIs(t, l.ReserveTokens("coordinator", 1), ErrRateLimit)
}

func TestReserveBudgetExceeded(t *testing.T) {
	l := New(testConfig())
	require.NoError(t, l.ReserveBudget("coordinator", 0.5))
	require.NoError(t, l.ReserveBudget("coordinator", 0.5))
	require.ErrorIs(t, l.ReserveBudget("coordinator", 0.01), ErrBudgetExceeded)
}

func TestConnSlotsAreBounded(t *testing.T) {
	l := New(testConfig())
	require.NoError(t, l.AcquireConn("coordinator"))
	require.NoError(t, l.AcquireConn("coordinator"))
	require.ErrorIs(t, l.AcquireConn("coordinator"), ErrConnLimit)
	require.NoError(t, l.ReleaseConn("coordinator"))
	require.NoError(t, l.AcquireConn("coordinator"))
}

func TestUnknownModelErrors(t *testing.T) {
	l := New(testConfig())
	require.Error(t, l.ReserveTokens("missing", 1))
}

func TestResetDailyClearsSpend(t *testing.T) {
	l := New(testConfig())
	require.NoError(t, l.ReserveBudget("coordinator", 1.0))
	require.ErrorIs(t, l.ReserveBudget("coordinator", 0.1), ErrBudgetExceeded)
	l.ResetDaily()
	require.NoError(t, l.ReserveBudget("coordinator", 0.1))
}
