package lottery

import (
	"slices"
	"testing"

	"custodial-lottery/internal/models"
	"github.com/stretchr/testify/require"
)

func TestDrawOrder(t *testing.T) {
	t.Run("keys compare as text", func(t *testing.T) {
		// "105" < "25" as strings although 10 > 2.
		require.Equal(t, []uint64{10, 2}, DrawOrder([]uint64{2, 10}, 5))
		require.Equal(t, "105", SortKey(10, 5))
	})

	t.Run("seed decides between prefix ids", func(t *testing.T) {
		require.Equal(t, []uint64{1, 12}, DrawOrder([]uint64{12, 1}, 1))
		require.Equal(t, []uint64{12, 1}, DrawOrder([]uint64{1, 12}, 5))
	})

	t.Run("input untouched", func(t *testing.T) {
		in := []uint64{3, 1, 2}
		_ = DrawOrder(in, 7)
		require.Equal(t, []uint64{3, 1, 2}, in)
	})
}

func TestDrawEngine(t *testing.T) {
	t.Run("time-lock arms once", func(t *testing.T) {
		d := NewDrawEngine()
		require.NoError(t, d.ActivateTimeLock(1000, 600))
		require.EqualValues(t, 1600, d.DrawTime())
		require.ErrorIs(t, d.ActivateTimeLock(2000, 1), ErrTimeLockAlreadySet)
		require.EqualValues(t, 1600, d.DrawTime())
	})

	t.Run("duration overflow", func(t *testing.T) {
		d := NewDrawEngine()
		require.ErrorIs(t, d.ActivateTimeLock(10, ^uint64(0)), ErrInvalidInput)
	})

	t.Run("seed before time-lock or deadline", func(t *testing.T) {
		d := NewDrawEngine()
		require.ErrorIs(t, d.AssignSeed(1000, 42), ErrInvalidDrawTime)
		require.NoError(t, d.ActivateTimeLock(1000, 600))
		require.ErrorIs(t, d.AssignSeed(1599, 42), ErrInvalidDrawTime)
		require.Zero(t, d.Seed())
	})

	t.Run("seed rules", func(t *testing.T) {
		d := NewDrawEngine()
		require.NoError(t, d.ActivateTimeLock(1000, 600))
		require.ErrorIs(t, d.AssignSeed(1600, 0), ErrInvalidRandomSeed)
		require.NoError(t, d.AssignSeed(1600, 42))
		require.ErrorIs(t, d.AssignSeed(1700, 43), ErrInvalidRandomSeed)
		require.EqualValues(t, 42, d.Seed())
	})

	t.Run("execute needs a seed and tickets", func(t *testing.T) {
		l := NewTicketLedger(10, models.NewAmount(1), 0)
		d := NewDrawEngine()
		require.ErrorIs(t, d.Execute(l), ErrInvalidRandomSeed)

		require.NoError(t, d.ActivateTimeLock(1000, 0))
		require.NoError(t, d.AssignSeed(1000, 42))
		require.ErrorIs(t, d.Execute(l), ErrNoTicketsSold)

		_, _, err := l.Purchase(alice, models.NewAmount(5), 900)
		require.NoError(t, err)
		require.NoError(t, d.Execute(l))
		require.True(t, d.Drawn())
		require.ErrorIs(t, d.Execute(l), ErrInvalidRandomSeed)
	})
}

func TestDrawEngine_Deterministic(t *testing.T) {
	run := func(seed uint64) ([]uint64, models.Winners) {
		l := NewTicketLedger(100, models.NewAmount(1), 0)
		_, _, err := l.Purchase(alice, models.NewAmount(30), 1000)
		require.NoError(t, err)
		_, _, err = l.Purchase(bob, models.NewAmount(20), 1001)
		require.NoError(t, err)

		d := NewDrawEngine()
		require.NoError(t, d.ActivateTimeLock(1001, 10))
		require.NoError(t, d.AssignSeed(1011, seed))
		require.NoError(t, d.Execute(l))
		winners, err := d.SelectWinners(l)
		require.NoError(t, err)
		return l.Tickets(), winners
	}

	order1, winners1 := run(123456)
	order2, winners2 := run(123456)
	require.Equal(t, order1, order2)
	require.Equal(t, winners1, winners2)

	other, _ := run(987654321)
	require.ElementsMatch(t, order1, other)

	keys := make([]string, len(order1))
	for i, id := range order1 {
		keys[i] = SortKey(id, 123456)
	}
	require.True(t, slices.IsSorted(keys))
}

func TestDrawEngine_SelectWinners(t *testing.T) {
	t.Run("no tickets", func(t *testing.T) {
		l := NewTicketLedger(100, models.NewAmount(1), 0)
		_, err := NewDrawEngine().SelectWinners(l)
		require.ErrorIs(t, err, ErrNoTicketsSold)
	})

	t.Run("minor count follows configured total", func(t *testing.T) {
		l := NewTicketLedger(100, models.NewAmount(1), 0)
		_, _, err := l.Purchase(alice, models.NewAmount(50), 1000)
		require.NoError(t, err)

		winners, err := NewDrawEngine().SelectWinners(l)
		require.NoError(t, err)
		require.Len(t, winners.Minor, 10)
		require.Equal(t, l.Tickets()[:10], winners.Minor)
		require.Equal(t, l.Tickets()[0], winners.Grand)
	})

	t.Run("capped by tickets sold", func(t *testing.T) {
		l := NewTicketLedger(100, models.NewAmount(1), 0)
		_, _, err := l.Purchase(alice, models.NewAmount(4), 1000)
		require.NoError(t, err)

		winners, err := NewDrawEngine().SelectWinners(l)
		require.NoError(t, err)
		require.Len(t, winners.Minor, 4)
	})

	t.Run("small lottery has no minor winners", func(t *testing.T) {
		l := NewTicketLedger(9, models.NewAmount(1), 0)
		_, _, err := l.Purchase(alice, models.NewAmount(9), 1000)
		require.NoError(t, err)

		winners, err := NewDrawEngine().SelectWinners(l)
		require.NoError(t, err)
		require.Empty(t, winners.Minor)
		require.Equal(t, l.Tickets()[0], winners.Grand)
	})
}
