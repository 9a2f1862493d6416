package rtsp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransactionTableAllocatesSequentially(t *testing.T) {
	table := newTransactionTable()
	for i := int64(1); i <= 10; i++ {
		tx, err := table.Allocate(MethodOptions)
		require.NoError(t, err)
		require.Equal(t, i, tx.id)
		require.False(t, tx.created.IsZero())
		require.True(t, tx.sent.IsZero())
	}
	require.Equal(t, 10, table.Len())
}

func TestTransactionTableResolve(t *testing.T) {
	table := newTransactionTable()
	first, err := table.Allocate(MethodSetup)
	require.NoError(t, err)
	second, err := table.Allocate(MethodSetup)
	require.NoError(t, err)
	table.MarkSent(second.id)

	require.ErrorIs(t, table.Resolve(42, &Response{}), ErrTransactionNotFound)
	require.Equal(t, 2, table.Len())

	res := &Response{Code: 200, Sequence: "2"}
	require.NoError(t, table.Resolve(second.id, res))
	require.False(t, table.Has(second.id))
	require.True(t, table.Has(first.id))

	r := <-second.done
	require.NoError(t, r.err)
	require.Same(t, res, r.response)

	require.ErrorIs(t, table.Resolve(second.id, res), ErrTransactionNotFound)
	require.False(t, table.Reject(second.id, errors.New("late")))
}

func TestTransactionTableRejectAll(t *testing.T) {
	table := newTransactionTable()
	var txs []*transaction
	for i := 0; i < 5; i++ {
		tx, err := table.Allocate(MethodPlay)
		require.NoError(t, err)
		txs = append(txs, tx)
	}

	require.Equal(t, 5, table.RejectAll(ErrClientDestroyed))
	require.Zero(t, table.Len())

	for _, tx := range txs {
		select {
		case r := <-tx.done:
			require.ErrorIs(t, r.err, ErrClientDestroyed)
			require.Nil(t, r.response)
		default:
			t.Fatalf("transaction %d was not rejected", tx.id)
		}
	}

	next, err := table.Allocate(MethodPlay)
	require.ErrorIs(t, err, ErrClientDestroyed)
	require.Nil(t, next)
	require.Zero(t, table.Len())

	// the first drain decides what later callers see
	require.Zero(t, table.RejectAll(ErrConnectionLost))
	_, err = table.Allocate(MethodTeardown)
	require.ErrorIs(t, err, ErrClientDestroyed)
}
