package rtsp

import (
	"sync"
	"time"
)

type result struct {
	response *Response
	err      error
}

type transaction struct {
	id      int64
	method  Method
	created time.Time
	sent    time.Time
	done    chan result
}

// transactionTable correlates responses with the requests that produced
// them. Every transaction leaves the table exactly once, and its done
// channel receives exactly one result at that moment.
type transactionTable struct {
	mu    sync.Mutex
	next  int64
	items map[int64]*transaction
	// err is set by RejectAll; no transaction is admitted afterwards.
	err error
}

func newTransactionTable() *transactionTable {
	return &transactionTable{
		next:  1,
		items: make(map[int64]*transaction),
	}
}

// Allocate assigns the next sequence number and records a pending transaction
// for it. Once the table has been drained by RejectAll it returns that error.
func (t *transactionTable) Allocate(method Method) (*transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	tx := &transaction{
		id:      t.next,
		method:  method,
		created: time.Now(),
		done:    make(chan result, 1),
	}
	t.next++
	t.items[tx.id] = tx
	transactionsPending.Inc()
	return tx, nil
}

func (t *transactionTable) MarkSent(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tx, ok := t.items[id]; ok {
		tx.sent = time.Now()
	}
}

func (t *transactionTable) Has(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.items[id]
	return ok
}

func (t *transactionTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Resolve completes the transaction for id with res.
func (t *transactionTable) Resolve(id int64, res *Response) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	tx, ok := t.items[id]
	if !ok {
		return ErrTransactionNotFound
	}
	delete(t.items, id)
	transactionsPending.Dec()
	if !tx.sent.IsZero() {
		roundTripSeconds.WithLabelValues(tx.method.String()).Observe(time.Since(tx.sent).Seconds())
	}
	tx.done <- result{response: res}
	return nil
}

// Reject fails the transaction for id with err. It reports false when the
// transaction has already completed.
func (t *transactionTable) Reject(id int64, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	tx, ok := t.items[id]
	if !ok {
		return false
	}
	delete(t.items, id)
	transactionsPending.Dec()
	transactionsRejected.WithLabelValues(rejectReason(err)).Inc()
	tx.done <- result{err: err}
	return true
}

// RejectAll fails every pending transaction with err, empties the table and
// refuses later allocations with the first error it was given.
func (t *transactionTable) RejectAll(err error) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err == nil {
		t.err = err
	}
	n := len(t.items)
	for id, tx := range t.items {
		delete(t.items, id)
		tx.done <- result{err: err}
	}
	transactionsPending.Sub(float64(n))
	transactionsRejected.WithLabelValues(rejectReason(err)).Add(float64(n))
	return n
}
