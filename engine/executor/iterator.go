package executor

// RowIterator is a lazy, finite, forward-only row sequence. Iterators are
// single-pass and non-restartable: once Next returns false the sequence is
// exhausted. Because execution is lazy, errors surface at the row where the
// failing computation occurs; check Err after Next returns false.
//
// Iterators are NOT safe for concurrent use. Each consumer must hold its own
// iterator.
type RowIterator interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// sliceIterator iterates over an in-memory row slice.
type sliceIterator struct {
	rows []Row
	pos  int
	cur  Row
}

func newSliceIterator(rows []Row) *sliceIterator {
	return &sliceIterator{rows: rows}
}

func (it *sliceIterator) Next() bool {
	if it.pos >= len(it.rows) {
		return false
	}
	it.cur = it.rows[it.pos]
	it.pos++
	return true
}

func (it *sliceIterator) Row() Row     { return it.cur }
func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }

// errIterator yields no rows and reports err.
type errIterator struct {
	err error
}

func (it *errIterator) Next() bool   { return false }
func (it *errIterator) Row() Row     { return nil }
func (it *errIterator) Err() error   { return it.err }
func (it *errIterator) Close() error { return nil }

// funcIterator adapts a pull function to RowIterator. fn returns (nil, nil)
// at end of sequence.
type funcIterator struct {
	fn     func() (Row, error)
	close  func() error
	cur    Row
	err    error
	done   bool
	closed bool
}

func (it *funcIterator) Next() bool {
	if it.done || it.err != nil {
		return false
	}
	row, err := it.fn()
	if err != nil {
		it.err = err
		it.done = true
		return false
	}
	if row == nil {
		it.done = true
		return false
	}
	it.cur = row
	return true
}

func (it *funcIterator) Row() Row   { return it.cur }
func (it *funcIterator) Err() error { return it.err }

func (it *funcIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.done = true
	if it.close != nil {
		return it.close()
	}
	return nil
}

// Collect drains an iterator into a slice, closing it afterward.
func Collect(it RowIterator) ([]Row, error) {
	defer it.Close()

	var rows []Row
	for it.Next() {
		rows = append(rows, it.Row())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
