package semisup

// rowsOf makes row views of a row-major m×n backing. Writes through a view go into the backing.
// The views should be given back with returnRows.
func rowsOf(backing []float64, m, n int) (retVal [][]float64) {
	retVal = borrowRows(m)
	for i := range retVal {
		start := i * n
		retVal[i] = backing[start : start+n : start+n]
	}
	return
}
