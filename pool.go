package semisup

import (
	"sync"
)

var (
	rowPoolLock sync.Mutex
	rowPool     = make(map[int]*sync.Pool)
)

func borrowRows(m int) [][]float64 {
	rowPoolLock.Lock()
	p, ok := rowPool[m]
	rowPoolLock.Unlock()
	if ok {
		return p.Get().([][]float64)
	}
	return make([][]float64, m)
}

func returnRows(rows [][]float64) {
	m := len(rows)
	for i := range rows {
		rows[i] = nil // don't hold on to the backing
	}
	rowPoolLock.Lock()
	p, ok := rowPool[m]
	if !ok {
		p = &sync.Pool{
			New: func() interface{} { return make([][]float64, m) },
		}
		rowPool[m] = p
	}
	rowPoolLock.Unlock()
	p.Put(rows)
}
