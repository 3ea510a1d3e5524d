package order

import "sync"

// symbolLocks serializes the read-decide-write span per symbol. The dedup
// guard only suppresses identical deliveries; two distinct admitted alerts on
// one symbol would otherwise interleave their position reads.
type symbolLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSymbolLocks() *symbolLocks {
	return &symbolLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the symbol and returns its unlock func.
func (l *symbolLocks) Acquire(symbol string) func() {
	l.mu.Lock()
	m, ok := l.locks[symbol]
	if !ok {
		m = &sync.Mutex{}
		l.locks[symbol] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
