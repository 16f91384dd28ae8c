package locks

import "sync"

// KeyedMutex serializes work per string key inside one process. Entries are
// never evicted; the key space here is bounded by the active customer set.
type KeyedMutex struct {
	mu sync.Map // key -> *sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

func (k *KeyedMutex) Lock(key string) {
	m, _ := k.mu.LoadOrStore(key, &sync.Mutex{})
	m.(*sync.Mutex).Lock()
}

func (k *KeyedMutex) Unlock(key string) {
	m, ok := k.mu.Load(key)
	if !ok {
		return
	}
	m.(*sync.Mutex).Unlock()
}
