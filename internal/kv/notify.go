package kv

// Listener is told about every key a Notifying store has written or removed.
type Listener func(key string)

// Notifying decorates a Store and reports successful mutations.
type Notifying struct {
	Store
	listener Listener
}

// NewNotifying wraps store; a nil listener makes it a pass-through.
func NewNotifying(store Store, listener Listener) *Notifying {
	return &Notifying{Store: store, listener: listener}
}

// Set implements Store.
func (n *Notifying) Set(key string, value []byte) error {
	if err := n.Store.Set(key, value); err != nil {
		return err
	}
	n.notify(key)
	return nil
}

// SetBatch implements Batcher, delegating atomicity to the wrapped store.
func (n *Notifying) SetBatch(values map[string][]byte) error {
	if err := SetAll(n.Store, values); err != nil {
		return err
	}
	for _, key := range sortedKeys(values) {
		n.notify(key)
	}
	return nil
}

// Remove implements Store.
func (n *Notifying) Remove(key string) error {
	if err := n.Store.Remove(key); err != nil {
		return err
	}
	n.notify(key)
	return nil
}

func (n *Notifying) notify(key string) {
	if n.listener != nil {
		n.listener(key)
	}
}
