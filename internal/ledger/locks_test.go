package ledger

import (
	"sync"
	"testing"
)

func TestKeyLocks_SerializesSameKey(t *testing.T) {
	k := newKeyLocks()
	counter := 0

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.lock(teamKey("A"), playerKey("p"))
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
	if len(k.locks) != 0 {
		t.Errorf("len(locks) = %d after all unlocks, want 0", len(k.locks))
	}
}

func TestKeyLocks_DistinctKeysIndependent(t *testing.T) {
	k := newKeyLocks()
	unlockA := k.lock(playerKey("a"))
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := k.lock(playerKey("b"))
		unlock()
		close(done)
	}()
	<-done
}
