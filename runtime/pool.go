package runtime

import (
	"allchat/contract"
	"allchat/domain"
	"allchat/errors"
	"container/list"
	"fmt"
	"sync"
	"time"
)

var _ contract.IPool = (*Pool)(nil)

type poolEntry struct {
	userID   domain.UserID
	joinedAt time.Time
}

// Pool holds the users waiting for a partner, oldest first.
// Its mutex also serializes group formation: a pairing removes both users
// and installs their group in the directory before the lock is released,
// so no observer can see a user both waiting and matched.
type Pool struct {
	mu        sync.Mutex
	directory contract.IDirectory
	connected func(domain.UserID) bool
	waiting   *list.List
	index     map[domain.UserID]*list.Element
	now       func() time.Time
}

// NewPool builds an empty pool. When connected is set, Match refuses users it
// reports offline, checked under the pool lock.
func NewPool(directory contract.IDirectory, connected func(domain.UserID) bool) *Pool {
	return &Pool{
		directory: directory,
		connected: connected,
		waiting:   list.New(),
		index:     make(map[domain.UserID]*list.Element),
		now:       time.Now,
	}
}

// Enqueue adds userID at the tail. Enqueuing a waiting user keeps its original position.
func (p *Pool) Enqueue(userID domain.UserID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enqueueLocked(userID)
}

func (p *Pool) enqueueLocked(userID domain.UserID) error {
	if _, ok := p.directory.Lookup(userID); ok {
		return fmt.Errorf("%w: %s", errors.ErrAlreadyInGroup, userID)
	}
	if _, ok := p.index[userID]; ok {
		return nil
	}
	p.index[userID] = p.waiting.PushBack(poolEntry{userID: userID, joinedAt: p.now()})
	return nil
}

// DequeueOther removes and returns the oldest waiting user other than userID.
func (p *Pool) DequeueOther(userID domain.UserID) (domain.UserID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dequeueOtherLocked(userID)
}

func (p *Pool) dequeueOtherLocked(userID domain.UserID) (domain.UserID, bool) {
	for e := p.waiting.Front(); e != nil; e = e.Next() {
		entry := e.Value.(poolEntry)
		if entry.userID == userID {
			continue
		}
		p.removeLocked(e)
		return entry.userID, true
	}
	return "", false
}

// Cancel removes userID from the pool. It reports whether the user was waiting.
func (p *Pool) Cancel(userID domain.UserID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.index[userID]
	if !ok {
		return false
	}
	p.removeLocked(e)
	return true
}

// Match enqueues userID and tries to pair it with the oldest other waiting user.
// On success both users leave the pool and their group is already registered
// in the directory when Match returns.
func (p *Pool) Match(userID domain.UserID) (domain.Group, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected != nil && !p.connected(userID) {
		return domain.Group{}, false, fmt.Errorf("%w: %s", errors.ErrNotConnected, userID)
	}
	if err := p.enqueueLocked(userID); err != nil {
		return domain.Group{}, false, err
	}
	partner, ok := p.dequeueOtherLocked(userID)
	if !ok {
		return domain.Group{}, false, nil
	}
	p.removeLocked(p.index[userID])
	return p.directory.Form(partner, userID), true, nil
}

// Expire removes and returns every user who joined before cutoff.
func (p *Pool) Expire(cutoff time.Time) []domain.UserID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var expired []domain.UserID
	for e := p.waiting.Front(); e != nil; {
		entry := e.Value.(poolEntry)
		if !entry.joinedAt.Before(cutoff) {
			// Arrival order, everything after is younger.
			break
		}
		next := e.Next()
		p.removeLocked(e)
		expired = append(expired, entry.userID)
		e = next
	}
	return expired
}

func (p *Pool) Contains(userID domain.UserID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.index[userID]
	return ok
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waiting.Len()
}

// Waiting returns the waiting users, oldest first.
func (p *Pool) Waiting() []domain.UserID {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := make([]domain.UserID, 0, p.waiting.Len())
	for e := p.waiting.Front(); e != nil; e = e.Next() {
		res = append(res, e.Value.(poolEntry).userID)
	}
	return res
}

func (p *Pool) removeLocked(e *list.Element) {
	entry := p.waiting.Remove(e).(poolEntry)
	delete(p.index, entry.userID)
}
