package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type GroupID string

func NewGroupID() GroupID {
	return GroupID(uuid.NewString())
}

func (g GroupID) String() string {
	return string(g)
}

// Group is a read-only snapshot of an active match.
// Members keep the pairing order: the oldest waiting user first.
type Group struct {
	ID           GroupID
	Members      []UserID
	FormedAt     time.Time
	Announcement *Announcement `json:"-"`
}

// Announcement is closed once every member of a new group was sent match-found.
// A nil Announcement counts as already closed.
type Announcement struct {
	once sync.Once
	done chan struct{}
}

func NewAnnouncement() *Announcement {
	return &Announcement{done: make(chan struct{})}
}

func (a *Announcement) Close() {
	if a == nil {
		return
	}
	a.once.Do(func() { close(a.done) })
}

func (a *Announcement) Done() <-chan struct{} {
	if a == nil {
		return closedChan
	}
	return a.done
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

func (g Group) Contains(userID UserID) bool {
	return lo.Contains(g.Members, userID)
}

// Others returns every member except userID.
func (g Group) Others(userID UserID) []UserID {
	return lo.Without(g.Members, userID)
}

func (g Group) Size() int {
	return len(g.Members)
}

// Departure describes the outcome of a user leaving a group.
// When Disbanded is true the remaining members no longer belong to any group.
type Departure struct {
	Group        GroupID
	Left         UserID
	Remaining    []UserID
	Disbanded    bool
	Announcement *Announcement
}
