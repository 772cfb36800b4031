package runtime

import (
	"allchat/contract"
	"allchat/domain"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

var _ contract.IDirectory = (*Directory)(nil)

// groupRecord is the single owner of a group's membership.
// Users only hold the GroupID; the record is reached through the arena.
type groupRecord struct {
	mu           sync.Mutex
	id           domain.GroupID
	members      []domain.UserID
	formedAt     time.Time
	disbanded    bool
	announcement *domain.Announcement
}

func (g *groupRecord) snapshot() domain.Group {
	return domain.Group{
		ID:           g.id,
		Members:      slices.Clone(g.members),
		FormedAt:     g.formedAt,
		Announcement: g.announcement,
	}
}

// Directory answers "which group is this user in".
// Lock order: a group record lock may be held while touching the shards, never the reverse.
type Directory struct {
	memberships *shards[domain.GroupID]
	groups      *shards[*groupRecord]
	now         func() time.Time
}

func NewDirectory(shardCount int) *Directory {
	return &Directory{
		memberships: newShards[domain.GroupID](shardCount),
		groups:      newShards[*groupRecord](shardCount),
		now:         time.Now,
	}
}

// Form creates a group of a and b, in that order.
// Callers must guarantee neither user already belongs to a group.
func (d *Directory) Form(a, b domain.UserID) domain.Group {
	record := &groupRecord{
		id:       domain.NewGroupID(),
		members:      []domain.UserID{a, b},
		formedAt:     d.now().UTC(),
		announcement: domain.NewAnnouncement(),
	}
	d.groups.Store(record.id.String(), record)
	d.memberships.Store(a.String(), record.id)
	d.memberships.Store(b.String(), record.id)
	return record.snapshot()
}

// Lookup returns the group userID currently belongs to.
func (d *Directory) Lookup(userID domain.UserID) (domain.Group, bool) {
	record, ok := d.recordOf(userID)
	if !ok {
		return domain.Group{}, false
	}
	record.mu.Lock()
	defer record.mu.Unlock()
	if record.disbanded || !lo.Contains(record.members, userID) {
		return domain.Group{}, false
	}
	return record.snapshot(), true
}

// Leave removes userID from its group. When fewer than two members remain the
// group is disbanded and the remaining members are detached in the same step.
func (d *Directory) Leave(userID domain.UserID) (domain.Departure, bool) {
	record, ok := d.recordOf(userID)
	if !ok {
		return domain.Departure{}, false
	}
	record.mu.Lock()
	defer record.mu.Unlock()
	if record.disbanded || !lo.Contains(record.members, userID) {
		return domain.Departure{}, false
	}

	record.members = lo.Without(record.members, userID)
	d.detach(userID, record.id)

	departure := domain.Departure{
		Group:        record.id,
		Left:         userID,
		Remaining:    slices.Clone(record.members),
		Announcement: record.announcement,
	}
	if len(record.members) < 2 {
		d.disbandLocked(record)
		departure.Disbanded = true
	}
	return departure, true
}

// Disband dissolves every group any of members belongs to.
func (d *Directory) Disband(members []domain.UserID) {
	for _, userID := range members {
		record, ok := d.recordOf(userID)
		if !ok {
			continue
		}
		record.mu.Lock()
		if !record.disbanded {
			d.disbandLocked(record)
		}
		record.mu.Unlock()
	}
}

// SameGroup is symmetric: both users must resolve to the same live record
// and the record must list both of them.
func (d *Directory) SameGroup(a, b domain.UserID) bool {
	if a == b {
		return false
	}
	idA, okA := d.memberships.Load(a.String())
	idB, okB := d.memberships.Load(b.String())
	if !okA || !okB || idA != idB {
		return false
	}
	record, ok := d.groups.Load(idA.String())
	if !ok {
		return false
	}
	record.mu.Lock()
	defer record.mu.Unlock()
	return !record.disbanded &&
		lo.Contains(record.members, a) &&
		lo.Contains(record.members, b)
}

// Len is the number of live groups.
func (d *Directory) Len() int {
	return d.groups.Len()
}

// Groups returns a snapshot of every live group.
func (d *Directory) Groups() []domain.Group {
	var records []*groupRecord
	d.groups.Range(func(_ string, record *groupRecord) bool {
		records = append(records, record)
		return true
	})
	res := make([]domain.Group, 0, len(records))
	for _, record := range records {
		record.mu.Lock()
		if !record.disbanded {
			res = append(res, record.snapshot())
		}
		record.mu.Unlock()
	}
	return res
}

func (d *Directory) recordOf(userID domain.UserID) (*groupRecord, bool) {
	id, ok := d.memberships.Load(userID.String())
	if !ok {
		return nil, false
	}
	record, ok := d.groups.Load(id.String())
	if !ok {
		// Leftover entry of a group that is already gone.
		d.detach(userID, id)
		return nil, false
	}
	return record, true
}

// disbandLocked expects record.mu to be held.
func (d *Directory) disbandLocked(record *groupRecord) {
	record.disbanded = true
	for _, member := range record.members {
		d.detach(member, record.id)
	}
	d.groups.Delete(record.id.String())
}

// detach removes the membership entry only if it still points to id.
func (d *Directory) detach(userID domain.UserID, id domain.GroupID) {
	d.memberships.CompareAndDelete(userID.String(), func(current domain.GroupID) bool {
		return current == id
	})
}
