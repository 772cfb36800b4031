package runtime

import (
	"allchat/domain"
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Users race to match, cancel, end and disconnect. Whatever the interleaving,
// nobody is waiting and matched at once, and nobody belongs to two groups.
func TestEngine_Concurrent_Invariants(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine(domain.RequeueAll)
	const users = 40
	const rounds = 200

	outs := make([]*recorder, users)
	for i := range outs {
		outs[i] = engine.connect(domain.UserID(fmt.Sprintf("u%d", i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := domain.UserID(fmt.Sprintf("u%d", i))
			rnd := rand.New(rand.NewSource(int64(i)))
			for r := 0; r < rounds; r++ {
				switch rnd.Intn(5) {
				case 0, 1:
					_ = engine.send(userID, `{"type":"looking-for-match"}`)
				case 2:
					_ = engine.send(userID, `{"type":"cancel-match"}`)
				case 3:
					_ = engine.send(userID, `{"type":"end-chat"}`)
				case 4:
					engine.cascade.Disconnect(context.Background(), userID, outs[i])
					engine.registry.Register(userID, outs[i])
				}
			}
		}(i)
	}
	wg.Wait()

	groupOf := make(map[domain.UserID]domain.GroupID)
	for _, group := range engine.directory.Groups() {
		req.Len(group.Members, 2)
		for _, member := range group.Members {
			_, seen := groupOf[member]
			req.False(seen, "user %s in two groups", member)
			groupOf[member] = group.ID
			req.False(engine.pool.Contains(member), "user %s waiting and matched", member)
		}
	}
	for _, userID := range engine.pool.Waiting() {
		_, ok := engine.directory.Lookup(userID)
		req.False(ok, "user %s waiting and matched", userID)
	}
	// Every group member resolves to its own group
	for userID, groupID := range groupOf {
		group, ok := engine.directory.Lookup(userID)
		req.True(ok)
		req.Equal(groupID, group.ID)
	}
}
