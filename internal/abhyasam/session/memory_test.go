package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/abhyasam/pkg/utils/errors"
)

type chatState struct {
	Turns []string `json:"turns"`
}

func TestMemoryStore_GetPutDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var out chatState
	err := store.Get(ctx, "missing", &out)
	require.Error(t, err)
	assert.True(t, errors.ErrSessionNotFound.Is(err))

	require.NoError(t, store.Put(ctx, "s1", &chatState{Turns: []string{"q1"}}))
	require.NoError(t, store.Get(ctx, "s1", &out))
	assert.Equal(t, []string{"q1"}, out.Turns)

	require.NoError(t, store.Delete(ctx, "s1"))
	err = store.Get(ctx, "s1", &out)
	assert.True(t, errors.ErrSessionNotFound.Is(err))

	// 删除不存在的键不报错
	require.NoError(t, store.Delete(ctx, "s1"))
}

func TestMemoryStore_ValuesDoNotAlias(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	in := &chatState{Turns: []string{"original"}}
	require.NoError(t, store.Put(ctx, "s1", in))

	// 写入后修改原对象不应影响已存储的值
	in.Turns[0] = "mutated"

	var out chatState
	require.NoError(t, store.Get(ctx, "s1", &out))
	assert.Equal(t, []string{"original"}, out.Turns)
}

func TestMemoryStore_UpdateSerializesPerKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "quiz", &chatState{}))

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(ctx, "quiz", func() error {
				var st chatState
				if err := store.Get(ctx, "quiz", &st); err != nil {
					return err
				}
				st.Turns = append(st.Turns, "answer")
				return store.Put(ctx, "quiz", &st)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var final chatState
	require.NoError(t, store.Get(ctx, "quiz", &final))
	// 每个并发回合都必须生效，说明读改写周期被串行化
	assert.Len(t, final.Turns, workers)
}

func TestMemoryStore_UpdateHonorsContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Update(ctx, "s1", func() error {
		t.Fatal("fn should not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
