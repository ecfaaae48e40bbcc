package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndContextString(t *testing.T) {
	m := New(4)
	m.Add(RoleUser, "How do we grow?")
	m.Add(RoleAssistant, "Focus on retention.")

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, "USER: How do we grow?\n\nASSISTANT: Focus on retention.", m.ContextString())
}

func TestEvictsOldest(t *testing.T) {
	m := New(3)
	for i := 1; i <= 5; i++ {
		m.Add(RoleUser, fmt.Sprintf("q%d", i))
	}

	msgs := m.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "q3", msgs[0].Content)
	assert.Equal(t, "q5", msgs[2].Content)
}

func TestDefaultCapacity(t *testing.T) {
	m := New(0)
	assert.Equal(t, DefaultCapacity, m.Capacity())
}

func TestClear(t *testing.T) {
	m := New(2)
	m.Add(RoleUser, "a")
	m.Clear()

	assert.Zero(t, m.Len())
	assert.Empty(t, m.ContextString())
}

func TestMessagesIsCopy(t *testing.T) {
	m := New(2)
	m.Add(RoleUser, "a")

	msgs := m.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "a", m.Messages()[0].Content)
}

func TestConcurrentAdd(t *testing.T) {
	m := New(5)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Add(RoleUser, fmt.Sprint(i))
			_ = m.ContextString()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, m.Len())
}
