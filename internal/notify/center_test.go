package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"perfect-volume-control/internal/domain"
)

func TestCenter_PostDeliversToMatchingObservers(t *testing.T) {
	c := NewCenter()

	var got []string
	c.AddObserver("a", func(n domain.Notification) { got = append(got, "a1:"+n.Name) })
	c.AddObserver("a", func(n domain.Notification) { got = append(got, "a2:"+n.Name) })
	c.AddObserver("b", func(n domain.Notification) { got = append(got, "b") })

	c.Post(domain.Notification{Name: "a"})

	assert.Equal(t, []string{"a1:a", "a2:a"}, got)
}

func TestCenter_RemoveObserver(t *testing.T) {
	c := NewCenter()

	calls := 0
	tok := c.AddObserver("a", func(domain.Notification) { calls++ })
	assert.Equal(t, 1, c.ObserverCount("a"))

	c.RemoveObserver(tok)
	c.RemoveObserver(tok)
	c.Post(domain.Notification{Name: "a"})

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, c.ObserverCount(""))
}

func TestCenter_PanickingObserverDoesNotStopDelivery(t *testing.T) {
	c := NewCenter()

	delivered := false
	c.AddObserver("a", func(domain.Notification) { panic("bad observer") })
	c.AddObserver("a", func(domain.Notification) { delivered = true })

	c.Post(domain.Notification{Name: "a"})
	assert.True(t, delivered)
}

func TestCenter_ObserverMayRemoveItselfDuringPost(t *testing.T) {
	c := NewCenter()

	var tok domain.ObserverToken
	calls := 0
	tok = c.AddObserver("a", func(domain.Notification) {
		calls++
		c.RemoveObserver(tok)
	})

	c.Post(domain.Notification{Name: "a"})
	c.Post(domain.Notification{Name: "a"})
	assert.Equal(t, 1, calls)
}
