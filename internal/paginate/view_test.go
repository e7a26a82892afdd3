package paginate

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func controlDisabled(t *testing.T, f Frame[int], id string) bool {
	t.Helper()
	for _, c := range f.Controls {
		if c.ID == id {
			return c.Disabled
		}
	}
	t.Fatalf("frame has no control %q", id)
	return false
}

func TestViewNavigation(t *testing.T) {
	v := NewView(seq(12), WithTimeout(time.Minute))
	defer v.Stop()

	f := v.Frame()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 3, f.Pages)
	assert.True(t, controlDisabled(t, f, ActionPrevious))
	assert.False(t, controlDisabled(t, f, ActionNext))

	f, err := v.Handle(ActionNext)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, f.Items)

	f, err = v.Handle(ActionNext)
	require.NoError(t, err)
	assert.True(t, controlDisabled(t, f, ActionNext))

	_, err = v.Handle("jump")
	assert.ErrorIs(t, err, ErrUnknownAction)
	_, err = v.Handle(ActionClose)
	assert.ErrorIs(t, err, ErrUnknownAction, "close needs WithClose")
}

func TestViewExpiry(t *testing.T) {
	var expired atomic.Bool
	v := NewView(seq(12), WithTimeout(20*time.Millisecond), OnExpire(func() { expired.Store(true) }))

	_, err := v.Handle(ActionNext)
	require.NoError(t, err)

	require.Eventually(t, expired.Load, time.Second, 5*time.Millisecond)
	assert.Equal(t, Expired, v.State())

	f, err := v.Handle(ActionPrevious)
	assert.ErrorIs(t, err, ErrInactive)
	assert.Equal(t, []int{5, 6, 7, 8, 9}, f.Items, "last page stays visible")
	for _, c := range f.Controls {
		assert.True(t, c.Disabled, "control %s disabled after expiry", c.ID)
	}
}

func TestViewClose(t *testing.T) {
	var expired atomic.Bool
	v := NewView([]string{"Espada", "Escudo"}, WithPageSize(1), WithClose(),
		WithTimeout(20*time.Millisecond), OnExpire(func() { expired.Store(true) }))

	f, err := v.Handle(ActionClose)
	require.NoError(t, err)
	assert.Equal(t, Closed, f.State)
	assert.Empty(t, f.Items, "close clears the display")
	assert.Empty(t, f.Controls)

	time.Sleep(50 * time.Millisecond)
	assert.False(t, expired.Load(), "a closed view never expires")
	assert.Equal(t, Closed, v.State())

	_, err = v.Handle(ActionNext)
	assert.ErrorIs(t, err, ErrInactive)
}

func TestViewWithoutTimeout(t *testing.T) {
	v := NewView(seq(3), WithTimeout(0))
	_, err := v.Handle(ActionNext)
	require.NoError(t, err)
	assert.Equal(t, Active, v.State())
}
