package frame

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresenter struct {
	calls     []string
	images    []int
	next      int
	recorded  map[int]bool
	failPhase string
}

func newFakePresenter(imageCount int) *fakePresenter {
	p := &fakePresenter{recorded: map[int]bool{}}
	for i := 0; i < imageCount; i++ {
		p.recorded[i] = true
	}
	return p
}

var errBoom = errors.New("boom")

func (p *fakePresenter) call(name string) error {
	p.calls = append(p.calls, name)
	if p.failPhase == name {
		return errBoom
	}
	return nil
}

func (p *fakePresenter) AcquireNextImage() (int, error) {
	if err := p.call("acquire"); err != nil {
		return 0, err
	}
	index := p.next
	p.next = (p.next + 1) % len(p.recorded)
	return index, nil
}

func (p *fakePresenter) WaitIdle() error {
	return p.call("wait")
}

func (p *fakePresenter) CommandBufferReady(imageIndex int) bool {
	return p.recorded[imageIndex]
}

func (p *fakePresenter) Submit(imageIndex int) error {
	p.images = append(p.images, imageIndex)
	return p.call("submit")
}

func (p *fakePresenter) Present(imageIndex int) error {
	return p.call("present")
}

func (p *fakePresenter) SubmitPostPresentBarrier(imageIndex int) error {
	return p.call("barrier")
}

func TestRunOrder(t *testing.T) {
	p := newFakePresenter(2)
	var c Cycle

	require.NoError(t, c.Run(p))
	assert.Equal(t, []string{"acquire", "wait", "submit", "present", "barrier", "wait"}, p.calls)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, uint64(1), c.Frames())
}

func TestRunWrapsImages(t *testing.T) {
	p := newFakePresenter(3)
	var c Cycle

	for i := 0; i < 7; i++ {
		require.NoError(t, c.Run(p))
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, p.images)
	assert.Equal(t, uint64(7), c.Frames())
}

func TestRunFailureResetsToIdle(t *testing.T) {
	for _, phase := range []string{"acquire", "submit", "present", "barrier"} {
		t.Run(phase, func(t *testing.T) {
			p := newFakePresenter(2)
			p.failPhase = phase
			var c Cycle

			err := c.Run(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errBoom))
			assert.Equal(t, Idle, c.State())
			assert.Equal(t, uint64(0), c.Frames())
			assert.Equal(t, phase, p.calls[len(p.calls)-1])
		})
	}
}

func TestRunWithoutRecordedBuffer(t *testing.T) {
	p := newFakePresenter(2)
	p.recorded[0] = false
	var c Cycle

	err := c.Run(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record")
	assert.NotContains(t, p.calls, "submit")
	assert.Equal(t, Idle, c.State())
}

func TestIllegalTransition(t *testing.T) {
	var c Cycle
	err := c.transition(Submitted)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
	assert.Equal(t, Idle, c.State())

	c.state = Recorded
	err = c.Run(newFakePresenter(1))
	assert.True(t, errors.Is(err, ErrIllegalTransition))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ImageAcquired", ImageAcquired.String())
	assert.Equal(t, "State(42)", State(42).String())
}
