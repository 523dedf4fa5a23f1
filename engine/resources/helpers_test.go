package resources

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	serial int
	size   uint64
	mapped []byte
}

func (t *fakeToken) Size() uint64   { return t.size }
func (t *fakeToken) Mapped() []byte { return t.mapped }

// fakeAllocator hands out host memory and refuses requests by name.
type fakeAllocator struct {
	serial   int
	refuse   map[string]bool
	buffers  []BufferRequest
	images   []ImageRequest
	released []int
}

func newFakeAllocator(refuse ...string) *fakeAllocator {
	a := &fakeAllocator{refuse: make(map[string]bool)}
	for _, name := range refuse {
		a.refuse[name] = true
	}
	return a
}

func (a *fakeAllocator) token(size uint64, data []byte, hostVisible bool) *fakeToken {
	a.serial++
	tok := &fakeToken{serial: a.serial, size: size}
	if hostVisible {
		tok.mapped = make([]byte, size)
		copy(tok.mapped, data)
	}
	return tok
}

func (a *fakeAllocator) AllocateBuffer(req BufferRequest) (BufferAllocation, error) {
	a.buffers = append(a.buffers, req)
	if a.refuse[req.Name] {
		return BufferAllocation{}, errors.Newf("out of device memory for %s", req.Name)
	}
	return BufferAllocation{Handle: vk.NullBuffer, Token: a.token(req.Size, req.Data, req.Pattern.HostVisible())}, nil
}

func (a *fakeAllocator) ReleaseBuffer(alloc BufferAllocation) {
	a.released = append(a.released, alloc.Token.(*fakeToken).serial)
}

func (a *fakeAllocator) AllocateImage(req ImageRequest) (ImageAllocation, error) {
	a.images = append(a.images, req)
	if a.refuse[req.Name] {
		return ImageAllocation{}, errors.Newf("out of device memory for %s", req.Name)
	}
	return ImageAllocation{Handle: vk.NullImage, Token: a.token(req.Size, nil, false)}, nil
}

func (a *fakeAllocator) ReleaseImage(alloc ImageAllocation) {
	a.released = append(a.released, alloc.Token.(*fakeToken).serial)
}

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	c, err := NewCollector(DefaultCollectorConfig())
	require.NoError(t, err)
	return c
}

func collectBuffer(t *testing.T, c *Collector, desc DataDescriptor, data []byte) ResourceID {
	t.Helper()
	id, err := c.CollectBufferData(desc, RawDataFromBytes(data))
	require.NoError(t, err)
	return id
}

func filled(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b + byte(i)
	}
	return out
}
