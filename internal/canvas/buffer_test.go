package canvas

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placeclient/internal/palette"
)

func newBuffer(t *testing.T, w, h int) *Buffer {
	t.Helper()
	b := New(w, h, palette.Default())
	require.NoError(t, b.LoadSnapshot(make([]byte, w*h)))
	return b
}

func TestSnapshotRGBAMatchesPalette(t *testing.T) {
	pal := palette.Default()
	rng := rand.New(rand.NewSource(1))

	for _, size := range []struct{ w, h int }{{1, 1}, {4, 4}, {17, 3}, {64, 64}} {
		data := make([]byte, size.w*size.h)
		for i := range data {
			data[i] = byte(rng.Intn(pal.Len()))
		}
		b := New(size.w, size.h, pal)
		require.NoError(t, b.LoadSnapshot(data))

		pix := b.SnapshotRGBA()
		require.Len(t, pix, len(data)*4)
		for i, c := range data {
			want, err := pal.ColorAt(int(c))
			require.NoError(t, err)
			assert.Equal(t, []byte{want.R, want.G, want.B, 0xff}, pix[i*4:i*4+4], "pixel %d", i)
		}
	}
}

func TestLoadSnapshotRejects(t *testing.T) {
	b := New(4, 4, palette.Default())
	require.NoError(t, b.LoadSnapshot(make([]byte, 16)))
	require.NoError(t, b.ApplyPlace("alice", 0, 0, 3))

	err := b.LoadSnapshot(make([]byte, 15))
	assert.ErrorIs(t, err, ErrInvalidSnapshotSize)

	bad := make([]byte, 16)
	bad[7] = 40
	err = b.LoadSnapshot(bad)
	assert.ErrorIs(t, err, ErrInvalidColor)

	// rejected snapshots leave state alone
	c, _ := b.ColorIndexAt(0, 0)
	assert.Equal(t, uint8(3), c)
	user, ok := b.EditorAt(0, 0)
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
}

func TestLoadSnapshotClearsEditors(t *testing.T) {
	b := newBuffer(t, 2, 2)
	require.NoError(t, b.ApplyPlace("bob", 1, 1, 2))
	require.NoError(t, b.LoadSnapshot([]byte{1, 1, 1, 1}))

	_, ok := b.EditorAt(1, 1)
	assert.False(t, ok)
	c, _ := b.ColorIndexAt(1, 1)
	assert.Equal(t, uint8(1), c)
}

func TestApplyPlace(t *testing.T) {
	cases := []struct {
		name  string
		x, y  int
		color int
		want  error
	}{
		{name: "ok", x: 3, y: 2, color: 39},
		{name: "negative x", x: -1, y: 0, color: 1, want: ErrOutOfBounds},
		{name: "x past width", x: 4, y: 0, color: 1, want: ErrOutOfBounds},
		{name: "y past height", x: 0, y: 4, color: 1, want: ErrOutOfBounds},
		{name: "color past palette", x: 0, y: 0, color: 40, want: ErrInvalidColor},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := newBuffer(t, 4, 4)
			before := b.Indices()
			err := b.ApplyPlace("alice", c.x, c.y, c.color)
			if c.want != nil {
				assert.ErrorIs(t, err, c.want)
				assert.Equal(t, before, b.Indices())
				return
			}
			require.NoError(t, err)
			got, _ := b.ColorIndexAt(c.x, c.y)
			assert.Equal(t, uint8(c.color), got)
			user, ok := b.EditorAt(c.x, c.y)
			assert.True(t, ok)
			assert.Equal(t, "alice", user)
		})
	}
}

func TestApplyClearOnlyTouchesRect(t *testing.T) {
	const w, h = 6, 5
	b := New(w, h, palette.Default())
	data := make([]byte, w*h)
	for i := range data {
		data[i] = byte(1 + i%9)
	}
	require.NoError(t, b.LoadSnapshot(data))
	require.NoError(t, b.ApplyPlace("carol", 4, 4, 7))
	require.NoError(t, b.ApplyPlace("dave", 2, 2, 7))

	r := Rect{X1: 1, Y1: 1, X2: 3, Y2: 2}
	require.NoError(t, b.ApplyClear(r))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			got, _ := b.ColorIndexAt(x, y)
			inside := x >= r.X1 && x <= r.X2 && y >= r.Y1 && y <= r.Y2
			if inside {
				assert.Equal(t, uint8(0), got, "(%d,%d)", x, y)
				_, ok := b.EditorAt(x, y)
				assert.False(t, ok, "(%d,%d) editor", x, y)
				continue
			}
			want := data[x+w*y]
			if x == 4 && y == 4 {
				want = 7
			}
			assert.Equal(t, want, got, "(%d,%d)", x, y)
		}
	}
	user, ok := b.EditorAt(4, 4)
	assert.True(t, ok)
	assert.Equal(t, "carol", user)
}

func TestApplyClearRejects(t *testing.T) {
	b := newBuffer(t, 4, 4)
	assert.ErrorIs(t, b.ApplyClear(Rect{X1: 2, Y1: 0, X2: 1, Y2: 0}), ErrInvalidRect)
	assert.ErrorIs(t, b.ApplyClear(Rect{X1: 0, Y1: 3, X2: 0, Y2: 2}), ErrInvalidRect)
	assert.ErrorIs(t, b.ApplyClear(Rect{X1: 0, Y1: 0, X2: 4, Y2: 0}), ErrOutOfBounds)
	assert.ErrorIs(t, b.ApplyClear(Rect{X1: -1, Y1: 0, X2: 0, Y2: 0}), ErrOutOfBounds)
}

func TestClearThenPlaceScenario(t *testing.T) {
	b := newBuffer(t, 4, 4)
	require.NoError(t, b.ApplyClear(Rect{X1: 1, Y1: 1, X2: 2, Y2: 2}))
	assert.Equal(t, make([]byte, 16), b.Indices())

	require.NoError(t, b.ApplyPlace("alice", 1, 1, 6))
	c, _ := b.ColorIndexAt(1, 1)
	assert.Equal(t, uint8(6), c)
	user, ok := b.EditorAt(1, 1)
	assert.True(t, ok)
	assert.Equal(t, "alice", user)

	_, ok = b.EditorAt(0, 0)
	assert.False(t, ok)
}

func TestLoadRoster(t *testing.T) {
	b := newBuffer(t, 2, 2)
	require.NoError(t, b.ApplyPlace("zed", 1, 1, 1))

	require.NoError(t, b.LoadRoster([]string{"a", "", "c"}))
	user, ok := b.EditorAt(0, 0)
	assert.True(t, ok)
	assert.Equal(t, "a", user)
	_, ok = b.EditorAt(1, 0)
	assert.False(t, ok)
	user, _ = b.EditorAt(0, 1)
	assert.Equal(t, "c", user)
	// past the end of the roster
	_, ok = b.EditorAt(1, 1)
	assert.False(t, ok)

	assert.ErrorIs(t, b.LoadRoster(make([]string, 5)), ErrRosterTooLong)
}

func TestImage(t *testing.T) {
	b := newBuffer(t, 3, 2)
	require.NoError(t, b.ApplyPlace("x", 2, 1, 5))
	img := b.Image()
	assert.Equal(t, b.Bounds(), img.Bounds())
	r, g, bl, a := img.At(2, 1).RGBA()
	assert.Equal(t, []uint32{0, 0, 0, 0xffff}, []uint32{r, g, bl, a})
	r, _, _, _ = img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}
