package detection

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformGrid(w, h int, v float32) Grid {
	data := make([]float32, w*h)
	for i := range data {
		data[i] = v
	}
	return Grid{Width: w, Height: h, Data: data}
}

func TestRasterize_Size(t *testing.T) {
	g := uniformGrid(15, 15, 1)

	for _, size := range [][2]int{{80, 80}, {1, 1}, {3, 97}, {15, 15}, {7, 2}} {
		m, err := Rasterize(g, size[0], size[1], 0.3)
		require.NoError(t, err)
		assert.Equal(t, size[0], m.Width)
		assert.Equal(t, size[1], m.Height)
		assert.Len(t, m.Bits, size[0]*size[1])
		assert.Equal(t, size[0]*size[1], m.Count())
	}
}

func TestRasterize_Degenerate(t *testing.T) {
	g := uniformGrid(15, 15, 1)

	for _, size := range [][2]int{{0, 0}, {0, 10}, {10, 0}, {-5, 10}, {-1, -1}} {
		m, err := Rasterize(g, size[0], size[1], 0.3)
		require.NoError(t, err)
		assert.True(t, m.Empty())
		assert.Equal(t, 0, m.Count())
	}
}

func TestRasterize_Threshold(t *testing.T) {
	g := Grid{Width: 4, Height: 1, Data: []float32{0.29, 0.3, 0.31, 1}}

	m, err := Rasterize(g, 4, 1, 0.3)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, true}, m.Bits, "cutoff is exclusive")

	m, err = Rasterize(g, 4, 1, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, true}, m.Bits)
}

func TestRasterize_NearestNeighbour(t *testing.T) {
	// 2x2 checkerboard upsampled to 4x4 must keep hard 2x2 blocks.
	g := Grid{Width: 2, Height: 2, Data: []float32{
		1, 0,
		0, 1,
	}}

	m, err := Rasterize(g, 4, 4, 0.3)
	require.NoError(t, err)

	want := []bool{
		true, true, false, false,
		true, true, false, false,
		false, false, true, true,
		false, false, true, true,
	}
	assert.Equal(t, want, m.Bits)
}

func TestRasterize_Downsample(t *testing.T) {
	// Columns 0..5; a 3-wide target picks source columns 0, 2 and 4.
	g := Grid{Width: 6, Height: 1, Data: []float32{1, 0, 0, 1, 1, 0}}

	m, err := Rasterize(g, 3, 1, 0.3)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, m.Bits)
}

func TestRasterize_MalformedGrid(t *testing.T) {
	tests := []struct {
		name string
		g    Grid
	}{
		{"short data", Grid{Width: 3, Height: 3, Data: make([]float32, 8)}},
		{"zero width", Grid{Width: 0, Height: 3}},
		{"negative height", Grid{Width: 3, Height: -1}},
		{"overflowing size", Grid{Width: 1 << 62, Height: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Rasterize(tt.g, 10, 10, 0.3)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMaskDimension)
			assert.ErrorIs(t, err, ErrInvalidGeometry)
			assert.True(t, m.Empty())
		})
	}
}

func TestRasterizeWindow_MatchesFullMask(t *testing.T) {
	g := Grid{Width: 3, Height: 3, Data: []float32{
		1, 0, 1,
		0, 1, 0,
		1, 1, 0,
	}}
	full, err := Rasterize(g, 9, 9, 0.3)
	require.NoError(t, err)

	win := image.Rect(2, 4, 7, 9)
	m, err := RasterizeWindow(g, 9, 9, win, 0.3)
	require.NoError(t, err)
	require.Equal(t, win.Dx(), m.Width)
	require.Equal(t, win.Dy(), m.Height)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			assert.Equal(t, full.At(win.Min.X+x, win.Min.Y+y), m.At(x, y), "cell %d,%d", x, y)
		}
	}
}

func TestRasterizeWindow_Clipped(t *testing.T) {
	g := uniformGrid(28, 28, 1)

	// The box is huge; only the requested window is allocated.
	m, err := RasterizeWindow(g, 1_000_000, 1_000_000, image.Rect(0, 0, 200, 200), 0.5)
	require.NoError(t, err)
	assert.Equal(t, 200, m.Width)
	assert.Equal(t, 200, m.Height)
	assert.Equal(t, 200*200, m.Count())

	m, err = RasterizeWindow(g, 10, 10, image.Rect(5, 5, 50, 50), 0.5)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Width)
	assert.Equal(t, 5, m.Height)

	m, err = RasterizeWindow(g, 10, 10, image.Rect(20, 20, 30, 30), 0.5)
	require.NoError(t, err)
	assert.True(t, m.Empty())

	_, err = RasterizeWindow(Grid{Width: 2, Height: 2}, 10, 10, image.Rect(0, 0, 10, 10), 0.5)
	assert.ErrorIs(t, err, ErrMaskDimension)
}

func TestMaskFor(t *testing.T) {
	d := Detection{ClassID: 1, Masks: []Grid{uniformGrid(2, 2, 0), uniformGrid(2, 2, 1)}}

	g, err := d.MaskFor()
	require.NoError(t, err)
	assert.Equal(t, float32(1), g.At(1, 1))

	d.ClassID = 2
	_, err = d.MaskFor()
	assert.ErrorIs(t, err, ErrMissingMask)

	d.ClassID = -1
	_, err = d.MaskFor()
	assert.ErrorIs(t, err, ErrMissingMask)
}
