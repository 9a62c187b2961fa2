package fitsdiff

import (
	"math"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func image(cards ...fitsio.Card) hduSnapshot {
	return hduSnapshot{
		kind:   kindImage,
		bitpix: -64,
		axes:   []int{2},
		cards:  cards,
		data:   []float64{1, 2},
	}
}

func compare(a, b []hduSnapshot) *Report {
	opts := OSIRISOptions()
	return &Report{
		Options: opts,
		HDUsA:   len(a),
		HDUsB:   len(b),
		HDUs:    diffFiles(a, b, opts),
	}
}

func TestDiffHeaderRules(t *testing.T) {
	tests := []struct {
		name      string
		a, b      []fitsio.Card
		identical bool
		kinds     []DiffKind
	}{
		{
			name:      "comment keyword ignored everywhere",
			a:         []fitsio.Card{{Name: "COMMENT", Comment: "one"}},
			b:         []fitsio.Card{{Name: "COMMENT", Comment: "two"}, {Name: "COMMENT", Comment: "three"}},
			identical: true,
		},
		{
			name:      "SIMPLE comment ignored",
			a:         []fitsio.Card{{Name: "SIMPLE", Value: true, Comment: "conforms to FITS standard"}},
			b:         []fitsio.Card{{Name: "SIMPLE", Value: true, Comment: "file does conform"}},
			identical: true,
		},
		{
			name:  "other comments compared",
			a:     []fitsio.Card{{Name: "EXPTIME", Value: 1.0, Comment: "seconds"}},
			b:     []fitsio.Card{{Name: "EXPTIME", Value: 1.0, Comment: "minutes"}},
			kinds: []DiffKind{DiffKeywordComment},
		},
		{
			name:      "blank cards ignored",
			a:         []fitsio.Card{{Name: ""}, {Name: "OBJECT", Value: "M31"}},
			b:         []fitsio.Card{{Name: "OBJECT", Value: "M31"}},
			identical: true,
		},
		{
			name:      "trailing blanks ignored",
			a:         []fitsio.Card{{Name: "OBJECT", Value: "M31   "}},
			b:         []fitsio.Card{{Name: "OBJECT", Value: "M31"}},
			identical: true,
		},
		{
			name:      "numeric values within tolerance",
			a:         []fitsio.Card{{Name: "CRVAL1", Value: 1.000001}, {Name: "NFRAMES", Value: 3}},
			b:         []fitsio.Card{{Name: "CRVAL1", Value: 1.000002}, {Name: "NFRAMES", Value: 3.0}},
			identical: true,
		},
		{
			name:  "numeric values beyond tolerance",
			a:     []fitsio.Card{{Name: "CRVAL1", Value: 1.0}},
			b:     []fitsio.Card{{Name: "CRVAL1", Value: 1.1}},
			kinds: []DiffKind{DiffKeywordValue},
		},
		{
			name:  "extra keywords on both sides",
			a:     []fitsio.Card{{Name: "ONLYA", Value: 1}},
			b:     []fitsio.Card{{Name: "ONLYB", Value: 2}},
			kinds: []DiffKind{DiffKeywordOnlyA, DiffKeywordOnlyB},
		},
		{
			name:  "duplicate count",
			a:     []fitsio.Card{{Name: "HISTORY", Comment: "a"}, {Name: "HISTORY", Comment: "b"}},
			b:     []fitsio.Card{{Name: "HISTORY", Comment: "a"}},
			kinds: []DiffKind{DiffKeywordCount},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := compare([]hduSnapshot{image(tt.a...)}, []hduSnapshot{image(tt.b...)})
			require.Equal(t, tt.identical, report.Identical(), report.String())

			var kinds []DiffKind
			for _, d := range report.HDUs[0].Differences {
				kinds = append(kinds, d.Kind)
			}
			require.Equal(t, tt.kinds, kinds)
		})
	}
}

func TestDiffLayout(t *testing.T) {
	t.Run("hdu count", func(t *testing.T) {
		report := compare([]hduSnapshot{image()}, []hduSnapshot{image(), image()})
		require.False(t, report.Identical())
		require.Contains(t, report.String(), "Files contain different numbers of HDUs")
	})

	t.Run("extension type", func(t *testing.T) {
		table := hduSnapshot{kind: kindBinaryTable, bitpix: 8, axes: []int{16, 3}, rows: 3, cols: 2}
		report := compare([]hduSnapshot{image(), image()}, []hduSnapshot{image(), table})
		require.False(t, report.Identical())
		require.Equal(t, DiffExtType, report.HDUs[1].Differences[0].Kind)
		require.Contains(t, report.String(), "Extension HDU 1:")
	})

	t.Run("extension name", func(t *testing.T) {
		a, b := image(), image()
		a.extName, b.extName = "NOISE", "QUALITY"
		report := compare([]hduSnapshot{image(), a}, []hduSnapshot{image(), b})
		require.Equal(t, DiffExtName, report.HDUs[1].Differences[0].Kind)
		require.Contains(t, report.String(), "Extension HDU 1 (NOISE)")
	})

	t.Run("axes differ skips data", func(t *testing.T) {
		a, b := image(), image()
		b.axes = []int{1, 2}
		report := compare([]hduSnapshot{a}, []hduSnapshot{b})
		require.Equal(t, DiffAxes, report.HDUs[0].Differences[0].Kind)
		require.Zero(t, report.HDUs[0].Data.Compared)
	})

	t.Run("table shape", func(t *testing.T) {
		a := hduSnapshot{kind: kindBinaryTable, rows: 3, cols: 2}
		b := hduSnapshot{kind: kindBinaryTable, rows: 4, cols: 2}
		report := compare([]hduSnapshot{image(), a}, []hduSnapshot{image(), b})
		require.Equal(t, DiffTableShape, report.HDUs[1].Differences[0].Kind)
	})
}

func TestDiffData(t *testing.T) {
	opts := OSIRISOptions()
	opts.MaxDiffs = 2

	a := []float64{0, 1, 2, math.NaN(), 4, 5}
	b := []float64{0, 1.5, 2.000005, math.NaN(), 5, 6}
	d := diffData(a, b, []int{3, 2}, opts)

	assert.Equal(t, 6, d.Compared)
	assert.Equal(t, 3, d.Count)
	require.Len(t, d.Samples, 2)
	assert.Equal(t, []int{2, 1}, d.Samples[0].Coord)
	assert.Equal(t, []int{2, 2}, d.Samples[1].Coord)

	report := &Report{Options: opts, HDUsA: 1, HDUsB: 1, HDUs: []HDUDiff{{Data: d}}}
	assert.Contains(t, report.String(), "1 additional difference(s) found")
	assert.Contains(t, report.String(), "3 different pixels found (50.00% different)")
}

func TestCloseEnough(t *testing.T) {
	assert.True(t, closeEnough(1, 1+5e-6, 1e-5))
	assert.False(t, closeEnough(1, 1+2e-5, 1e-5))
	assert.True(t, closeEnough(math.NaN(), math.NaN(), 0))
	assert.False(t, closeEnough(math.NaN(), 0, 1))
	assert.True(t, closeEnough(math.Inf(1), math.Inf(1), 0))
	assert.False(t, closeEnough(math.Inf(1), math.Inf(-1), 1))
}

func TestCoordinate(t *testing.T) {
	axes := []int{4, 3, 2}
	assert.Equal(t, []int{1, 1, 1}, coordinate(0, axes))
	assert.Equal(t, []int{4, 1, 1}, coordinate(3, axes))
	assert.Equal(t, []int{1, 2, 1}, coordinate(4, axes))
	assert.Equal(t, []int{4, 3, 2}, coordinate(23, axes))
}

func TestDecodeImage(t *testing.T) {
	// BITPIX 16 with the unsigned offset convention.
	raw := []byte{0x80, 0x00, 0x00, 0x01, 0xff, 0xff}
	data, err := decodeImage(raw, imageScaling{bitpix: 16, scale: 1, zero: 32768})
	require.NoError(t, err)
	require.Equal(t, []float64{0, 32769, 32767}, data)

	data, err = decodeImage([]byte{0x3f, 0x80, 0x00, 0x00}, imageScaling{bitpix: -32, scale: 2, zero: 1})
	require.NoError(t, err)
	require.Equal(t, []float64{3}, data)

	_, err = decodeImage([]byte{1, 2, 3}, imageScaling{bitpix: 16, scale: 1})
	require.Error(t, err)
	_, err = decodeImage(nil, imageScaling{bitpix: 12, scale: 1})
	require.Error(t, err)
}

func TestDecodeImageBlank(t *testing.T) {
	blank := &fitsio.Card{Name: "BLANK", Value: -1}
	raw := []byte{0x00, 0x02, 0xff, 0xff, 0x00, 0x04}

	data, err := decodeImage(raw, imageScaling{bitpix: 16, scale: 0.5, zero: 10, blank: blank})
	require.NoError(t, err)
	require.Len(t, data, 3)
	assert.Equal(t, 11.0, data[0])
	assert.True(t, math.IsNaN(data[1]), "BLANK pixel is undefined")
	assert.Equal(t, 12.0, data[2])

	// BLANK does not apply to floating point images.
	data, err = decodeImage([]byte{0xbf, 0x80, 0x00, 0x00}, imageScaling{bitpix: -32, scale: 1, blank: blank})
	require.NoError(t, err)
	assert.Equal(t, []float64{-1}, data)

	// two undefined pixels compare equal
	d := diffData([]float64{math.NaN(), 1}, []float64{math.NaN(), 1}, []int{2}, OSIRISOptions())
	assert.Zero(t, d.Count)
}

func TestHeaderCardsWithoutEnd(t *testing.T) {
	hdr := fitsio.NewHeader([]fitsio.Card{
		{Name: "COMMENT", Comment: "one"},
		{Name: "HISTORY", Comment: "two"},
		{Name: "EXPTIME", Value: 1.0},
	}, fitsio.IMAGE_HDU, -64, []int{2})

	var names []string
	for _, card := range headerCards(hdr) {
		names = append(names, card.Name)
	}
	assert.Subset(t, names, []string{"COMMENT", "HISTORY", "EXPTIME"})
	assert.NotContains(t, names, "END")
}

func TestIdenticalReport(t *testing.T) {
	report := compare([]hduSnapshot{image()}, []hduSnapshot{image()})
	require.True(t, report.Identical())
	require.Contains(t, report.String(), "No differences found.")
	require.Contains(t, report.String(), "Keyword(s) not to be compared:\n  COMMENT")
	require.Contains(t, report.String(), "Absolute tolerance: 1e-05")
}
