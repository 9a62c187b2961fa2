package fitsdiff

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"runtime"

	"github.com/astrogo/fitsio"
)

// Opener opens a file for reading. The comparer closes what it opens.
type Opener func(name string) (io.ReadCloser, error)

// OSOpener opens files from the local filesystem.
func OSOpener(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

type hduKind int

const (
	kindImage hduKind = iota
	kindASCIITable
	kindBinaryTable
)

func (k hduKind) String() string {
	switch k {
	case kindASCIITable:
		return "TABLE"
	case kindBinaryTable:
		return "BINTABLE"
	default:
		return "IMAGE"
	}
}

// hduSnapshot is the part of an HDU the comparison looks at.
type hduSnapshot struct {
	kind    hduKind
	extName string
	bitpix  int
	axes    []int
	cards   []fitsio.Card

	data []float64 // images only, scaled with BSCALE/BZERO
	rows int64     // tables only
	cols int
}

// fitsFile ties a decoded FITS file to the handle it was read from.
type fitsFile struct {
	rc   io.ReadCloser
	file *fitsio.File
}

func openFITS(open Opener, name string) (*fitsFile, error) {
	rc, err := open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	file, err := fitsio.Open(rc)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return &fitsFile{rc: rc, file: file}, nil
}

func (f *fitsFile) Close() error {
	return errors.Join(f.file.Close(), f.rc.Close())
}

// snapshot extracts every HDU.
func (f *fitsFile) snapshot() ([]hduSnapshot, error) {
	hdus := f.file.HDUs()
	snaps := make([]hduSnapshot, 0, len(hdus))
	for i, hdu := range hdus {
		snap, err := snapshotHDU(hdu)
		if err != nil {
			return nil, fmt.Errorf("hdu %d: %w", i, err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func snapshotHDU(hdu fitsio.HDU) (hduSnapshot, error) {
	hdr := hdu.Header()
	snap := hduSnapshot{
		bitpix: hdr.Bitpix(),
		axes:   append([]int(nil), hdr.Axes()...),
		cards:  headerCards(hdr),
	}
	if card := hdr.Get("EXTNAME"); card != nil {
		snap.extName = fmt.Sprint(card.Value)
	}

	switch h := hdu.(type) {
	case fitsio.Image:
		data, err := decodeImage(h.Raw(), imageScaling{
			bitpix: hdr.Bitpix(),
			scale:  cardFloat(hdr, "BSCALE", 1),
			zero:   cardFloat(hdr, "BZERO", 0),
			blank:  hdr.Get("BLANK"),
		})
		if err != nil {
			return snap, err
		}
		snap.kind = kindImage
		snap.data = data
	case *fitsio.Table:
		snap.kind = kindBinaryTable
		if h.Type() == fitsio.ASCII_TBL {
			snap.kind = kindASCIITable
		}
		snap.rows = h.NumRows()
		snap.cols = h.NumCols()
	default:
		return snap, fmt.Errorf("unsupported HDU type %T", hdu)
	}
	return snap, nil
}

// headerCards returns the cards of hdr up to END. Header.Keys leaves out
// COMMENT, HISTORY and blank cards, so its positions cannot be used with
// Header.Card.
func headerCards(hdr *fitsio.Header) (cards []fitsio.Card) {
	// Card panics past the last card of a header that has no END card.
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); !ok {
				panic(r)
			}
		}
	}()
	for i := 0; ; i++ {
		card := hdr.Card(i)
		if card.Name == "END" {
			return cards
		}
		cards = append(cards, *card)
	}
}

func cardFloat(hdr *fitsio.Header, name string, def float64) float64 {
	card := hdr.Get(name)
	if card == nil {
		return def
	}
	if v, ok := toFloat(card.Value); ok {
		return v
	}
	return def
}

// imageScaling describes how stored pixels map to physical values.
type imageScaling struct {
	bitpix      int
	scale, zero float64
	blank       *fitsio.Card // BLANK, integer images only
}

// decodeImage converts big-endian FITS pixel data to physical values.
// Integer pixels equal to BLANK are undefined and decode to NaN.
func decodeImage(raw []byte, sc imageScaling) ([]float64, error) {
	switch sc.bitpix {
	case 8, 16, 32, 64, -32, -64:
	default:
		return nil, fmt.Errorf("invalid BITPIX %d", sc.bitpix)
	}
	size := sc.bitpix / 8
	if size < 0 {
		size = -size
	}
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("image data of %d bytes is not a multiple of %d", len(raw), size)
	}

	var (
		blank    int64
		hasBlank bool
	)
	if sc.blank != nil && sc.bitpix > 0 {
		if v, ok := toFloat(sc.blank.Value); ok {
			blank, hasBlank = int64(v), true
		}
	}

	out := make([]float64, len(raw)/size)
	for i := range out {
		b := raw[i*size : (i+1)*size]
		var (
			n int64
			v float64
		)
		switch sc.bitpix {
		case 8:
			n = int64(b[0])
		case 16:
			n = int64(int16(binary.BigEndian.Uint16(b)))
		case 32:
			n = int64(int32(binary.BigEndian.Uint32(b)))
		case 64:
			n = int64(binary.BigEndian.Uint64(b))
		case -32:
			v = float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
		case -64:
			v = math.Float64frombits(binary.BigEndian.Uint64(b))
		}
		if sc.bitpix > 0 {
			if hasBlank && n == blank {
				out[i] = math.NaN()
				continue
			}
			v = float64(n)
		}
		out[i] = v*sc.scale + sc.zero
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case *big.Int:
		f, _ := new(big.Float).SetInt(n).Float64()
		return f, true
	default:
		return 0, false
	}
}
