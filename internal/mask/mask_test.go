package mask

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

func rampMask() *Mask {
	// 3x3 grid: value = column index / 2
	values := []float64{0, 0.5, 1, 0, 0.5, 1, 0, 0.5, 1}
	return New(values, 3, 100, 1)
}

func TestSampleCornersAndCentre(t *testing.T) {
	m := rampMask()
	if v := m.Sample(0, 0); v != 0.5 {
		t.Errorf("centre = %f, want 0.5", v)
	}
	if v := m.Sample(-50, -50); v != 0 {
		t.Errorf("min corner = %f, want 0", v)
	}
	if v := m.Sample(50, 50); v != 1 {
		t.Errorf("max corner = %f, want 1", v)
	}
	if v := m.Sample(25, 0); math.Abs(v-0.75) > 1e-12 {
		t.Errorf("quarter = %f, want 0.75", v)
	}
}

func TestSampleOutsideIsZero(t *testing.T) {
	m := rampMask()
	if v := m.Sample(51, 0); v != 0 {
		t.Errorf("outside = %f, want 0", v)
	}
	var nilMask *Mask
	if v := nilMask.Sample(0, 0); v != 0 {
		t.Errorf("nil mask = %f, want 0", v)
	}
}

func TestSizeScaleStretchesMask(t *testing.T) {
	m := rampMask()
	m.SizeScale = 2
	if v := m.Sample(100, 0); v != 1 {
		t.Errorf("scaled edge = %f, want 1", v)
	}
}

func TestMaskedAndAverage(t *testing.T) {
	m := rampMask()
	if !m.Masked(-50, 0) {
		t.Error("zero cell should be masked")
	}
	if m.Masked(50, 0) {
		t.Error("full cell should not be masked")
	}
	avg := m.Average(-50, -50, 50, 50, 5)
	if math.Abs(avg-0.5) > 1e-12 {
		t.Errorf("average = %f, want 0.5", avg)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := rampMask()
	m.Threshold = 0.2
	m.Sentinel = -7

	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Resolution != 3 || got.WorldWidth != 100 || got.Threshold != 0.2 || got.Sentinel != -7 {
		t.Errorf("header mismatch: %+v", got)
	}
	for i := range m.Values {
		if got.Values[i] != m.Values[i] {
			t.Fatalf("value %d = %f, want %f", i, got.Values[i], m.Values[i])
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader(make([]byte, 64)))
	if !errors.Is(err, ErrBadMask) {
		t.Errorf("err = %v, want ErrBadMask", err)
	}
}

func TestEncodeRejectsSizeMismatch(t *testing.T) {
	m := New([]float64{1, 2}, 3, 10, 1)
	if err := m.Encode(&bytes.Buffer{}); !errors.Is(err, ErrBadMask) {
		t.Errorf("err = %v, want ErrBadMask", err)
	}
}

func TestFromImageLuminance(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	m := FromImage(img, 4, 64, 1)
	for i, v := range m.Values {
		if math.Abs(v-1) > 1e-3 {
			t.Fatalf("value %d = %f, want 1", i, v)
		}
	}
}

func TestIslandCentreAndEdges(t *testing.T) {
	m := NewIsland(12345, 65, 1000)
	if v := m.Sample(0, 0); v < 0.99 {
		t.Errorf("centre = %f, want ~1", v)
	}
	if v := m.Sample(499, 499); v != 0 {
		t.Errorf("corner = %f, want 0", v)
	}
	for i, v := range m.Values {
		if v < 0 || v > 1 {
			t.Fatalf("value %d = %f out of [0,1]", i, v)
		}
	}
}
