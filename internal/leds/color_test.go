package leds

import "testing"

func TestLerpEndpoints(t *testing.T) {
	a := Color{R: 10, G: 20, B: 30}
	b := Color{R: 200, G: 100, B: 0}

	if got := Lerp(a, b, 0); got != a {
		t.Fatalf("Lerp(t=0): got %v, want %v", got, a)
	}
	if got := Lerp(a, b, 1); got != b {
		t.Fatalf("Lerp(t=1): got %v, want %v", got, b)
	}
	if got := Lerp(a, b, -0.5); got != a {
		t.Fatalf("Lerp(t<0): got %v, want %v", got, a)
	}
	if got := Lerp(a, b, 1.5); got != b {
		t.Fatalf("Lerp(t>1): got %v, want %v", got, b)
	}
}

func TestLerpMidpoint(t *testing.T) {
	got := Lerp(Color{}, Color{R: 255, G: 255, B: 255}, 0.5)
	want := Color{R: 128, G: 128, B: 128}
	if got != want {
		t.Fatalf("Lerp(t=0.5): got %v, want %v", got, want)
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{in: "#00ff00", want: Green},
		{in: "ff00ff", want: Magenta},
		{in: "#FFA500", want: Orange},
		{in: "red", wantErr: true},
		{in: "#12345", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseHex(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseHex(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseHex(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPaletteResolve(t *testing.T) {
	p := DefaultPalette()

	c, err := p.Resolve("GREEN")
	if err != nil {
		t.Fatalf("Resolve(GREEN): %v", err)
	}
	if c != Green {
		t.Fatalf("Resolve(GREEN): got %v, want %v", c, Green)
	}

	c, err = p.Resolve("#010203")
	if err != nil {
		t.Fatalf("Resolve(hex): %v", err)
	}
	if want := (Color{R: 1, G: 2, B: 3}); c != want {
		t.Fatalf("Resolve(hex): got %v, want %v", c, want)
	}

	if _, err := p.Resolve("plaid"); err == nil {
		t.Fatal("Resolve(plaid): expected error")
	}
}

func TestGammaTable(t *testing.T) {
	if gamma[0] != 0 {
		t.Fatalf("gamma[0] = %d, want 0", gamma[0])
	}
	if gamma[255] != 255 {
		t.Fatalf("gamma[255] = %d, want 255", gamma[255])
	}
	for i := 1; i < 256; i++ {
		if gamma[i] < gamma[i-1] {
			t.Fatalf("gamma not monotonic at %d: %d < %d", i, gamma[i], gamma[i-1])
		}
	}
}

func TestScale8(t *testing.T) {
	if got := scale8(255, 255); got != 255 {
		t.Fatalf("scale8(255,255) = %d, want 255", got)
	}
	if got := scale8(255, 0); got != 0 {
		t.Fatalf("scale8(255,0) = %d, want 0", got)
	}
	if got := scale8(200, 128); got != 100 {
		t.Fatalf("scale8(200,128) = %d, want 100", got)
	}
}
