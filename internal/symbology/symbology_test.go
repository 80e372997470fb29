package symbology

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/joeblew999/plat-style/internal/sprite"
	"github.com/joeblew999/plat-style/internal/style"
)

func marker(size, color string) *Symbol {
	return &Symbol{Kind: SimpleMarker, Properties: map[string]string{"size": size, "color": color}}
}

func svgMarker(path string) *Symbol {
	return &Symbol{Kind: SvgMarker, Path: path, Properties: map[string]string{"size": "10"}}
}

func TestClassify(t *testing.T) {
	renderers := map[string]*Renderer{
		"single":      {Kind: Single, Symbol: marker("2", "1,2,3,255")},
		"categorized": {Kind: Categorized, Attribute: "kind", Categories: []Category{{Value: "a", Symbol: marker("2", "1,2,3,255")}}},
		"graduated":   {Kind: Graduated, Attribute: "pop", Ranges: []Range{{Lower: 0, Upper: 10, Symbol: marker("2", "1,2,3,255")}}},
	}

	for name, r := range renderers {
		t.Run(name+"/line", func(t *testing.T) {
			c, err := Classify(r, Line)
			if err != nil {
				t.Fatal(err)
			}
			if c.LayerType != style.Line {
				t.Errorf("LayerType = %s, want line", c.LayerType)
			}
		})
		t.Run(name+"/polygon", func(t *testing.T) {
			c, _ := Classify(r, Polygon)
			if c.LayerType != style.Fill {
				t.Errorf("LayerType = %s, want fill", c.LayerType)
			}
		})
		t.Run(name+"/point", func(t *testing.T) {
			c, _ := Classify(r, Point)
			if c.LayerType != style.Circle {
				t.Errorf("LayerType = %s, want circle", c.LayerType)
			}
		})
	}

	c, err := Classify(renderers["categorized"], Point)
	if err != nil || c.Function != style.Categorical || c.Attribute != "kind" {
		t.Errorf("categorized classification = %+v, %v", c, err)
	}
	c, _ = Classify(renderers["graduated"], Point)
	if c.Function != style.Interval || c.Attribute != "pop" {
		t.Errorf("graduated classification = %+v", c)
	}
	c, _ = Classify(renderers["single"], Point)
	if c.Function != "" || c.Attribute != "" {
		t.Errorf("single classification = %+v", c)
	}
}

func TestClassifyIconUsesFirstCategoryOnly(t *testing.T) {
	r := &Renderer{Kind: Categorized, Attribute: "k", Categories: []Category{
		{Value: "a", Symbol: svgMarker("/icons/a.svg")},
		{Value: "b", Symbol: marker("3", "0,0,0,255")},
	}}
	c, err := Classify(r, Point)
	if err != nil {
		t.Fatal(err)
	}
	if c.LayerType != style.Symbol {
		t.Fatalf("LayerType = %s, want symbol", c.LayerType)
	}

	r.Categories[0], r.Categories[1] = r.Categories[1], r.Categories[0]
	if c, _ := Classify(r, Point); c.LayerType != style.Circle {
		t.Fatalf("LayerType = %s, want circle when the first category is a plain marker", c.LayerType)
	}
}

func TestClassifyUnsupported(t *testing.T) {
	_, err := Classify(&Renderer{Kind: "heatmap"}, Point)
	if !errors.Is(err, ErrUnsupportedRenderer) {
		t.Fatalf("error = %v, want ErrUnsupportedRenderer", err)
	}
}

func TestBuildPaintConstantCircle(t *testing.T) {
	a := 0.5
	sym := &Symbol{Kind: SimpleMarker, Alpha: &a, Properties: map[string]string{
		"size": "4", "color": "255,0,0,255", "outline_color": "#0000ff", "outline_width": "0.5",
	}}
	r := &Renderer{Kind: Single, Symbol: sym}
	c, _ := Classify(r, Point)
	set, _ := r.Symbols()
	paint, sprites, err := BuildPaint(set, c, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sprites.Len() != 0 {
		t.Errorf("circle layer produced %d sprites", sprites.Len())
	}
	want := map[string]any{
		style.CircleRadius:      4.0,
		style.CircleColor:       "rgb(255,0,0)",
		style.CircleOpacity:     0.5,
		style.CircleStrokeWidth: 0.5,
		style.CircleStrokeColor: "rgb(0,0,255)",
	}
	for prop, v := range want {
		if got := paint[prop].Literal(); got != v {
			t.Errorf("%s = %v, want %v", prop, got, v)
		}
	}
}

func TestBuildPaintDefaults(t *testing.T) {
	r := &Renderer{Kind: Single, Symbol: &Symbol{Kind: SimpleLine}}
	c, _ := Classify(r, Line)
	set, _ := r.Symbols()
	paint, _, err := BuildPaint(set, c, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := paint[style.LineWidth].Literal(); got != 1.0 {
		t.Errorf("line-width = %v, want default 1", got)
	}
	if got := paint[style.LineColor].Literal(); got != "rgb(0,0,0)" {
		t.Errorf("line-color = %v, want default black", got)
	}
	if _, ok := paint[style.LineOffset]; ok {
		t.Error("line-offset should be omitted when the symbol has no offset")
	}
	dash, _ := paint[style.LineDashArray].Literal().([]float64)
	if len(dash) != 1 || dash[0] != 1 {
		t.Errorf("line-dasharray = %v, want [1]", dash)
	}
}

func TestBuildPaintOmitsAllNullFunctions(t *testing.T) {
	r := &Renderer{Kind: Categorized, Attribute: "k", Categories: []Category{
		{Value: "a", Symbol: &Symbol{Kind: SimpleFill, Properties: map[string]string{"color": "1,1,1,255"}}},
		{Value: "b", Symbol: &Symbol{Kind: SimpleFill, Properties: map[string]string{"color": "2,2,2,255"}}},
	}}
	c, _ := Classify(r, Polygon)
	set, _ := r.Symbols()
	paint, _, err := BuildPaint(set, c, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, prop := range []string{style.FillPattern, style.FillTranslate} {
		if _, ok := paint[prop]; ok {
			t.Errorf("%s emitted although every stop is null", prop)
		}
	}
	for prop, v := range paint {
		fn := v.Function()
		if fn == nil {
			t.Fatalf("%s is not a function", prop)
		}
		allNull := true
		for _, s := range fn.Stops {
			if s.Out != nil {
				allNull = false
			}
		}
		if allNull {
			t.Errorf("%s has only null stops", prop)
		}
	}
	fn := paint[style.FillColor].Function()
	if fn.Property != "k" || fn.Type != style.Categorical || len(fn.Stops) != 2 || fn.Stops[1].Out != "rgb(2,2,2)" {
		t.Errorf("fill-color = %+v", fn)
	}
}

func TestBuildPaintPartialStopsKeepNulls(t *testing.T) {
	r := &Renderer{Kind: Graduated, Attribute: "v", Ranges: []Range{
		{Lower: 0, Upper: 5, Symbol: &Symbol{Kind: SimpleLine, Properties: map[string]string{"offset": "2"}}},
		{Lower: 5, Upper: 9, Symbol: &Symbol{Kind: SimpleLine}},
	}}
	c, _ := Classify(r, Line)
	set, _ := r.Symbols()
	paint, _, _ := BuildPaint(set, c, nil)
	fn := paint[style.LineOffset].Function()
	if fn == nil || fn.Type != style.Interval {
		t.Fatalf("line-offset = %+v", paint[style.LineOffset])
	}
	if fn.Stops[0].In != 0.0 || fn.Stops[0].Out != 2.0 || fn.Stops[1].In != 5.0 || fn.Stops[1].Out != nil {
		t.Errorf("stops = %+v", fn.Stops)
	}
}

type fakeIcons struct{ calls []float64 }

func (f *fakeIcons) Render(path string, size float64) (image.Image, error) {
	f.calls = append(f.calls, size)
	px := int(size)
	return image.NewRGBA(image.Rect(0, 0, px, px)), nil
}

func TestBuildPaintSymbolCollectsDistinctIcons(t *testing.T) {
	r := &Renderer{Kind: Categorized, Attribute: "k", Categories: []Category{
		{Value: "a", Symbol: svgMarker("/icons/pin.svg")},
		{Value: "b", Symbol: svgMarker("/icons/star.svg")},
		{Value: "c", Symbol: svgMarker("/other/pin.svg")},
	}}
	c, _ := Classify(r, Point)
	set, _ := r.Symbols()
	icons := &fakeIcons{}
	paint, sprites, err := BuildPaint(set, c, icons)
	if err != nil {
		t.Fatal(err)
	}
	if sprites.Len() != 2 {
		t.Fatalf("sprites = %v, want pin and star", sprites.Names())
	}
	p, _ := sprites.Get("pin")
	if p.Image.Bounds().Dx() != 10 || p.Image2x.Bounds().Dx() != 20 {
		t.Errorf("pin sizes = %v / %v", p.Image.Bounds(), p.Image2x.Bounds())
	}
	if len(icons.calls) != 4 {
		t.Errorf("render calls = %v, want 4", icons.calls)
	}
	fn := paint[style.IconImage].Function()
	if fn == nil || fn.Stops[2].Out != "pin" {
		t.Errorf("icon-image = %+v", paint[style.IconImage])
	}

	if _, _, err := BuildPaint(set, c, nil); err == nil {
		t.Error("expected error without icon renderer")
	}
}

func TestInterpretSingleCircleRoundTrip(t *testing.T) {
	a := 0.8
	orig := &Renderer{Kind: Single, Symbol: &Symbol{Kind: SimpleMarker, Alpha: &a, Properties: map[string]string{
		"size": "3.5", "color": "10,20,30,255", "outline_color": "0,0,0,255", "outline_width": "0.4",
	}}}
	c, _ := Classify(orig, Point)
	set, _ := orig.Symbols()
	paint, _, _ := BuildPaint(set, c, nil)

	r, err := Interpret(style.Layer{ID: "pts", Type: c.LayerType, Paint: paint}, Point, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Kind != Single {
		t.Fatalf("kind = %s", r.Kind)
	}
	s := r.Symbol
	if math.Abs(*s.Alpha-0.8) > 1e-9 {
		t.Errorf("alpha = %v", *s.Alpha)
	}
	for k, want := range map[string]string{"size": "3.5", "color": "10,20,30,255", "outline_color": "0,0,0,255", "outline_width": "0.4"} {
		if s.Properties[k] != want {
			t.Errorf("%s = %q, want %q", k, s.Properties[k], want)
		}
	}
}

func TestInterpretGraduatedBounds(t *testing.T) {
	l := style.Layer{ID: "roads", Type: style.Line, Paint: style.Paint{
		style.LineColor: style.Func(&style.Function{Property: "lanes", Type: style.Interval, Stops: []style.Stop{
			{In: 1.0, Out: "rgb(1,1,1)"}, {In: 3.0, Out: "rgb(2,2,2)"}, {In: 6.0, Out: "rgb(3,3,3)"},
		}}),
		style.LineWidth: style.Func(&style.Function{Property: "lanes", Type: style.Interval, Stops: []style.Stop{
			{In: 1.0, Out: 1.0}, {In: 3.0, Out: 2.0}, {In: 6.0, Out: 4.0},
		}}),
		style.LineDashArray: style.Literal([]any{3.0, 3.0}),
	}}
	r, err := Interpret(l, Line, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Kind != Graduated || r.Attribute != "lanes" || len(r.Ranges) != 3 {
		t.Fatalf("renderer = %+v", r)
	}
	wantBounds := [][2]float64{{1, 3}, {3, 6}, {6, UnboundedUpper}}
	for i, rg := range r.Ranges {
		if rg.Lower != wantBounds[i][0] || rg.Upper != wantBounds[i][1] {
			t.Errorf("range %d = [%v,%v), want %v", i, rg.Lower, rg.Upper, wantBounds[i])
		}
	}
	if r.Ranges[0].Label != "1-3" {
		t.Errorf("label = %q", r.Ranges[0].Label)
	}
	if w := r.Ranges[2].Symbol.Properties["line_width"]; w != "4" {
		t.Errorf("third width = %q, want 4", w)
	}
	if s := r.Ranges[1].Symbol; s.Properties["line_style"] != "dash" || len(s.DashVector) != 2 {
		t.Errorf("dash = %+v", s)
	}
}

func TestInterpretCategorized(t *testing.T) {
	l := style.Layer{ID: "parcels", Type: style.Fill, Paint: style.Paint{
		style.FillColor: style.Func(&style.Function{Property: "zone", Type: style.Categorical, Stops: []style.Stop{
			{In: "res", Out: "rgb(255,0,0)"}, {In: "com", Out: "rgb(0,0,255)"},
		}}),
		style.FillTranslate: style.Func(&style.Function{Property: "zone", Type: style.Categorical, Stops: []style.Stop{
			{In: "res", Out: "1,2"}, {In: "com", Out: []any{3.0, 4.0}},
		}}),
	}}
	r, err := Interpret(l, Polygon, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Kind != Categorized || len(r.Categories) != 2 || r.Categories[1].Value != "com" {
		t.Fatalf("renderer = %+v", r)
	}
	if got := r.Categories[0].Symbol.Properties["color"]; got != "255,0,0,255" {
		t.Errorf("color = %q", got)
	}
	if got := r.Categories[1].Symbol.Properties["offset"]; got != "3,4" {
		t.Errorf("offset = %q", got)
	}
}

func TestInterpretStopMismatch(t *testing.T) {
	l := style.Layer{ID: "pts", Type: style.Circle, Paint: style.Paint{
		style.CircleRadius: style.Func(&style.Function{Property: "k", Type: style.Categorical, Stops: []style.Stop{
			{In: "a", Out: 1.0}, {In: "b", Out: 2.0},
		}}),
		style.CircleColor: style.Func(&style.Function{Property: "k", Type: style.Categorical, Stops: []style.Stop{
			{In: "a", Out: "rgb(1,1,1)"},
		}}),
	}}
	_, err := Interpret(l, Point, nil)
	var mm *StopMismatchError
	if !errors.As(err, &mm) {
		t.Fatalf("error = %v, want StopMismatchError", err)
	}
	if mm.Property != style.CircleColor || mm.Want != 2 || mm.Got != 1 {
		t.Errorf("mismatch = %+v", mm)
	}
}

func TestInterpretGeometryMismatch(t *testing.T) {
	l := style.Layer{ID: "x", Type: style.Fill, Paint: style.Paint{style.FillColor: style.Literal("rgb(0,0,0)")}}
	if _, err := Interpret(l, Point, nil); !errors.Is(err, ErrGeometryMismatch) {
		t.Fatalf("error = %v, want ErrGeometryMismatch", err)
	}
}

func TestInterpretSymbolLoadsIcons(t *testing.T) {
	l := style.Layer{ID: "poi", Type: style.Symbol, Paint: style.Paint{
		style.IconImage: style.Func(&style.Function{Property: "k", Type: style.Categorical, Stops: []style.Stop{
			{In: "a", Out: "pin"}, {In: "b", Out: "star"},
		}}),
	}}
	loader := func(name string) (sprite.Icon, error) {
		if name == "star" {
			return sprite.Icon{}, &sprite.NotFoundError{Name: name}
		}
		return sprite.Icon{Name: name, SVGPath: "/tmp/" + name + ".svg", Width: 12, Height: 20}, nil
	}
	_, err := Interpret(l, Point, loader)
	var nf *sprite.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}

	l.Paint[style.IconImage] = style.Literal("pin")
	r, err := Interpret(l, Point, loader)
	if err != nil {
		t.Fatal(err)
	}
	if r.Symbol.Kind != SvgMarker || r.Symbol.Path != "/tmp/pin.svg" || r.Symbol.Properties["size"] != "20" {
		t.Errorf("symbol = %+v", r.Symbol)
	}
}

func TestClassifySkipsCategoriesWithoutSymbol(t *testing.T) {
	r := &Renderer{Kind: Categorized, Attribute: "k", Categories: []Category{
		{Value: "none"},
		{Value: "a", Symbol: svgMarker("/icons/a.svg")},
	}}
	if got := r.Representative(); got != r.Categories[1].Symbol {
		t.Fatalf("Representative = %+v, want the first category with a symbol", got)
	}
	c, err := Classify(r, Point)
	if err != nil {
		t.Fatal(err)
	}
	if c.LayerType != style.Symbol {
		t.Errorf("LayerType = %s, want symbol", c.LayerType)
	}

	g := &Renderer{Kind: Graduated, Attribute: "v", Ranges: []Range{
		{Lower: 0, Upper: 1},
		{Lower: 1, Upper: 2, Symbol: svgMarker("/icons/b.svg")},
	}}
	if got := g.Representative(); got != g.Ranges[1].Symbol {
		t.Errorf("graduated Representative = %+v", got)
	}
}

func TestSymbolsEmptyRenderer(t *testing.T) {
	renderers := map[string]*Renderer{
		"single":      {Kind: Single},
		"categorized": {Kind: Categorized, Attribute: "k", Categories: []Category{{Value: "a"}, {Value: "b"}}},
		"graduated":   {Kind: Graduated, Attribute: "v"},
	}
	for name, r := range renderers {
		t.Run(name, func(t *testing.T) {
			if _, err := r.Symbols(); !errors.Is(err, ErrEmptyRenderer) {
				t.Fatalf("error = %v, want ErrEmptyRenderer", err)
			}
		})
	}
}

func TestBuildPaintSvgFillSprites(t *testing.T) {
	r := &Renderer{Kind: Categorized, Attribute: "k", Categories: []Category{
		{Value: "a", Symbol: &Symbol{Kind: SvgFill, Path: "/patterns/hatch.svg", Properties: map[string]string{"size": "8"}}},
		{Value: "b", Symbol: &Symbol{Kind: SimpleFill, Properties: map[string]string{"color": "1,1,1,255"}}},
	}}
	c, _ := Classify(r, Polygon)
	set, _ := r.Symbols()
	icons := &fakeIcons{}
	paint, sprites, err := BuildPaint(set, c, icons)
	if err != nil {
		t.Fatal(err)
	}
	p, ok := sprites.Get("hatch")
	if !ok || sprites.Len() != 1 {
		t.Fatalf("sprites = %v, want hatch", sprites.Names())
	}
	if p.Image.Bounds().Dx() != 8 || p.Image2x.Bounds().Dx() != 16 {
		t.Errorf("hatch sizes = %v / %v", p.Image.Bounds(), p.Image2x.Bounds())
	}
	fn := paint[style.FillPattern].Function()
	if fn == nil || fn.Stops[0].Out != "hatch" || fn.Stops[1].Out != nil {
		t.Fatalf("fill-pattern = %+v", paint[style.FillPattern])
	}

	loader := func(name string) (sprite.Icon, error) {
		return sprite.Icon{Name: name, SVGPath: "/tmp/" + name + ".svg", Width: 8, Height: 8}, nil
	}
	back, err := Interpret(style.Layer{ID: "parcels", Type: c.LayerType, Paint: paint}, Polygon, loader)
	if err != nil {
		t.Fatal(err)
	}
	if s := back.Categories[0].Symbol; s.Kind != SvgFill || s.Path != "/tmp/hatch.svg" {
		t.Errorf("first category = %+v", s)
	}
	if s := back.Categories[1].Symbol; s.Kind != SimpleFill {
		t.Errorf("second category = %+v", s)
	}

	if _, err := Interpret(style.Layer{ID: "parcels", Type: c.LayerType, Paint: paint}, Polygon, nil); err == nil {
		t.Error("expected error for fill-pattern without a sprite sheet")
	}
}
