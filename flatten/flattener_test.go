package flatten

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTime struct {
	Sec     int32  `msg:"sec"`
	Nanosec uint32 `msg:"nanosec"`
}

type testHeader struct {
	Stamp   testTime `msg:"stamp"`
	FrameID string   `msg:"frame_id"`
}

type testPoint struct {
	X float64 `msg:"x"`
	Y float64 `msg:"y"`
	Z float64 `msg:"z"`
}

type testQuaternion struct {
	X float64 `msg:"x"`
	Y float64 `msg:"y"`
	Z float64 `msg:"z"`
	W float64 `msg:"w"`
}

type testPose struct {
	Position    testPoint      `msg:"position"`
	Orientation testQuaternion `msg:"orientation"`
}

type testPoseStamped struct {
	Header testHeader `msg:"header"`
	Pose   testPose   `msg:"pose"`
}

func poseStamped() *testPoseStamped {
	return &testPoseStamped{
		Header: testHeader{
			Stamp:   testTime{Sec: 1234567890, Nanosec: 123456789},
			FrameID: "base_link",
		},
		Pose: testPose{
			Position:    testPoint{X: 1, Y: 2, Z: 3},
			Orientation: testQuaternion{W: 1},
		},
	}
}

// fakeMessage implements Structured directly, the way message library adapters do.
type fakeMessage struct {
	names  []string
	values map[string]any
	errs   map[string]error
	panics map[string]bool
}

func (m *fakeMessage) FieldNames() []string { return m.names }

func (m *fakeMessage) Field(name string) (any, error) {
	if m.panics[name] {
		panic("adapter exploded")
	}
	if err, ok := m.errs[name]; ok {
		return nil, err
	}
	return m.values[name], nil
}

func TestFlattenPoseStamped(t *testing.T) {
	rec := New(Options{}).Flatten(poseStamped())

	assert.Equal(t, []string{
		"header.stamp.sec", "header.stamp.nanosec", "header.frame_id",
		"pose.position.x", "pose.position.y", "pose.position.z",
		"pose.orientation.x", "pose.orientation.y", "pose.orientation.z", "pose.orientation.w",
	}, rec.Keys())

	sec, ok := rec.Get("header.stamp.sec")
	require.True(t, ok)
	assert.Equal(t, KindScalar, sec.Kind())
	assert.Equal(t, int64(1234567890), sec.Scalar())

	frame, _ := rec.Get("header.frame_id")
	assert.Equal(t, "base_link", frame.Scalar())

	w, _ := rec.Get("pose.orientation.w")
	assert.Equal(t, 1.0, w.Scalar())
}

func TestFlattenScalarLeaves(t *testing.T) {
	msg := map[string]any{
		"a": 1,
		"b": "two",
		"c": true,
		"d": nil,
		"e": map[string]any{"e1": 2, "e2": 3.02e-5},
	}

	rec := New(Options{}).Flatten(msg)

	assert.Equal(t, map[string]any{
		"a":    int64(1),
		"b":    "two",
		"c":    true,
		"d":    nil,
		"e.e1": int64(2),
		"e.e2": 3.02e-5,
	}, rec.Map())
	assert.Equal(t, []string{"a", "b", "c", "d", "e.e1", "e.e2"}, rec.Keys())
}

func TestFlattenSequences(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  map[string]any
	}{
		{
			name:  "empty",
			value: []float64{},
			want:  map[string]any{},
		},
		{
			name:  "short",
			value: []float64{1.5, 2.5, 3.5},
			want:  map[string]any{"values[0]": 1.5, "values[1]": 2.5, "values[2]": 3.5},
		},
		{
			name:  "exactly five",
			value: [5]int32{1, 2, 3, 4, 5},
			want: map[string]any{
				"values[0]": int64(1), "values[1]": int64(2), "values[2]": int64(3),
				"values[3]": int64(4), "values[4]": int64(5),
			},
		},
		{
			name:  "long",
			value: []float64{1, 2, 3, 4, 5, 6},
			want:  map[string]any{"values": "[1,2,3,4,5,6]"},
		},
		{
			name:  "nested sequence element",
			value: []any{[]int{1, 2}},
			want:  map[string]any{"values[0]": "[1,2]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := New(Options{}).Flatten(map[string]any{"values": tt.value})
			assert.Equal(t, tt.want, rec.Map())
		})
	}
}

func TestFlattenSequenceVariants(t *testing.T) {
	rec := New(Options{}).Flatten(map[string]any{
		"short": []string{"a", "b"},
		"long":  []int{1, 2, 3, 4, 5, 6, 7},
	})

	short, ok := rec.Get("short[1]")
	require.True(t, ok)
	assert.Equal(t, KindIndexed, short.Kind())
	assert.Equal(t, 1, short.Index())
	assert.Equal(t, "b", short.Elem().Scalar())

	long, ok := rec.Get("long")
	require.True(t, ok)
	assert.Equal(t, KindJSON, long.Kind())

	want, err := json.Marshal([]int{1, 2, 3, 4, 5, 6, 7})
	require.NoError(t, err)
	assert.Equal(t, string(want), long.Text())
	_, expanded := rec.Get("long[0]")
	assert.False(t, expanded)
}

func TestFlattenStructuredSequenceElements(t *testing.T) {
	msg := map[string]any{
		"points": []testPoint{{X: 1}, {Y: 2}},
	}

	rec := New(Options{}).Flatten(msg)

	assert.Equal(t, []string{
		"points[0].x", "points[0].y", "points[0].z",
		"points[1].x", "points[1].y", "points[1].z",
	}, rec.Keys())
	v, _ := rec.Get("points[1].y")
	assert.Equal(t, 2.0, v.Scalar())
}

func TestFlattenMaxSequenceExpandOption(t *testing.T) {
	msg := map[string]any{"v": []int{1, 2, 3}}

	rec := New(Options{MaxSequenceExpand: 2}).Flatten(msg)
	assert.Equal(t, map[string]any{"v": "[1,2,3]"}, rec.Map())

	rec = New(Options{MaxSequenceExpand: -1}).Flatten(map[string]any{"v": []int{1}})
	assert.Equal(t, map[string]any{"v": "[1]"}, rec.Map())
}

func TestFlattenOpaqueValues(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ch := make(chan int)

	rec := New(Options{}).Flatten(map[string]any{
		"when": ts,
		"ch":   ch,
		"c":    complex(1, 2),
	})

	when, _ := rec.Get("when")
	assert.Equal(t, ts.String(), when.Scalar())
	c, _ := rec.Get("c")
	assert.Equal(t, "(1+2i)", c.Scalar())
	_, ok := rec.Get("ch")
	assert.True(t, ok)
}

func TestFlattenPointers(t *testing.T) {
	n := 42
	var nilPoint *testPoint

	rec := New(Options{}).Flatten(map[string]any{
		"n":     &n,
		"empty": nilPoint,
		"p":     &testPoint{X: 1},
	})

	assert.Equal(t, map[string]any{
		"n":     int64(42),
		"empty": nil,
		"p.x":   1.0,
		"p.y":   0.0,
		"p.z":   0.0,
	}, rec.Map())
}

func TestFlattenFieldErrorsDoNotAbortRecord(t *testing.T) {
	msg := &fakeMessage{
		names: []string{"ok", "broken", "exploding", "after"},
		values: map[string]any{
			"ok":    1,
			"after": "still here",
		},
		errs:   map[string]error{"broken": errors.New("attribute missing")},
		panics: map[string]bool{"exploding": true},
	}

	rec := New(Options{}).Flatten(msg)

	assert.Equal(t, []string{"ok", "broken", "exploding", "after"}, rec.Keys())

	broken, _ := rec.Get("broken")
	assert.Equal(t, KindError, broken.Kind())
	assert.Equal(t, "attribute missing", broken.Text())
	assert.Equal(t, "<error: attribute missing>", broken.Interface())

	exploding, _ := rec.Get("exploding")
	assert.True(t, exploding.IsError())
	assert.Contains(t, exploding.Text(), "panicked")

	after, _ := rec.Get("after")
	assert.Equal(t, "still here", after.Scalar())
}

func TestFlattenNestedFieldError(t *testing.T) {
	inner := &fakeMessage{
		names: []string{"x"},
		errs:  map[string]error{"x": fmt.Errorf("decode: %w", ErrNoField)},
	}
	outer := map[string]any{"inner": inner, "y": 2}

	rec := New(Options{}).Flatten(outer)

	x, ok := rec.Get("inner.x")
	require.True(t, ok)
	assert.True(t, x.IsError())
	y, _ := rec.Get("y")
	assert.Equal(t, int64(2), y.Scalar())
}

type node struct {
	Name string `msg:"name"`
	Next *node  `msg:"next"`
}

func TestFlattenReferenceCycle(t *testing.T) {
	a := &node{Name: "a"}
	b := &node{Name: "b", Next: a}
	a.Next = b

	rec := New(Options{}).Flatten(a)

	assert.Equal(t, []string{"name", "next.name", "next.next"}, rec.Keys())
	cycle, _ := rec.Get("next.next")
	assert.True(t, cycle.IsError())
	assert.Contains(t, cycle.Text(), "cycle")
}

func TestFlattenSelfReferencingMap(t *testing.T) {
	m := map[string]any{"id": 1}
	m["self"] = m

	rec := New(Options{}).Flatten(m)

	self, ok := rec.Get("self")
	require.True(t, ok)
	assert.True(t, self.IsError())
}

func TestFlattenMaxDepth(t *testing.T) {
	msg := map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}

	rec := New(Options{MaxDepth: 2}).Flatten(msg)

	c, ok := rec.Get("a.b.c")
	require.True(t, ok)
	assert.True(t, c.IsError())
	assert.Contains(t, c.Text(), "depth")
}

func TestFlattenNonStructuredRoot(t *testing.T) {
	f := New(Options{})

	assert.Equal(t, map[string]any{"value": 3.5}, f.Flatten(3.5).Map())
	assert.Equal(t, map[string]any{"value[0]": int64(1)}, f.Flatten([]int{1}).Map())
	assert.Equal(t, map[string]any{"data": "x"}, f.FlattenPrefix("x", "data").Map())
}

func TestFlattenPrefix(t *testing.T) {
	rec := New(Options{}).FlattenPrefix(testPoint{X: 1}, "pose.position")
	assert.Equal(t, []string{"pose.position.x", "pose.position.y", "pose.position.z"}, rec.Keys())
}

func TestFlattenDeterministic(t *testing.T) {
	msg := map[string]any{
		"z":      1,
		"a":      []any{map[string]any{"k2": 1, "k1": 2}, "s"},
		"m":      map[string]any{"y": []float64{1, 2, 3, 4, 5, 6, 7}, "x": true},
		"header": poseStamped().Header,
	}

	f := New(Options{})
	first := f.Flatten(msg)
	for i := 0; i < 20; i++ {
		assert.True(t, first.Equal(f.Flatten(msg)), "run %d differs", i)
	}
}

func TestLookup(t *testing.T) {
	msg := poseStamped()

	sec, ok := Lookup(msg, "header", "stamp", "sec")
	require.True(t, ok)
	assert.Equal(t, int32(1234567890), sec)

	_, ok = Lookup(msg, "header", "missing")
	assert.False(t, ok)

	_, ok = Lookup(42, "header")
	assert.False(t, ok)
}

func TestStructTags(t *testing.T) {
	type tagged struct {
		Visible int `msg:"visible"`
		Hidden  int `msg:"-"`
		Plain   string
		private int
	}

	rec := New(Options{}).Flatten(tagged{Visible: 1, Hidden: 2, Plain: "p", private: 3})
	assert.Equal(t, map[string]any{"visible": int64(1), "Plain": "p"}, rec.Map())
}

func TestFlattenLongSequenceNonFiniteFloats(t *testing.T) {
	inf, nan := math.Inf(1), math.NaN()
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"float64", []float64{1, 2, inf, 4, 5, nan}, "[1,2,null,4,5,null]"},
		{"float32", []float32{1, 2, float32(inf), 4, 5, float32(math.Inf(-1))}, "[1,2,null,4,5,null]"},
		{"nested", []any{1.5, []float64{nan}, 3, 4, 5, 6}, "[1.5,[null],3,4,5,6]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := New(Options{}).Flatten(map[string]any{"ranges": tt.value})
			v, ok := rec.Get("ranges")
			require.True(t, ok)
			require.Equal(t, KindJSON, v.Kind(), v.String())
			assert.True(t, json.Valid([]byte(v.Text())))
			assert.Equal(t, tt.want, v.Text())
		})
	}
}

func TestFlattenByteSequences(t *testing.T) {
	rec := New(Options{}).Flatten(map[string]any{
		"data":  []byte{1, 2, 3, 4, 5, 255},
		"short": []byte{7, 8},
		"fixed": [6]uint8{0, 1, 0, 1, 0, 1},
	})

	v, ok := rec.Get("data")
	require.True(t, ok)
	assert.Equal(t, KindJSON, v.Kind())
	assert.Equal(t, "[1,2,3,4,5,255]", v.Text())

	fixed, _ := rec.Get("fixed")
	assert.Equal(t, "[0,1,0,1,0,1]", fixed.Text())

	short, ok := rec.Get("short[1]")
	require.True(t, ok)
	assert.Equal(t, int64(8), short.Elem().Scalar())
}

func TestFlattenLongSequenceOfStructs(t *testing.T) {
	points := make([]testPoint, 6)
	for i := range points {
		points[i] = testPoint{X: float64(i)}
	}

	rec := New(Options{}).Flatten(map[string]any{"points": points})
	v, ok := rec.Get("points")
	require.True(t, ok)
	assert.Equal(t, KindJSON, v.Kind())
	assert.Equal(t,
		`[{"x":0,"y":0,"z":0},{"x":1,"y":0,"z":0},{"x":2,"y":0,"z":0},`+
			`{"x":3,"y":0,"z":0},{"x":4,"y":0,"z":0},{"x":5,"y":0,"z":0}]`,
		v.Text())
}

func TestFlattenLongSequenceAdapterError(t *testing.T) {
	bad := &fakeMessage{names: []string{"a"}, errs: map[string]error{"a": errors.New("gone")}}
	elems := []any{1, 2, 3, 4, 5, bad}

	rec := New(Options{}).Flatten(map[string]any{"items": elems, "ok": true})
	v, ok := rec.Get("items")
	require.True(t, ok)
	assert.True(t, v.IsError())
	assert.Contains(t, v.Text(), "gone")

	okVal, _ := rec.Get("ok")
	assert.Equal(t, true, okVal.Scalar())
}

func TestFlattenDeterministicWithNaN(t *testing.T) {
	msg := map[string]any{"reading": math.NaN(), "range": float32(math.NaN())}

	f := New(Options{})
	assert.True(t, f.Flatten(msg).Equal(f.Flatten(msg)))
	assert.False(t, ScalarValue(math.NaN()).Equal(ScalarValue(1.0)))
}

func TestEncodeJSON(t *testing.T) {
	data, err := EncodeJSON(poseStamped())
	require.NoError(t, err)
	assert.Equal(t,
		`{"header":{"stamp":{"sec":1234567890,"nanosec":123456789},"frame_id":"base_link"},`+
			`"pose":{"position":{"x":1,"y":2,"z":3},"orientation":{"x":0,"y":0,"z":0,"w":1}}}`,
		string(data))

	cyclic := map[string]any{}
	cyclic["self"] = cyclic
	_, err = EncodeJSON(cyclic)
	assert.ErrorContains(t, err, "reference cycle")
}
