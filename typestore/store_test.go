package typestore

import (
	"math"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/robolake/flatten"
	"github.com/hugr-lab/robolake/internal/msgpack"
)

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition("sensor_msgs/NavSatFix", `
# A GPS fix
std_msgs/Header header
NavSatStatus status   # nested, same package
float64 latitude
float64[9] position_covariance
uint8 COVARIANCE_TYPE_UNKNOWN = 0
uint8 COVARIANCE_TYPE_KNOWN=3
string<=10 label "default"
int32[<=4] bounded
Header[] headers
`)
	require.NoError(t, err)

	assert.Equal(t, "sensor_msgs/msg/NavSatFix", def.Name)
	assert.Equal(t, []Field{
		{Name: "header", Type: "std_msgs/msg/Header"},
		{Name: "status", Type: "sensor_msgs/msg/NavSatStatus"},
		{Name: "latitude", Type: "float64"},
		{Name: "position_covariance", Type: "float64", Array: FixedArray, Len: 9},
		{Name: "label", Type: "string"},
		{Name: "bounded", Type: "int32", Array: Sequence},
		{Name: "headers", Type: "std_msgs/msg/Header", Array: Sequence},
	}, def.Fields)
}

func TestParseDefinitionErrors(t *testing.T) {
	_, err := ParseDefinition("a/msg/B", "float64")
	assert.ErrorIs(t, err, ErrMalformedDefinition)

	_, err = ParseDefinition("a/msg/B", "float64[x] bad")
	assert.ErrorIs(t, err, ErrMalformedDefinition)
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, "std_msgs/msg/Header", NormalizeType("std_msgs/Header"))
	assert.Equal(t, "std_msgs/msg/Header", NormalizeType("std_msgs/msg/Header"))
	assert.Equal(t, "Header", NormalizeType("Header"))
}

func TestBuiltinsParse(t *testing.T) {
	s := New()
	for name := range builtinDefinitions {
		_, ok := s.Lookup(name)
		assert.True(t, ok, name)
	}

	status, ok := s.Lookup("sensor_msgs/msg/NavSatStatus")
	require.True(t, ok)
	require.Len(t, status.Fields, 2)
	assert.Equal(t, "status", status.Fields[0].Name)
	assert.Equal(t, "service", status.Fields[1].Name)
}

func TestEncodeDecodePoseStamped(t *testing.T) {
	s := New()
	raw, err := s.Encode("geometry_msgs/msg/PoseStamped", map[string]any{
		"header": map[string]any{
			"stamp":    map[string]any{"sec": 1234567890, "nanosec": 123456789},
			"frame_id": "base_link",
		},
		"pose": map[string]any{
			"position":    map[string]any{"x": 1.0, "y": 2.0, "z": 3.0},
			"orientation": map[string]any{"w": 1.0},
		},
	})
	require.NoError(t, err)

	msg, err := s.Decode(raw, "geometry_msgs/PoseStamped")
	require.NoError(t, err)
	assert.Equal(t, "geometry_msgs/msg/PoseStamped", msg.Type())
	assert.Equal(t, []string{"header", "pose"}, msg.FieldNames())

	rec := flatten.New(flatten.Options{}).Flatten(msg)
	assert.Equal(t, []string{
		"header.stamp.sec", "header.stamp.nanosec", "header.frame_id",
		"pose.position.x", "pose.position.y", "pose.position.z",
		"pose.orientation.x", "pose.orientation.y", "pose.orientation.z", "pose.orientation.w",
	}, rec.Keys())

	m := rec.Map()
	assert.Equal(t, int64(1234567890), m["header.stamp.sec"])
	assert.Equal(t, int64(123456789), m["header.stamp.nanosec"])
	assert.Equal(t, "base_link", m["header.frame_id"])
	assert.Equal(t, 3.0, m["pose.position.z"])
	assert.Equal(t, 1.0, m["pose.orientation.w"])
}

func TestEncodeDecodeArraysAndAlignment(t *testing.T) {
	s := New()
	raw, err := s.Encode("sensor_msgs/msg/Image", map[string]any{
		"header":       map[string]any{"frame_id": "cam"},
		"height":       2,
		"width":        3,
		"encoding":     "mono8",
		"is_bigendian": 0,
		"step":         3,
		"data":         []byte{1, 2, 3, 4, 5, 6},
	})
	require.NoError(t, err)

	msg, err := s.Decode(raw, "sensor_msgs/msg/Image")
	require.NoError(t, err)

	data, err := msg.Field("data")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, data)

	enc, err := msg.Field("encoding")
	require.NoError(t, err)
	assert.Equal(t, "mono8", enc)

	width, err := msg.Field("width")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), width)
}

func TestDecodeImuCovariance(t *testing.T) {
	s := New()
	cov := []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	raw, err := s.Encode("sensor_msgs/msg/Imu", map[string]any{
		"orientation":                 map[string]any{"w": 1.0},
		"orientation_covariance":      cov,
		"linear_acceleration":         map[string]any{"z": 9.81},
		"angular_velocity_covariance": cov,
	})
	require.NoError(t, err)

	msg, err := s.Decode(raw, "sensor_msgs/msg/Imu")
	require.NoError(t, err)

	rec := flatten.New(flatten.Options{}).Flatten(msg)
	got, ok := rec.Get("orientation_covariance")
	require.True(t, ok)
	assert.Equal(t, flatten.KindJSON, got.Kind())
	want, _ := json.Marshal(cov)
	assert.Equal(t, string(want), got.Text())

	z, _ := rec.Get("linear_acceleration.z")
	assert.Equal(t, 9.81, z.Scalar())
}

func TestDecodeSequenceOfMessages(t *testing.T) {
	s := New()
	raw, err := s.Encode("tf2_msgs/msg/TFMessage", map[string]any{
		"transforms": []any{
			map[string]any{"child_frame_id": "base", "transform": map[string]any{"translation": map[string]any{"x": 1.0}}},
			map[string]any{"child_frame_id": "lidar"},
		},
	})
	require.NoError(t, err)

	msg, err := s.Decode(raw, "tf2_msgs/msg/TFMessage")
	require.NoError(t, err)

	rec := flatten.New(flatten.Options{}).Flatten(msg)
	m := rec.Map()
	assert.Equal(t, "base", m["transforms[0].child_frame_id"])
	assert.Equal(t, 1.0, m["transforms[0].transform.translation.x"])
	assert.Equal(t, "lidar", m["transforms[1].child_frame_id"])
}

func TestDecodeBigEndian(t *testing.T) {
	s := New()
	raw := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x2a}

	msg, err := s.Decode(raw, "std_msgs/msg/Int32")
	require.NoError(t, err)
	v, err := msg.Field("data")
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestDecodeErrors(t *testing.T) {
	s := New()

	_, err := s.Decode([]byte{0x00, 0x01, 0x00, 0x00}, "custom_msgs/msg/Missing")
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = s.Decode([]byte{0x00}, "std_msgs/msg/Int32")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = s.Decode([]byte{0x00, 0x01, 0x00, 0x00, 0x01}, "std_msgs/msg/Float64")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = s.Decode([]byte{0x00, 0x07, 0x00, 0x00, 0, 0, 0, 0}, "std_msgs/msg/Int32")
	assert.ErrorIs(t, err, ErrMalformed)

	// String length far beyond the buffer.
	_, err = s.Decode([]byte{0x00, 0x01, 0x00, 0x00, 0xff, 0xff, 0xff, 0x7f}, "std_msgs/msg/String")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRegisterConcatenated(t *testing.T) {
	s := NewEmpty()
	err := s.RegisterConcatenated("custom_msgs/msg/Reading", `float64 value
Header header
================================================================================
MSG: std_msgs/Header
builtin_interfaces/Time stamp
string frame_id
================================================================================
MSG: builtin_interfaces/Time
int32 sec
uint32 nanosec
`)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"builtin_interfaces/msg/Time",
		"custom_msgs/msg/Reading",
		"std_msgs/msg/Header",
	}, s.Types())

	raw, err := s.Encode("custom_msgs/msg/Reading", map[string]any{
		"value":  2.5,
		"header": map[string]any{"stamp": map[string]any{"sec": 7}},
	})
	require.NoError(t, err)

	msg, err := s.Decode(raw, "custom_msgs/msg/Reading")
	require.NoError(t, err)
	sec, ok := flatten.Lookup(msg, "header", "stamp", "sec")
	require.True(t, ok)
	assert.Equal(t, int32(7), sec)
}

func TestRegisterConcatenatedMalformed(t *testing.T) {
	err := NewEmpty().RegisterConcatenated("a/msg/B", "int32 x\n====\nnot a msg line\n")
	assert.ErrorIs(t, err, ErrMalformedDefinition)
}

func TestDecodeFormat(t *testing.T) {
	s := New()

	raw, err := msgpack.Encode(map[string]any{"data": 3.5})
	require.NoError(t, err)
	v, err := s.DecodeFormat(raw, "std_msgs/msg/Float64", FormatMsgpack)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"data": 3.5}, v)

	_, err = s.DecodeFormat(raw, "std_msgs/msg/Float64", "protobuf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	raw, err = s.Encode("std_msgs/msg/Float64", map[string]any{"data": 3.5})
	require.NoError(t, err)
	v, err = s.DecodeFormat(raw, "std_msgs/msg/Float64", "")
	require.NoError(t, err)
	data, ok := flatten.Lookup(v, "data")
	require.True(t, ok)
	assert.Equal(t, 3.5, data)
}

func TestMessageMarshalJSON(t *testing.T) {
	s := New()
	raw, err := s.Encode("geometry_msgs/msg/Point", map[string]any{"x": 1.0, "y": 2.5})
	require.NoError(t, err)
	msg, err := s.Decode(raw, "geometry_msgs/msg/Point")
	require.NoError(t, err)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1,"y":2.5,"z":0}`, string(data))

	_, err = msg.Field("w")
	assert.ErrorIs(t, err, flatten.ErrNoField)
}

func TestDecodeImageDataAsNumbers(t *testing.T) {
	s := New()
	raw, err := s.Encode("sensor_msgs/msg/Image", map[string]any{
		"height":   1,
		"width":    8,
		"encoding": "mono8",
		"step":     8,
		"data":     []byte{0, 1, 2, 3, 4, 5, 6, 255},
	})
	require.NoError(t, err)

	msg, err := s.Decode(raw, "sensor_msgs/msg/Image")
	require.NoError(t, err)

	rec := flatten.New(flatten.Options{}).Flatten(msg)
	got, ok := rec.Get("data")
	require.True(t, ok)
	assert.Equal(t, flatten.KindJSON, got.Kind())
	assert.Equal(t, "[0,1,2,3,4,5,6,255]", got.Text())
}

func TestMsgpackBinaryAsNumbers(t *testing.T) {
	raw, err := msgpack.Encode(map[string]any{"payload": []byte{9, 8, 7, 6, 5, 4}})
	require.NoError(t, err)

	v, err := New().DecodeFormat(raw, "custom_msgs/msg/Blob", FormatMsgpack)
	require.NoError(t, err)

	rec := flatten.New(flatten.Options{}).Flatten(v)
	got, ok := rec.Get("payload")
	require.True(t, ok)
	assert.Equal(t, "[9,8,7,6,5,4]", got.Text())
}

func TestMessageMarshalJSONNonFinite(t *testing.T) {
	s := New()
	raw, err := s.Encode("sensor_msgs/msg/LaserScan", map[string]any{
		"ranges": []float32{1, float32(math.Inf(1)), 2},
	})
	require.NoError(t, err)
	msg, err := s.Decode(raw, "sensor_msgs/msg/LaserScan")
	require.NoError(t, err)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.Contains(t, string(data), `"ranges":[1,null,2]`)
}
