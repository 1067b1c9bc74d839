package typestore

// builtinDefinitions are the message definitions every Store starts with.
// They match the ROS 2 Foxy/Humble interfaces, which agree for these types.
var builtinDefinitions = map[string]string{
	"builtin_interfaces/msg/Time": `
int32 sec
uint32 nanosec
`,
	"builtin_interfaces/msg/Duration": `
int32 sec
uint32 nanosec
`,
	"std_msgs/msg/Header": `
builtin_interfaces/Time stamp
string frame_id
`,
	"std_msgs/msg/String":  "string data\n",
	"std_msgs/msg/Bool":    "bool data\n",
	"std_msgs/msg/Int32":   "int32 data\n",
	"std_msgs/msg/Int64":   "int64 data\n",
	"std_msgs/msg/UInt8":   "uint8 data\n",
	"std_msgs/msg/Float32": "float32 data\n",
	"std_msgs/msg/Float64": "float64 data\n",
	"std_msgs/msg/Empty":   "",
	"geometry_msgs/msg/Point": `
float64 x
float64 y
float64 z
`,
	"geometry_msgs/msg/Point32": `
float32 x
float32 y
float32 z
`,
	"geometry_msgs/msg/Vector3": `
float64 x
float64 y
float64 z
`,
	"geometry_msgs/msg/Quaternion": `
float64 x 0
float64 y 0
float64 z 0
float64 w 1
`,
	"geometry_msgs/msg/Pose": `
Point position
Quaternion orientation
`,
	"geometry_msgs/msg/PoseStamped": `
std_msgs/Header header
Pose pose
`,
	"geometry_msgs/msg/PointStamped": `
std_msgs/Header header
Point point
`,
	"geometry_msgs/msg/Vector3Stamped": `
std_msgs/Header header
Vector3 vector
`,
	"geometry_msgs/msg/PoseWithCovariance": `
Pose pose
float64[36] covariance
`,
	"geometry_msgs/msg/Twist": `
Vector3 linear
Vector3 angular
`,
	"geometry_msgs/msg/TwistStamped": `
std_msgs/Header header
Twist twist
`,
	"geometry_msgs/msg/TwistWithCovariance": `
Twist twist
float64[36] covariance
`,
	"geometry_msgs/msg/Transform": `
Vector3 translation
Quaternion rotation
`,
	"geometry_msgs/msg/TransformStamped": `
std_msgs/Header header
string child_frame_id
Transform transform
`,
	"tf2_msgs/msg/TFMessage": `
geometry_msgs/TransformStamped[] transforms
`,
	"nav_msgs/msg/Odometry": `
std_msgs/Header header
string child_frame_id
geometry_msgs/PoseWithCovariance pose
geometry_msgs/TwistWithCovariance twist
`,
	"sensor_msgs/msg/Imu": `
std_msgs/Header header
geometry_msgs/Quaternion orientation
float64[9] orientation_covariance
geometry_msgs/Vector3 angular_velocity
float64[9] angular_velocity_covariance
geometry_msgs/Vector3 linear_acceleration
float64[9] linear_acceleration_covariance
`,
	"sensor_msgs/msg/Image": `
std_msgs/Header header
uint32 height
uint32 width
string encoding
uint8 is_bigendian
uint32 step
uint8[] data
`,
	"sensor_msgs/msg/CompressedImage": `
std_msgs/Header header
string format
uint8[] data
`,
	"sensor_msgs/msg/NavSatStatus": `
int8 STATUS_NO_FIX =  -1
int8 STATUS_FIX =      0
int8 STATUS_SBAS_FIX = 1
int8 STATUS_GBAS_FIX = 2
int8 status
uint16 SERVICE_GPS =     1
uint16 SERVICE_GLONASS = 2
uint16 SERVICE_COMPASS = 4
uint16 SERVICE_GALILEO = 8
uint16 service
`,
	"sensor_msgs/msg/NavSatFix": `
std_msgs/Header header
NavSatStatus status
float64 latitude
float64 longitude
float64 altitude
float64[9] position_covariance
uint8 COVARIANCE_TYPE_UNKNOWN = 0
uint8 COVARIANCE_TYPE_APPROXIMATED = 1
uint8 COVARIANCE_TYPE_DIAGONAL_KNOWN = 2
uint8 COVARIANCE_TYPE_KNOWN = 3
uint8 position_covariance_type
`,
	"sensor_msgs/msg/LaserScan": `
std_msgs/Header header
float32 angle_min
float32 angle_max
float32 angle_increment
float32 time_increment
float32 scan_time
float32 range_min
float32 range_max
float32[] ranges
float32[] intensities
`,
	"sensor_msgs/msg/Temperature": `
std_msgs/Header header
float64 temperature
float64 variance
`,
	"sensor_msgs/msg/BatteryState": `
std_msgs/Header header
float32 voltage
float32 temperature
float32 current
float32 charge
float32 capacity
float32 design_capacity
float32 percentage
uint8 power_supply_status
uint8 power_supply_health
uint8 power_supply_technology
bool present
float32[] cell_voltage
float32[] cell_temperature
string location
string serial_number
`,
	"rcl_interfaces/msg/Log": `
byte DEBUG=10
byte INFO=20
byte WARN=30
byte ERROR=40
byte FATAL=50
builtin_interfaces/Time stamp
uint8 level
string name
string msg
string file
string function
uint32 line
`,
}
