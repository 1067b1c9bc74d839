package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/robolake/bag/rosbag2"
	"github.com/hugr-lab/robolake/catalog"
	"github.com/hugr-lab/robolake/typestore"
)

// writeDrive creates drive.db3 with two poses at 1s and 3s and one string
// message at 2s.
func writeDrive(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drive.db3")

	pose := func(x float64) map[string]any {
		return map[string]any{
			"header": map[string]any{
				"stamp":    map[string]any{"sec": 10, "nanosec": 0},
				"frame_id": "map",
			},
			"pose": map[string]any{
				"position":    map[string]any{"x": x, "y": 0.0, "z": 0.0},
				"orientation": map[string]any{"x": 0.0, "y": 0.0, "z": 0.0, "w": 1.0},
			},
		}
	}

	w, err := rosbag2.Create(path, typestore.New())
	require.NoError(t, err)
	require.NoError(t, w.AddTopic("/pose", "geometry_msgs/msg/PoseStamped", ""))
	require.NoError(t, w.AddTopic("/log", "std_msgs/msg/String", ""))
	require.NoError(t, w.WriteMessage("/pose", 1_000_000_000, pose(1)))
	require.NoError(t, w.WriteMessage("/log", 2_000_000_000, map[string]any{"data": "ready"}))
	require.NoError(t, w.WriteMessage("/pose", 3_000_000_000, pose(2)))
	require.NoError(t, w.Close())
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ROBOLAKE_CATALOG", "")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConvertDefaultOutput(t *testing.T) {
	input := writeDrive(t)

	out, err := execute(t, "convert", input, "--format", "json")
	require.NoError(t, err)

	output := filepath.Join(filepath.Dir(input), "drive.json")
	assert.Contains(t, out, "Converted 3 messages to "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "/pose", rows[0]["topic"])
	assert.Equal(t, "ready", rows[1]["data"])
	assert.Nil(t, rows[1]["pose.position.x"])
}

func TestConvertTopicsAndOutput(t *testing.T) {
	input := writeDrive(t)
	output := filepath.Join(t.TempDir(), "log.csv")

	out, err := execute(t, "convert", input, "--format", "csv", "--topics", "/log", "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Converted 1 messages")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "topic,timestamp_seconds,message_type,data\n/log,2,std_msgs/msg/String,ready\n", string(data))
}

func TestConvertIntoCatalog(t *testing.T) {
	input := writeDrive(t)
	lake := filepath.Join(t.TempDir(), "lake")

	out, err := execute(t, "convert", input, "--catalog", lake)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(filepath.Dir(input), "drive.parquet"))
	assert.Contains(t, out, "Stored 3 rows in table drive")

	out, err = execute(t, "query", lake, "SELECT COUNT(*) AS n FROM drive")
	require.NoError(t, err)
	assert.Contains(t, out, "Query returned 1 rows:")
	assert.Contains(t, out, "n\n3\n")

	_, err = execute(t, "convert", input, "--catalog", lake)
	require.NoError(t, err)
	out, err = execute(t, "query", lake, "SELECT COUNT(*) AS n FROM drive")
	require.NoError(t, err)
	assert.Contains(t, out, "n\n6\n")
}

func TestConvertErrors(t *testing.T) {
	input := writeDrive(t)

	_, err := execute(t, "convert", filepath.Join(t.TempDir(), "missing.db3"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "convert", input, "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "convert", input, "--format", "parquet", "-o", filepath.Join(t.TempDir(), "out.parquet.zst"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	legacy := filepath.Join(t.TempDir(), "old.bag")
	require.NoError(t, os.WriteFile(legacy, []byte("#ROSBAG V2.0\n"), 0o644))
	_, err = execute(t, "convert", legacy)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestInfo(t *testing.T) {
	input := writeDrive(t)

	out, err := execute(t, "info", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Recording: drive.db3")
	assert.Contains(t, out, "Message Count  3")
	assert.Contains(t, out, "2.00 seconds")
	assert.Contains(t, out, "1970-01-01T00:00:01Z")
	assert.Contains(t, out, "/pose  geometry_msgs/msg/PoseStamped  2")
	assert.Contains(t, out, "/log   std_msgs/msg/String            1")
}

func TestInfoUnreadable(t *testing.T) {
	legacy := filepath.Join(t.TempDir(), "old.bag")
	require.NoError(t, os.WriteFile(legacy, []byte("#ROSBAG V2.0\n"), 0o644))

	out, err := execute(t, "info", legacy)
	require.NoError(t, err)
	assert.Contains(t, out, "Warning:")
	assert.NotContains(t, out, "Topics:")

	_, err = execute(t, "info", filepath.Join(t.TempDir(), "missing.db3"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInit(t *testing.T) {
	input := writeDrive(t)
	lake := filepath.Join(t.TempDir(), "lake")

	out, err := execute(t, "init", lake)
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized catalog")
	assert.True(t, catalog.Exists(lake))

	_, err = execute(t, "convert", input, "--catalog", lake)
	require.NoError(t, err)

	out, err = execute(t, "init", lake)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
	assert.FileExists(t, filepath.Join(lake, catalog.TablesDir, "drive"+catalog.TableExt))

	out, err = execute(t, "init", lake, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized catalog")
	assert.NoFileExists(t, filepath.Join(lake, catalog.TablesDir, "drive"+catalog.TableExt))
}

func TestQuery(t *testing.T) {
	input := writeDrive(t)
	lake := filepath.Join(t.TempDir(), "lake")
	_, err := execute(t, "convert", input, "--catalog", lake)
	require.NoError(t, err)

	out, err := execute(t, "query", lake, `SELECT topic, "pose.position.x" AS x FROM drive WHERE topic = '/pose' ORDER BY timestamp_seconds`)
	require.NoError(t, err)
	assert.Contains(t, out, "Query returned 2 rows:")
	assert.Contains(t, out, "topic  x\n/pose  1\n/pose  2\n")

	out, err = execute(t, "query", lake, "SELECT * FROM drive WHERE 1 = 0")
	require.NoError(t, err)
	assert.Equal(t, "Query returned no results\n", out)

	_, err = execute(t, "query", lake, "SELECT * FROM nowhere")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "query", filepath.Join(t.TempDir(), "missing"), "SELECT 1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTablesAndDrop(t *testing.T) {
	input := writeDrive(t)
	lake := filepath.Join(t.TempDir(), "lake")

	_, err := execute(t, "init", lake)
	require.NoError(t, err)
	out, err := execute(t, "tables", lake)
	require.NoError(t, err)
	assert.Equal(t, "No tables\n", out)

	_, err = execute(t, "convert", input, "--catalog", lake)
	require.NoError(t, err)
	out, err = execute(t, "tables", lake)
	require.NoError(t, err)
	assert.Contains(t, out, "TABLE")
	assert.Contains(t, out, "drive  3")

	out, err = execute(t, "drop", lake, "drive")
	require.NoError(t, err)
	assert.Equal(t, "Dropped table drive\n", out)
	out, err = execute(t, "tables", lake)
	require.NoError(t, err)
	assert.Equal(t, "No tables\n", out)

	_, err = execute(t, "drop", lake, "drop table;")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "tables", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
