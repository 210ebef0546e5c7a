package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"
	"go.viam.com/test"

	"go.viam.com/videodetect/config"
)

func captureConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var cfg *config.Config
	app := NewApp()
	app.Action = func(c *cli.Context) error {
		var err error
		cfg, err = loadConfig(c)
		return err
	}
	err := app.Run(append([]string{"videodetect"}, args...))
	return cfg, err
}

func TestDefaultsWithoutFlags(t *testing.T) {
	cfg, err := captureConfig(t)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Input, test.ShouldEqual, "model/cam7.avi")
	test.That(t, cfg.Model.Path, test.ShouldEqual, "model/botbest.onnx")
	test.That(t, cfg.Output.Path, test.ShouldEqual, "output.avi")
	test.That(t, cfg.Annotate.Threshold, test.ShouldEqual, 0.2)
	test.That(t, cfg.Preview, test.ShouldBeFalse)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "run.json")
	test.That(t, os.WriteFile(p, []byte(`{
		"input": "from-file.avi",
		"model": {"path": "from-file.onnx", "device": "cpu"},
		"annotate": {"threshold": 0.4}
	}`), 0o600), test.ShouldBeNil)

	cfg, err := captureConfig(t, "-c", p, "--threshold", "0.6", "-o", "annotated.avi", "--preview", "--debug")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Input, test.ShouldEqual, "from-file.avi")
	test.That(t, cfg.Model.Path, test.ShouldEqual, "from-file.onnx")
	test.That(t, cfg.Model.Device, test.ShouldEqual, "cpu")
	test.That(t, cfg.Annotate.Threshold, test.ShouldEqual, 0.6)
	test.That(t, cfg.Output.Path, test.ShouldEqual, "annotated.avi")
	test.That(t, cfg.Preview, test.ShouldBeTrue)
	test.That(t, cfg.Log.Level, test.ShouldEqual, "debug")
}

func TestInvalidFlags(t *testing.T) {
	_, err := captureConfig(t, "--threshold", "2")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = captureConfig(t, "--device", "tpu")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSchemaCommand(t *testing.T) {
	var out bytes.Buffer
	app := NewApp()
	app.Writer = &out
	test.That(t, app.Run([]string{"videodetect", "schema"}), test.ShouldBeNil)
	var schema map[string]interface{}
	test.That(t, json.Unmarshal(out.Bytes(), &schema), test.ShouldBeNil)
}

func TestRunFailsOnMissingModel(t *testing.T) {
	app := NewApp()
	err := app.Run([]string{"videodetect", "-m", filepath.Join(t.TempDir(), "missing.onnx")})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "model load failed")
}
