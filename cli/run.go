package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/videodetect/config"
	"go.viam.com/videodetect/logging"
	"go.viam.com/videodetect/pipeline"
	"go.viam.com/videodetect/services/mlmodel"
	// registers all model runtimes.
	_ "go.viam.com/videodetect/services/mlmodel/register"
	"go.viam.com/videodetect/video"
	"go.viam.com/videodetect/video/preview"
	"go.viam.com/videodetect/vision/objectdetection"
)

// loadConfig reads the config file, if any, and layers the flags the user set on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.Path(flagConfig); path != "" {
		fromFile, err := config.Read(path)
		if err != nil {
			return nil, err
		}
		cfg = *fromFile
	}

	if c.IsSet(flagInput) || cfg.Input == "" {
		cfg.Input = c.String(flagInput)
	}
	if c.IsSet(flagModel) || cfg.Model.Path == "" {
		cfg.Model.Path = c.String(flagModel)
	}
	if c.IsSet(flagLabels) {
		cfg.Model.LabelsPath = c.Path(flagLabels)
	}
	if c.IsSet(flagOutput) {
		cfg.Output.Path = c.String(flagOutput)
	}
	if c.IsSet(flagDevice) {
		cfg.Model.Device = c.String(flagDevice)
	}
	if c.IsSet(flagThreshold) {
		cfg.Annotate.Threshold = c.Float64(flagThreshold)
	}
	if c.IsSet(flagFPS) {
		cfg.Output.FPS = c.Float64(flagFPS)
	}
	if c.IsSet(flagPreview) {
		cfg.Preview = c.Bool(flagPreview)
	}
	if c.Bool(flagDebug) {
		cfg.Log.Level = "debug"
	}
	if c.IsSet(flagLogFile) {
		cfg.Log.File = c.Path(flagLogFile)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newLogger(cfg *config.Config) (logging.Logger, func() error, error) {
	logger := logging.NewLogger("videodetect")
	level, err := logging.LevelFromString(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(level)
	closer := func() error { return nil }
	if cfg.Log.File != "" {
		var appender logging.ConsoleAppender
		appender, closer = logging.NewFileAppender(cfg.Log.File)
		logger.AddAppender(appender)
	}
	return logger, closer, nil
}

// RunAction annotates the configured video.
func RunAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			logger.Errorw("run failed", "error", err)
		}
		//nolint:errcheck
		logger.Sync()
		err = multierr.Combine(err, closeLog())
	}()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := mlmodel.Load(ctx, cfg.Model, logger.Sublogger("model"))
	if err != nil {
		return errors.Wrap(err, "model load failed")
	}
	defer func() {
		err = multierr.Combine(err, model.Close(ctx))
	}()

	score, err := objectdetection.NewYOLOScorer(ctx, model, cfg.ScorerConfig())
	if err != nil {
		return err
	}
	if len(cfg.Annotate.Labels) > 0 {
		score = objectdetection.WithPostprocessors(score, objectdetection.NewLabelFilter(cfg.Annotate.Labels))
	}
	annotator, err := cfg.Annotator()
	if err != nil {
		return err
	}

	inputPath, err := mlmodel.NormalizePath(cfg.Input)
	if err != nil {
		return err
	}
	src, err := video.NewFFmpegSource(ctx, inputPath, logger.Sublogger("source"))
	if err != nil {
		return err
	}

	writer, err := video.NewFFmpegWriter(cfg.WriterConfig(), logger.Sublogger("writer"))
	if err != nil {
		return multierr.Combine(err, src.Close())
	}
	sink := &video.Sink{Writer: writer}
	if cfg.Preview {
		window, err := preview.New("videodetect", logger.Sublogger("preview"))
		if err != nil {
			return multierr.Combine(err, src.Close(), writer.Close())
		}
		sink.Display = window
	}

	stats, err := pipeline.Run(ctx, pipeline.Pipeline{
		Source:    src,
		Scorer:    score,
		Annotator: annotator,
		Sink:      sink,
		Logger:    logger.Sublogger("pipeline"),
	})
	if err != nil {
		return err
	}
	if stats.StopReason == pipeline.StopCancelled {
		logger.Info("interrupted, output finalized")
	}
	return nil
}

// SchemaAction prints the config schema.
func SchemaAction(c *cli.Context) error {
	out, err := config.Schema()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}
