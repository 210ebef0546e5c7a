// Package cli contains the videodetect command line application.
package cli

import (
	"github.com/urfave/cli/v2"

	"go.viam.com/videodetect/config"
	"go.viam.com/videodetect/services/mlmodel"
	"go.viam.com/videodetect/video"
	"go.viam.com/videodetect/vision/objectdetection"
)

// Flags.
const (
	flagConfig    = "config"
	flagInput     = "input"
	flagModel     = "model"
	flagLabels    = "labels"
	flagOutput    = "output"
	flagDevice    = "device"
	flagThreshold = "threshold"
	flagFPS       = "fps"
	flagPreview   = "preview"
	flagDebug     = "debug"
	flagLogFile   = "log-file"
)

// NewApp returns the videodetect application.
func NewApp() *cli.App {
	return &cli.App{
		Name:            "videodetect",
		Usage:           "draw object detections onto every frame of a video",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:    flagInput,
				Aliases: []string{"i"},
				Value:   config.DefaultInput,
				Usage:   "video file to annotate",
			},
			&cli.StringFlag{
				Name:    flagModel,
				Aliases: []string{"m"},
				Value:   config.DefaultModelPath,
				Usage:   "model weights, a local path or a remote reference",
			},
			&cli.PathFlag{
				Name:  flagLabels,
				Usage: "labels `FILE`, one class name per line",
			},
			&cli.StringFlag{
				Name:    flagOutput,
				Aliases: []string{"o"},
				Value:   video.DefaultOutputPath,
				Usage:   "annotated video to write",
			},
			&cli.StringFlag{
				Name:  flagDevice,
				Value: mlmodel.DeviceAuto,
				Usage: "compute device: auto, cuda or cpu",
			},
			&cli.Float64Flag{
				Name:  flagThreshold,
				Value: objectdetection.DefaultThreshold,
				Usage: "minimum confidence for a detection to be drawn",
			},
			&cli.Float64Flag{
				Name:  flagFPS,
				Usage: "output frame rate, defaults to 20",
			},
			&cli.BoolFlag{
				Name:  flagPreview,
				Usage: "show annotated frames in a window, press q to stop",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.PathFlag{
				Name:  flagLogFile,
				Usage: "also write logs to `FILE`, rotated",
			},
		},
		Action: RunAction,
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "print the JSON schema of the config file",
				Action: SchemaAction,
			},
		},
	}
}
