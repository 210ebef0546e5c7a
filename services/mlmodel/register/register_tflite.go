//go:build tflite

package register

import (
	// register
	_ "go.viam.com/videodetect/services/mlmodel/tflitecpu"
)
