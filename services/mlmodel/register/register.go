// Package register registers all the model runtimes compiled into this build.
package register

import (
	// register
	_ "go.viam.com/videodetect/services/mlmodel/onnxruntime"
)
