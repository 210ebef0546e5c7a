package mlmodel

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/videodetect/logging"
)

// ErrNoBackend is returned when no registered runtime handles an artifact's file type.
var ErrNoBackend = errors.New("no model backend for artifact")

// Constructor builds a Service from a resolved, local model artifact.
type Constructor func(ctx context.Context, conf Config, logger logging.Logger) (Service, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]Constructor{}
)

// RegisterBackend registers the constructor for artifacts with the given file extension,
// e.g. ".onnx". Backends register themselves in init.
func RegisterBackend(ext string, ctor Constructor) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	ext = strings.ToLower(ext)
	if _, ok := backends[ext]; ok {
		panic(errors.Errorf("model backend for %q already registered", ext))
	}
	backends[ext] = ctor
}

// RegisteredBackends returns the registered file extensions.
func RegisteredBackends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	exts := make([]string, 0, len(backends))
	for ext := range backends {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func lookupBackend(ext string) (Constructor, bool) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	ctor, ok := backends[strings.ToLower(ext)]
	return ctor, ok
}

// Load resolves the model artifact, constructs the backend registered for its file type and
// returns the ready model handle. A sidecar labels file, when configured, replaces whatever
// labels the backend found in the model.
func Load(ctx context.Context, conf Config, logger logging.Logger) (Service, error) {
	if conf.Device == "" {
		conf.Device = DeviceAuto
	}
	switch conf.Device {
	case DeviceAuto, DeviceCUDA, DeviceCPU:
	default:
		return nil, errors.Errorf("unknown device %q, expected one of auto, cuda, cpu", conf.Device)
	}

	local, err := ResolveArtifact(ctx, conf.Path, conf.CacheDir)
	if err != nil {
		return nil, err
	}
	ext := filepath.Ext(local)
	ctor, ok := lookupBackend(ext)
	if !ok {
		return nil, errors.Wrapf(ErrNoBackend, "%q (registered: %s)", ext, strings.Join(RegisteredBackends(), ", "))
	}
	conf.Path = local

	var labels LabelTable
	if conf.LabelsPath != "" {
		labelsPath, err := NormalizePath(conf.LabelsPath)
		if err != nil {
			return nil, err
		}
		if labels, err = ReadLabelFile(labelsPath); err != nil {
			return nil, err
		}
	}

	svc, err := ctor(ctx, conf, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load model from %s", local)
	}
	if labels != nil {
		svc = &relabeled{Service: svc, labels: labels}
	}

	md, err := svc.Metadata(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not read model metadata")
	}
	logger.Infow("model loaded", "path", local, "model", md.ModelName, "classes", len(svc.Labels()))
	logger.Infow("device used", "device", md.Device)
	return svc, nil
}

type relabeled struct {
	Service
	labels LabelTable
}

func (r *relabeled) Labels() LabelTable {
	return r.labels
}
