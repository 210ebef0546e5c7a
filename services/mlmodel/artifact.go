package mlmodel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	getter "github.com/hashicorp/go-getter"
	"github.com/pkg/errors"
)

var remoteSchemes = map[string]bool{
	"http": true, "https": true, "s3": true, "gcs": true, "git": true, "hg": true, "file": true,
}

// IsRemote reports whether src names an artifact that has to be fetched rather than opened.
func IsRemote(src string) bool {
	if strings.Contains(src, "::") {
		return true
	}
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	// a single letter scheme is a windows drive, not a URL
	return len(u.Scheme) > 1 && remoteSchemes[strings.ToLower(u.Scheme)]
}

// NormalizePath turns a path written in any platform's notation into a clean absolute path
// for this platform: separators of either kind are accepted and ~ expands to the home
// directory.
func NormalizePath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", errors.New("empty path")
	}
	if runtime.GOOS != "windows" {
		p = strings.ReplaceAll(p, `\`, "/")
	}
	p = filepath.FromSlash(p)
	if p == "~" || strings.HasPrefix(p, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "cannot expand ~")
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.Wrapf(err, "cannot make %q absolute", p)
	}
	return abs, nil
}

// DefaultCacheDir is where remote artifacts go when no cache dir is configured.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "videodetect", "models")
}

// ResolveArtifact returns the local path of a model artifact. Local paths are normalized and
// must point at a regular file. Remote references are downloaded into cacheDir once and the
// cached copy is reused afterwards.
func ResolveArtifact(ctx context.Context, src, cacheDir string) (string, error) {
	if !IsRemote(src) {
		local, err := NormalizePath(src)
		if err != nil {
			return "", err
		}
		info, err := os.Stat(local)
		if err != nil {
			return "", errors.Wrapf(err, "model artifact not found at %s", local)
		}
		if info.IsDir() {
			return "", errors.Errorf("model artifact %s is a directory", local)
		}
		return local, nil
	}

	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}
	cacheDir, err := NormalizePath(cacheDir)
	if err != nil {
		return "", err
	}
	entry := filepath.Join(cacheDir, cacheKey(src))
	dst := filepath.Join(entry, artifactName(src))
	if info, err := os.Stat(dst); err == nil && !info.IsDir() {
		return dst, nil
	}
	if err := os.MkdirAll(entry, 0o750); err != nil {
		return "", errors.Wrapf(err, "cannot create model cache %s", entry)
	}

	// fetch into a scratch dir next to the entry so only complete downloads become visible
	scratch, err := os.MkdirTemp(entry, ".fetch-")
	if err != nil {
		return "", errors.Wrapf(err, "cannot create model cache %s", entry)
	}
	defer func() {
		//nolint:errcheck
		os.RemoveAll(scratch)
	}()

	pwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	partial := filepath.Join(scratch, artifactName(src))
	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  partial,
		Pwd:  pwd,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return "", errors.Wrapf(err, "failed to fetch model artifact %s", src)
	}
	if err := os.Rename(partial, dst); err != nil {
		return "", errors.Wrapf(err, "cannot store model artifact %s", dst)
	}
	return dst, nil
}

// cacheKey is the cache directory of a remote reference. Distinct references never share one,
// even when their file names match.
func cacheKey(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])[:12]
}

// artifactName picks a file name for a remote reference, keeping its extension so the loader
// can still choose a backend from it.
func artifactName(src string) string {
	if i := strings.LastIndex(src, "::"); i >= 0 {
		src = src[i+2:]
	}
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		src = u.Path
	}
	name := path.Base(strings.TrimRight(src, "/"))
	if name == "." || name == "/" || name == "" {
		return "model"
	}
	return name
}
