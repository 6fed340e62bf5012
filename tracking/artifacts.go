package tracking

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/salesforecast/core/model"
	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

const uriScheme = "runs:/"

// ModelArtifactExt is appended to model artifact paths without an extension.
const ModelArtifactExt = ".gob.xz"

// ArtifactStore lays artifacts out as <root>/<run_id>/<path>.
type ArtifactStore struct {
	root string
}

// NewArtifactStore creates root if needed.
func NewArtifactStore(root string) (*ArtifactStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, scierrors.Wrapf(err, "create artifact root %s", root)
	}
	return &ArtifactStore{root: root}, nil
}

// URI returns runs:/<run_id>/<path>.
func URI(runID, path string) string {
	return uriScheme + runID + "/" + filepath.ToSlash(path)
}

// ParseURI splits a runs:/ URI into run id and relative path.
func ParseURI(uri string) (runID, path string, err error) {
	rest, ok := strings.CutPrefix(uri, uriScheme)
	if !ok {
		return "", "", scierrors.NewValidationError("artifact_uri", "must start with runs:/", uri)
	}
	runID, path, ok = strings.Cut(rest, "/")
	if !ok || runID == "" || path == "" {
		return "", "", scierrors.NewValidationError("artifact_uri", "must look like runs:/<run_id>/<path>", uri)
	}
	if clean := filepath.Clean(filepath.FromSlash(path)); strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", "", scierrors.NewValidationError("artifact_uri", "path escapes the run directory", uri)
	}
	return runID, path, nil
}

// Resolve maps a runs:/ URI to a local file path.
func (a *ArtifactStore) Resolve(uri string) (string, error) {
	runID, path, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	return filepath.Join(a.root, runID, filepath.FromSlash(path)), nil
}

func (a *ArtifactStore) prepare(runID, path string) (string, error) {
	local, err := a.Resolve(URI(runID, path))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return "", scierrors.Wrapf(err, "create artifact dir for %s", path)
	}
	return local, nil
}

// SaveModel writes m as xz-compressed gob and returns its URI.
func (a *ArtifactStore) SaveModel(runID, path string, m model.Regressor) (string, error) {
	if filepath.Ext(path) == "" {
		path += ModelArtifactExt
	}
	local, err := a.prepare(runID, path)
	if err != nil {
		return "", err
	}
	if err := model.SaveFile(m, local); err != nil {
		return "", err
	}
	return URI(runID, path), nil
}

// LoadModel reads the model behind uri.
func (a *ArtifactStore) LoadModel(uri string) (model.Regressor, error) {
	local, err := a.Resolve(uri)
	if err != nil {
		return nil, err
	}
	return model.LoadFile(local)
}

// CopyFile copies a local file into the run's artifacts.
func (a *ArtifactStore) CopyFile(runID, name, src string) (_ string, err error) {
	local, err := a.prepare(runID, name)
	if err != nil {
		return "", err
	}
	in, err := os.Open(src)
	if err != nil {
		return "", scierrors.Wrapf(err, "open artifact source %s", src)
	}
	defer in.Close()

	out, err := os.Create(local)
	if err != nil {
		return "", scierrors.Wrapf(err, "create artifact %s", local)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = scierrors.Wrapf(cerr, "close artifact %s", local)
		}
	}()
	if _, err := io.Copy(out, in); err != nil {
		return "", scierrors.Wrapf(err, "copy artifact %s", name)
	}
	return URI(runID, name), nil
}
