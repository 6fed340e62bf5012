package dataset

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
)

// LatestSnapshot returns the path of the file in dir whose name matches
// pattern with the highest numeric index. pattern is a glob containing
// exactly one "*", which stands for the index (e.g. "CA_1_*.gob").
//
// Indices compare as integers, so CA_1_10 beats CA_1_3.
func LatestSnapshot(dir, pattern string) (string, error) {
	strict, err := numericPattern(pattern)
	if err != nil {
		return "", err
	}

	// Match base names only so metacharacters in dir stay literal.
	entries, err := os.ReadDir(dir)
	if err != nil && !scierrors.Is(err, fs.ErrNotExist) {
		return "", scierrors.Wrapf(err, "read snapshot directory %s", dir)
	}
	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(pattern, e.Name()); ok {
			candidates = append(candidates, filepath.Join(dir, e.Name()))
		}
	}
	if len(candidates) == 0 {
		return "", scierrors.NewNotFoundError("snapshot", filepath.Join(dir, pattern))
	}
	sort.Strings(candidates)

	var (
		best      string
		bestIndex string
		names     = make([]string, 0, len(candidates))
	)
	for _, path := range candidates {
		name := filepath.Base(path)
		names = append(names, name)
		m := strict.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		idx := strings.TrimLeft(m[1], "0")
		if best == "" || indexLess(bestIndex, idx) || bestIndex == idx {
			best, bestIndex = path, idx
		}
	}
	if best == "" {
		return "", scierrors.NewFormatError(strict.String(), names)
	}
	return best, nil
}

// LoadLatest finds the latest snapshot with LatestSnapshot and decodes it.
// It returns the table and the path it was read from.
func LoadLatest(dir, pattern string, opts ...Option) (*Table, string, error) {
	path, err := LatestSnapshot(dir, pattern)
	if err != nil {
		return nil, "", err
	}
	t, err := ReadSnapshot(path, opts...)
	if err != nil {
		return nil, path, err
	}

	log.GetLoggerWithName("dataset").Info("Loaded snapshot",
		log.PathKey, path,
		log.SamplesKey, t.Len(),
		log.FeaturesKey, t.Width(),
	)
	return t, path, nil
}

// ValidatePattern reports whether pattern is a usable snapshot glob: a
// file name with exactly one "*" and no other glob syntax.
func ValidatePattern(pattern string) error {
	_, err := numericPattern(pattern)
	return err
}

// numericPattern turns "CA_1_*.gob" into ^CA_1_(\d+)\.gob$.
func numericPattern(pattern string) (*regexp.Regexp, error) {
	if strings.Count(pattern, "*") != 1 || strings.ContainsAny(pattern, `?[`+string(os.PathSeparator)) {
		return nil, scierrors.NewValidationError("pattern", "must be a file name glob with exactly one '*'", pattern)
	}
	prefix, suffix, _ := strings.Cut(pattern, "*")
	return regexp.Compile("^" + regexp.QuoteMeta(prefix) + `(\d+)` + regexp.QuoteMeta(suffix) + "$")
}

// indexLess compares two decimal strings without leading zeros.
func indexLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
