package model

import (
	"encoding/gob"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	scierrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

// envelope は Regressor をインターフェースのまま gob で書き出すための入れ物。
// 具象型は各パッケージの init で gob.Register されている必要がある。
type envelope struct {
	Model Regressor
}

// SaveToWriter はモデルをio.Writerに保存する
func SaveToWriter(m Regressor, w io.Writer) error {
	if m == nil {
		return scierrors.NewValueError("SaveToWriter", "model is nil")
	}
	if err := gob.NewEncoder(w).Encode(&envelope{Model: m}); err != nil {
		return scierrors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadFromReader はio.Readerからモデルを読み込む
func LoadFromReader(r io.Reader) (Regressor, error) {
	var env envelope
	if err := gob.NewDecoder(r).Decode(&env); err != nil {
		return nil, scierrors.Wrap(err, "failed to decode model")
	}
	if env.Model == nil {
		return nil, scierrors.NewValueError("LoadFromReader", "artifact holds no model")
	}
	return env.Model, nil
}

// SaveFile はモデルをファイルに保存する
//
// 拡張子が ".xz" の場合は xz 圧縮して書き出す。
//
// 使用例:
//
//	err := model.SaveFile(ensemble, "artifacts/model.gob.xz")
func SaveFile(m Regressor, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return scierrors.Wrapf(err, "failed to create %s", filename)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = scierrors.Wrapf(cerr, "failed to close %s", filename)
		}
	}()

	if !strings.HasSuffix(filename, ".xz") {
		return SaveToWriter(m, file)
	}

	zw, err := xz.NewWriter(file)
	if err != nil {
		return scierrors.Wrap(err, "failed to open xz writer")
	}
	if err := SaveToWriter(m, zw); err != nil {
		_ = zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return scierrors.Wrap(err, "failed to flush xz stream")
	}
	return nil
}

// LoadFile はファイルからモデルを読み込む
func LoadFile(filename string) (Regressor, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, scierrors.NewNotFoundError("model artifact", filename)
		}
		return nil, scierrors.Wrapf(err, "failed to open %s", filename)
	}
	defer file.Close()

	if !strings.HasSuffix(filename, ".xz") {
		return LoadFromReader(file)
	}
	zr, err := xz.NewReader(file)
	if err != nil {
		return nil, scierrors.Wrapf(err, "failed to open xz stream %s", filename)
	}
	return LoadFromReader(zr)
}
