package model

import (
	"encoding/gob"
	"io"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

// SaveModelToWriter はモデルをgob形式でio.Writerに保存する
//
// パラメータ:
//   - model: 保存するモデル（公開フィールドのみがエンコードされる）
//   - w: 保存先のWriter
//
// 戻り値:
//   - error: 保存に失敗した場合のエラー
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
//
// パラメータ:
//   - model: 読み込み先のモデル（ポインタ）
//   - r: 読み込み元のReader
//
// 戻り値:
//   - error: 読み込みに失敗した場合のエラー
//
// 使用例:
//
//	var reg xgboost.XGBRegressor
//	err := model.LoadModelFromReader(&reg, bytes.NewReader(payload))
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
