// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// パイプラインの各段階（データ読み込み、学習、評価、登録、推論API）で発生する失敗を
// 型付きのエラーとして表現し、cockroachdb/errors によるスタックトレースを付与します。
package errors

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("salesforecast-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler は警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// EarlyStoppingDisabledWarning は検証データが空のため早期終了が使えない場合の警告です。
type EarlyStoppingDisabledWarning struct {
	Algorithm string
	Reason    string
}

func (w *EarlyStoppingDisabledWarning) Error() string {
	return fmt.Sprintf("%s: early stopping disabled: %s", w.Algorithm, w.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *EarlyStoppingDisabledWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Str("reason", w.Reason).
		Str("type", "EarlyStoppingDisabledWarning")
}

// NewEarlyStoppingDisabledWarning は新しいEarlyStoppingDisabledWarningを作成します。
func NewEarlyStoppingDisabledWarning(algorithm, reason string) *EarlyStoppingDisabledWarning {
	return &EarlyStoppingDisabledWarning{Algorithm: algorithm, Reason: reason}
}

// ===========================================================================
//
//	データセット関連のエラー型
//
// ===========================================================================

// NotFoundError は要求されたリソース（スナップショット、モデル、実験）が存在しない場合のエラーです。
type NotFoundError struct {
	Resource string // "snapshot", "registered model", "experiment" など
	Name     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("salesforecast: %s not found: %s", e.Resource, e.Name)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFoundError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("resource", e.Resource).
		Str("name", e.Name).
		Str("type", "NotFoundError")
}

// NewNotFoundError は新しいNotFoundErrorを作成し、スタックトレースを付与します。
func NewNotFoundError(resource, name string) error {
	return errors.WithStack(&NotFoundError{Resource: resource, Name: name})
}

// FormatError はファイル名がグロブには一致するが、数値サフィックスのパターンに一致しない場合のエラーです。
type FormatError struct {
	Pattern string
	Files   []string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("salesforecast: no file matches numeric pattern %q (candidates: %s)",
		e.Pattern, strings.Join(e.Files, ", "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *FormatError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("pattern", e.Pattern).
		Strs("files", e.Files).
		Str("type", "FormatError")
}

// NewFormatError は新しいFormatErrorを作成し、スタックトレースを付与します。
func NewFormatError(pattern string, files []string) error {
	return errors.WithStack(&FormatError{Pattern: pattern, Files: files})
}

// SchemaError はテーブルのスキーマが期待と異なる場合のエラーです。
// 目的変数の列が存在しない場合や、列数が設定と一致しない場合に発生します。
type SchemaError struct {
	Column  string
	Columns []string
	Reason  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("salesforecast: schema error on column %q: %s (columns: [%s])",
		e.Column, e.Reason, strings.Join(e.Columns, " "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SchemaError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Strs("columns", e.Columns).
		Str("reason", e.Reason).
		Str("type", "SchemaError")
}

// NewSchemaError は新しいSchemaErrorを作成し、スタックトレースを付与します。
func NewSchemaError(column, reason string, columns []string) error {
	return errors.WithStack(&SchemaError{Column: column, Reason: reason, Columns: columns})
}

// ===========================================================================
//
//	学習・評価関連のエラー型
//
// ===========================================================================

// UnknownModelError はディスパッチャに未知のモデル名が渡された場合のエラーです。
// 大文字小文字の違いやタイポも未知として扱います。
type UnknownModelError struct {
	Name      string
	Supported []string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("salesforecast: unknown model: %q (supported: %s)",
		e.Name, strings.Join(e.Supported, ", "))
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *UnknownModelError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("name", e.Name).
		Strs("supported", e.Supported).
		Str("type", "UnknownModelError")
}

// NewUnknownModelError は新しいUnknownModelErrorを作成し、スタックトレースを付与します。
func NewUnknownModelError(name string, supported []string) error {
	return errors.WithStack(&UnknownModelError{Name: name, Supported: supported})
}

// TrainingFailure は学習アルゴリズムの内部で発生したエラーをラップします。
// 原因のエラーはそのまま Unwrap で取り出せます。
type TrainingFailure struct {
	Model string
	Err   error
}

func (e *TrainingFailure) Error() string {
	return fmt.Sprintf("salesforecast: training %s failed: %v", e.Model, e.Err)
}

func (e *TrainingFailure) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *TrainingFailure) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model", e.Model).
		Str("cause", fmt.Sprint(e.Err)).
		Str("type", "TrainingFailure")
}

// NewTrainingFailure は新しいTrainingFailureを作成し、スタックトレースを付与します。
func NewTrainingFailure(model string, err error) error {
	return errors.WithStack(&TrainingFailure{Model: model, Err: err})
}

// MetricUndefinedError は評価指標が定義できない場合のエラーです。
// 例えば、検証データが空の場合や、目的変数の分散が0でR²が計算できない場合など。
type MetricUndefinedError struct {
	Metric    string
	Condition string
}

func (e *MetricUndefinedError) Error() string {
	return fmt.Sprintf("salesforecast: '%s' is undefined: %s", e.Metric, e.Condition)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MetricUndefinedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("metric", e.Metric).
		Str("condition", e.Condition).
		Str("type", "MetricUndefinedError")
}

// NewMetricUndefinedError は新しいMetricUndefinedErrorを作成し、スタックトレースを付与します。
func NewMetricUndefinedError(metric, condition string) error {
	return errors.WithStack(&MetricUndefinedError{Metric: metric, Condition: condition})
}

// ===========================================================================
//
//	汎用の構造化エラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("salesforecast: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("salesforecast: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("salesforecast: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("salesforecast: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrModelNotLoaded は推論APIでモデルがまだ読み込まれていない場合のエラーです。
	ErrModelNotLoaded = New("model not loaded")
)
