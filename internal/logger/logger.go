package logger

import (
	"os"
	"strings"

	"github.com/gookit/slog"
	"github.com/gookit/slog/handler"
)

// Logger 는 사이트 서버, 빌드, 재검증 워커가 공유하는 최소 로거 인터페이스다.
type Logger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Fields 는 구조화 로그를 위한 공통 필드 타입이다.
type Fields map[string]any

// Log 는 전역 로거 인스턴스다. Init 이 호출되기 전에도 info 레벨로 동작한다.
var Log Logger = NewLogger("info")

// serviceName 은 모든 구조화 로그에 service_name 으로 붙는다.
var serviceName = os.Getenv("SERVICE_NAME")

// Init 은 설정 파일의 로그 레벨과 서비스 이름으로 전역 로거를 다시 만든다.
// LOG_LEVEL 환경변수가 있으면 설정값보다 우선한다.
func Init(level, service string) {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}
	if service != "" {
		serviceName = service
	}
	Log = NewLogger(level)
}

// NewLogger 는 주어진 레벨 이하의 로그만 출력하는 gookit/slog JSON 로거를 만든다.
func NewLogger(level string) Logger {
	logLevel := slog.LevelByName(level)

	var levels slog.Levels
	for _, lv := range slog.AllLevels {
		if lv <= logLevel {
			levels = append(levels, lv)
		}
	}

	h := handler.NewConsoleHandler(levels)
	h.SetFormatter(slog.NewJSONFormatter(func(f *slog.JSONFormatter) {
		f.Fields = []string{
			slog.FieldKeyDatetime,
			slog.FieldKeyLevel,
			slog.FieldKeyMessage,
		}
		f.Aliases = slog.StringMap{
			slog.FieldKeyDatetime: "datetime",
			slog.FieldKeyLevel:    "level",
			slog.FieldKeyMessage:  "message",
		}
		f.TimeFormat = "2006-01-02T15:04:05"
	}))

	return slog.NewWithHandlers(h)
}

func withServiceName(fields Fields) Fields {
	if fields == nil {
		fields = Fields{}
	}
	if _, ok := fields["service_name"]; !ok && serviceName != "" {
		fields["service_name"] = serviceName
	}
	return fields
}

func structured() (*slog.Logger, bool) {
	lg, ok := Log.(*slog.Logger)
	return lg, ok
}

// InfoWithFields 는 request_id, slug 등 구조화 필드를 top-level 키로 출력한다.
func InfoWithFields(msg string, fields Fields) {
	if lg, ok := structured(); ok {
		lg.WithFields(slog.M(withServiceName(fields))).Info(msg)
		return
	}
	Log.Info(msg)
}

func DebugWithFields(msg string, fields Fields) {
	if lg, ok := structured(); ok {
		lg.WithFields(slog.M(withServiceName(fields))).Debug(msg)
		return
	}
	Log.Debug(msg)
}

func WarnWithFields(msg string, fields Fields) {
	if lg, ok := structured(); ok {
		lg.WithFields(slog.M(withServiceName(fields))).Warn(msg)
		return
	}
	Log.Warn(msg)
}

func ErrorWithFields(msg string, fields Fields) {
	if lg, ok := structured(); ok {
		lg.WithFields(slog.M(withServiceName(fields))).Error(msg)
		return
	}
	Log.Error(msg)
}
