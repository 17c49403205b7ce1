package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yungbote/neurobridge-mastery/internal/platform/envutil"
)

// Logger wraps a zap SugaredLogger and scrubs key/value pairs before they are
// written: credentials are redacted and learner identifiers are pseudonymised.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
	scrub         *scrubber
}

// New builds a logger for mode "prod", "test" or anything else (development).
// LOG_REDACTION_ENABLED=false disables scrubbing; LOG_HASH_SALT salts hashes.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	s := &scrubber{
		enabled: envutil.Bool("LOG_REDACTION_ENABLED", true),
		salt:    envutil.String("LOG_HASH_SALT", ""),
	}
	return &Logger{SugaredLogger: z.Sugar(), scrub: s}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), scrub: &scrubber{}}
}

func (l *Logger) Sync() { _ = l.SugaredLogger.Sync() }

func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.SugaredLogger.Debugw(msg, l.scrub.pairs(kv)...)
}

func (l *Logger) Info(msg string, kv ...interface{}) {
	l.SugaredLogger.Infow(msg, l.scrub.pairs(kv)...)
}

func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.SugaredLogger.Warnw(msg, l.scrub.pairs(kv)...)
}

func (l *Logger) Error(msg string, kv ...interface{}) {
	l.SugaredLogger.Errorw(msg, l.scrub.pairs(kv)...)
}

func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.scrub.pairs(kv)...), scrub: l.scrub}
}

type scrubber struct {
	enabled bool
	salt    string
}

var secretMarkers = []string{"password", "secret", "token", "authorization", "dsn"}

// Keys whose values identify a learner. A suffix match also covers
// prefixed variants such as "target_student_id".
var learnerKeys = []string{"student_id", "studentid", "user_id"}

func (s *scrubber) pairs(kv []interface{}) []interface{} {
	if s == nil || !s.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		out[i+1] = s.value(strings.ToLower(key), out[i+1])
	}
	return out
}

func (s *scrubber) value(key string, v interface{}) interface{} {
	for _, m := range secretMarkers {
		if strings.Contains(key, m) {
			return "[REDACTED]"
		}
	}
	for _, k := range learnerKeys {
		if strings.HasSuffix(key, k) {
			return s.pseudonym(v)
		}
	}
	return v
}

// pseudonym is stable for a given salt so lines for one student still correlate.
func (s *scrubber) pseudonym(v interface{}) string {
	if v == nil {
		return ""
	}
	raw := strings.TrimSpace(fmt.Sprint(v))
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.salt + raw))
	return "sid:" + hex.EncodeToString(sum[:6])
}
