package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLogger_Level(t *testing.T) {
	for level, want := range map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"warn":  logrus.WarnLevel,
		"":      logrus.InfoLevel,
		"loud":  logrus.InfoLevel,
	} {
		l := NewLogger(level).(*logrusLogger)
		if l.logger.GetLevel() != want {
			t.Errorf("level %q: expected %v, got %v", level, want, l.logger.GetLevel())
		}
	}
}

func TestLogger_FieldsAreJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("info").(*logrusLogger)
	l.logger.SetOutput(&buf)

	l.WithField("registration_id", "R1").WithError(errors.New("boom")).Warn("ticket rejected")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a JSON line, got %q", buf.String())
	}
	if line["registration_id"] != "R1" || line["error"] != "boom" || line["msg"] != "ticket rejected" {
		t.Fatalf("unexpected log line %v", line)
	}
}
