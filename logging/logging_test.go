package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/next-trace/scg-topic-dispatcher/logging"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logging.New("json", "debug", &buf).Debug("hello", "topic", "t")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not json: %v (%s)", err, buf.String())
	}

	if rec["msg"] != "hello" || rec["topic"] != "t" {
		t.Fatalf("record: %v", rec)
	}
}

func TestNew_TextAndLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New("text", "loud", &buf)

	l.Debug("hidden")
	l.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown") {
		t.Fatalf("output: %s", out)
	}
}

func TestNew_Warn(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New("", "WARN", &buf)

	l.Info("quiet")
	l.Warn("loud")

	if out := buf.String(); strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Fatalf("output: %s", out)
	}
}
