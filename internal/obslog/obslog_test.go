package obslog

import (
	"bytes"
	"strings"
	"testing"
)

func TestInfofWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "rsfp")
	l.Infof("frame sent", "seq", 3)

	out := buf.String()
	if !strings.Contains(out, `"component":"rsfp"`) {
		t.Errorf("expected component field, got %s", out)
	}
	if !strings.Contains(out, `"seq":3`) {
		t.Errorf("expected seq field, got %s", out)
	}
}

func TestErrorErrIncludesErrorField(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "canbus")
	l.ErrorErr(errBoom, "setup failed")

	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("expected error field, got %s", buf.String())
	}
}

type boomErr struct{}

func (boomErr) Error() string { return "boom" }

var errBoom = boomErr{}
