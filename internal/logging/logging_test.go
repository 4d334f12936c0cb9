package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func Test_New_RoutesInfoToOut(t *testing.T) {
	var out, errBuf bytes.Buffer
	s := New(&out, &errBuf)

	s.Out.Info("guest syscall rejected")

	assert.Contains(t, out.String(), "guest syscall rejected")
	assert.Empty(t, errBuf.String())
}

func Test_New_ErrSinkFiltersBelowWarn(t *testing.T) {
	var out, errBuf bytes.Buffer
	s := New(&out, &errBuf)

	s.Err.Info("should be filtered out")
	s.Err.Warn("backend failed")

	assert.NotContains(t, errBuf.String(), "should be filtered out")
	assert.Contains(t, errBuf.String(), "backend failed")
}

func Test_For_SplitsBySeverity(t *testing.T) {
	var out, errBuf bytes.Buffer
	s := New(&out, &errBuf)

	assert.Same(t, s.Err, s.For(logrus.WarnLevel))
	assert.Same(t, s.Err, s.For(logrus.ErrorLevel))
	assert.Same(t, s.Out, s.For(logrus.InfoLevel))
	assert.Same(t, s.Out, s.For(logrus.DebugLevel))
}

func Test_New_UsesFullTimestampTextFormatter(t *testing.T) {
	var out, errBuf bytes.Buffer
	s := New(&out, &errBuf)

	s.Out.Info("line")
	assert.True(t, strings.Contains(out.String(), "level=info"))
}
