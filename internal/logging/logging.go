//
// Copyright 2019-2020 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package logging builds the two logrus sinks the supervisor is
// constructed with (spec.md §6): one for normal operational output, one
// reserved for warn-and-above so a sandbox host can split guest-caused
// noise from the issues it should actually page on.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Sinks bundles the stdout/stderr loggers a Supervisor is constructed
// with. Mirrors the teacher's single global logrus.Logger but split in
// two so callers route by severity instead of reconfiguring the default
// logger's output mid-run.
type Sinks struct {
	Out *logrus.Logger
	Err *logrus.Logger
}

// New builds a Sinks pair writing to out/err with a text formatter, the
// way the teacher's main.go configures logrus before any handler runs.
func New(out, err io.Writer) *Sinks {
	outLog := logrus.New()
	outLog.SetOutput(out)
	outLog.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	errLog := logrus.New()
	errLog.SetOutput(err)
	errLog.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	errLog.SetLevel(logrus.WarnLevel)

	return &Sinks{Out: outLog, Err: errLog}
}

// For picks the sink appropriate for level: Warn and above go to Err, the
// rest to Out.
func (s *Sinks) For(level logrus.Level) *logrus.Logger {
	if level <= logrus.WarnLevel {
		return s.Err
	}
	return s.Out
}
