/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel(" DEBUG "))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("nonsense"))
}

func TestLog4jColorFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&Log4jColorFormatter{LoggerName: "REPOSITORY", NameWidth: 10})

	l.WithField("rows", 3).Info("bulk update")

	out := buf.String()
	assert.Contains(t, out, "   INFO")
	assert.Contains(t, out, "REPOSITORY")
	assert.Contains(t, out, "bulk update rows=3")
	assert.NotContains(t, out, ansiReset)
}

func TestJSONLogFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&JSONLogFormatter{LoggerName: "DATABASE"})

	l.WithField("table", "members").Warn("slow query")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "warning", rec["level"])
	assert.Equal(t, "DATABASE", rec["model"])
	assert.Equal(t, "slow query", rec["message"])
	assert.Equal(t, map[string]interface{}{"table": "members"}, rec["fields"])
}

func TestNewLoggerIsRegistered(t *testing.T) {
	var buf bytes.Buffer
	ConfigureLogOutput(&buf)

	l := NewLogger("utils-test")
	assert.Same(t, l, NewLogger("utils-test"))
	assert.True(t, SetLoggerLevel("utils-test", "error"))
	assert.Equal(t, logrus.ErrorLevel, l.GetLevel())
	assert.False(t, SetLoggerLevel("missing", "debug"))
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("UTILS_TEST_BOOL", "true")
	t.Setenv("UTILS_TEST_INT", "x")
	assert.True(t, EnvDefaultBool("UTILS_TEST_BOOL", false))
	assert.Equal(t, 7, EnvDefaultInt("UTILS_TEST_INT", 7))
	assert.Equal(t, "fallback", EnvDefaultString("UTILS_TEST_UNSET", "fallback"))
}

func TestFormatFieldsSortedByKey(t *testing.T) {
	assert.Equal(t, "age=41 team=teamA user=member5",
		formatFields(logrus.Fields{"user": "member5", "age": 41, "team": "teamA"}))
	assert.Equal(t, "", formatFields(nil))
}
