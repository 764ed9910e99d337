package logsvc

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/pathways/core"
	"github.com/trezcool/pathways/core/learner"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	lnr := learner.Learner{ID: "learner-1", Name: "Ada", Email: "ada@test.dev"}
	logger.Debug("hidden")
	logger.Warn("discarding unreadable progress", errors.New("corrupt"), lnr)

	got := buf.String()
	tests := []struct {
		name string
		want string
		not  bool
	}{
		{name: "debug is off", want: "hidden", not: true},
		{name: "level & message", want: "WARN discarding unreadable progress"},
		{name: "error arg", want: "corrupt"},
		{name: "learner id only", want: "learner: learner-1"},
		{name: "no email leak", want: "ada@test.dev", not: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if strings.Contains(got, tt.want) == tt.not {
				t.Errorf("output = %q, contains %q: %v", got, tt.want, !tt.not)
			}
		})
	}
}
