package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/oobwatch-network/oobwatch/pkg/model"
)

func TestTableOutput(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, "DEVICE", "STATUS")
	table.Row("server-07/iDRAC", "ok")
	table.Row("server-08/ipmi0", "move_pending")
	table.Flush()

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines (header, divider, 2 rows), got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "DEVICE") {
		t.Errorf("missing header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "------") {
		t.Errorf("missing divider: %q", lines[1])
	}
}

func TestEmptyTableProducesNoOutput(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, "A", "B").Flush()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestColorStatus(t *testing.T) {
	// Color codes depend on NO_COLOR; the status text must survive
	// either way.
	for _, status := range []model.MoveStatus{
		model.MoveStatusOK, model.MoveStatusPending, model.MoveStatusConfirmed,
		model.MoveStatusSuspectUplink, model.MoveStatusNotFound, model.MoveStatusInit,
	} {
		if got := ColorStatus(status); !strings.Contains(got, string(status)) {
			t.Errorf("ColorStatus(%s) = %q, does not contain status text", status, got)
		}
	}
}
