// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.Edges(2)
	r.Started(1, nil)
	r.Started(2, nil)
	r.Finished(1, nil, 0, 10*time.Millisecond)
	r.Started(3, nil)
	r.Finished(3, nil, 1, time.Millisecond)
	r.Finished(2, nil, 137, time.Second)

	if got := testutil.ToFloat64(r.started); got != 3 {
		t.Errorf("expected 3 started, got %v", got)
	}
	for label, want := range map[string]float64{"success": 1, "failure": 1, "signaled": 1} {
		if got := testutil.ToFloat64(r.finished.WithLabelValues(label)); got != want {
			t.Errorf("finished{result=%q}: expected %v, got %v", label, want, got)
		}
	}
	if got := testutil.ToFloat64(r.running); got != 0 {
		t.Errorf("expected nothing running, got %v", got)
	}
	if got := testutil.ToFloat64(r.peak); got != 2 {
		t.Errorf("expected peak 2, got %v", got)
	}
	if got := testutil.ToFloat64(r.edges); got != 2 {
		t.Errorf("expected 2 edges, got %v", got)
	}
	if got := testutil.CollectAndCount(r.duration); got != 1 {
		t.Errorf("expected one duration histogram, got %d", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.Started(1, nil)
	r.Finished(1, nil, 0, time.Millisecond)

	path := filepath.Join(t.TempDir(), "ttsh.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"ttsh_commands_started_total 1",
		`ttsh_commands_finished_total{result="success"} 1`,
		"ttsh_command_duration_seconds_count 1",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}
