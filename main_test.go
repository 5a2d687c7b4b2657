package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/tubejoint/pkg/export"
)

// runCLI runs the command line with a fresh database in a temp dir.
func runCLI(t *testing.T, db string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-db", db}, args...)
	err := run(context.Background(), full, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "scenes.db")
}

func TestCLIDetectTable(t *testing.T) {
	out, _, err := runCLI(t, tempDB(t), "detect", "examples/frame.tube")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !strings.HasPrefix(out, "TUBE A") {
		t.Errorf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "3 tubes, 3 joints") {
		t.Errorf("missing summary:\n%s", out)
	}
	if got := strings.Count(out, "exact"); got != 3 {
		t.Errorf("expected 3 exact joints, got %d:\n%s", got, out)
	}
}

func TestCLIDetectFormats(t *testing.T) {
	db := tempDB(t)

	out, _, err := runCLI(t, db, "detect", "-format", "json", "examples/frame.csv")
	if err != nil {
		t.Fatalf("detect json: %v", err)
	}
	var joints []JointData
	if err := json.Unmarshal([]byte(out), &joints); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(joints) != 3 || joints[0].TubeA != "post" || joints[0].TubeB != "rail" {
		t.Errorf("unexpected joints: %+v", joints)
	}

	out, _, err = runCLI(t, db, "detect", "-format", "csv", "examples/frame.csv")
	if err != nil {
		t.Fatalf("detect csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[1], "post,rail,exact,90.0000,") {
		t.Errorf("unexpected csv:\n%s", out)
	}

	if _, _, err := runCLI(t, db, "detect", "-format", "xml", "examples/frame.csv"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestCLIDetectReportsEvalErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tube")
	if err := os.WriteFile(path, []byte(`(tube "a"`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, tempDB(t), "detect", path)
	if err == nil || !strings.Contains(err.Error(), "bad.tube") {
		t.Errorf("expected an error naming the file, got %v", err)
	}
}

func TestCLIExport(t *testing.T) {
	dir := t.TempDir()
	db := tempDB(t)

	yamlPath := filepath.Join(dir, "frame.yaml")
	out, _, err := runCLI(t, db, "export", "-o", yamlPath, "examples/frame.tube")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "wrote 3 tubes") {
		t.Errorf("unexpected output: %s", out)
	}

	f, err := os.Open(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	tubes, err := export.ReadYAML(f)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(tubes) != 3 || tubes[1].ID != "rail" {
		t.Errorf("unexpected tubes: %+v", tubes)
	}

	objPath := filepath.Join(dir, "frame.obj")
	if _, _, err := runCLI(t, db, "export", "-o", objPath, yamlPath); err != nil {
		t.Fatalf("export obj: %v", err)
	}
	obj, err := os.ReadFile(objPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(obj), "o rail\n") {
		t.Errorf("obj is missing the rail object")
	}

	if _, _, err := runCLI(t, db, "export", "examples/frame.tube"); !errors.Is(err, errUsage) {
		t.Errorf("missing -o: got %v, want usage error", err)
	}
}

func TestCLIScenes(t *testing.T) {
	db := tempDB(t)

	out, _, err := runCLI(t, db, "scenes", "save", "frame", "examples/frame.tube")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.Contains(out, "saved frame: 3 tubes, 3 joints") {
		t.Errorf("unexpected output: %s", out)
	}

	out, _, err = runCLI(t, db, "scenes", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "frame") {
		t.Errorf("list is missing the scene:\n%s", out)
	}

	out, _, err = runCLI(t, db, "detect", "-load", "frame")
	if err != nil {
		t.Fatalf("detect -load: %v", err)
	}
	if !strings.Contains(out, "3 tubes, 3 joints") {
		t.Errorf("unexpected detect output:\n%s", out)
	}

	if _, _, err := runCLI(t, db, "detect", "-load", "frame", "examples/frame.tube"); err == nil {
		t.Error("-load with a scene file should fail")
	}

	if _, _, err := runCLI(t, db, "scenes", "delete", "frame"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := runCLI(t, db, "scenes", "delete", "frame"); err == nil {
		t.Error("deleting a missing scene should fail")
	}
}

func TestCLIRender(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "tubejoint.toml")
	if err := os.WriteFile(cfgPath, []byte("[render]\nmesh_cells = 16\nmax_cell_size = 1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(t.TempDir(), "meshes.json")

	_, _, err := runCLI(t, tempDB(t), "-config", cfgPath, "render", "-o", outPath, "examples/frame.tube")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var payload struct {
		Meshes []MeshData  `json:"meshes"`
		Joints []JointData `json:"joints"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Meshes) != 3 || len(payload.Joints) != 3 {
		t.Errorf("got %d meshes and %d joints, want 3 and 3", len(payload.Meshes), len(payload.Joints))
	}
}

func TestCLIUsage(t *testing.T) {
	db := tempDB(t)

	if _, _, err := runCLI(t, db); !errors.Is(err, errUsage) {
		t.Errorf("no command: got %v, want usage error", err)
	}
	if _, stderr, err := runCLI(t, db, "frobnicate"); !errors.Is(err, errUsage) || !strings.Contains(stderr, "Unknown command") {
		t.Errorf("unknown command: err %v, stderr %q", err, stderr)
	}
	out, _, err := runCLI(t, db, "version")
	if err != nil || !strings.HasPrefix(out, "tubejoint version ") {
		t.Errorf("version: %q, %v", out, err)
	}
}

func TestWatchScene(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.tube")
	if err := os.WriteFile(path, []byte(`(tube "a")`), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- watchScene(ctx, path, func() { updates <- struct{}{} })
	}()

	wait := func(what string) {
		t.Helper()
		select {
		case <-updates:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", what)
		}
	}
	wait("the initial update")

	if err := os.WriteFile(path, []byte(`(tube "a") (tube "b")`), 0o644); err != nil {
		t.Fatal(err)
	}
	wait("the update after a write")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
