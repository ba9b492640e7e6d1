package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"motionmux/internal/config"
	"motionmux/internal/services"
	"motionmux/internal/testsupport"
)

func TestRunNoWatchProcessesTree(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithOutputDir())
	input := filepath.Join(env.baseDir, "photos")
	testsupport.Touch(t, input, "a.jpg", "a.mov", "c.mp4")
	testsupport.Touch(t, filepath.Join(input, "trip"), "b.HEIC", "b.MP4")

	stdout, _, err := runCLI(t, env.configPath, "", "run", "--input-dir", input, "--no-watch")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, stdout, "2 muxed")
	requireContains(t, stdout, "Copied 1 unmatched videos")

	out := env.cfg.Output.Directory
	requireExists(t, filepath.Join(out, "a.jpg"))
	requireExists(t, filepath.Join(out, "trip", "b.HEIC"))
	requireExists(t, filepath.Join(out, "c.mp4"))

	data, err := os.ReadFile(env.cfg.Paths.LedgerPath)
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	var entries map[string]map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("decode ledger: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %v", entries)
	}
	if _, ok := entries[filepath.Join(input, "trip", "b.HEIC")]; !ok {
		t.Fatalf("nested image missing from ledger: %v", entries)
	}

	stdout, _, err = runCLI(t, env.configPath, "", "run", "--input-dir", input, "--no-watch")
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	requireContains(t, stdout, "0 muxed")
	requireContains(t, stdout, "2 already processed")
	if calls := testsupport.MuxerCalls(t, env.cfg.Muxer.Binary); len(calls) != 2 {
		t.Fatalf("expected muxer to run twice in total, got %v", calls)
	}
}

func TestRunWritesBesideSourcesWithoutOutputDir(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "photos")
	testsupport.Touch(t, input, "IMG_1.jpg", "IMG_1.MOV")

	if _, _, err := runCLI(t, env.configPath, "", "run", "-i", input, "--no-watch", "--workers", "1"); err != nil {
		t.Fatalf("run: %v", err)
	}
	requireExists(t, filepath.Join(input, "IMG_1_motion.jpg"))
	requireExists(t, filepath.Join(input, "IMG_1.MOV"))
}

func TestRunReportsMuxerFailure(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFailingMuxer())
	input := filepath.Join(env.baseDir, "photos")
	testsupport.Touch(t, input, "a.jpg", "a.mov")

	stdout, _, err := runCLI(t, env.configPath, "", "run", "--input-dir", input, "--no-watch")
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	requireContains(t, stdout, "1 directories failed")
	requireMissing(t, env.cfg.Paths.LedgerPath)
}

func TestRunRejectsConflictingOptions(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "photos")
	testsupport.Touch(t, input, "a.jpg", "a.mov")

	_, _, err := runCLI(t, env.configPath, "", "run", "--input-dir", input,
		"--overwrite", "--output-dir", filepath.Join(env.baseDir, "out"), "--yes", "--no-watch")
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if !errors.Is(err, services.ErrConfiguration) || !errors.Is(err, config.ErrConflictingOptions) {
		t.Fatalf("unexpected error %v", err)
	}
	if calls := testsupport.MuxerCalls(t, env.cfg.Muxer.Binary); len(calls) != 0 {
		t.Fatalf("muxer ran despite invalid options: %v", calls)
	}
}

func TestRunRejectsInvalidWorkers(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "photos")
	testsupport.Touch(t, input, "a.jpg")

	_, _, err := runCLI(t, env.configPath, "", "run", "--input-dir", input, "--workers", "0", "--no-watch")
	if err == nil || !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunMissingInputDir(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env.configPath, "", "run", "--input-dir", filepath.Join(env.baseDir, "absent"), "--no-watch")
	if err == nil {
		t.Fatal("expected error for missing input directory")
	}
}

func TestDestructiveOptionsNeedConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "photos")
	testsupport.Touch(t, input, "a.jpg", "a.mov")

	_, _, err := runCLI(t, env.configPath, "", "run", "--input-dir", input, "--delete-video", "--no-watch")
	if !errors.Is(err, errNoTerminal) {
		t.Fatalf("expected non-terminal refusal, got %v", err)
	}

	withTerminal(t)
	stdout, _, err := runCLI(t, env.configPath, "n\n", "run", "--input-dir", input, "--delete-video", "--no-watch")
	if !errors.Is(err, errNotConfirmed) {
		t.Fatalf("expected declined prompt, got %v", err)
	}
	requireContains(t, stdout, "delete source videos")
	requireExists(t, filepath.Join(input, "a.mov"))

	if _, _, err := runCLI(t, env.configPath, "yes\n", "run", "--input-dir", input, "--delete-video", "--no-watch"); err != nil {
		t.Fatalf("confirmed run: %v", err)
	}
	requireMissing(t, filepath.Join(input, "a.mov"))
	requireExists(t, filepath.Join(input, "a_motion.jpg"))
}

func TestOverwriteWithYesReplacesImage(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "photos")
	testsupport.Touch(t, input, "a.jpg", "a.mov")

	if _, _, err := runCLI(t, env.configPath, "", "run", "--input-dir", input, "--overwrite", "--yes", "--no-watch"); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(input, "a.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a.jpga.mov" {
		t.Fatalf("image not replaced, content %q", data)
	}
	requireMissing(t, filepath.Join(input, "a_motion.jpg"))
}

func TestMuxSinglePair(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "single")
	testsupport.Touch(t, dir, "x.jpeg", "x.mp4")
	image := filepath.Join(dir, "x.jpeg")
	video := filepath.Join(dir, "x.mp4")

	stdout, _, err := runCLI(t, env.configPath, "", "mux", "--image", image, "--video", video)
	if err != nil {
		t.Fatalf("mux: %v", err)
	}
	requireContains(t, stdout, filepath.Join(dir, "x_motion.jpeg"))

	stdout, _, err = runCLI(t, env.configPath, "", "mux", "--image", image, "--video", video)
	if err != nil {
		t.Fatalf("second mux: %v", err)
	}
	requireContains(t, stdout, "Already processed")
	if calls := testsupport.MuxerCalls(t, env.cfg.Muxer.Binary); len(calls) != 1 {
		t.Fatalf("expected one muxer call, got %v", calls)
	}
}

func TestMuxOutputFile(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "single")
	testsupport.Touch(t, dir, "x.jpg", "x.mov")
	target := filepath.Join(env.baseDir, "exports", "custom.jpg")

	if _, _, err := runCLI(t, env.configPath, "", "mux",
		"--image", filepath.Join(dir, "x.jpg"), "--video", filepath.Join(dir, "x.mov"), "--output-file", target); err != nil {
		t.Fatalf("mux: %v", err)
	}
	requireExists(t, target)

	_, _, err := runCLI(t, env.configPath, "", "mux",
		"--image", filepath.Join(dir, "x.jpg"), "--video", filepath.Join(dir, "x.mov"), "--output-file", target, "--overwrite", "--yes")
	if !errors.Is(err, config.ErrConflictingOptions) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMuxRequiresImageAndVideo(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "single")
	testsupport.Touch(t, dir, "x.jpg")

	_, _, err := runCLI(t, env.configPath, "", "mux", "--image", filepath.Join(dir, "x.jpg"))
	if err == nil || !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLedgerCommands(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithWorkers(2))
	input := filepath.Join(env.baseDir, "photos")
	testsupport.Touch(t, input, "a.jpg", "a.mov", "b.jpg", "b.mov")
	if _, _, err := runCLI(t, env.configPath, "", "run", "--input-dir", input, "--no-watch"); err != nil {
		t.Fatalf("run: %v", err)
	}

	stdout, _, err := runCLI(t, env.configPath, "", "ledger", "list")
	if err != nil {
		t.Fatalf("ledger list: %v", err)
	}
	requireContains(t, stdout, filepath.Join(input, "a.jpg"))
	requireContains(t, stdout, "2 entries")

	stdout, _, err = runCLI(t, env.configPath, "", "ledger", "remove", filepath.Join(input, "a.jpg"))
	if err != nil {
		t.Fatalf("ledger remove: %v", err)
	}
	requireContains(t, stdout, "Removed")

	if _, _, err := runCLI(t, env.configPath, "", "ledger", "remove", filepath.Join(input, "zzz.jpg")); err == nil {
		t.Fatal("expected error removing unknown image")
	}

	if _, _, err := runCLI(t, env.configPath, "", "ledger", "clear"); !errors.Is(err, errNoTerminal) {
		t.Fatalf("expected clear to need confirmation, got %v", err)
	}
	stdout, _, err = runCLI(t, env.configPath, "", "ledger", "clear", "--yes")
	if err != nil {
		t.Fatalf("ledger clear: %v", err)
	}
	requireContains(t, stdout, "Cleared 1 entries")

	stdout, _, err = runCLI(t, env.configPath, "", "ledger", "list")
	if err != nil {
		t.Fatalf("ledger list: %v", err)
	}
	requireContains(t, stdout, "is empty")
}

func TestLedgerFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "single")
	testsupport.Touch(t, dir, "x.jpg", "x.mov")
	alt := filepath.Join(env.baseDir, "alt", "ledger.json")

	if _, _, err := runCLI(t, env.configPath, "", "--ledger", alt, "mux",
		"--image", filepath.Join(dir, "x.jpg"), "--video", filepath.Join(dir, "x.mov")); err != nil {
		t.Fatalf("mux: %v", err)
	}
	requireExists(t, alt)
	requireMissing(t, env.cfg.Paths.LedgerPath)
}

func TestLedgerCorruptFileFails(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(filepath.Dir(env.cfg.Paths.LedgerPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env.cfg.Paths.LedgerPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, env.configPath, "", "ledger", "list")
	if err == nil || !errors.Is(err, services.ErrLedger) {
		t.Fatalf("expected ledger error, got %v", err)
	}
}

func TestHistoryCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "single")
	testsupport.Touch(t, dir, "x.jpg", "x.mov")
	image := filepath.Join(dir, "x.jpg")

	if _, _, err := runCLI(t, env.configPath, "", "mux", "--image", image, "--video", filepath.Join(dir, "x.mov")); err != nil {
		t.Fatalf("mux: %v", err)
	}

	stdout, _, err := runCLI(t, env.configPath, "", "history", "--limit", "5")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, stdout, "succeeded")
	requireContains(t, stdout, "x_motion.jpg")

	stdout, _, err = runCLI(t, env.configPath, "", "history", "--image", image)
	if err != nil {
		t.Fatalf("history --image: %v", err)
	}
	requireContains(t, stdout, image)

	stdout, _, err = runCLI(t, env.configPath, "", "history", "--prune-days", "1")
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, stdout, "Pruned 0 attempts")
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutHistory())
	_, _, err := runCLI(t, env.configPath, "", "history")
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

func TestDoctor(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := runCLI(t, env.configPath, "", "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, stdout)
	}
	requireContains(t, stdout, "Muxer")
	requireContains(t, stdout, "Ledger")

	env.cfg.Muxer.Binary = "clearly-not-a-muxer"
	writeTestConfig(t, env.configPath, env.cfg)
	stdout, _, err = runCLI(t, env.configPath, "", "doctor")
	if err == nil {
		t.Fatal("expected doctor to fail with missing muxer")
	}
	requireContains(t, stdout, "FAIL")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "generated", "config.toml")

	stdout, _, err := runCLI(t, "", "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration")
	requireExists(t, target)

	if _, _, err := runCLI(t, "", "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	stdout, _, err = runCLI(t, env.configPath, "", "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, stdout, "Configuration valid")
	requireContains(t, stdout, env.cfg.Paths.LedgerPath)
}

func TestInvalidConfigFails(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[scan]\nworkers = -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, env.configPath, "", "ledger", "list")
	if err == nil || !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
