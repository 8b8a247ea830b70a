package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
	tu "github.com/desertthunder/lqx/internal/testing"
	"github.com/spf13/afero"
)

type harness struct {
	runner  *Runner
	api     *tu.FakeLessonAPI
	fs      afero.Fs
	output  *bytes.Buffer
	prompts []string
	answer  bool
}

// newHarness wires a Runner to an in-memory API and filesystem, with the journal in a temp file.
func newHarness(t *testing.T, titles ...string) *harness {
	t.Helper()

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "lqx.db")

	h := &harness{
		api:    tu.NewFakeLessonAPI(7, titles...),
		fs:     afero.NewMemMapFs(),
		output: &bytes.Buffer{},
		answer: true,
	}
	h.runner = NewRunner(RunnerOpts{
		Config: config,
		Logger: shared.NewLogger(&bytes.Buffer{}),
		Output: h.output,
		Fs:     h.fs,
		API:    h.api,
		Confirm: func(prompt string) (bool, error) {
			h.prompts = append(h.prompts, prompt)
			return h.answer, nil
		},
	})
	t.Cleanup(func() {
		if h.runner.db != nil {
			h.runner.db.Close()
		}
	})
	return h
}

func (h *harness) run(args ...string) error {
	h.output.Reset()
	return newApp(h.runner).Run(context.Background(), append([]string{"lqx"}, args...))
}

func (h *harness) write(t *testing.T, path, content string) {
	t.Helper()
	if err := afero.WriteFile(h.fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func (h *harness) runs(t *testing.T) []*models.Run {
	t.Helper()
	repo, err := h.runner.journal()
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	runs, err := repo.ListRuns(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	return runs
}

func equalOrder(a, b []int) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			fs := afero.NewMemMapFs()
			api := tu.NewFakeLessonAPI(1)

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
				Fs:     fs,
				API:    api,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.fs != fs {
				t.Error("expected fs to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if runner.confirm == nil {
				t.Error("expected default confirm func")
			}
		})

		t.Run("with defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to stdin")
			}
			if _, ok := runner.fs.(*afero.OsFs); !ok {
				t.Errorf("expected OS filesystem, got %T", runner.fs)
			}
			if runner.cfg() == nil {
				t.Error("expected cfg to fall back to defaults")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()
		names := make([]string, len(commands))
		for i, c := range commands {
			names[i] = c.Name
		}
		want := "[setup collection reorder pair upload history]"
		if got := fmt.Sprint(names); got != want {
			t.Errorf("expected commands %s, got %s", want, got)
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writeJSON(map[string]int{"id": 7}, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := output.String(); got != "{\"id\":7}\n" {
			t.Errorf("unexpected compact JSON: %q", got)
		}

		output.Reset()
		if err := runner.writeJSON(map[string]int{"id": 7}, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "\n  \"id\": 7") {
			t.Errorf("expected indented JSON, got %q", output.String())
		}
	})

	t.Run("writeJSON marshal error", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		if err := runner.writeJSON(make(chan int), false); err == nil {
			t.Error("expected marshal error")
		}
	})

	t.Run("writeJSON write errors", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := runner.writeJSON("x", false); err == nil {
			t.Error("expected write error")
		}

		limited := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
		runner = NewRunner(RunnerOpts{Output: &limited})
		err := runner.writeJSON("x", false)
		if err == nil || !strings.Contains(err.Error(), "newline") {
			t.Errorf("expected newline write error, got %v", err)
		}
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})
		if err := runner.writePlain("run %s\n", "abc"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.String() != "run abc\n" {
			t.Errorf("unexpected output: %q", output.String())
		}

		runner = NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := runner.writePlain("x"); err == nil {
			t.Error("expected write error")
		}
	})

	t.Run("before enables debug logging", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("--verbose", "pair", "/missing"); err == nil {
			t.Fatal("expected error for missing directory")
		}
		if h.runner.logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", h.runner.logger.GetLevel())
		}
	})

	t.Run("before falls back to defaults without a config file", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Fs: afero.NewMemMapFs()})
		path := filepath.Join(t.TempDir(), "absent.toml")

		err := newApp(runner).Run(context.Background(), []string{"lqx", "--config", path, "pair", "/missing"})
		if err == nil {
			t.Fatal("expected error for missing directory")
		}
		if runner.config == nil || runner.config.API.Language != shared.DefaultConfig().API.Language {
			t.Error("expected default config")
		}
	})

	t.Run("after closes the journal", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("setup", "database"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h.runner.db != nil || h.runner.runs != nil {
			t.Error("expected database to be released")
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		h := newHarness(t)
		path := filepath.Join(t.TempDir(), "conf", "config.toml")

		if err := h.run("--config", path, "setup", "config"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "[database]") {
			t.Error("expected the example config to be written")
		}
		if !strings.Contains(h.output.String(), shared.APIKeyEnv) {
			t.Errorf("expected hint about %s, got %q", shared.APIKeyEnv, h.output.String())
		}

		if err := h.run("--config", path, "setup", "config"); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("config loaded from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		tu.MustWriteFile(t, path, "[api]\nlanguage = \"de\"\n")
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Fs: afero.NewMemMapFs(), Logger: shared.NewLogger(&bytes.Buffer{})})

		if err := newApp(runner).Run(context.Background(), []string{"lqx", "--config", path, "pair", "/missing"}); err == nil {
			t.Fatal("expected error for missing directory")
		}
		if runner.cfg().API.Language != "de" {
			t.Errorf("expected language from file, got %q", runner.cfg().API.Language)
		}
	})

	t.Run("database", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("setup", "database"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), "Database ready") {
			t.Errorf("unexpected output: %q", h.output.String())
		}
		if _, err := os.Stat(h.runner.cfg().Database.Path); err != nil {
			t.Errorf("expected database file: %v", err)
		}
	})
}

func TestCollectionCommands(t *testing.T) {
	t.Run("show", func(t *testing.T) {
		h := newHarness(t, "Intro", "Chapter 1")
		if err := h.run("collection", "show", "7"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := h.output.String()
		for _, want := range []string{"Collection 7: 2 lessons", "Intro", "Chapter 1", "https://lingq.test/course/7"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("show as JSON", func(t *testing.T) {
		h := newHarness(t, "Intro")
		if err := h.run("course", "show", "--json", "7"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var snapshot models.CollectionSnapshot
		if err := json.Unmarshal(h.output.Bytes(), &snapshot); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, h.output.String())
		}
		if snapshot.CollectionID != 7 || len(snapshot.Items) != 1 {
			t.Errorf("unexpected snapshot: %+v", snapshot)
		}
	})

	t.Run("show unknown collection", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("collection", "show", "99"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("show without credentials", func(t *testing.T) {
		t.Setenv(shared.APIKeyEnv, "")
		config := shared.DefaultConfig()
		config.Credentials = shared.CredentialsConfig{}
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Logger: shared.NewLogger(&bytes.Buffer{})})

		err := newApp(runner).Run(context.Background(), []string{"lqx", "collection", "show", "7"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("open", func(t *testing.T) {
		h := newHarness(t)
		var opened string
		orig := openBrowser
		openBrowser = func(url string) error {
			opened = url
			return nil
		}
		t.Cleanup(func() { openBrowser = orig })

		if err := h.run("collection", "open", "7"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opened != "https://lingq.test/course/7" {
			t.Errorf("unexpected url: %q", opened)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("collection", "open", "abc"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestReorderCommand(t *testing.T) {
	titles := []string{"3 Three", "1 One", "2 Two"}

	t.Run("dry run", func(t *testing.T) {
		h := newHarness(t, titles...)
		if err := h.run("reorder", "--dry-run", "7"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := h.output.String()
		if !strings.Contains(out, "Reorder collection 7 (1 operations)") {
			t.Errorf("expected preview header, got:\n%s", out)
		}
		if !strings.Contains(out, "dry run: nothing applied") {
			t.Errorf("expected dry run notice, got:\n%s", out)
		}
		if len(h.api.Moves) != 0 || len(h.prompts) != 0 {
			t.Errorf("dry run must not move or prompt: %v %v", h.api.Moves, h.prompts)
		}
	})

	t.Run("apply after confirmation", func(t *testing.T) {
		h := newHarness(t, titles...)
		if err := h.run("reorder", "7"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(h.prompts) != 1 || h.prompts[0] != "Apply 1 operations?" {
			t.Errorf("unexpected prompts: %v", h.prompts)
		}
		if got := h.api.Order(); !equalOrder(got, []int{2, 3, 1}) {
			t.Errorf("expected order [2 3 1], got %v", got)
		}
		if !strings.Contains(h.output.String(), "reorder: 1 succeeded, 0 skipped, 0 failed") {
			t.Errorf("expected summary, got:\n%s", h.output.String())
		}

		runs := h.runs(t)
		if len(runs) != 1 || runs[0].Kind != models.RunReorder || runs[0].Status != models.RunCompleted {
			t.Fatalf("expected one completed reorder run, got %+v", runs)
		}
		if !strings.Contains(h.output.String(), "run "+runs[0].ID) {
			t.Errorf("expected run id in output, got:\n%s", h.output.String())
		}
	})

	t.Run("declined", func(t *testing.T) {
		h := newHarness(t, titles...)
		h.answer = false

		err := h.run("reorder", "7")
		if !errors.Is(err, shared.ErrNotConfirmed) {
			t.Fatalf("expected ErrNotConfirmed, got %v", err)
		}
		if exitCode(err) != 0 {
			t.Error("declining must exit cleanly")
		}
		if len(h.api.Moves) != 0 {
			t.Errorf("expected no moves, got %v", h.api.Moves)
		}
	})

	t.Run("yes skips the prompt", func(t *testing.T) {
		h := newHarness(t, titles...)
		if err := h.run("reorder", "--yes", "7"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(h.prompts) != 0 {
			t.Errorf("expected no prompt, got %v", h.prompts)
		}
		if got := h.api.Order(); !equalOrder(got, []int{2, 3, 1}) {
			t.Errorf("expected order [2 3 1], got %v", got)
		}
	})

	t.Run("manifest", func(t *testing.T) {
		h := newHarness(t, "A", "B", "C", "D")
		h.write(t, "/order.yaml", "order: [2, 1, 4, 3]\n")

		if err := h.run("reorder", "-y", "--manifest", "/order.yaml", "7"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := h.api.Order(); !equalOrder(got, []int{2, 1, 4, 3}) {
			t.Errorf("expected order [2 1 4 3], got %v", got)
		}
	})

	t.Run("missing manifest", func(t *testing.T) {
		h := newHarness(t, "A")
		if err := h.run("reorder", "--manifest", "/absent.yaml", "7"); err == nil {
			t.Error("expected error for missing manifest")
		}
	})

	t.Run("already ordered", func(t *testing.T) {
		h := newHarness(t, "1 One", "2 Two")
		if err := h.run("reorder", "7"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(h.prompts) != 0 {
			t.Errorf("nothing to apply must not prompt, got %v", h.prompts)
		}
		if !strings.Contains(h.output.String(), "nothing to do") {
			t.Errorf("expected empty preview, got:\n%s", h.output.String())
		}
	})

	t.Run("partial failure", func(t *testing.T) {
		h := newHarness(t, titles...)
		h.api.MoveErrs[1] = fmt.Errorf("%w: lesson 1", shared.ErrNotFound)

		err := h.run("reorder", "--yes", "7")
		if !errors.Is(err, errPartialFailure) {
			t.Fatalf("expected errPartialFailure, got %v", err)
		}
		if exitCode(err) != 2 {
			t.Errorf("expected exit code 2, got %d", exitCode(err))
		}
		if !strings.Contains(h.output.String(), "failed:") {
			t.Errorf("expected failure listing, got:\n%s", h.output.String())
		}
	})
}

func TestPairCommand(t *testing.T) {
	t.Run("pairs text and audio", func(t *testing.T) {
		h := newHarness(t)
		h.write(t, "/text/ch1.txt", "one")
		h.write(t, "/text/ch2.txt", "two")
		h.write(t, "/audio/ch1.mp3", "a")
		h.write(t, "/audio/ch2.mp3", "b")

		if err := h.run("pair", "--strategy", "exact", "/text", "/audio"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := h.output.String()
		for _, want := range []string{"Pairs (exact) (2 operations)", "ch1.txt -> ch1.mp3", "ch2.txt -> ch2.mp3"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("works without credentials", func(t *testing.T) {
		t.Setenv(shared.APIKeyEnv, "")
		config := shared.DefaultConfig()
		config.Credentials = shared.CredentialsConfig{}
		fs := afero.NewMemMapFs()
		afero.WriteFile(fs, "/text/ch1.txt", []byte("one"), 0o644)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Fs: fs, Logger: shared.NewLogger(&bytes.Buffer{})})

		if err := newApp(runner).Run(context.Background(), []string{"lqx", "pair", "/text"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "ch1.txt -> (unmatched)") {
			t.Errorf("unexpected output:\n%s", output.String())
		}
	})

	t.Run("missing text dir", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("pair"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("unknown strategy", func(t *testing.T) {
		h := newHarness(t)
		h.write(t, "/text/ch1.txt", "one")
		if err := h.run("pair", "--strategy", "random", "/text"); !errors.Is(err, shared.ErrUnknownStrategy) {
			t.Errorf("expected ErrUnknownStrategy, got %v", err)
		}
	})
}

func TestUploadCommand(t *testing.T) {
	fixture := func(t *testing.T) *harness {
		h := newHarness(t, "existing")
		h.write(t, "/text/ch1.txt", "one")
		h.write(t, "/text/ch2.txt", "two")
		h.write(t, "/text/existing.txt", "old")
		h.write(t, "/audio/ch1.mp3", "a")
		return h
	}

	t.Run("dry run", func(t *testing.T) {
		h := fixture(t)
		if err := h.run("upload", "-n", "--text", "/text", "--audio", "/audio", "7"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := h.output.String()
		for _, want := range []string{`ch1.txt + ch1.mp3 -> new lesson "ch1"`, "existing.txt -> skipped", "dry run"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
		if len(h.api.Posts) != 0 {
			t.Errorf("dry run must not post, got %v", h.api.Posts)
		}
	})

	t.Run("apply", func(t *testing.T) {
		h := fixture(t)
		if err := h.run("upload", "--yes", "--text", "/text", "--audio", "/audio", "7"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(h.api.Posts) != 2 {
			t.Errorf("expected 2 posts, got %v", h.api.Posts)
		}
		if !strings.Contains(h.output.String(), "upload: 2 succeeded, 1 skipped, 0 failed") {
			t.Errorf("expected summary, got:\n%s", h.output.String())
		}

		runs := h.runs(t)
		if len(runs) != 1 || runs[0].Kind != models.RunUpload || runs[0].Succeeded != 2 {
			t.Errorf("unexpected runs: %+v", runs)
		}
	})

	t.Run("prompt counts pending uploads", func(t *testing.T) {
		h := fixture(t)
		h.answer = false
		if err := h.run("upload", "--text", "/text", "7"); !errors.Is(err, shared.ErrNotConfirmed) {
			t.Fatalf("expected ErrNotConfirmed, got %v", err)
		}
		if len(h.prompts) != 1 || h.prompts[0] != "Apply 2 operations?" {
			t.Errorf("unexpected prompts: %v", h.prompts)
		}
	})

	t.Run("text flag is required", func(t *testing.T) {
		h := fixture(t)
		if err := h.run("upload", "7"); err == nil {
			t.Error("expected error without --text")
		}
	})
}

func TestHistoryCommands(t *testing.T) {
	setup := func(t *testing.T) (*harness, *models.Run) {
		h := newHarness(t, "3 Three", "1 One", "2 Two")
		if err := h.run("reorder", "--yes", "7"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		runs := h.runs(t)
		if len(runs) != 1 {
			t.Fatalf("expected one run, got %d", len(runs))
		}
		return h, runs[0]
	}

	t.Run("list", func(t *testing.T) {
		h, run := setup(t)
		if err := h.run("history", "list"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), run.ID[:8]) {
			t.Errorf("expected run %s in output:\n%s", run.ID[:8], h.output.String())
		}

		if err := h.run("history", "list", "--collection", "99"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), "no runs recorded") {
			t.Errorf("expected empty listing, got:\n%s", h.output.String())
		}
	})

	t.Run("list as JSON", func(t *testing.T) {
		h, run := setup(t)
		if err := h.run("history", "list", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var runs []models.Run
		if err := json.Unmarshal(h.output.Bytes(), &runs); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(runs) != 1 || runs[0].ID != run.ID {
			t.Errorf("unexpected runs: %+v", runs)
		}
	})

	t.Run("show by prefix", func(t *testing.T) {
		h, run := setup(t)
		if err := h.run("history", "show", run.ID[:8]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := h.output.String()
		for _, want := range []string{"Run: " + run.ID, "Status: completed", "reorder: 1 succeeded"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("export to file", func(t *testing.T) {
		h, run := setup(t)
		if err := h.run("history", "show", "--format", "csv", "--output", "/run.csv", run.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := afero.ReadFile(h.fs, "/run.csv")
		if err != nil {
			t.Fatalf("expected export file: %v", err)
		}
		if !strings.HasPrefix(string(data), "Seq,Label,ItemID,Status,Detail,URL\n") {
			t.Errorf("unexpected CSV:\n%s", data)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		h, run := setup(t)
		if err := h.run("history", "show", "-f", "xml", run.ID); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		h, run := setup(t)
		if err := h.run("history", "delete", run.ID[:8]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), "Deleted run "+run.ID) {
			t.Errorf("unexpected output: %q", h.output.String())
		}
		if runs := h.runs(t); len(runs) != 0 {
			t.Errorf("expected no runs, got %d", len(runs))
		}
		if err := h.run("history", "show", run.ID); err == nil {
			t.Error("expected error for deleted run")
		}
	})
}

func TestParseID(t *testing.T) {
	tests := []struct {
		value string
		want  int
		err   error
	}{
		{"42", 42, nil},
		{" 7 ", 7, nil},
		{"", 0, shared.ErrMissingArgument},
		{"abc", 0, shared.ErrInvalidArgument},
		{"0", 0, shared.ErrInvalidArgument},
		{"-3", 0, shared.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.value), func(t *testing.T) {
			got, err := parseID("collection id", tt.value)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"declined", fmt.Errorf("%w: reorder", shared.ErrNotConfirmed), 0},
		{"partial failure", fmt.Errorf("%w: 1 of 3", errPartialFailure), 2},
		{"aborted", fmt.Errorf("%w: %w", shared.ErrAborted, shared.ErrInvalidCredentials), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestOfflineAPI(t *testing.T) {
	var api offlineAPI
	ctx := context.Background()

	if _, err := api.FetchCollection(ctx, 1); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
	if err := api.MovePosition(ctx, models.MoveOperation{ID: 1, TargetPosition: 1}); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
	if _, err := api.PostLesson(ctx, 1, models.LessonUpload{Title: "x"}); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
	if api.LessonURL(1) != "" || api.CollectionURL(1) != "" {
		t.Error("offline URLs should be empty")
	}
}
