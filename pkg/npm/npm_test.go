package npm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/matzehuels/npmgen/pkg/config"
	npmerrors "github.com/matzehuels/npmgen/pkg/errors"
)

type recordingRunner struct {
	dir  string
	env  []string
	args []string
	out  []byte
	err  error
}

func (r *recordingRunner) Run(_ context.Context, dir string, env []string, args ...string) ([]byte, error) {
	r.dir, r.env, r.args = dir, env, args
	return r.out, r.err
}

func envMap(env []string) map[string]string {
	m := make(map[string]string)
	for _, kv := range env {
		k, v, _ := strings.Cut(kv, "=")
		m[k] = v
	}
	return m
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.NpmPath = "/opt/node/bin/npm"
	cfg.NodeBinDir = "/opt/node/bin"
	return cfg
}

func TestEnv(t *testing.T) {
	c := NewClientWithRunner(testConfig(), &recordingRunner{}, nil)
	c.lookupEnv = func(name string) (string, bool) {
		switch name {
		case "HTTP_PROXY":
			return "http://proxy:3128", true
		case "HOME":
			return "/home/dev", true
		}
		return "", false
	}

	env := c.Env("/tmp/work/.npm")
	m := envMap(env)

	want := map[string]string{
		"PATH":                      "/opt/node/bin:/usr/bin:/bin",
		"NPM_CONFIG_IGNORE_SCRIPTS": "true",
		"NPM_CONFIG_GLOBAL_STYLE":   "true",
		"NPM_CONFIG_CACHE":          "/tmp/work/.npm",
		"HTTP_PROXY":                "http://proxy:3128",
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("%s = %q, want %q", k, m[k], v)
		}
	}
	if len(m) != len(want) {
		t.Errorf("env has %d vars, want %d: %v", len(m), len(want), env)
	}
	if _, ok := m["HOME"]; ok {
		t.Error("HOME must not be inherited")
	}
	if _, ok := m["HTTPS_PROXY"]; ok {
		t.Error("unset HTTPS_PROXY must not appear")
	}

	for i := 1; i < len(env); i++ {
		if env[i-1] > env[i] {
			t.Errorf("env not sorted: %q before %q", env[i-1], env[i])
		}
	}
}

func TestEnvRegistry(t *testing.T) {
	cfg := testConfig()
	cfg.RegistryURL = "https://npm.example.com"
	c := NewClientWithRunner(cfg, &recordingRunner{}, nil)
	c.lookupEnv = func(string) (string, bool) { return "", false }

	m := envMap(c.Env("/c"))
	if m[EnvRegistry] != "https://npm.example.com" {
		t.Errorf("%s = %q", EnvRegistry, m[EnvRegistry])
	}
}

func TestEnvWithoutNodeBin(t *testing.T) {
	cfg := testConfig()
	cfg.NodeBinDir = ""
	c := NewClientWithRunner(cfg, &recordingRunner{}, nil)
	c.lookupEnv = func(string) (string, bool) { return "", false }

	if got := envMap(c.Env("/c"))["PATH"]; got != "/usr/bin:/bin" {
		t.Errorf("PATH = %q", got)
	}
}

func TestClientCommands(t *testing.T) {
	r := &recordingRunner{}
	c := NewClientWithRunner(testConfig(), r, nil)
	ctx := context.Background()

	if err := c.Install(ctx, "/work", "/work/.npm"); err != nil {
		t.Fatalf("Install error: %v", err)
	}
	if r.dir != "/work" || strings.Join(r.args, " ") != "install" {
		t.Errorf("Install ran %v in %s", r.args, r.dir)
	}
	if envMap(r.env)[EnvCache] != "/work/.npm" {
		t.Errorf("cache = %q", envMap(r.env)[EnvCache])
	}

	if err := c.Shrinkwrap(ctx, "/work", "/work/.npm"); err != nil {
		t.Fatalf("Shrinkwrap error: %v", err)
	}
	if strings.Join(r.args, " ") != "shrinkwrap" {
		t.Errorf("Shrinkwrap ran %v", r.args)
	}
}

func TestClientFailure(t *testing.T) {
	exitErr := &ExitError{Path: "npm", Args: []string{"install"}, Output: []byte("npm ERR! 404 Not Found"), Err: errors.New("exit status 1")}
	c := NewClientWithRunner(testConfig(), &recordingRunner{err: exitErr}, nil)

	err := c.Install(context.Background(), "/work", "/work/.npm")
	if err == nil {
		t.Fatal("expected error")
	}
	if !npmerrors.Is(err, npmerrors.ErrCodeSubprocess) {
		t.Errorf("code = %v, want %v", npmerrors.GetCode(err), npmerrors.ErrCodeSubprocess)
	}
	out, ok := npmerrors.CapturedOutput(err)
	if !ok || string(out) != "npm ERR! 404 Not Found" {
		t.Errorf("CapturedOutput = %q, %v", out, ok)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "npm")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecRunner(t *testing.T) {
	script := writeScript(t, `echo "args=$*"; echo "cache=$NPM_CONFIG_CACHE"; pwd`)
	dir := t.TempDir()

	r := &ExecRunner{Path: script}
	out, err := r.Run(context.Background(), dir, []string{"NPM_CONFIG_CACHE=/c", "PATH=/usr/bin:/bin"}, "install")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, "args=install") {
		t.Errorf("output missing args: %q", got)
	}
	if !strings.Contains(got, "cache=/c") {
		t.Errorf("output missing env: %q", got)
	}
	resolved, _ := filepath.EvalSymlinks(dir)
	if !strings.Contains(got, resolved) && !strings.Contains(got, dir) {
		t.Errorf("output missing working dir %s: %q", dir, got)
	}
}

func TestExecRunnerFailure(t *testing.T) {
	script := writeScript(t, `echo "npm ERR! code E404"; echo "npm ERR! registry error" 1>&2; exit 3`)

	r := &ExecRunner{Path: script}
	_, err := r.Run(context.Background(), t.TempDir(), []string{"PATH=/usr/bin:/bin"}, "install")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %T %v, want *ExitError", err, err)
	}
	if exitErr.ExitCode() != 3 {
		t.Errorf("ExitCode() = %d, want 3", exitErr.ExitCode())
	}
	out := string(exitErr.CombinedOutput())
	if !strings.Contains(out, "code E404") || !strings.Contains(out, "registry error") {
		t.Errorf("CombinedOutput() = %q, want stdout and stderr", out)
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	r := &ExecRunner{Path: filepath.Join(t.TempDir(), "no-npm")}
	_, err := r.Run(context.Background(), t.TempDir(), nil, "install")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %T, want *ExitError", err)
	}
	if exitErr.ExitCode() != -1 {
		t.Errorf("ExitCode() = %d, want -1", exitErr.ExitCode())
	}
}
