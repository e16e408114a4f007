package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
)

const countFlowYAML = `name: count
rounds:
  - task: How many sheep are in the field?
    steps:
      - type: guidance
        content: I count
      - type: inference
        grammar:
          kind: integer
          lower: 0
          upper: 9
`

// llamaServer answers /completion with text, stopping on the request's first
// stop word. Cache priming requests get an empty reply.
func llamaServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			NPredict *int     `json:"n_predict"`
			Stop     []string `json:"stop"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if body.NPredict != nil && *body.NPredict == 0 {
			_, _ = w.Write([]byte(`{"content": "", "stop_type": "limit"}`))
			return
		}
		reply := map[string]any{"content": text, "stop_type": "eos"}
		if len(body.Stop) > 0 {
			reply["stop_type"] = "word"
			reply["stopping_word"] = body.Stop[0]
		}
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })

	fileConfig = Config{}
	app := &cli.Command{
		Name:           "cascade",
		Commands:       []*cli.Command{runCmd()},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
	err := app.Run(context.Background(), append([]string{"cascade"}, args...))
	return buf.String(), err
}

func writeFlow(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "count.yaml")
	if err := os.WriteFile(path, []byte(countFlowYAML), 0o600); err != nil {
		t.Fatalf("write flow: %v", err)
	}
	return path
}

func TestRunCheckOnly(t *testing.T) {
	path := writeFlow(t)
	out, err := runApp(t, "run", "--file", path, "--check")
	if err != nil {
		t.Fatalf("run --check: %v", err)
	}
	if want := path + ": ok (1 rounds)\n"; out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestRunAgainstLlamaServer(t *testing.T) {
	srv := llamaServer(t, " 4")
	out, err := runApp(t, "run", "-f", writeFlow(t),
		"--server-url", srv.URL, "--chat-format", "raw", "--json")
	if err != nil {
		t.Fatalf("run: %v (output %s)", err, out)
	}

	var summary runSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.Name != "count" || summary.Result == nil || *summary.Result != "4" || summary.Error != "" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	last := summary.Transcript[len(summary.Transcript)-1]
	if last.Content != "I count 4" {
		t.Fatalf("unexpected final turn %+v", last)
	}
}

func TestRunRejectsInvalidFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("name: bad\nrounds: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := runApp(t, "run", "-f", path, "--check")
	if err == nil || !strings.Contains(err.Error(), "rounds") {
		t.Fatalf("expected validation error, got %v", err)
	}
}
