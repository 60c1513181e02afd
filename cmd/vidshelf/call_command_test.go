package main

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"vidshelf/internal/rpc"
)

func TestCallCommandPrintsResults(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Handle("get_video", func(args []json.RawMessage) (any, error) {
		if len(args) == 1 && string(args[0]) == "7" {
			return map[string]any{"id": 7, "title": "Heat"}, nil
		}
		return nil, &rpc.RemoteError{Name: "NotFound", Message: "no such video"}
	})
	env.backend.Handle("rescan", func([]json.RawMessage) (any, error) { return nil, nil })

	out, _, err := runCLI(t, []string{"call", "get_video", "7"}, env.configPath)
	if err != nil {
		t.Fatalf("call get_video: %v", err)
	}
	requireContains(t, out, `"title": "Heat"`)

	out, _, err = runCLI(t, []string{"call", "rescan"}, env.configPath)
	if err != nil {
		t.Fatalf("call rescan: %v", err)
	}
	if strings.TrimSpace(out) != "ok" {
		t.Fatalf("rescan output = %q, want ok", out)
	}

	_, _, err = runCLI(t, []string{"call", "get_video", "99"}, env.configPath)
	if err == nil {
		t.Fatal("expected remote error")
	}
	requireContains(t, err.Error(), "NotFound: no such video")
}

func TestCallCommandUnreachableBackend(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Close()

	_, _, err := runCLI(t, []string{"call", "list_videos"}, env.configPath)
	if err == nil {
		t.Fatal("expected connection error")
	}
	requireContains(t, err.Error(), "connect to backend")
}

func TestCallCommandRequiresMethod(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"call"}, env.configPath); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestParseCallArgs(t *testing.T) {
	got := parseCallArgs([]string{"42", `{"tag":"noir"}`, "Heat", `"quoted"`, "true"})
	want := []any{
		json.RawMessage("42"),
		json.RawMessage(`{"tag":"noir"}`),
		"Heat",
		json.RawMessage(`"quoted"`),
		json.RawMessage("true"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseCallArgs = %#v, want %#v", got, want)
	}
}
