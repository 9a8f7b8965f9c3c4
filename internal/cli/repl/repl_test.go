package repl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"session status", []string{"session", "status"}},
		{"  offer   accept  501 ", []string{"offer", "accept", "501"}},
		{`session login -u "bob smith"`, []string{"session", "login", "-u", "bob smith"}},
		{`token hash 'a b\c'`, []string{"token", "hash", `a b\c`}},
		{`token hash a\ b`, []string{"token", "hash", "a b"}},
		{`x ""`, []string{"x", ""}},
		{"", nil},
	}
	for _, tt := range tests {
		got, err := Split(tt.in)
		if err != nil {
			t.Errorf("Split(%q) error: %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Split(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{`say "hi`, `trailing\`} {
		if _, err := Split(bad); err == nil {
			t.Errorf("Split(%q) accepted", bad)
		}
	}
}

func TestREPL_Run(t *testing.T) {
	var (
		out  strings.Builder
		ran  [][]string
		hist = NewHistory("", 10)
	)
	in := strings.NewReader("session status\n\nhistory\nsess?\noffer accept 9\nexit\nnever reached\n")
	r := New(Options{
		In:        in,
		Out:       &out,
		History:   hist,
		Completer: NewCompleter([]string{"session status", "session login", "offer list"}),
		Exec: func(_ context.Context, args []string) error {
			ran = append(ran, args)
			if args[0] == "offer" {
				return errors.New("not logged in")
			}
			return nil
		},
	})
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := [][]string{{"session", "status"}, {"offer", "accept", "9"}}
	if !reflect.DeepEqual(ran, want) {
		t.Errorf("ran = %q, want %q", ran, want)
	}
	text := out.String()
	for _, s := range []string{"   1  session status", "session login\nsession status\n", "error: not logged in"} {
		if !strings.Contains(text, s) {
			t.Errorf("output missing %q:\n%s", s, text)
		}
	}
	if got := hist.Entries(); len(got) != 2 {
		t.Errorf("history = %q", got)
	}
}

func TestREPL_EOFWithoutNewline(t *testing.T) {
	n := 0
	r := New(Options{
		In:   strings.NewReader("health"),
		Out:  &strings.Builder{},
		Exec: func(context.Context, []string) error { n++; return nil },
	})
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("executed %d lines, want 1", n)
	}
}

func TestHistory(t *testing.T) {
	h := NewHistory("", 3)
	for _, l := range []string{"a", "b", "b", "c", "d"} {
		h.Add(l)
	}
	h.Add("session login -u bob --password pw")
	if got := h.Entries(); !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Errorf("Entries() = %q", got)
	}
	if h.Get(0) != "d" || h.Get(2) != "b" || h.Get(3) != "" {
		t.Errorf("Get: %q %q %q", h.Get(0), h.Get(2), h.Get(3))
	}
}

func TestHistory_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "history")
	h := NewHistory(path, 10)
	h.Add("session status")
	h.Add("offer list")
	if err := h.Save(); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %o", info.Mode().Perm())
	}

	loaded := NewHistory(path, 10)
	if err := loaded.Load(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Entries(), h.Entries()) {
		t.Errorf("loaded %q, want %q", loaded.Entries(), h.Entries())
	}

	if err := NewHistory(filepath.Join(t.TempDir(), "absent"), 10).Load(); err != nil {
		t.Errorf("Load(missing) = %v", err)
	}
}

func TestCompleter(t *testing.T) {
	c := NewCompleter([]string{"session status", "session login", "offer list"})
	if got := c.Complete("session "); !reflect.DeepEqual(got, []string{"session login", "session status"}) {
		t.Errorf("Complete(session ) = %q", got)
	}
	if got := c.Complete("ex"); !reflect.DeepEqual(got, []string{"exit"}) {
		t.Errorf("Complete(ex) = %q", got)
	}
	if got := c.Complete("zzz"); got != nil {
		t.Errorf("Complete(zzz) = %q", got)
	}
}
