package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alfredjeanlab/guardian/internal/idgen"
	"github.com/alfredjeanlab/guardian/internal/logstore"
	"github.com/alfredjeanlab/guardian/internal/model"
)

func newTestStore(t *testing.T) *logstore.Store {
	t.Helper()
	s := logstore.New(logstore.Options{
		Cap:   10,
		NewID: idgen.Sequence("e"),
		Now:   func() time.Time { return time.Date(2025, 1, 2, 15, 4, 5, 0, time.Local) },
	})
	t.Cleanup(s.Close)
	return s
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm, cmd
}

// runCmd executes cmd with a timeout and returns its message.
func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	select {
	case msg := <-out:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("command did not return")
	}
	return nil
}

func TestView_Empty(t *testing.T) {
	m := New(newTestStore(t))
	defer m.Release()

	view := m.View()
	for _, want := range []string{"SILVER", "GUARDIAN", "AI 분석 엔진 가동 중", emptyText, "0/10"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestUpdate_RerendersOnChange(t *testing.T) {
	store := newTestStore(t)
	m := New(store)
	defer m.Release()

	if err := store.Ingest(model.ClassificationEvent{URL: "https://youtube.com/watch?v=xyz"}.WithAnalysis("이 영상은 위험합니다")); err != nil {
		t.Fatal(err)
	}
	if err := store.Ingest(model.ClassificationEvent{URL: "https://youtube.com/watch?v=abc"}.WithAnalysis("정상적인 교육 콘텐츠입니다")); err != nil {
		t.Fatal(err)
	}

	msg := runCmd(t, m.Init())
	if _, ok := msg.(changeMsg); !ok {
		t.Fatalf("Init command returned %T, want changeMsg", msg)
	}
	m, cmd := update(t, m, msg)
	if cmd == nil {
		t.Error("expected the model to keep waiting for changes")
	}

	if len(m.Entries()) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(m.Entries()))
	}
	view := m.View()
	for _, want := range []string{"이 영상은 위험합니다", "정상적인 교육 콘텐츠입니다", badgeWarning, badgeInfo, "15:04:05", "2/10"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, emptyText) {
		t.Error("empty-state text shown with entries present")
	}
	// Newest first.
	if strings.Index(view, "정상적인") > strings.Index(view, "위험합니다") {
		t.Error("entries not rendered newest first")
	}
}

func TestUpdate_HeadlineFallsBackToTitleAndURL(t *testing.T) {
	store := newTestStore(t)
	m := New(store)
	defer m.Release()

	_ = store.Ingest(model.ClassificationEvent{URL: "https://youtube.com/shorts/abc123", Title: "고양이 영상"})
	_ = store.Ingest(model.ClassificationEvent{URL: "https://youtube.com/watch?v=plain"})

	m, _ = update(t, m, changeMsg{})
	view := m.View()
	if !strings.Contains(view, "고양이 영상") {
		t.Errorf("title not shown:\n%s", view)
	}
	if strings.Count(view, "https://youtube.com/watch?v=plain") != 2 {
		t.Errorf("URL should appear as headline and URL line:\n%s", view)
	}
}

func TestUpdate_QuitReleasesWatch(t *testing.T) {
	store := newTestStore(t)
	m := New(store)

	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := update(t, m, key)
		if _, ok := runCmd(t, cmd).(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", key)
		}
	}

	// The watch channel is closed, so waiting reports closure.
	if _, ok := runCmd(t, waitForChange(m.changes)).(closedMsg); !ok {
		t.Error("watch not released on quit")
	}
}

func TestUpdate_StoreClosed(t *testing.T) {
	store := newTestStore(t)
	m := New(store)
	_ = store.Ingest(model.ClassificationEvent{URL: "u"})
	store.Close()

	// The buffered change is delivered before the close.
	msg := runCmd(t, m.Init())
	m, cmd := update(t, m, msg)
	m, _ = update(t, m, runCmd(t, cmd))

	if !m.stopped {
		t.Fatal("expected stopped after store close")
	}
	view := m.View()
	if !strings.Contains(view, "감시 중지됨") || !strings.Contains(view, "감시가 종료되었습니다.") {
		t.Errorf("stopped state not rendered:\n%s", view)
	}
}

func TestUpdate_LinkStatus(t *testing.T) {
	m := New(newTestStore(t))
	defer m.Release()

	m, _ = update(t, m, LinkMsg(LinkDown))
	if !strings.Contains(m.View(), "재연결 중") {
		t.Error("link-down status not shown")
	}
	m, _ = update(t, m, LinkMsg(LinkUp))
	if !strings.Contains(m.View(), "AI 분석 엔진 가동 중") {
		t.Error("link-up status not shown")
	}
}

func TestView_RespectsWidth(t *testing.T) {
	store := newTestStore(t)
	m := New(store)
	defer m.Release()

	_ = store.Ingest(model.ClassificationEvent{URL: "https://youtube.com/shorts/" + strings.Repeat("x", 200)})
	m, _ = update(t, m, changeMsg{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 20})

	for i, line := range strings.Split(m.View(), "\n") {
		if w := lipgloss.Width(line); w > 60 {
			t.Errorf("line %d is %d cells wide, want <= 60: %q", i, w, line)
		}
	}
}

func TestTruncate(t *testing.T) {
	for _, tc := range []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 5, "abcd…"},
		{"위험합니다", 5, "위험…"},
		{"anything", 0, ""},
	} {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
