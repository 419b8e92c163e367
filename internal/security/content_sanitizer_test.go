package security

import (
	"strings"
	"testing"
)

// scriptタグが除去されることを検証
func TestSanitize_RemovesScriptTags(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<p>hello</p><script>alert("xss")</script>`)

	if strings.Contains(got, "<script") {
		t.Errorf("sanitized output contains script tag: %q", got)
	}
	if !strings.Contains(got, "<p>hello</p>") {
		t.Errorf("sanitized output lost allowed content: %q", got)
	}
}

// on*イベント属性が除去されることを検証
func TestSanitize_RemovesEventAttributes(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<p onclick="alert(1)">text</p>`)

	if strings.Contains(got, "onclick") {
		t.Errorf("sanitized output contains onclick attribute: %q", got)
	}
}

// 許可タグが通過することを検証
func TestSanitize_KeepsAllowedTags(t *testing.T) {
	s := NewContentSanitizer()

	input := `<p>段落</p><ul><li>項目</li></ul><pre><code>x := 1</code></pre><strong>太字</strong>`
	got := s.Sanitize(input)

	for _, tag := range []string{"<p>", "<ul>", "<li>", "<pre>", "<code>", "<strong>"} {
		if !strings.Contains(got, tag) {
			t.Errorf("sanitized output lost allowed tag %s: %q", tag, got)
		}
	}
}

// imgタグが除去されることを検証（本文中の画像は許可しない）
func TestSanitize_RemovesImgTags(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<p>text</p><img src="https://example.com/x.png">`)

	if strings.Contains(got, "<img") {
		t.Errorf("sanitized output contains img tag: %q", got)
	}
}

// 空入力に空出力を返すことを検証
func TestSanitize_EmptyInput(t *testing.T) {
	s := NewContentSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty string", got)
	}
}

// 同一入力に対して同一出力を返すことを検証（冪等性）
func TestSanitize_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	input := `<p>hello <a href="https://example.com">link</a></p>`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)

	if once != twice {
		t.Errorf("Sanitize is not idempotent: first %q, second %q", once, twice)
	}
}
