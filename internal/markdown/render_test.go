package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "heading and task list",
			input:    "# Hi\n\n- [x] done\n- [ ] todo",
			expected: "<h1>Hi</h1>\n" + `<ul class="task-list">` +
				`<li class="task-list-item"><input type="checkbox" checked disabled /><span>done</span></li>` +
				`<li class="task-list-item"><input type="checkbox" disabled /><span>todo</span></li></ul>`,
		},
		{
			name:     "paragraph lines joined with breaks",
			input:    "a\nb\n\nc",
			expected: "<p>a<br />b</p>\n<p>c</p>",
		},
		{
			name:     "crlf input",
			input:    "a\r\nb",
			expected: "<p>a<br />b</p>",
		},
		{
			name:     "text is escaped",
			input:    `a <b> & 'c' "d"`,
			expected: "<p>a &lt;b&gt; &amp; &#39;c&#39; &quot;d&quot;</p>",
		},
		{
			name:     "emphasis",
			input:    "**b** __s__ *i* _u_ ~~d~~",
			expected: "<p><strong>b</strong> <strong>s</strong> <em>i</em> <em>u</em> <del>d</del></p>",
		},
		{
			name:     "code span is not emphasized",
			input:    "`**x** <y>`",
			expected: "<p><code>**x** &lt;y&gt;</code></p>",
		},
		{
			name:     "link",
			input:    "[docs](https://example.com/a?b=1&c=2)",
			expected: `<p><a href="https://example.com/a?b=1&amp;c=2" target="_blank" rel="noopener noreferrer">docs</a></p>`,
		},
		{
			name:     "image",
			input:    "![a \"cat\"](/img/cat.png)",
			expected: `<p><img src="/img/cat.png" alt="a &quot;cat&quot;" /></p>`,
		},
		{
			name:     "code inside link label",
			input:    "[`run`](#run)",
			expected: `<p><a href="#run" target="_blank" rel="noopener noreferrer"><code>run</code></a></p>`,
		},
		{
			name:     "fenced code keeps content and lower-cases language",
			input:    "```Go\nfmt.Println(\"<hi>\")\n\n**x**\n```",
			expected: `<pre><code class="language-go">fmt.Println(&quot;&lt;hi&gt;&quot;)` + "\n\n**x**</code></pre>",
		},
		{
			name:     "unterminated fence runs to the end",
			input:    "```\ncode",
			expected: "<pre><code>code</code></pre>",
		},
		{
			name:     "heading levels",
			input:    "###### Six\n####### Seven",
			expected: "<h6>Six</h6>\n<p>####### Seven</p>",
		},
		{
			name:     "thematic breaks",
			input:    "---\n***\n___",
			expected: "<hr />\n<hr />\n<hr />",
		},
		{
			name:     "blockquote",
			input:    "> a\n>b\n\nafter",
			expected: "<blockquote><p>a<br />b</p></blockquote>\n<p>after</p>",
		},
		{
			name:     "ordered list",
			input:    "3. a\n4. **b**",
			expected: "<ol><li>a</li><li><strong>b</strong></li></ol>",
		},
		{
			name:     "plain bullet list",
			input:    "- a\n* b\n+ c",
			expected: "<ul><li>a</li><li>b</li><li>c</li></ul>",
		},
		{
			name:     "paragraph ends at block start",
			input:    "intro\n- item",
			expected: "<p>intro</p>\n<ul><li>item</li></ul>",
		},
		{
			name:     "pipe line without separator is a paragraph",
			input:    "a | b",
			expected: "<p>a | b</p>",
		},
		{
			name:     "whitespace only",
			input:    " \n\t\n",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToHTML(tt.input))
		})
	}
}

func TestToHTML_UnsafeURLs(t *testing.T) {
	for _, input := range []string{
		"[x](javascript:alert(1))",
		"[x](JavaScript:alert(1))",
		"[x](data:text/html;base64,AAAA)",
		"![x](vbscript:msgbox)",
	} {
		t.Run(input, func(t *testing.T) {
			out := ToHTML(input)
			assert.Contains(t, out, `="#"`)
			assert.NotContains(t, out, "script:")
			assert.NotContains(t, out, "data:")
		})
	}
}

func TestSanitizeURL(t *testing.T) {
	assert.Equal(t, "https://a.b/c", SanitizeURL("  https://a.b/c "))
	assert.Equal(t, "MAILTO:me@x.y", SanitizeURL("MAILTO:me@x.y"))
	assert.Equal(t, "tel:+351", SanitizeURL("tel:+351"))
	assert.Equal(t, "/pages/1", SanitizeURL("/pages/1"))
	assert.Equal(t, "#top", SanitizeURL("#top"))
	assert.Equal(t, "#", SanitizeURL("ftp://x"))
	assert.Equal(t, "#", SanitizeURL("relative/path"))
	assert.Equal(t, "/a?b=&quot;&#96;", SanitizeURL("/a?b=\"`"))
}

func TestToHTML_Tables(t *testing.T) {
	t.Run("short row is padded to the header width", func(t *testing.T) {
		out := ToHTML("| a | b | c |\n| --- | --- | --- |\n| 1 | 2 |")
		assert.Equal(t,
			"<table><thead><tr><th>a</th><th>b</th><th>c</th></tr></thead>"+
				"<tbody><tr><td>1</td><td>2</td><td></td></tr></tbody></table>",
			out)
	})

	t.Run("long row is truncated", func(t *testing.T) {
		out := ToHTML("| a | b |\n|---|---|\n| 1 | 2 | 3 |")
		assert.Contains(t, out, "<tr><td>1</td><td>2</td></tr>")
		assert.NotContains(t, out, "<td>3</td>")
	})

	t.Run("header only omits tbody", func(t *testing.T) {
		out := ToHTML("| a | b |\n| :--- | ---: |")
		assert.Equal(t, "<table><thead><tr><th>a</th><th>b</th></tr></thead></table>", out)
	})

	t.Run("single column", func(t *testing.T) {
		out := ToHTML("| a |\n| --- |\n| 1 |")
		assert.Equal(t,
			"<table><thead><tr><th>a</th></tr></thead>"+
				"<tbody><tr><td>1</td></tr></tbody></table>",
			out)
	})

	t.Run("single column with alignment", func(t *testing.T) {
		out := ToHTML("| a |\n|:---:|")
		assert.Equal(t, "<table><thead><tr><th>a</th></tr></thead></table>", out)
	})

	t.Run("cells get inline formatting", func(t *testing.T) {
		out := ToHTML("| **a** | b |\n| --- | --- |\n| `x` | [l](/p) |")
		assert.Contains(t, out, "<th><strong>a</strong></th>")
		assert.Contains(t, out, "<td><code>x</code></td>")
		assert.Contains(t, out, `<td><a href="/p"`)
	})
}

func TestToHTML_InteractiveCheckboxes(t *testing.T) {
	out := ToHTML("- [ ] a\n- [X] b", InteractiveCheckboxes())
	assert.Equal(t, `<ul class="task-list">`+
		`<li class="task-list-item"><input type="checkbox" /><span>a</span></li>`+
		`<li class="task-list-item"><input type="checkbox" checked /><span>b</span></li></ul>`, out)

	assert.Contains(t, ToHTML("- [ ] a", DisableCheckboxes(true)), "disabled")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, EmptyPlaceholder, Preview(""))
	assert.Equal(t, EmptyPlaceholder, Preview("  \n "))
	assert.Equal(t, "<p>x</p>", Preview("x"))
}
