package builder

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// renderRST converts a reStructuredText document to HTML. It covers the
// subset documentation projects lean on: section titles, paragraphs, lists,
// literal and code blocks, admonitions, math, images, comments and the
// usual inline markup. A leading field list (":title: ...") is read as
// front matter. Links written with :doc: are resolved against baseHref.
func renderRST(raw []byte, baseHref string) (PageMeta, string, []byte, error) {
	if !utf8.Valid(raw) {
		return PageMeta{}, "", nil, fmt.Errorf("document is not valid UTF-8")
	}
	text := strings.ReplaceAll(string(bytes.TrimPrefix(raw, []byte("\ufeff"))), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\t", "        ")
	lines := strings.Split(text, "\n")

	meta, lines := rstFrontMatter(lines)

	r := &rstRenderer{baseHref: baseHref, ids: make(map[string]int)}
	r.blocks(lines)
	return meta, r.title, r.out.Bytes(), nil
}

type rstRenderer struct {
	out      bytes.Buffer
	title    string
	baseHref string
	// levels records adornment styles in order of first use; a style's
	// index is its section depth.
	levels []string
	ids    map[string]int
}

var (
	rstFieldRe     = regexp.MustCompile(`^:([A-Za-z][\w -]*):\s*(.*)$`)
	rstBulletRe    = regexp.MustCompile(`^([-*+])\s+`)
	rstEnumRe      = regexp.MustCompile(`^(\d+|#)[.)]\s+`)
	rstDirectiveRe = regexp.MustCompile(`^\.\.\s+([\w:-]+)::\s*(.*)$`)
)

// rstFrontMatter consumes a field list at the top of the document.
func rstFrontMatter(lines []string) (PageMeta, []string) {
	meta := PageMeta{}
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	start := i
	for ; i < len(lines); i++ {
		m := rstFieldRe.FindStringSubmatch(lines[i])
		if m == nil {
			break
		}
		key, value := strings.ToLower(strings.TrimSpace(m[1])), strings.TrimSpace(m[2])
		switch key {
		case "title":
			meta.Title = value
		case "description":
			meta.Description = value
		case "draft":
			meta.Draft, _ = strconv.ParseBool(value)
		default:
			if meta.Params == nil {
				meta.Params = make(map[string]any)
			}
			meta.Params[key] = value
		}
	}
	if i == start {
		return meta, lines
	}
	return meta, lines[i:]
}

func (r *rstRenderer) blocks(lines []string) {
	i := 0
	for i < len(lines) {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			i++
			continue
		}

		if n := r.sectionTitle(lines, i); n > 0 {
			i += n
			continue
		}

		if isAdornment(line) && len(strings.TrimSpace(line)) >= 4 && (i+1 >= len(lines) || strings.TrimSpace(lines[i+1]) == "") {
			r.out.WriteString("<hr>\n")
			i++
			continue
		}

		if strings.HasPrefix(line, "..") && (len(line) == 2 || line[2] == ' ') {
			i = r.explicitMarkup(lines, i)
			continue
		}

		if indentOf(line) > 0 {
			block, next := indentedBlock(lines, i, 1)
			r.out.WriteString("<blockquote>\n")
			r.blocks(block)
			r.out.WriteString("</blockquote>\n")
			i = next
			continue
		}

		if rstBulletRe.MatchString(line) {
			i = r.list(lines, i, rstBulletRe, "ul")
			continue
		}
		if rstEnumRe.MatchString(line) {
			i = r.list(lines, i, rstEnumRe, "ol")
			continue
		}

		i = r.paragraph(lines, i)
	}
}

// sectionTitle renders a title starting at lines[i] and returns how many
// lines it used, or 0 when lines[i] does not start a title.
func (r *rstRenderer) sectionTitle(lines []string, i int) int {
	line := lines[i]
	// overline, title, underline
	if isAdornment(line) && i+2 < len(lines) {
		title := strings.TrimSpace(lines[i+1])
		under := lines[i+2]
		if title != "" && !isAdornment(lines[i+1]) && strings.TrimRight(under, " ") == strings.TrimRight(line, " ") {
			r.heading("o"+line[:1], title)
			return 3
		}
	}
	// title, underline
	if indentOf(line) == 0 && !isAdornment(line) && i+1 < len(lines) {
		under := strings.TrimRight(lines[i+1], " ")
		if isAdornment(under) && utf8.RuneCountInString(under) >= utf8.RuneCountInString(strings.TrimSpace(line)) {
			r.heading(under[:1], strings.TrimSpace(line))
			return 2
		}
	}
	return 0
}

func (r *rstRenderer) heading(style, title string) {
	level := -1
	for n, s := range r.levels {
		if s == style {
			level = n
			break
		}
	}
	if level < 0 {
		r.levels = append(r.levels, style)
		level = len(r.levels) - 1
	}
	h := min(level+1, 6)
	if r.title == "" {
		r.title = stripInline(title)
	}
	fmt.Fprintf(&r.out, "<h%d id=\"%s\">%s</h%d>\n", h, r.anchor(title), r.inline(title), h)
}

func (r *rstRenderer) anchor(title string) string {
	var b strings.Builder
	dash := false
	for _, c := range strings.ToLower(stripInline(title)) {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			b.WriteRune(c)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	id := strings.TrimSuffix(b.String(), "-")
	if id == "" {
		id = "section"
	}
	r.ids[id]++
	if n := r.ids[id]; n > 1 {
		id = fmt.Sprintf("%s-%d", id, n-1)
	}
	return id
}

func (r *rstRenderer) paragraph(lines []string, i int) int {
	var para []string
	for i < len(lines) && strings.TrimSpace(lines[i]) != "" && indentOf(lines[i]) == 0 {
		para = append(para, strings.TrimSpace(lines[i]))
		i++
	}
	text := strings.Join(para, " ")

	literal := false
	switch {
	case text == "::":
		literal, text = true, ""
	case strings.HasSuffix(text, " ::"):
		literal, text = true, strings.TrimSuffix(text, " ::")
	case strings.HasSuffix(text, "::"):
		literal, text = true, strings.TrimSuffix(text, ":")
	}
	if text != "" {
		fmt.Fprintf(&r.out, "<p>%s</p>\n", r.inline(text))
	}
	if literal {
		j := skipBlank(lines, i)
		if j < len(lines) && indentOf(lines[j]) > 0 {
			block, next := indentedBlock(lines, j, 1)
			r.pre(block, "")
			return next
		}
	}
	return i
}

func (r *rstRenderer) list(lines []string, i int, marker *regexp.Regexp, tag string) int {
	fmt.Fprintf(&r.out, "<%s>\n", tag)
	for i < len(lines) {
		loc := marker.FindStringIndex(lines[i])
		if loc == nil || indentOf(lines[i]) != 0 {
			break
		}
		width := loc[1]
		item := []string{lines[i][width:]}
		j := i + 1
		for j < len(lines) {
			if strings.TrimSpace(lines[j]) == "" {
				k := skipBlank(lines, j)
				if k < len(lines) && indentOf(lines[k]) >= width {
					for ; j < k; j++ {
						item = append(item, "")
					}
					continue
				}
				break
			}
			if indentOf(lines[j]) < width {
				break
			}
			item = append(item, lines[j][width:])
			j++
		}

		sub := &rstRenderer{baseHref: r.baseHref, ids: r.ids, levels: r.levels}
		sub.blocks(item)
		body := strings.TrimSpace(sub.out.String())
		if strings.HasPrefix(body, "<p>") && strings.HasSuffix(body, "</p>") && strings.Count(body, "<p>") == 1 {
			body = strings.TrimSuffix(strings.TrimPrefix(body, "<p>"), "</p>")
		}
		fmt.Fprintf(&r.out, "<li>%s</li>\n", body)
		i = skipBlank(lines, j)
	}
	fmt.Fprintf(&r.out, "</%s>\n", tag)
	return i
}

var admonitions = map[string]string{
	"note":      "Note",
	"tip":       "Tip",
	"hint":      "Hint",
	"important": "Important",
	"warning":   "Warning",
	"caution":   "Caution",
	"danger":    "Danger",
	"attention": "Attention",
	"error":     "Error",
	"seealso":   "See also",
}

// explicitMarkup handles directives, hyperlink targets and comments.
func (r *rstRenderer) explicitMarkup(lines []string, i int) int {
	m := rstDirectiveRe.FindStringSubmatch(lines[i])
	block, next := indentedBlock(lines, i+1, 1)
	if m == nil {
		// comment or hyperlink target
		return next
	}
	name, arg := strings.ToLower(m[1]), strings.TrimSpace(m[2])

	// directive options come first, then the content
	var opts []string
	for len(block) > 0 && rstFieldRe.MatchString(block[0]) {
		opts = append(opts, block[0])
		block = block[1:]
	}
	block = trimBlankEdges(block)

	switch name {
	case "code-block", "code", "sourcecode":
		r.pre(block, arg)
	case "math":
		body := strings.TrimSpace(strings.Join(append([]string{arg}, block...), "\n"))
		fmt.Fprintf(&r.out, "<div class=\"math\">\\[%s\\]</div>\n", html.EscapeString(body))
	case "image", "figure":
		alt := ""
		for _, o := range opts {
			if f := rstFieldRe.FindStringSubmatch(o); f != nil && f[1] == "alt" {
				alt = f[2]
			}
		}
		fmt.Fprintf(&r.out, "<p><img src=\"%s\" alt=\"%s\"></p>\n", html.EscapeString(arg), html.EscapeString(alt))
		if name == "figure" && len(block) > 0 {
			fmt.Fprintf(&r.out, "<p class=\"caption\">%s</p>\n", r.inline(strings.Join(trimAll(block), " ")))
		}
	case "toctree", "only", "index", "meta":
		// navigation is built from every page in the project
	case "admonition":
		r.admonition("admonition", arg, block)
	default:
		if title, ok := admonitions[name]; ok {
			if arg != "" {
				block = append([]string{arg, ""}, block...)
			}
			r.admonition(name, title, block)
		}
	}
	return next
}

func (r *rstRenderer) admonition(class, title string, body []string) {
	fmt.Fprintf(&r.out, "<div class=\"admonition %s\">\n<p class=\"admonition-title\">%s</p>\n", class, r.inline(title))
	sub := &rstRenderer{baseHref: r.baseHref, ids: r.ids, levels: r.levels}
	sub.blocks(body)
	r.out.Write(sub.out.Bytes())
	r.out.WriteString("</div>\n")
}

func (r *rstRenderer) pre(block []string, lang string) {
	class := ""
	if lang != "" {
		class = fmt.Sprintf(" class=\"language-%s\"", html.EscapeString(lang))
	}
	fmt.Fprintf(&r.out, "<pre><code%s>%s</code></pre>\n", class, html.EscapeString(strings.Join(block, "\n")))
}

var rstInlineRe = regexp.MustCompile(
	"``(.+?)``" + // 1 literal
		"|:([\\w:+-]+):`([^`]+)`" + // 2 role, 3 text
		"|`([^`<]*?)\\s*<([^`>]+)>`__?" + // 4 link text, 5 url
		"|`([^`]+)`__?" + // 6 reference
		"|\\*\\*(.+?)\\*\\*" + // 7 strong
		"|\\*([^*\\s](?:[^*]*[^*\\s])?)\\*" + // 8 emphasis
		"|`([^`]+)`" + // 9 interpreted text
		"|(https?://[^\\s<>\"]+[^\\s<>\".,;:)])", // 10 bare url
)

// inline renders inline markup in s, escaping everything else.
func (r *rstRenderer) inline(s string) string {
	var b strings.Builder
	last := 0
	for _, m := range rstInlineRe.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(html.EscapeString(s[last:m[0]]))
		last = m[1]
		group := func(n int) string {
			if m[2*n] < 0 {
				return ""
			}
			return s[m[2*n]:m[2*n+1]]
		}
		switch {
		case m[2] >= 0:
			fmt.Fprintf(&b, "<code>%s</code>", html.EscapeString(group(1)))
		case m[4] >= 0:
			b.WriteString(r.role(group(2), group(3)))
		case m[8] >= 0:
			text := strings.TrimSpace(group(4))
			url := group(5)
			if text == "" {
				text = url
			}
			fmt.Fprintf(&b, "<a href=\"%s\">%s</a>", html.EscapeString(url), html.EscapeString(text))
		case m[12] >= 0:
			b.WriteString(html.EscapeString(group(6)))
		case m[14] >= 0:
			fmt.Fprintf(&b, "<strong>%s</strong>", html.EscapeString(group(7)))
		case m[16] >= 0:
			fmt.Fprintf(&b, "<em>%s</em>", html.EscapeString(group(8)))
		case m[18] >= 0:
			fmt.Fprintf(&b, "<em>%s</em>", html.EscapeString(group(9)))
		case m[20] >= 0:
			u := html.EscapeString(group(10))
			fmt.Fprintf(&b, "<a href=\"%s\">%s</a>", u, u)
		}
	}
	b.WriteString(html.EscapeString(s[last:]))
	return b.String()
}

var rstTitledTargetRe = regexp.MustCompile(`^(.*?)\s*<([^>]+)>$`)

func (r *rstRenderer) role(name, text string) string {
	label, target := text, text
	if m := rstTitledTargetRe.FindStringSubmatch(text); m != nil {
		label, target = m[1], m[2]
	}
	switch name {
	case "math":
		return "\\(" + html.EscapeString(text) + "\\)"
	case "doc":
		href := strings.TrimPrefix(target, "/") + ".html"
		if strings.HasPrefix(target, "/") {
			href = r.baseHref + href
		}
		return fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(href), html.EscapeString(label))
	case "ref", "term", "abbr":
		return html.EscapeString(label)
	case "strong":
		return "<strong>" + html.EscapeString(text) + "</strong>"
	case "emphasis":
		return "<em>" + html.EscapeString(text) + "</em>"
	}
	return "<code>" + html.EscapeString(label) + "</code>"
}

// stripInline removes inline markup characters, for titles and anchors.
func stripInline(s string) string {
	return strings.NewReplacer("``", "", "**", "", "*", "", "`", "").Replace(s)
}

// isAdornment reports whether line is a run of one repeated punctuation character.
func isAdornment(line string) bool {
	line = strings.TrimRight(line, " ")
	if len(line) < 2 {
		return false
	}
	c := line[0]
	if !strings.ContainsRune("=-`:'\"~^_*+#<>.", rune(c)) {
		return false
	}
	return strings.Count(line, string(c)) == len(line)
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " "))
}

func skipBlank(lines []string, i int) int {
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return i
}

// indentedBlock collects the lines from i on that are blank or indented by at
// least minIndent, and returns them dedented with the index after the block.
func indentedBlock(lines []string, i, minIndent int) ([]string, int) {
	var block []string
	j := i
	for j < len(lines) {
		if strings.TrimSpace(lines[j]) == "" {
			block = append(block, "")
			j++
			continue
		}
		if indentOf(lines[j]) < minIndent {
			break
		}
		block = append(block, lines[j])
		j++
	}
	// trailing blank lines belong to whatever follows
	for len(block) > 0 && block[len(block)-1] == "" {
		block = block[:len(block)-1]
		j--
	}

	common := -1
	for _, l := range block {
		if l == "" {
			continue
		}
		if n := indentOf(l); common < 0 || n < common {
			common = n
		}
	}
	for k, l := range block {
		if l != "" {
			block[k] = l[common:]
		}
	}
	return block, j
}

func trimBlankEdges(block []string) []string {
	for len(block) > 0 && strings.TrimSpace(block[0]) == "" {
		block = block[1:]
	}
	for len(block) > 0 && strings.TrimSpace(block[len(block)-1]) == "" {
		block = block[:len(block)-1]
	}
	return block
}

func trimAll(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}
