package datavalues

import (
	"regexp"
	"strings"

	"github.com/zhaox1n/datafuse/errorcode"
)

// LikeMatcher matches strings against a SQL LIKE pattern: % matches any
// sequence, _ matches one character and a backslash escapes the next one.
type LikeMatcher struct {
	literal string
	re      *regexp.Regexp
}

func CompileLike(pattern string) (*LikeMatcher, error) {
	if !strings.ContainsAny(pattern, `%_\`) {
		return &LikeMatcher{literal: pattern}, nil
	}
	var sb strings.Builder
	sb.WriteString(`(?s)^`)
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			sb.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			sb.WriteString(`.*`)
		case r == '_':
			sb.WriteString(`.`)
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		sb.WriteString(regexp.QuoteMeta(`\`))
	}
	sb.WriteString(`$`)
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, errorcode.BadArguments("Invalid LIKE pattern %q: %v", pattern, err)
	}
	return &LikeMatcher{re: re}, nil
}

func (m *LikeMatcher) Match(s string) bool {
	if m.re == nil {
		return s == m.literal
	}
	return m.re.MatchString(s)
}

// Like evaluates lhs LIKE rhs with the comparison broadcasting rules. Both
// operands must be strings.
func Like(lhs, rhs Series) (*BooleanArray, error) {
	return likeKernel(OpLike, lhs, rhs)
}

func NotLike(lhs, rhs Series) (*BooleanArray, error) {
	return likeKernel(OpNotLike, lhs, rhs)
}

func likeKernel(op CompareOp, lhs, rhs Series) (*BooleanArray, error) {
	lt, rt := lhs.DataType(), rhs.DataType()
	if (lt.id != TypeUtf8 && !lt.IsNull()) || (rt.id != TypeUtf8 && !rt.IsNull()) {
		return nil, unsupportedCompare(op, lt, rt)
	}
	n, mode, err := broadcastMode(op.String(), lhs, rhs)
	if err != nil {
		return nil, err
	}
	switch mode {
	case scalarRight:
		if rhs.IsNull(0) {
			return allFalse(n), nil
		}
	case scalarLeft:
		if lhs.IsNull(0) {
			return allFalse(n), nil
		}
	}
	if lt.IsNull() || rt.IsNull() {
		return allNull(n), nil
	}
	l, r := lhs.(*Utf8Array), rhs.(*Utf8Array)

	negate := op == OpNotLike
	matchers := make(map[string]*LikeMatcher)
	matcher := func(pattern string) (*LikeMatcher, error) {
		if m, ok := matchers[pattern]; ok {
			return m, nil
		}
		m, err := CompileLike(pattern)
		if err != nil {
			return nil, err
		}
		matchers[pattern] = m
		return m, nil
	}

	out := make([]bool, n)
	for i := range out {
		li, ri := rowIndices(mode, i)
		if l.IsNull(li) || r.IsNull(ri) {
			continue
		}
		m, err := matcher(r.values[ri])
		if err != nil {
			return nil, err
		}
		out[i] = m.Match(l.values[li]) != negate
	}

	validity := l.validity
	switch mode {
	case scalarLeft:
		validity = r.validity
	case elementwise:
		validity = CombineValidities(l.validity, r.validity)
	}
	return finishBool(out, validity), nil
}
