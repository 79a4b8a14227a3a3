// Package expect evaluates declarative expectations against probe results.
package expect

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tmater/propcheck/internal/config"
	"github.com/tmater/propcheck/internal/postgrest"
	"github.com/tmater/propcheck/internal/probe"
)

// Detail is the result of one expectation.
type Detail struct {
	Expectation config.Expectation
	Pass        bool
	Actual      string
	Message     string
}

// Outcome aggregates all expectations of a check. Every expectation must pass.
type Outcome struct {
	Pass    bool
	Message string
	Details []Detail
}

// Evaluate checks r against exps. With no expectations an HTTP probe passes
// on any 2xx/3xx status and other probes pass when they have no error.
func Evaluate(exps []config.Expectation, r probe.Result) Outcome {
	if r.Failed() {
		return Outcome{Pass: false, Message: r.Err}
	}
	if len(exps) == 0 {
		return defaultOutcome(r)
	}

	out := Outcome{Pass: true}
	var messages []string
	for _, e := range exps {
		d := evaluateSingle(e, r)
		out.Details = append(out.Details, d)
		if !d.Pass {
			out.Pass = false
			messages = append(messages, d.Message)
		}
	}
	out.Message = strings.Join(messages, "; ")
	return out
}

func defaultOutcome(r probe.Result) Outcome {
	if r.Kind != probe.KindHTTP {
		return Outcome{Pass: true}
	}
	if r.StatusCode >= 200 && r.StatusCode < 400 {
		return Outcome{Pass: true}
	}
	return Outcome{Pass: false, Message: fmt.Sprintf("unexpected status code: %d", r.StatusCode)}
}

func evaluateSingle(e config.Expectation, r probe.Result) Detail {
	switch e.Type {
	case "status_code":
		return evalStatusCode(e, r.StatusCode)
	case "body_contains":
		return evalBodyContains(e, r.Text)
	case "json_path":
		return evalJSONPath(e, r)
	case "header":
		return evalHeader(e, r)
	case "response_time":
		return evalResponseTime(e, r.Elapsed.Milliseconds())
	case "error_code":
		return evalErrorCode(e, r)
	default:
		return Detail{Expectation: e, Pass: false, Message: fmt.Sprintf("unknown expectation type: %s", e.Type)}
	}
}

func evalStatusCode(e config.Expectation, status int) Detail {
	actual := strconv.Itoa(status)
	var pass bool
	if e.Operator == "in" {
		for _, v := range strings.Split(e.Value, ",") {
			if strings.TrimSpace(v) == actual {
				pass = true
				break
			}
		}
	} else {
		expected, _ := strconv.Atoi(e.Value)
		pass = compareInt(int64(status), int64(expected), e.Operator)
	}
	msg := ""
	if !pass {
		msg = fmt.Sprintf("status_code: expected %s %s, got %d", opName(e.Operator), e.Value, status)
	}
	return Detail{Expectation: e, Pass: pass, Actual: actual, Message: msg}
}

func evalBodyContains(e config.Expectation, body string) Detail {
	op := e.Operator
	if op == "" {
		op = "contains"
	}
	var pass bool
	switch op {
	case "contains":
		pass = strings.Contains(body, e.Value)
	case "not_contains":
		pass = !strings.Contains(body, e.Value)
	default:
		return Detail{Expectation: e, Pass: false, Message: fmt.Sprintf("body_contains: unsupported operator %s", e.Operator)}
	}
	msg := ""
	if !pass {
		msg = fmt.Sprintf("body_contains: %s '%s' failed", op, truncate(e.Value, 50))
	}
	return Detail{Expectation: e, Pass: pass, Message: msg}
}

func evalJSONPath(e config.Expectation, r probe.Result) Detail {
	if !r.IsJSON {
		return Detail{Expectation: e, Pass: false, Message: "json_path: body is not JSON"}
	}
	val, err := Walk(r.JSON, e.Target)
	if err != nil {
		if e.Operator == "exists" {
			return Detail{Expectation: e, Pass: false, Message: fmt.Sprintf("json_path: %s does not exist", e.Target)}
		}
		if e.Operator == "not_exists" {
			return Detail{Expectation: e, Pass: true}
		}
		return Detail{Expectation: e, Pass: false, Message: fmt.Sprintf("json_path: %v", err)}
	}

	actual := stringify(val)
	switch e.Operator {
	case "exists":
		return Detail{Expectation: e, Pass: true, Actual: actual}
	case "not_exists":
		return Detail{Expectation: e, Pass: false, Actual: actual, Message: fmt.Sprintf("json_path: %s exists", e.Target)}
	}

	pass := compareString(actual, e.Value, e.Operator)
	msg := ""
	if !pass {
		msg = fmt.Sprintf("json_path %s: expected %s %s, got %s", e.Target, opName(e.Operator), e.Value, truncate(actual, 100))
	}
	return Detail{Expectation: e, Pass: pass, Actual: actual, Message: msg}
}

func evalHeader(e config.Expectation, r probe.Result) Detail {
	var val string
	var exists bool
	if r.Header != nil {
		vals := r.Header.Values(e.Target)
		exists = len(vals) > 0
		if exists {
			val = vals[0]
		}
	}

	if e.Operator == "exists" {
		msg := ""
		if !exists {
			msg = fmt.Sprintf("header: %s does not exist", e.Target)
		}
		return Detail{Expectation: e, Pass: exists, Actual: val, Message: msg}
	}
	if !exists {
		return Detail{Expectation: e, Pass: false, Message: fmt.Sprintf("header: %s not found", e.Target)}
	}

	pass := compareString(val, e.Value, e.Operator)
	msg := ""
	if !pass {
		msg = fmt.Sprintf("header %s: expected %s %s, got %s", e.Target, opName(e.Operator), e.Value, truncate(val, 100))
	}
	return Detail{Expectation: e, Pass: pass, Actual: val, Message: msg}
}

func evalResponseTime(e config.Expectation, ms int64) Detail {
	expected, _ := strconv.ParseInt(e.Value, 10, 64)
	pass := compareInt(ms, expected, e.Operator)
	msg := ""
	if !pass {
		msg = fmt.Sprintf("response_time: expected %s %sms, got %dms", opName(e.Operator), e.Value, ms)
	}
	return Detail{Expectation: e, Pass: pass, Actual: strconv.FormatInt(ms, 10), Message: msg}
}

func evalErrorCode(e config.Expectation, r probe.Result) Detail {
	actual := postgrest.ErrorCode(r)
	pass := compareString(actual, e.Value, e.Operator)
	msg := ""
	if !pass {
		msg = fmt.Sprintf("error_code: expected %s %s, got %q", opName(e.Operator), e.Value, actual)
	}
	return Detail{Expectation: e, Pass: pass, Actual: actual, Message: msg}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	case map[string]any, []any:
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func compareInt(actual, expected int64, op string) bool {
	switch op {
	case "eq", "":
		return actual == expected
	case "neq":
		return actual != expected
	case "gt":
		return actual > expected
	case "lt":
		return actual < expected
	case "gte":
		return actual >= expected
	case "lte":
		return actual <= expected
	default:
		return actual == expected
	}
}

func compareString(actual, expected, op string) bool {
	switch op {
	case "eq", "":
		return actual == expected
	case "neq":
		return actual != expected
	case "contains":
		return strings.Contains(actual, expected)
	case "not_contains":
		return !strings.Contains(actual, expected)
	case "prefix":
		return strings.HasPrefix(actual, expected)
	case "suffix":
		return strings.HasSuffix(actual, expected)
	default:
		return actual == expected
	}
}

func opName(op string) string {
	if op == "" {
		return "eq"
	}
	return op
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
