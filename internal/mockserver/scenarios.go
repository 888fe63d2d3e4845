package mockserver

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Scenario names a scripted response of the mock back end.
type Scenario string

const (
	// ScenarioOK streams steps and a successful result.
	ScenarioOK Scenario = "ok"
	// ScenarioError streams steps and a failed result.
	ScenarioError Scenario = "error"
	// ScenarioFallback ends with a free-text line carrying the extract.
	ScenarioFallback Scenario = "fallback"
	// ScenarioTimeout ends with a free-text line carrying a 504 error object.
	ScenarioTimeout Scenario = "timeout"
	// ScenarioJSON answers with a single application/json document.
	ScenarioJSON Scenario = "json"
	// ScenarioSlow paces the ok script with a delay between records.
	ScenarioSlow Scenario = "slow"
	// ScenarioNoResult streams steps and never a terminal record.
	ScenarioNoResult Scenario = "noresult"
	// ScenarioEmpty answers 200 with an empty body.
	ScenarioEmpty Scenario = "empty"
	// ScenarioRateLimited fails the way an upstream 429 is reported.
	ScenarioRateLimited Scenario = "ratelimited"
)

var scenarios = map[Scenario]struct{}{
	ScenarioOK: {}, ScenarioError: {}, ScenarioFallback: {}, ScenarioTimeout: {},
	ScenarioJSON: {}, ScenarioSlow: {}, ScenarioNoResult: {}, ScenarioEmpty: {},
	ScenarioRateLimited: {},
}

// ParseScenario validates a scenario name; empty means ok.
func ParseScenario(value string) (Scenario, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ScenarioOK, nil
	}
	if _, ok := scenarios[Scenario(value)]; !ok {
		return "", fmt.Errorf("unknown scenario %q (expected %s)", value, strings.Join(ScenarioNames(), "|"))
	}
	return Scenario(value), nil
}

// ScenarioNames lists the known scenarios.
func ScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// script is the ordered list of lines a scenario writes.
type script struct {
	lines    []string
	document []byte
	status   int
}

// buildScript renders the records of a scenario for one upload.
func buildScript(scenario Scenario, fileName string, size int, requestID string) script {
	uploaded := fmt.Sprintf("Файл загружен: name=%s, bytes=%d", fileName, size)
	analysis := []string{
		"PDF открыт: pages_total=1, pages_to_send=1, color_mode=gray",
		"Шаг PDF->PNG: страниц 1",
		"Шаг vision: отправка PNG в Anthropic",
		"Шаг vision: ответ получен, chars=512",
	}
	success := successPayload(fileName, requestID)

	switch scenario {
	case ScenarioError:
		failure := map[string]any{
			"error":       "Ошибка при обработке PDF.",
			"status":      502,
			"detail":      "AI-сервис временно недоступен. Повторите попытку позже.",
			"debug_steps": []string{"Anthropic APIError в api_extract_stream: APIStatusError"},
		}
		lines := append([]string{stepLine(uploaded)}, stepLines(analysis[:2])...)
		lines = append(lines, recordLine(map[string]any{"type": "result", "ok": false, "status": 502, "payload": failure}))
		return script{lines: lines, status: 200}
	case ScenarioFallback:
		lines := append([]string{stepLine(uploaded)}, stepLines(analysis)...)
		lines = append(lines,
			stepLine("Шаг structured.parse: ошибка ValidationError: bad json; пробуем fallback через messages.create"),
			stepLine("Шаг structured.fallback.validate: JSON валиден"),
			"structured output recovered: "+mustJSON(success),
		)
		return script{lines: lines, status: 200}
	case ScenarioTimeout:
		lines := append([]string{stepLine(uploaded)}, stepLines(analysis[:3])...)
		lines = append(lines, stepLine("Шаг vision: timeout"), `upstream timeout {"detail":"timeout","status":504}`)
		return script{lines: lines, status: 200}
	case ScenarioRateLimited:
		failure := map[string]any{
			"error":  "AI-сервис временно перегружен (rate limit). Повторите попытку через минуту.",
			"status": 503,
			"issues": []map[string]any{{
				"severity": "error",
				"domain":   "upstream",
				"code":     "anthropic_rate_limited",
				"message":  "rate limit at structured.parse",
			}},
		}
		lines := append([]string{stepLine(uploaded)}, stepLines(analysis)...)
		lines = append(lines, recordLine(map[string]any{"type": "result", "ok": false, "status": 503, "payload": failure}))
		return script{lines: lines, status: 200}
	case ScenarioJSON:
		return script{document: []byte(mustJSON(success)), status: 200}
	case ScenarioNoResult:
		lines := append([]string{stepLine(uploaded)}, stepLines(analysis)...)
		return script{lines: lines, status: 200}
	case ScenarioEmpty:
		return script{status: 200}
	default:
		lines := append([]string{stepLine(uploaded)}, stepLines(analysis)...)
		lines = append(lines,
			stepLine("Шаг structured.parse: успешно"),
			stepLine("compliance: проверено правил 12"),
			stepLine("Готово: extraction успешно завершён"),
			recordLine(map[string]any{"type": "result", "ok": true, "status": 200, "payload": success}),
		)
		return script{lines: lines, status: 200}
	}
}

// successPayload is a plausible extraction result.
func successPayload(fileName, requestID string) map[string]any {
	return map[string]any{
		"extract": map[string]any{
			"schema_version": "1.0",
			"employer_name":  "ООО «Ромашка»",
			"employee": map[string]any{
				"full_name":        "Иванов Иван Иванович",
				"position":         "Инженер",
				"personnel_number": "00042",
			},
			"manager":      map[string]any{"full_name": "Петров Пётр Петрович"},
			"request_date": "2026-03-01",
			"leave": map[string]any{
				"leave_type": "annual_paid",
				"start_date": "2026-04-01",
				"end_date":   "2026-04-14",
				"days_count": 14,
			},
			"signature_present": true,
			"raw_text":          "Прошу предоставить ежегодный оплачиваемый отпуск (" + fileName + ")",
		},
		"issues": []map[string]any{
			{
				"severity": "warn",
				"domain":   "compliance",
				"category": "dates",
				"code":     "request_date_close_to_start",
				"field":    "request_date",
				"message":  "Заявление подано менее чем за 2 недели до начала отпуска.",
			},
		},
		"decision": map[string]any{
			"status":        "warn",
			"needs_rewrite": false,
			"summary":       "Есть замечания. Проверьте поля перед отправкой в кадровую службу.",
		},
		"trace": map[string]any{
			"request_id": requestID,
			"timings_ms": map[string]int{"vision": 820, "structured": 310, "total": 1180},
		},
	}
}

// stepLine renders a step record.
func stepLine(message string) string {
	return recordLine(map[string]any{"type": "step", "message": message})
}

// stepLines renders several step records.
func stepLines(messages []string) []string {
	out := make([]string, 0, len(messages))
	for _, message := range messages {
		out = append(out, stepLine(message))
	}
	return out
}

// recordLine renders one record without a trailing newline.
func recordLine(value any) string {
	return mustJSON(value)
}

// mustJSON marshals values built from literals.
func mustJSON(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("mockserver: marshal: %v", err))
	}
	return string(data)
}
