package run

const (
	titleTooLarge    = "Слишком большой файл"
	titleRateLimited = "Слишком много запросов"
	titleTimeout     = "Время ожидания истекло"
	titleUnavailable = "Сервис временно недоступен"
	titleDefault     = "Ошибка обработки"
	titleNoResult    = "Обработка не завершена"
	titleRequest     = "Ошибка запроса"
)

// ErrorTitle derives a short title from an HTTP status hint and the issue
// codes of a failed payload. The first matching rule wins.
func ErrorTitle(status int, issueCodes []string) string {
	codes := make(map[string]struct{}, len(issueCodes))
	for _, code := range issueCodes {
		codes[code] = struct{}{}
	}
	has := func(code string) bool {
		_, ok := codes[code]
		return ok
	}
	switch {
	case status == 413 || has("pdf_too_large"):
		return titleTooLarge
	case status == 429 || has("anthropic_rate_limited"):
		return titleRateLimited
	case status == 504 || has("anthropic_timeout"):
		return titleTimeout
	case status >= 500:
		return titleUnavailable
	default:
		return titleDefault
	}
}
