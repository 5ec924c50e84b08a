package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// malformedJSONFixer は `,"key","value"` 形式の壊れたJSONを
// `,"key": "value"` に補修するためのパターン。
// 一部のクライアントがコロンをカンマとして送ってくる実績があるための救済措置。
var malformedJSONFixer = regexp.MustCompile(`,\s*"([^"\\]+)"\s*,\s*"`)

// readBodyPayload はリクエストボディを寛容にパースしてキー値マップに変換する。
//
// Content-Typeの宣言を優先しつつ、宣言と中身が食い違う場合は
// JSON→フォームエンコードの順で再解釈を試みる。
// どの解釈でも読めないボディは空のペイロードとして扱う（エラーにしない）。
func readBodyPayload(r *http.Request) map[string]any {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return map[string]any{}
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return map[string]any{}
	}

	contentType := strings.ToLower(r.Header.Get("Content-Type"))

	if strings.Contains(contentType, "application/json") || strings.Contains(contentType, "text/json") {
		if parsed := tryParseJSONLoose(trimmed); parsed != nil {
			return parsed
		}
	} else if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		if parsed := tryParseForm(trimmed); parsed != nil {
			return parsed
		}
	}

	if parsed := tryParseJSONLoose(trimmed); parsed != nil {
		return parsed
	}
	if parsed := tryParseForm(strings.TrimPrefix(trimmed, "?")); parsed != nil {
		return parsed
	}

	return map[string]any{}
}

// tryParseJSONLoose は素のJSONパースと補修後のパースを順に試す。
// オブジェクトにデコードできなければnilを返す。
func tryParseJSONLoose(raw string) map[string]any {
	attempts := []string{raw}
	if patched := malformedJSONFixer.ReplaceAllString(raw, `,"$1": "`); patched != raw {
		attempts = append(attempts, patched)
	}

	for _, candidate := range attempts {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil && parsed != nil {
			return parsed
		}
	}
	return nil
}

// tryParseForm はフォームエンコードされた文字列をペイロードに変換する。
// 同一キーの重複は文字列スライスに畳み込む。
// key=value形式を1つも含まない文字列はフォームとして扱わない
// （JSONボディが巨大な1キーとして誤解釈されるのを防ぐ）。
func tryParseForm(raw string) map[string]any {
	if !strings.Contains(raw, "=") {
		return nil
	}
	values, err := url.ParseQuery(raw)
	if err != nil || len(values) == 0 {
		return nil
	}
	payload := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			payload[key] = vals[0]
		} else {
			payload[key] = vals
		}
	}
	return payload
}

// payloadString はペイロードのフィールドを文字列として取り出す。
// キーが存在しない、または値がnullの場合はok=falseを返す。
func payloadString(payload map[string]any, key string) (string, bool) {
	v, exists := payload[key]
	if !exists || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10), true
		}
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case json.Number:
		return val.String(), true
	case bool:
		return strconv.FormatBool(val), true
	case []string:
		if len(val) > 0 {
			return val[0], true
		}
		return "", false
	default:
		return fmt.Sprint(val), true
	}
}

// respondJSON はJSONレスポンスを書き込む。
func respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
