package schemas

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrParse - ответ модели не удалось разобрать в StorySchema.
var ErrParse = errors.New("failed to parse story response")

// ParseError несет исходный текст ответа для диагностики.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %v", ErrParse, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

const fence = "```"

var compiledStorySchema = jsonschema.MustCompileString("story_response.json", storyJSONSchema)

// ExtractJSON возвращает содержимое первого блока ``` (с необязательным тегом
// языка). Незакрытый блок берется до конца текста. Без блока, если текст
// не начинается с '{', берется отрезок от первой '{' до последней '}'.
func ExtractJSON(text string) string {
	start := strings.Index(text, fence)
	if start < 0 {
		trimmed := strings.TrimSpace(text)
		if strings.HasPrefix(trimmed, "{") {
			return trimmed
		}
		open, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}")
		if open >= 0 && end > open {
			return trimmed[open : end+1]
		}
		return trimmed
	}

	body := text[start+len(fence):]
	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(stripLanguageTag(body))
}

// stripLanguageTag убирает тег вроде "json" сразу после открывающего ```.
func stripLanguageTag(body string) string {
	i := 0
	for i < len(body) && (unicode.IsLetter(rune(body[i])) || unicode.IsDigit(rune(body[i]))) {
		i++
	}
	if i == 0 || i == len(body) {
		return body
	}
	switch body[i] {
	case '\n', '\r', ' ', '\t', '{':
		return body[i:]
	}
	return body
}

// ParseStoryResponse разбирает текст модели в StorySchema.
func ParseStoryResponse(raw string) (*StorySchema, error) {
	content := ExtractJSON(raw)
	if content == "" {
		return nil, &ParseError{Raw: raw, Err: errors.New("empty response")}
	}

	var doc any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if err := compiledStorySchema.Validate(doc); err != nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("schema mismatch: %w", err)}
	}

	obj := doc.(map[string]any)
	root := normalizeNode(obj["rootNode"])
	if root == nil {
		// Схема уже гарантирует content, но оставляем проверку
		return nil, &ParseError{Raw: raw, Err: errors.New("rootNode is malformed")}
	}
	return &StorySchema{
		Title: strings.TrimSpace(obj["title"].(string)),
		Root:  root,
	}, nil
}

// normalizeNode превращает декодированный JSON в NodeSchema.
// Не объект, узел без content или без булевых isEnding/isWinningEnding дают nil.
func normalizeNode(v any) *NodeSchema {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	content, ok := m["content"].(string)
	if !ok {
		return nil
	}
	isEnding, ok := m["isEnding"].(bool)
	if !ok {
		return nil
	}
	isWinning, ok := m["isWinningEnding"].(bool)
	if !ok {
		return nil
	}
	node := &NodeSchema{Content: content, IsEnding: isEnding, IsWinningEnding: isWinning}

	rawOptions, _ := m["options"].([]any)
	for _, ro := range rawOptions {
		// Порядок сохраняем даже для битых вариантов: лимит применяется по позиции
		om, _ := ro.(map[string]any)
		text, _ := om["text"].(string)
		node.Options = append(node.Options, OptionSchema{
			Text: text,
			Next: normalizeNode(om["nextNode"]),
		})
	}
	return node
}
