package prompt

import (
	_ "embed"
	"strconv"
	"strings"
)

// DefaultTheme используется, когда тема не передана.
const DefaultTheme = "fantasy"

//go:embed prompts/story_prompt.md
var storyTemplate string

// OutputSchema - буквальное описание формата ответа, которое получает модель.
const OutputSchema = `{
  "title": "Story Title",
  "rootNode": {
    "content": "The starting situation of the story",
    "isEnding": false,
    "isWinningEnding": false,
    "options": [
      {
        "text": "Option 1 text",
        "nextNode": {
          "content": "What happens after option 1",
          "isEnding": true,
          "isWinningEnding": true,
          "options": []
        }
      }
    ]
  }
}`

// Payload - запрос к модели: системная инструкция и сообщение пользователя.
type Payload struct {
	System string
	User   string
	Theme  string
}

// Builder собирает запрос на генерацию истории. Без побочных эффектов.
type Builder struct {
	maxDepth   int
	maxOptions int
}

// NewBuilder создает Builder с ограничениями дерева, которые попадут в инструкцию.
func NewBuilder(maxDepth, maxOptions int) *Builder {
	return &Builder{maxDepth: maxDepth, maxOptions: maxOptions}
}

// NormalizeTheme обрезает пробелы и подставляет тему по умолчанию.
func NormalizeTheme(theme string) string {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return DefaultTheme
	}
	return theme
}

// Build возвращает детерминированный Payload для темы.
func (b *Builder) Build(theme string) Payload {
	theme = NormalizeTheme(theme)
	system := strings.NewReplacer(
		"{{THEME}}", theme,
		"{{MAX_OPTIONS}}", strconv.Itoa(b.maxOptions),
		"{{MAX_DEPTH}}", strconv.Itoa(b.maxDepth),
		"{{OUTPUT_SCHEMA}}", OutputSchema,
	).Replace(storyTemplate)

	return Payload{
		System: strings.TrimSpace(system),
		User:   "Create a story with theme: " + theme,
		Theme:  theme,
	}
}
