package schemas

// StorySchema - нормализованный ответ модели. Дальше по конвейеру
// читается только этот тип.
type StorySchema struct {
	Title string
	Root  *NodeSchema
}

// NodeSchema - узел дерева в том виде, в каком его описала модель.
// Ограничения глубины и ветвления здесь не применяются.
type NodeSchema struct {
	Content         string
	IsEnding        bool
	IsWinningEnding bool
	Options         []OptionSchema
}

// OptionSchema - вариант выбора. Next == nil, если дочерний узел
// отсутствует или описан некорректно.
type OptionSchema struct {
	Text string
	Next *NodeSchema
}

// CountNodes возвращает число узлов в поддереве (для логов и метрик).
func (n *NodeSchema) CountNodes() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, o := range n.Options {
		total += o.Next.CountNodes()
	}
	return total
}

// storyJSONSchema проверяет обязательную форму ответа. Элементы options и
// вложенные узлы проверяются при нормализации: битый вариант пропускается.
const storyJSONSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["title", "rootNode"],
  "properties": {
    "title": {"type": "string"},
    "rootNode": {
      "type": "object",
      "required": ["content", "isEnding", "isWinningEnding"],
      "properties": {
        "content": {"type": "string"},
        "isEnding": {"type": "boolean"},
        "isWinningEnding": {"type": "boolean"},
        "options": {"type": ["array", "null"]}
      }
    }
  }
}`
