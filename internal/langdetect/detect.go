// Package langdetect 为 CodeState 自动识别编程语言标签。
package langdetect

import (
	"strings"

	"github.com/go-enry/go-enry/v2"

	"woori-codeshare/internal/domain"
)

// candidates 是分类器参与比较的语言，覆盖编辑器支持的常见语言。
var candidates = []string{
	"JavaScript", "TypeScript", "Python", "Java", "Go", "C", "C++", "C#",
	"Kotlin", "Rust", "Ruby", "PHP", "Swift", "Shell", "SQL", "HTML", "CSS",
}

// editorIDs 将 linguist 语言名映射为编辑器的语言 ID。
var editorIDs = map[string]string{
	"C++":   "cpp",
	"C#":    "csharp",
	"Shell": "shell",
}

// minSample 以下的文本不做分类，避免对一两个单词给出随机结果。
const minSample = 12

// Detect 返回代码的语言标签；无法识别时返回 domain.DefaultLanguage。
func Detect(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return domain.DefaultLanguage
	}
	content := []byte(trimmed)

	if langs := enry.GetLanguagesByShebang("", content, nil); len(langs) > 0 {
		return EditorID(langs[0])
	}
	if langs := enry.GetLanguagesByModeline("", content, nil); len(langs) > 0 {
		return EditorID(langs[0])
	}
	if len(trimmed) < minSample {
		return domain.DefaultLanguage
	}
	if langs := enry.GetLanguagesByClassifier("", content, candidates); len(langs) > 0 {
		return EditorID(langs[0])
	}
	return domain.DefaultLanguage
}

// EditorID 将 linguist 语言名转换为编辑器 ID。
func EditorID(language string) string {
	if language == "" {
		return domain.DefaultLanguage
	}
	if id, ok := editorIDs[language]; ok {
		return id
	}
	return strings.ToLower(language)
}
